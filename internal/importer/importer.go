package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"adeptly/internal/logger"
	"adeptly/internal/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// Recognized header names. Matching is case-insensitive.
const (
	ColName            = "name"
	ColTopics          = "topics"
	ColPrompt          = "prompt"
	ColChoiceA         = "choice_a"
	ColChoiceB         = "choice_b"
	ColChoiceC         = "choice_c"
	ColChoiceD         = "choice_d"
	ColCorrectAnswer   = "correct_answer"
	ColEstimatedTime   = "estimated_time_to_complete"
	ColDifficulty      = "difficulty"
	ColProblemDiagram  = "problem_diagram"
	ColSolutionDiagram = "solution_diagram"
)

var requiredColumns = []string{
	ColName, ColTopics, ColPrompt,
	ColChoiceA, ColChoiceB, ColChoiceC, ColChoiceD,
	ColCorrectAnswer, ColEstimatedTime,
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath  string // .xlsx or .csv
	SheetName string // xlsx only, first sheet when empty
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int      `json:"total_processed"`
	Created        int      `json:"created"`
	Skipped        int      `json:"skipped"`
	TopicsCreated  []string `json:"topics_created"`
	Errors         []string `json:"errors"`
}

// Importer loads problems into the catalog.
type Importer struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, log *logger.Logger) *Importer {
	return &Importer{db: db, log: logger.OrNop(log).With("component", "importer")}
}

// ImportFile reads config.FilePath and imports its rows in one transaction.
func (im *Importer) ImportFile(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(config.FilePath)) {
	case ".csv":
		rows, err = readCSV(config.FilePath)
	case ".xlsx", ".xlsm":
		rows, err = readExcel(config.FilePath, config.SheetName)
	default:
		return nil, fmt.Errorf("unsupported import file type: %s", config.FilePath)
	}
	if err != nil {
		return nil, err
	}
	return im.ImportRows(ctx, rows)
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()
	return ReadCSV(file)
}

// ReadCSV reads every record of r, tolerating ragged rows.
func ReadCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

// ImportRows imports a header row followed by one problem per row.
// Existing problem names are skipped; unknown topics are created.
func (im *Importer) ImportRows(ctx context.Context, rows [][]string) (*ImportResult, error) {
	if len(rows) == 0 {
		return nil, errors.New("import file is empty")
	}
	index, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	result := &ImportResult{TopicsCreated: []string{}, Errors: []string{}}
	err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		topics := make(map[string]models.Topic)
		for i, row := range rows[1:] {
			line := i + 2
			if blank(row) {
				continue
			}
			result.TotalProcessed++

			problem, topicNames, err := parseRow(row, index)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", line, err))
				continue
			}

			var existing int64
			if err := tx.Model(&models.Problem{}).Where("name = ?", problem.Name).Count(&existing).Error; err != nil {
				return fmt.Errorf("check problem %q: %w", problem.Name, err)
			}
			if existing > 0 {
				result.Skipped++
				continue
			}

			for _, name := range topicNames {
				t, ok := topics[name]
				if !ok {
					var created bool
					t, created, err = models.FirstOrCreateTopic(tx, name)
					if err != nil {
						return err
					}
					if created {
						result.TopicsCreated = append(result.TopicsCreated, name)
					}
					topics[name] = t
				}
				problem.Topics = append(problem.Topics, t)
			}

			if err := tx.Create(&problem).Error; err != nil {
				return fmt.Errorf("create problem %q: %w", problem.Name, err)
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	im.log.Info("import finished",
		"processed", result.TotalProcessed,
		"created", result.Created,
		"skipped", result.Skipped,
		"topics_created", len(result.TopicsCreated),
		"errors", len(result.Errors),
	)
	return result, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.ReplaceAll(key, " ", "_")
		if key == "estimated_time" {
			key = ColEstimatedTime
		}
		index[key] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return index, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, index map[string]int, col string) string {
	i, ok := index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// SplitTopics splits a topics cell on ';' or ',' and drops empty names.
func SplitTopics(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' })
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func parseRow(row []string, index map[string]int) (models.Problem, []string, error) {
	p := models.Problem{
		Name:            cell(row, index, ColName),
		Prompt:          cell(row, index, ColPrompt),
		ChoiceA:         cell(row, index, ColChoiceA),
		ChoiceB:         cell(row, index, ColChoiceB),
		ChoiceC:         cell(row, index, ColChoiceC),
		ChoiceD:         cell(row, index, ColChoiceD),
		CorrectAnswer:   strings.ToUpper(cell(row, index, ColCorrectAnswer)),
		ProblemDiagram:  cell(row, index, ColProblemDiagram),
		SolutionDiagram: cell(row, index, ColSolutionDiagram),
		Difficulty:      models.DefaultDifficulty,
	}
	if p.Name == "" {
		return p, nil, errors.New("name is empty")
	}
	if p.Prompt == "" {
		return p, nil, errors.New("prompt is empty")
	}
	if !models.IsChoiceLabel(p.CorrectAnswer) {
		return p, nil, fmt.Errorf("correct answer %q is not one of A-D", p.CorrectAnswer)
	}

	minutes, err := strconv.Atoi(cell(row, index, ColEstimatedTime))
	if err != nil || minutes <= 0 {
		return p, nil, fmt.Errorf("invalid estimated time %q", cell(row, index, ColEstimatedTime))
	}
	p.EstimatedTimeToComplete = minutes

	if raw := cell(row, index, ColDifficulty); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < models.MinDifficulty || d > models.MaxDifficulty {
			return p, nil, fmt.Errorf("invalid difficulty %q", raw)
		}
		p.Difficulty = d
	}

	topics := SplitTopics(cell(row, index, ColTopics))
	if len(topics) == 0 {
		return p, nil, errors.New("no topics")
	}
	return p, topics, nil
}
