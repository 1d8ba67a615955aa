package models

import "time"

// Choice labels accepted as answers.
const (
	ChoiceA = "A"
	ChoiceB = "B"
	ChoiceC = "C"
	ChoiceD = "D"
)

// ChoiceLabels lists the four answer labels in display order.
var ChoiceLabels = []string{ChoiceA, ChoiceB, ChoiceC, ChoiceD}

// IsChoiceLabel reports whether s is one of A-D.
func IsChoiceLabel(s string) bool {
	for _, l := range ChoiceLabels {
		if s == l {
			return true
		}
	}
	return false
}

const (
	MinDifficulty     = 1
	MaxDifficulty     = 5
	DefaultDifficulty = 3
)

var difficultyNames = map[int]string{
	1: "Very Easy",
	2: "Easy",
	3: "Medium",
	4: "Hard",
	5: "Very Hard",
}

// DifficultyName returns the display label of a difficulty tier.
func DifficultyName(d int) string {
	return difficultyNames[d]
}

// Problem is a single four-choice question.
type Problem struct {
	ID     uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name   string  `gorm:"type:varchar(200);not null;index" json:"name"`
	Topics []Topic `gorm:"many2many:problem_topics;" json:"topics"`
	Prompt string  `gorm:"type:text;not null" json:"prompt"`

	ChoiceA string `gorm:"type:varchar(255)" json:"choice_a"`
	ChoiceB string `gorm:"type:varchar(255)" json:"choice_b"`
	ChoiceC string `gorm:"type:varchar(255)" json:"choice_c"`
	ChoiceD string `gorm:"type:varchar(255)" json:"choice_d"`

	CorrectAnswer string `gorm:"type:varchar(1);not null" json:"correct_answer"`

	// object keys in the diagram store
	ProblemDiagram  string `gorm:"type:varchar(255)" json:"problem_diagram,omitempty"`
	SolutionDiagram string `gorm:"type:varchar(255)" json:"solution_diagram,omitempty"`

	EstimatedTimeToComplete int `gorm:"not null" json:"estimated_time_to_complete"` // minutes
	Difficulty              int `gorm:"not null;default:3;index" json:"difficulty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Problem) TableName() string {
	return "problems"
}

// Choice returns the text behind a label, or "" for an unknown label.
func (p Problem) Choice(label string) string {
	switch label {
	case ChoiceA:
		return p.ChoiceA
	case ChoiceB:
		return p.ChoiceB
	case ChoiceC:
		return p.ChoiceC
	case ChoiceD:
		return p.ChoiceD
	}
	return ""
}

// ExperienceValue is the experience awarded per topic for answering p correctly.
func (p Problem) ExperienceValue() int {
	return p.Difficulty * 10
}
