package testutil

import (
	"testing"

	"adeptly/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func SeedUser(tb testing.TB, db *gorm.DB, username string) *models.User {
	tb.Helper()
	u := &models.User{
		UUID:     uuid.NewString(),
		Username: username,
		Status:   "active",
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedAdmin(tb testing.TB, db *gorm.DB, username string) *models.User {
	tb.Helper()
	u := &models.User{
		UUID:        uuid.NewString(),
		Username:    username,
		Permissions: "admin",
		Status:      "active",
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed admin: %v", err)
	}
	return u
}

func SeedTopic(tb testing.TB, db *gorm.DB, name string) models.Topic {
	tb.Helper()
	t := models.Topic{Name: name}
	if err := db.Create(&t).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return t
}

// TopicByName returns the first topic with name.
func TopicByName(tb testing.TB, db *gorm.DB, name string) models.Topic {
	tb.Helper()
	var t models.Topic
	if err := db.Where("name = ?", name).Order("id ASC").First(&t).Error; err != nil {
		tb.Fatalf("find topic %q: %v", name, err)
	}
	return t
}

// SeedProblem creates a problem answered by "A" unless correct is set.
func SeedProblem(tb testing.TB, db *gorm.DB, name string, difficulty, minutes int, topics ...models.Topic) models.Problem {
	tb.Helper()
	p := models.Problem{
		Name:                    name,
		Topics:                  topics,
		Prompt:                  "Prompt for " + name,
		ChoiceA:                 "first",
		ChoiceB:                 "second",
		ChoiceC:                 "third",
		ChoiceD:                 "fourth",
		CorrectAnswer:           models.ChoiceA,
		EstimatedTimeToComplete: minutes,
		Difficulty:              difficulty,
	}
	if err := db.Create(&p).Error; err != nil {
		tb.Fatalf("seed problem: %v", err)
	}
	return p
}
