package models

import (
	"strings"
	"time"
)

// User mirrors the identity provider's account. Authentication happens upstream.
type User struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID        string `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	Username    string `gorm:"type:varchar(150);index" json:"username"`
	Permissions string `gorm:"type:text" json:"permissions"`
	Status      string `gorm:"type:varchar(32);default:active;index" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Active reports whether the account may use the service.
func (u User) Active() bool {
	return u.Status == "" || u.Status == "active"
}

// HasPermission checks the comma separated permission list.
func (u User) HasPermission(perm string) bool {
	for _, p := range strings.Split(u.Permissions, ",") {
		if strings.TrimSpace(p) == perm {
			return true
		}
	}
	return false
}

// UserSolvedProblem is the user's solved set.
type UserSolvedProblem struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index:idx_user_problem,unique"`
	ProblemID uint      `gorm:"not null;index:idx_user_problem,unique;index"`
	SolvedAt  time.Time `gorm:"not null;index"`
}

func (UserSolvedProblem) TableName() string {
	return "user_solved_problems"
}
