package models

import (
	"time"
)

// User represents a registered account in the nightlife directory.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	Email       string    `gorm:"size:255" json:"email"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// UserProgress is the authoritative gamification snapshot for a user.
// CurrentLevel is always the largest level whose XP threshold TotalXP meets;
// the award service recomputes it after every XP change.
type UserProgress struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	User           User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	TotalXP        int        `gorm:"not null;default:0" json:"total_xp"`
	CurrentLevel   int        `gorm:"not null;default:1" json:"current_level"`
	MonthlyXP      int        `gorm:"not null;default:0" json:"monthly_xp"`
	CurrentStreak  int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak  int        `gorm:"not null;default:0" json:"longest_streak"`
	CheckInsTotal  int        `gorm:"not null;default:0" json:"check_ins_total"`
	VotesCastTotal int        `gorm:"not null;default:0" json:"votes_cast_total"`
	RatingsTotal   int        `gorm:"not null;default:0" json:"ratings_total"`
	LastActivityAt *time.Time `json:"last_activity_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for UserProgress model.
func (UserProgress) TableName() string {
	return "user_progress"
}
