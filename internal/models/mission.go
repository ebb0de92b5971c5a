package models

import (
	"time"
)

// Mission represents a time-boxed objective with server-tracked progress.
type Mission struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"uniqueIndex;not null;size:100" json:"code"`
	Title       string    `gorm:"not null;size:255" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Icon        string    `gorm:"size:50" json:"icon"`
	Category    string    `gorm:"size:50;index" json:"category"` // 'daily', 'weekly', 'narrative'
	Reason      string    `gorm:"size:100;index" json:"reason"`  // XP reason that advances this mission
	Target      int       `gorm:"not null" json:"target"`
	RewardXP    int       `gorm:"not null;default:0" json:"reward_xp"`
	Active      bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Mission model.
func (Mission) TableName() string {
	return "missions"
}

// UserMission tracks a user's progress toward one mission within a period.
// PeriodKey scopes daily/weekly missions ("2026-08-31", "2026-W35"); narrative
// missions use an empty key and accumulate forever.
type UserMission struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index:idx_user_mission_period,unique" json:"user_id"`
	MissionID   uint       `gorm:"not null;index:idx_user_mission_period,unique" json:"mission_id"`
	Mission     Mission    `gorm:"foreignKey:MissionID" json:"mission,omitempty"`
	PeriodKey   string     `gorm:"size:20;index:idx_user_mission_period,unique" json:"period_key"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for UserMission model.
func (UserMission) TableName() string {
	return "user_missions"
}

// Mission category constants.
const (
	MissionDaily     = "daily"
	MissionWeekly    = "weekly"
	MissionNarrative = "narrative"
)
