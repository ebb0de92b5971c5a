// Package models defines domain models for the gamification service.
package models

import (
	"encoding/json"
	"time"
)

// Badge represents an achievement that can be earned by users. Eligibility is
// always computed server-side; clients only display earned badges.
type Badge struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Icon        string          `gorm:"size:50" json:"icon"`
	Rarity      string          `gorm:"size:50" json:"rarity"`   // 'common', 'rare', 'epic', 'legendary'
	Category    string          `gorm:"size:50" json:"category"` // 'activity', 'streak', 'social'
	Criteria    json.RawMessage `gorm:"type:jsonb" json:"criteria"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// BadgeCriteria represents the criteria for earning a badge. Metric names
// refer to UserProgress fields: total_xp, current_level, current_streak,
// longest_streak, check_ins, votes_cast, ratings.
type BadgeCriteria struct {
	Metric   string  `json:"metric"`
	Operator string  `json:"operator"` // "<", ">", ">=", "<=", "=="
	Value    float64 `json:"value"`
}

// UserBadge represents a badge earned by a user.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;index" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BadgeID  uint      `gorm:"not null;index" json:"badge_id"`
	Badge    Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}

// Badge rarity constants.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)
