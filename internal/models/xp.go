package models

import (
	"time"
)

// XPEvent is the audit record for a single XP grant. When an entity reference
// is present the event doubles as an idempotency key: a second award for the
// same (user, reason, entity) is a no-op.
type XPEvent struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"` // UUID
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Amount     int       `gorm:"not null" json:"amount"`
	Reason     string    `gorm:"not null;size:100;index" json:"reason"`
	EntityType string    `gorm:"size:50" json:"entity_type,omitempty"`
	EntityID   string    `gorm:"size:100" json:"entity_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for XPEvent model.
func (XPEvent) TableName() string {
	return "xp_events"
}

// XP reason constants for server-initiated awards. Clients may send their own
// reason strings through the award endpoint; these cover the built-in flows.
const (
	ReasonCheckIn       = "check_in"
	ReasonReviewCreated = "review_created"
	ReasonHelpfulVote   = "helpful_vote"
	ReasonFollow        = "venue_followed"
	ReasonRating        = "rating_submitted"
	ReasonMission       = "mission_completed"
)

// Default XP amounts for the built-in flows.
const (
	XPCheckIn     = 50
	XPHelpfulVote = 5
	XPFollow      = 10
	XPRating      = 15
)
