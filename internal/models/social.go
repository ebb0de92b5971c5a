package models

import (
	"time"
)

// EmployeeRating is a user's 1-5 rating of a venue employee. One row per
// (user, employee) pair; resubmitting replaces the value.
type EmployeeRating struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_rating_user_employee,unique" json:"user_id"`
	EmployeeID uint      `gorm:"not null;index:idx_rating_user_employee,unique" json:"employee_id"`
	Value      int       `gorm:"not null" json:"value"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for EmployeeRating model.
func (EmployeeRating) TableName() string {
	return "employee_ratings"
}

// ReviewVote records a helpfulness vote on an establishment review.
type ReviewVote struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ReviewID  uint      `gorm:"not null;index:idx_vote_review_voter,unique" json:"review_id"`
	VoterID   uint      `gorm:"not null;index:idx_vote_review_voter,unique" json:"voter_id"`
	Helpful   bool      `gorm:"not null" json:"helpful"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for ReviewVote model.
func (ReviewVote) TableName() string {
	return "review_votes"
}

// Follow records a user following an establishment.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;index:idx_follow_pair,unique" json:"follower_id"`
	VenueID    uint      `gorm:"not null;index:idx_follow_pair,unique" json:"venue_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for Follow model.
func (Follow) TableName() string {
	return "follows"
}

// CheckIn records one qualifying daily check-in at a venue.
type CheckIn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	VenueID   uint      `gorm:"index" json:"venue_id"`
	Day       time.Time `gorm:"type:date;not null;index" json:"day"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for CheckIn model.
func (CheckIn) TableName() string {
	return "check_ins"
}
