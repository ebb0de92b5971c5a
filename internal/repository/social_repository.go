package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/nightpulse/gamification/internal/models"
)

// SocialRepository handles check-ins, follows, review votes and ratings.
type SocialRepository struct {
	db *DB
}

// NewSocialRepository creates a new social repository.
func NewSocialRepository(db *DB) *SocialRepository {
	return &SocialRepository{db: db}
}

// HasCheckedInOn reports whether a user already has a check-in for a day.
// Callers pass the day truncated to midnight UTC.
func (r *SocialRepository) HasCheckedInOn(userID uint, day time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.CheckIn{}).
		Where("user_id = ? AND day = ?", userID, day).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateCheckIn records a check-in.
func (r *SocialRepository) CreateCheckIn(checkIn *models.CheckIn) error {
	return r.db.Create(checkIn).Error
}

// CreateFollow records a follow. Returns created=false if the pair exists.
func (r *SocialRepository) CreateFollow(followerID, venueID uint) (bool, error) {
	var existing models.Follow
	err := r.db.
		Where("follower_id = ? AND venue_id = ?", followerID, venueID).
		First(&existing).Error
	if err == nil {
		return false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}
	follow := &models.Follow{FollowerID: followerID, VenueID: venueID}
	if err := r.db.Create(follow).Error; err != nil {
		return false, err
	}
	return true, nil
}

// DeleteFollow removes a follow. Missing rows are a no-op.
func (r *SocialRepository) DeleteFollow(followerID, venueID uint) error {
	return r.db.
		Where("follower_id = ? AND venue_id = ?", followerID, venueID).
		Delete(&models.Follow{}).Error
}

// UpsertVote records or updates a helpfulness vote.
// Returns created=true only for a first-time vote on the review.
func (r *SocialRepository) UpsertVote(reviewID, voterID uint, helpful bool) (bool, error) {
	var existing models.ReviewVote
	err := r.db.
		Where("review_id = ? AND voter_id = ?", reviewID, voterID).
		First(&existing).Error
	if err == nil {
		existing.Helpful = helpful
		return false, r.db.Save(&existing).Error
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}
	vote := &models.ReviewVote{ReviewID: reviewID, VoterID: voterID, Helpful: helpful}
	if err := r.db.Create(vote).Error; err != nil {
		return false, err
	}
	return true, nil
}

// UpsertRating records or replaces a user's rating of an employee.
// Returns created=true only when the user had no prior rating.
func (r *SocialRepository) UpsertRating(userID, employeeID uint, value int) (bool, error) {
	var existing models.EmployeeRating
	err := r.db.
		Where("user_id = ? AND employee_id = ?", userID, employeeID).
		First(&existing).Error
	if err == nil {
		existing.Value = value
		return false, r.db.Save(&existing).Error
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}
	rating := &models.EmployeeRating{UserID: userID, EmployeeID: employeeID, Value: value}
	if err := r.db.Create(rating).Error; err != nil {
		return false, err
	}
	return true, nil
}

// GetRating returns a user's rating of an employee, or nil when absent.
func (r *SocialRepository) GetRating(userID, employeeID uint) (*models.EmployeeRating, error) {
	var rating models.EmployeeRating
	err := r.db.
		Where("user_id = ? AND employee_id = ?", userID, employeeID).
		First(&rating).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}
