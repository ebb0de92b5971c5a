package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nightpulse/gamification/internal/models"
)

// ProgressRepository handles user progress database operations.
type ProgressRepository struct {
	db *DB
}

// NewProgressRepository creates a new progress repository.
func NewProgressRepository(db *DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// GetOrCreate retrieves the progress row for a user, creating a fresh
// level-1 row on first contact.
func (r *ProgressRepository) GetOrCreate(userID uint) (*models.UserProgress, error) {
	var progress models.UserProgress
	err := r.db.Where("user_id = ?", userID).First(&progress).Error
	if err == nil {
		return &progress, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	progress = models.UserProgress{
		UserID:       userID,
		CurrentLevel: 1,
	}
	// Tolerate a concurrent first-contact insert
	createErr := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&progress).Error
	if createErr != nil {
		return nil, createErr
	}
	err = r.db.Where("user_id = ?", userID).First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// AddXP atomically adds XP to the total and monthly counters and updates the
// level and last-activity timestamp. The caller supplies the recomputed level.
func (r *ProgressRepository) AddXP(userID uint, amount, newLevel int) error {
	now := time.Now().UTC()
	return r.db.Model(&models.UserProgress{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"total_xp":         gorm.Expr("total_xp + ?", amount),
			"monthly_xp":       gorm.Expr("monthly_xp + ?", amount),
			"current_level":    newLevel,
			"last_activity_at": now,
		}).Error
}

// Save replaces a progress row wholesale.
func (r *ProgressRepository) Save(progress *models.UserProgress) error {
	return r.db.Save(progress).Error
}

// IncrementCounter bumps one of the activity counters (check_ins_total,
// votes_cast_total, ratings_total).
func (r *ProgressRepository) IncrementCounter(userID uint, column string) error {
	return r.db.Model(&models.UserProgress{}).
		Where("user_id = ?", userID).
		Update(column, gorm.Expr(column+" + 1")).Error
}

// TopByMonthlyXP returns progress rows ranked by monthly XP, users preloaded.
func (r *ProgressRepository) TopByMonthlyXP(limit int) ([]models.UserProgress, error) {
	var rows []models.UserProgress
	q := r.db.Preload("User").Order("monthly_xp DESC, total_xp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&rows).Error
	return rows, err
}

// ResetMonthlyXP zeroes the monthly counter for all users.
func (r *ProgressRepository) ResetMonthlyXP() error {
	return r.db.Model(&models.UserProgress{}).
		Where("monthly_xp <> 0").
		Update("monthly_xp", 0).Error
}

// ListWithActiveStreaks returns progress rows with a non-zero streak.
// Used by the nightly lapse check.
func (r *ProgressRepository) ListWithActiveStreaks() ([]models.UserProgress, error) {
	var rows []models.UserProgress
	err := r.db.Where("current_streak > 0").Find(&rows).Error
	return rows, err
}

// ResetStreak zeroes a user's current streak.
func (r *ProgressRepository) ResetStreak(userID uint) error {
	return r.db.Model(&models.UserProgress{}).
		Where("user_id = ?", userID).
		Update("current_streak", 0).Error
}
