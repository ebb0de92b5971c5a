package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/nightpulse/gamification/internal/models"
)

// MissionRepository handles mission and mission progress operations.
type MissionRepository struct {
	db *DB
}

// NewMissionRepository creates a new mission repository.
func NewMissionRepository(db *DB) *MissionRepository {
	return &MissionRepository{db: db}
}

// Create creates a mission definition.
func (r *MissionRepository) Create(mission *models.Mission) error {
	return r.db.Create(mission).Error
}

// ListActive returns all active mission definitions.
func (r *MissionRepository) ListActive() ([]models.Mission, error) {
	var missions []models.Mission
	err := r.db.Where("active = ?", true).Order("id ASC").Find(&missions).Error
	return missions, err
}

// ListActiveByReason returns active missions advanced by an XP reason.
func (r *MissionRepository) ListActiveByReason(reason string) ([]models.Mission, error) {
	var missions []models.Mission
	err := r.db.Where("active = ? AND reason = ?", true, reason).Find(&missions).Error
	return missions, err
}

// GetOrCreateUserMission returns the progress row for a user, mission and
// period, creating a zero-progress row if absent.
func (r *MissionRepository) GetOrCreateUserMission(userID, missionID uint, periodKey string) (*models.UserMission, error) {
	var um models.UserMission
	err := r.db.
		Where("user_id = ? AND mission_id = ? AND period_key = ?", userID, missionID, periodKey).
		First(&um).Error
	if err == nil {
		return &um, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	um = models.UserMission{
		UserID:    userID,
		MissionID: missionID,
		PeriodKey: periodKey,
	}
	if err := r.db.Create(&um).Error; err != nil {
		return nil, err
	}
	return &um, nil
}

// SaveUserMission persists a progress row.
func (r *MissionRepository) SaveUserMission(um *models.UserMission) error {
	return r.db.Save(um).Error
}

// MarkCompleted stamps a mission as completed.
func (r *MissionRepository) MarkCompleted(um *models.UserMission) error {
	now := time.Now().UTC()
	um.CompletedAt = &now
	return r.db.Save(um).Error
}

// ListUserMissions returns a user's progress rows for the given period keys,
// mission definitions preloaded.
func (r *MissionRepository) ListUserMissions(userID uint, periodKeys []string) ([]models.UserMission, error) {
	var rows []models.UserMission
	err := r.db.
		Where("user_id = ? AND period_key IN ?", userID, periodKeys).
		Preload("Mission").
		Order("mission_id ASC").
		Find(&rows).Error
	return rows, err
}
