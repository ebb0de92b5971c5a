package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/nightpulse/gamification/internal/models"
)

// XPRepository handles XP event audit records.
type XPRepository struct {
	db *DB
}

// NewXPRepository creates a new XP event repository.
func NewXPRepository(db *DB) *XPRepository {
	return &XPRepository{db: db}
}

// RecordEvent writes an XP audit event and returns it. When an entity
// reference is present and an event for the same (user, reason, entity)
// already exists, no new row is written and the existing event is returned
// with created=false, making repeated awards for the same action idempotent.
func (r *XPRepository) RecordEvent(userID uint, amount int, reason, entityType, entityID string) (*models.XPEvent, bool, error) {
	if entityType != "" && entityID != "" {
		var existing models.XPEvent
		err := r.db.
			Where("user_id = ? AND reason = ? AND entity_type = ? AND entity_id = ?",
				userID, reason, entityType, entityID).
			First(&existing).Error
		if err == nil {
			return &existing, false, nil
		}
	}

	event := &models.XPEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		Amount:     amount,
		Reason:     reason,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.db.Create(event).Error; err != nil {
		return nil, false, err
	}
	return event, true, nil
}

// ListByUser returns the most recent XP events for a user.
func (r *XPRepository) ListByUser(userID uint, limit int) ([]models.XPEvent, error) {
	var events []models.XPEvent
	q := r.db.Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&events).Error
	return events, err
}
