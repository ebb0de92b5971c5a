// Package progress provides the authoritative user progress snapshot and
// streak maintenance.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/nightpulse/gamification/internal/levels"
	"github.com/nightpulse/gamification/internal/models"
	"github.com/nightpulse/gamification/internal/repository"
	"github.com/nightpulse/gamification/pkg/logger"
)

// ProgressRepository interface for progress operations.
type ProgressRepository interface {
	GetOrCreate(userID uint) (*models.UserProgress, error)
	Save(progress *models.UserProgress) error
}

// Service handles progress snapshots and streak updates.
type Service struct {
	progressRepo ProgressRepository
	log          *logger.Logger
}

// Snapshot is the progress payload returned to clients, the stored row plus
// level fields derived from the static table.
type Snapshot struct {
	models.UserProgress
	LevelName           string  `json:"level_name"`
	LevelIcon           string  `json:"level_icon"`
	XPForNextLevel      int     `json:"xp_for_next_level"`
	ProgressToNextLevel float64 `json:"progress_to_next_level"`
}

// NewService creates a new progress service.
func NewService(progressRepo *repository.ProgressRepository, log *logger.Logger) *Service {
	return &Service{progressRepo: progressRepo, log: log}
}

// NewServiceWithInterfaces creates a new progress service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(progressRepo ProgressRepository, log *logger.Logger) *Service {
	return &Service{progressRepo: progressRepo, log: log}
}

// GetSnapshot returns the user's progress with derived level fields.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetSnapshot(ctx context.Context, userID uint) (*Snapshot, error) {
	prog, err := s.progressRepo.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return buildSnapshot(prog), nil
}

// buildSnapshot derives the display fields for a progress row.
func buildSnapshot(prog *models.UserProgress) *Snapshot {
	return &Snapshot{
		UserProgress:        *prog,
		LevelName:           levels.Name(prog.CurrentLevel),
		LevelIcon:           levels.Icon(prog.CurrentLevel),
		XPForNextLevel:      levels.XPForNext(prog.CurrentLevel),
		ProgressToNextLevel: levels.ProgressToNext(prog.TotalXP, prog.CurrentLevel),
	}
}

// TouchStreak applies the consecutive-day rules for a qualifying activity and
// returns the updated streak. Same-day repeat activity leaves the streak
// unchanged; a one-day gap extends it; anything longer restarts at 1.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) TouchStreak(ctx context.Context, userID uint) (int, error) {
	prog, err := s.progressRepo.GetOrCreate(userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get progress: %w", err)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)

	if prog.LastActivityAt != nil {
		lastActive := prog.LastActivityAt.UTC().Truncate(24 * time.Hour)
		if lastActive.Equal(today) {
			return prog.CurrentStreak, nil
		}

		daysSinceLast := int(today.Sub(lastActive).Hours() / 24)
		if daysSinceLast == 1 {
			prog.CurrentStreak++
		} else {
			prog.CurrentStreak = 1
		}
	} else {
		// First ever activity
		prog.CurrentStreak = 1
	}

	if prog.CurrentStreak > prog.LongestStreak {
		prog.LongestStreak = prog.CurrentStreak
	}
	prog.LastActivityAt = &today

	if err := s.progressRepo.Save(prog); err != nil {
		return 0, fmt.Errorf("failed to save progress: %w", err)
	}

	s.log.Debug().
		Uint("user_id", userID).
		Int("streak", prog.CurrentStreak).
		Msg("Streak updated")

	return prog.CurrentStreak, nil
}
