// Package missions provides time-boxed objective tracking. Progress is
// advanced server-side from XP award reasons; clients only display it.
package missions

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/nightpulse/gamification/internal/metrics"
	"github.com/nightpulse/gamification/internal/models"
	"github.com/nightpulse/gamification/internal/repository"
	"github.com/nightpulse/gamification/pkg/logger"
)

// MissionRepository interface for mission operations.
type MissionRepository interface {
	ListActive() ([]models.Mission, error)
	ListActiveByReason(reason string) ([]models.Mission, error)
	GetOrCreateUserMission(userID, missionID uint, periodKey string) (*models.UserMission, error)
	SaveUserMission(um *models.UserMission) error
	MarkCompleted(um *models.UserMission) error
	ListUserMissions(userID uint, periodKeys []string) ([]models.UserMission, error)
}

// Service handles mission progress.
type Service struct {
	missionRepo MissionRepository
	log         *logger.Logger
}

// View is a mission definition joined with the user's progress for the
// current period.
type View struct {
	Mission     models.Mission `json:"mission"`
	Progress    int            `json:"progress"`
	Target      int            `json:"target"`
	Completed   bool           `json:"completed"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NewService creates a new mission service.
func NewService(missionRepo *repository.MissionRepository, log *logger.Logger) *Service {
	return &Service{missionRepo: missionRepo, log: log}
}

// NewServiceWithInterfaces creates a new mission service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(missionRepo MissionRepository, log *logger.Logger) *Service {
	return &Service{missionRepo: missionRepo, log: log}
}

// PeriodKey returns the progress-scoping key for a mission category.
// Daily missions reset each UTC day, weekly each ISO week; narrative
// missions accumulate forever under an empty key.
func PeriodKey(category string, now time.Time) string {
	switch category {
	case models.MissionDaily:
		return now.UTC().Format("2006-01-02")
	case models.MissionWeekly:
		year, week := now.UTC().ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default:
		return ""
	}
}

// Advance bumps progress on every active mission tied to the XP reason and
// returns the missions completed by this step.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) Advance(ctx context.Context, userID uint, reason string) ([]models.Mission, error) {
	missions, err := s.missionRepo.ListActiveByReason(reason)
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}

	now := time.Now()
	var completed []models.Mission

	for _, mission := range missions {
		key := PeriodKey(mission.Category, now)
		um, err := s.missionRepo.GetOrCreateUserMission(userID, mission.ID, key)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("mission", mission.Code).
				Msg("Failed to load mission progress")
			continue
		}
		if um.CompletedAt != nil {
			continue
		}

		um.Progress++
		if um.Progress >= mission.Target {
			if err := s.missionRepo.MarkCompleted(um); err != nil {
				s.log.Error().
					Err(err).
					Uint("user_id", userID).
					Str("mission", mission.Code).
					Msg("Failed to mark mission completed")
				continue
			}
			completed = append(completed, mission)
			prommetrics.RecordMissionCompleted(mission.Code, mission.Category)
			s.log.Info().
				Uint("user_id", userID).
				Str("mission", mission.Code).
				Msg("Mission completed")
			continue
		}

		if err := s.missionRepo.SaveUserMission(um); err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("mission", mission.Code).
				Msg("Failed to save mission progress")
		}
	}

	return completed, nil
}

// ListForUser returns all active missions with the user's progress for the
// current day/week/narrative periods.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]View, error) {
	missions, err := s.missionRepo.ListActive()
	if err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}

	now := time.Now()
	keys := []string{
		PeriodKey(models.MissionDaily, now),
		PeriodKey(models.MissionWeekly, now),
		"",
	}
	rows, err := s.missionRepo.ListUserMissions(userID, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to list mission progress: %w", err)
	}

	progressByMission := make(map[uint]models.UserMission, len(rows))
	for _, row := range rows {
		progressByMission[row.MissionID] = row
	}

	views := make([]View, 0, len(missions))
	for _, mission := range missions {
		view := View{Mission: mission, Target: mission.Target}
		if row, ok := progressByMission[mission.ID]; ok && row.PeriodKey == PeriodKey(mission.Category, now) {
			view.Progress = row.Progress
			view.Completed = row.CompletedAt != nil
			view.CompletedAt = row.CompletedAt
		}
		views = append(views, view)
	}

	return views, nil
}
