// Package awards orchestrates XP grants: idempotent event recording, atomic
// progress updates, level derivation, and the mission/badge side effects.
package awards

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nightpulse/gamification/internal/levels"
	prommetrics "github.com/nightpulse/gamification/internal/metrics"
	"github.com/nightpulse/gamification/internal/models"
	"github.com/nightpulse/gamification/internal/repository"
	"github.com/nightpulse/gamification/internal/service/missions"
	"github.com/nightpulse/gamification/pkg/logger"
)

// ProgressRepository interface for progress operations.
type ProgressRepository interface {
	GetOrCreate(userID uint) (*models.UserProgress, error)
	AddXP(userID uint, amount, newLevel int) error
}

// XPRepository interface for XP event operations.
type XPRepository interface {
	RecordEvent(userID uint, amount int, reason, entityType, entityID string) (*models.XPEvent, bool, error)
}

// MissionAdvancer advances mission progress for an XP reason.
type MissionAdvancer interface {
	Advance(ctx context.Context, userID uint, reason string) ([]models.Mission, error)
}

// BadgeEvaluator evaluates badges for a user after a progress change.
type BadgeEvaluator interface {
	EvaluateUserBadges(ctx context.Context, userID uint) ([]models.Badge, error)
}

// Service handles XP awarding.
type Service struct {
	progressRepo ProgressRepository
	xpRepo       XPRepository
	missions     MissionAdvancer
	badges       BadgeEvaluator
	log          *logger.Logger
}

// Result describes the outcome of a single award.
type Result struct {
	XPAwarded int            `json:"xp_awarded"`
	TotalXP   int            `json:"total_xp"`
	NewLevel  int            `json:"new_level"`
	LeveledUp bool           `json:"leveled_up"`
	NewBadges []models.Badge `json:"new_badges,omitempty"`
	Duplicate bool           `json:"duplicate,omitempty"`
}

// NewService creates a new award service.
func NewService(
	progressRepo *repository.ProgressRepository,
	xpRepo *repository.XPRepository,
	missions MissionAdvancer,
	badges BadgeEvaluator,
	log *logger.Logger,
) *Service {
	return &Service{
		progressRepo: progressRepo,
		xpRepo:       xpRepo,
		missions:     missions,
		badges:       badges,
		log:          log,
	}
}

// NewServiceWithInterfaces creates a new award service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	progressRepo ProgressRepository,
	xpRepo XPRepository,
	missions MissionAdvancer,
	badges BadgeEvaluator,
	log *logger.Logger,
) *Service {
	return &Service{
		progressRepo: progressRepo,
		xpRepo:       xpRepo,
		missions:     missions,
		badges:       badges,
		log:          log,
	}
}

// Award grants XP to a user for a reason. When entityType/entityID reference a
// source entity, repeat awards for the same entity are deduplicated and return
// a successful zero-XP result. Mission and badge side effects never fail the
// award itself.
func (s *Service) Award(ctx context.Context, userID uint, amount int, reason, entityType, entityID string) (*Result, error) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveAwardDuration(time.Since(start).Seconds())
	}()

	if amount <= 0 {
		prommetrics.RecordXPAwardFailed(reason)
		return nil, fmt.Errorf("xp amount must be positive, got %d", amount)
	}
	if reason == "" {
		prommetrics.RecordXPAwardFailed(reason)
		return nil, fmt.Errorf("xp reason is required")
	}

	prog, err := s.progressRepo.GetOrCreate(userID)
	if err != nil {
		prommetrics.RecordXPAwardFailed(reason)
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	_, created, err := s.xpRepo.RecordEvent(userID, amount, reason, entityType, entityID)
	if err != nil {
		prommetrics.RecordXPAwardFailed(reason)
		return nil, fmt.Errorf("failed to record xp event: %w", err)
	}
	if !created {
		s.log.Debug().
			Uint("user_id", userID).
			Str("reason", reason).
			Str("entity_type", entityType).
			Str("entity_id", entityID).
			Msg("Duplicate XP event ignored")
		return &Result{
			XPAwarded: 0,
			TotalXP:   prog.TotalXP,
			NewLevel:  prog.CurrentLevel,
			Duplicate: true,
		}, nil
	}

	oldLevel := prog.CurrentLevel
	newTotal := prog.TotalXP + amount
	newLevel := levels.LevelForXP(newTotal)

	if err := s.progressRepo.AddXP(userID, amount, newLevel); err != nil {
		prommetrics.RecordXPAwardFailed(reason)
		return nil, fmt.Errorf("failed to apply xp: %w", err)
	}

	prommetrics.RecordXPAwarded(reason, amount)

	result := &Result{
		XPAwarded: amount,
		TotalXP:   newTotal,
		NewLevel:  newLevel,
		LeveledUp: newLevel > oldLevel,
	}

	if result.LeveledUp {
		prommetrics.RecordLevelUp(strconv.Itoa(newLevel))
		s.log.Info().
			Uint("user_id", userID).
			Int("old_level", oldLevel).
			Int("new_level", newLevel).
			Int("total_xp", newTotal).
			Msg("User leveled up")
	}

	s.log.Info().
		Uint("user_id", userID).
		Int("amount", amount).
		Str("reason", reason).
		Int("total_xp", newTotal).
		Msg("XP awarded")

	// Side effects are best-effort: a mission or badge failure must not
	// roll back an already-applied award.
	s.advanceMissions(ctx, userID, reason)

	if s.badges != nil {
		newBadges, err := s.badges.EvaluateUserBadges(ctx, userID)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Msg("Badge evaluation after award failed")
		} else {
			result.NewBadges = newBadges
		}
	}

	return result, nil
}

// advanceMissions bumps mission progress and grants mission rewards. Reward XP
// goes through AwardMissionReward, which never re-enters mission advancement.
func (s *Service) advanceMissions(ctx context.Context, userID uint, reason string) {
	if s.missions == nil || reason == models.ReasonMission {
		return
	}

	completed, err := s.missions.Advance(ctx, userID, reason)
	if err != nil {
		s.log.Error().
			Err(err).
			Uint("user_id", userID).
			Str("reason", reason).
			Msg("Mission advancement failed")
		return
	}

	for _, mission := range completed {
		if mission.RewardXP <= 0 {
			continue
		}
		if err := s.AwardMissionReward(ctx, userID, &mission); err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("mission", mission.Code).
				Msg("Failed to grant mission reward")
		}
	}
}

// AwardMissionReward grants the reward XP for a completed mission. The mission
// code plus the current period scope idempotency, so a repeatable mission pays
// once per period and a narrative mission once ever.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) AwardMissionReward(ctx context.Context, userID uint, mission *models.Mission) error {
	prog, err := s.progressRepo.GetOrCreate(userID)
	if err != nil {
		return fmt.Errorf("failed to get progress: %w", err)
	}

	entityID := mission.Code
	if key := missions.PeriodKey(mission.Category, time.Now()); key != "" {
		entityID = mission.Code + ":" + key
	}

	_, created, err := s.xpRepo.RecordEvent(userID, mission.RewardXP, models.ReasonMission, "mission", entityID)
	if err != nil {
		return fmt.Errorf("failed to record mission reward: %w", err)
	}
	if !created {
		return nil
	}

	newTotal := prog.TotalXP + mission.RewardXP
	newLevel := levels.LevelForXP(newTotal)
	if err := s.progressRepo.AddXP(userID, mission.RewardXP, newLevel); err != nil {
		return fmt.Errorf("failed to apply mission reward: %w", err)
	}

	prommetrics.RecordXPAwarded(models.ReasonMission, mission.RewardXP)
	if newLevel > prog.CurrentLevel {
		prommetrics.RecordLevelUp(strconv.Itoa(newLevel))
	}

	s.log.Info().
		Uint("user_id", userID).
		Str("mission", mission.Code).
		Int("reward_xp", mission.RewardXP).
		Msg("Mission reward granted")

	return nil
}
