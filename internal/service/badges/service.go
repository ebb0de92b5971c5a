// Package badges provides badge evaluation and management services.
package badges

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	prommetrics "github.com/nightpulse/gamification/internal/metrics"
	"github.com/nightpulse/gamification/internal/models"
	"github.com/nightpulse/gamification/internal/repository"
	"github.com/nightpulse/gamification/pkg/logger"
)

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	GetAll() ([]models.Badge, error)
	GetByID(id uint) (*models.Badge, error)
	HasUserEarnedBadge(userID, badgeID uint) (bool, error)
	AwardBadge(userID, badgeID uint) error
	GetUserBadges(userID uint) ([]models.UserBadge, error)
	GetBadgeHoldersCount(badgeID uint) (int64, error)
}

// ProgressRepository interface for progress operations.
type ProgressRepository interface {
	GetOrCreate(userID uint) (*models.UserProgress, error)
}

// UserRepository interface for user operations.
type UserRepository interface {
	List() ([]models.User, error)
}

// Service handles badge evaluation and awarding.
type Service struct {
	badgeRepo    BadgeRepository
	progressRepo ProgressRepository
	userRepo     UserRepository
	log          *logger.Logger
}

// NewService creates a new badge service.
func NewService(
	badgeRepo *repository.BadgeRepository,
	progressRepo *repository.ProgressRepository,
	userRepo *repository.UserRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		badgeRepo:    badgeRepo,
		progressRepo: progressRepo,
		userRepo:     userRepo,
		log:          log,
	}
}

// NewServiceWithInterfaces creates a new badge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	badgeRepo BadgeRepository,
	progressRepo ProgressRepository,
	userRepo UserRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		badgeRepo:    badgeRepo,
		progressRepo: progressRepo,
		userRepo:     userRepo,
		log:          log,
	}
}

// EvaluateAllBadges evaluates all badges for all users.
// This is typically run as a scheduled job.
// Returns the number of badges awarded.
func (s *Service) EvaluateAllBadges(ctx context.Context) (int, error) {
	s.log.Info().Msg("Starting badge evaluation for all users")
	start := time.Now()

	users, err := s.userRepo.List()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get users")
		return 0, fmt.Errorf("failed to get users: %w", err)
	}

	awardsCount := 0
	for _, user := range users {
		newlyEarned, err := s.EvaluateUserBadges(ctx, user.ID)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", user.ID).
				Msg("Failed to evaluate badges for user")
			continue
		}
		awardsCount += len(newlyEarned)
	}

	duration := time.Since(start)
	s.log.Info().
		Int("users_evaluated", len(users)).
		Int("badges_awarded", awardsCount).
		Dur("duration", duration).
		Msg("Badge evaluation complete")

	return awardsCount, nil
}

// EvaluateUserBadges evaluates all badges for a specific user and returns newly earned badges.
func (s *Service) EvaluateUserBadges(ctx context.Context, userID uint) ([]models.Badge, error) {
	s.log.Debug().Uint("user_id", userID).Msg("Evaluating badges for user")

	badges, err := s.badgeRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to get badges: %w", err)
	}

	prog, err := s.progressRepo.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	var newlyEarned []models.Badge

	for _, badge := range badges {
		hasEarned, err := s.badgeRepo.HasUserEarnedBadge(userID, badge.ID)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Uint("badge_id", badge.ID).
				Msg("Failed to check if user has badge")
			continue
		}
		if hasEarned {
			continue
		}

		qualifies, err := s.EvaluateBadge(&badge, prog)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("badge", badge.Name).
				Msg("Failed to evaluate badge")
			continue
		}

		if qualifies {
			if err := s.AwardBadge(ctx, userID, &badge); err != nil {
				s.log.Error().
					Err(err).
					Uint("user_id", userID).
					Str("badge", badge.Name).
					Msg("Failed to award badge")
				continue
			}
			newlyEarned = append(newlyEarned, badge)
			s.log.Info().
				Uint("user_id", userID).
				Str("badge", badge.Name).
				Msg("Badge awarded")
		}
	}

	return newlyEarned, nil
}

// EvaluateBadge evaluates if a progress snapshot qualifies for a badge.
func (s *Service) EvaluateBadge(badge *models.Badge, prog *models.UserProgress) (bool, error) {
	var criteria models.BadgeCriteria
	if err := json.Unmarshal(badge.Criteria, &criteria); err != nil {
		return false, fmt.Errorf("failed to parse badge criteria: %w", err)
	}
	return checkCriteria(&criteria, prog)
}

// AwardBadge awards a badge to a user.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) AwardBadge(ctx context.Context, userID uint, badge *models.Badge) error {
	if err := s.badgeRepo.AwardBadge(userID, badge.ID); err != nil {
		return err
	}

	prommetrics.RecordBadgeAwarded(badge.Name)

	// Update active holders count
	count, _ := s.badgeRepo.GetBadgeHoldersCount(badge.ID)
	prommetrics.SetActiveBadgeHolders(badge.Name, int(count))

	return nil
}

// GetUserBadges retrieves all badges earned by a user.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	return s.badgeRepo.GetUserBadges(userID)
}

// GetBadgeCatalog retrieves all available badges.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetBadgeCatalog(ctx context.Context) ([]models.Badge, error) {
	return s.badgeRepo.GetAll()
}
