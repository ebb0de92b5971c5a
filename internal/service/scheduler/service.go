// Package scheduler runs the periodic maintenance jobs: daily streak lapse
// checks, badge evaluation sweeps, and the monthly XP reset.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nightpulse/gamification/internal/config"
	prommetrics "github.com/nightpulse/gamification/internal/metrics"
	"github.com/nightpulse/gamification/internal/models"
	"github.com/nightpulse/gamification/pkg/logger"
)

// ProgressRepository interface for progress operations used by the jobs.
type ProgressRepository interface {
	ListWithActiveStreaks() ([]models.UserProgress, error)
	ResetStreak(userID uint) error
	ResetMonthlyXP() error
}

// BadgeEvaluator runs the full badge sweep.
type BadgeEvaluator interface {
	EvaluateAllBadges(ctx context.Context) (int, error)
}

// CacheInvalidator drops leaderboard snapshots after the monthly reset.
type CacheInvalidator interface {
	InvalidateMonthlyCache(ctx context.Context)
}

// Service handles scheduled job registration and execution.
type Service struct {
	config       *config.Config
	progressRepo ProgressRepository
	badges       BadgeEvaluator
	leaderboard  CacheInvalidator
	log          *logger.Logger
	cron         *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	progressRepo ProgressRepository,
	badges BadgeEvaluator,
	leaderboard CacheInvalidator,
	log *logger.Logger,
) *Service {
	return &Service{
		config:       cfg,
		progressRepo: progressRepo,
		badges:       badges,
		leaderboard:  leaderboard,
		log:          log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	cronExpr, err := buildCronExpression(s.config.Scheduler.StreakCheckTime)
	if err != nil {
		return fmt.Errorf("failed to build streak check expression: %w", err)
	}

	_, err = s.cron.AddFunc(cronExpr, func() {
		s.runStreakLapseCheck(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register streak check job: %w", err)
	}

	if s.config.Scheduler.BadgeEvaluationTime != "" && s.badges != nil {
		_, err = s.cron.AddFunc(s.config.Scheduler.BadgeEvaluationTime, func() {
			s.runBadgeEvaluation(context.Background())
		})
		if err != nil {
			return fmt.Errorf("failed to register badge evaluation job: %w", err)
		}
		s.log.Info().
			Str("schedule", s.config.Scheduler.BadgeEvaluationTime).
			Msg("Badge evaluation job registered")
	}

	if s.config.Scheduler.MonthlyResetTime != "" {
		_, err = s.cron.AddFunc(s.config.Scheduler.MonthlyResetTime, func() {
			s.runMonthlyReset(context.Background())
		})
		if err != nil {
			return fmt.Errorf("failed to register monthly reset job: %w", err)
		}
		s.log.Info().
			Str("schedule", s.config.Scheduler.MonthlyResetTime).
			Msg("Monthly reset job registered")
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", cronExpr).
		Str("timezone", s.config.Scheduler.Timezone).
		Str("time", s.config.Scheduler.StreakCheckTime).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression generates a daily cron expression from an "HH:MM" time.
func buildCronExpression(timeOfDay string) (string, error) {
	parts := strings.Split(timeOfDay, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", timeOfDay)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// runStreakLapseCheck resets the streak of every user whose last qualifying
// activity was before yesterday. Users active yesterday keep their streak;
// they can still extend it today.
func (s *Service) runStreakLapseCheck(_ context.Context) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration("streak_lapse", time.Since(start).Seconds())
	}()

	s.log.Info().Msg("Running streak lapse check")

	rows, err := s.progressRepo.ListWithActiveStreaks()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list active streaks")
		prommetrics.RecordSchedulerJobRun("streak_lapse", "error")
		return
	}

	yesterday := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -1)
	resetCount := 0

	for _, row := range rows {
		if row.LastActivityAt != nil && !row.LastActivityAt.UTC().Truncate(24*time.Hour).Before(yesterday) {
			continue
		}
		if err := s.progressRepo.ResetStreak(row.UserID); err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", row.UserID).
				Msg("Failed to reset lapsed streak")
			continue
		}
		resetCount++
		prommetrics.RecordStreakReset()
	}

	prommetrics.RecordSchedulerJobRun("streak_lapse", "success")
	s.log.Info().
		Int("checked", len(rows)).
		Int("reset", resetCount).
		Dur("duration", time.Since(start)).
		Msg("Streak lapse check complete")
}

// runBadgeEvaluation executes the full badge sweep.
func (s *Service) runBadgeEvaluation(ctx context.Context) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration("badge_evaluation", time.Since(start).Seconds())
	}()

	s.log.Info().Msg("Running scheduled badge evaluation")

	awarded, err := s.badges.EvaluateAllBadges(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Scheduled badge evaluation failed")
		prommetrics.RecordSchedulerJobRun("badge_evaluation", "error")
		return
	}

	prommetrics.RecordSchedulerJobRun("badge_evaluation", "success")
	s.log.Info().
		Int("badges_awarded", awarded).
		Dur("duration", time.Since(start)).
		Msg("Scheduled badge evaluation complete")
}

// runMonthlyReset zeroes monthly XP and invalidates leaderboard snapshots.
// Total XP, levels, and streaks are untouched.
func (s *Service) runMonthlyReset(ctx context.Context) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration("monthly_reset", time.Since(start).Seconds())
	}()

	s.log.Info().Msg("Running monthly XP reset")

	if err := s.progressRepo.ResetMonthlyXP(); err != nil {
		s.log.Error().Err(err).Msg("Monthly XP reset failed")
		prommetrics.RecordSchedulerJobRun("monthly_reset", "error")
		return
	}

	if s.leaderboard != nil {
		s.leaderboard.InvalidateMonthlyCache(ctx)
	}

	prommetrics.RecordSchedulerJobRun("monthly_reset", "success")
	s.log.Info().
		Dur("duration", time.Since(start)).
		Msg("Monthly XP reset complete")
}
