// Package leaderboard provides monthly XP rankings and per-user stats.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nightpulse/gamification/internal/cache"
	"github.com/nightpulse/gamification/internal/levels"
	prommetrics "github.com/nightpulse/gamification/internal/metrics"
	"github.com/nightpulse/gamification/internal/models"
	"github.com/nightpulse/gamification/internal/repository"
	"github.com/nightpulse/gamification/pkg/logger"
)

const (
	defaultLimit = 25
	maxLimit     = 100
	cacheTTL     = 60 * time.Second
)

// ProgressRepository interface for progress operations.
type ProgressRepository interface {
	GetOrCreate(userID uint) (*models.UserProgress, error)
	TopByMonthlyXP(limit int) ([]models.UserProgress, error)
}

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	GetUserBadgeCount(userID uint) (int64, error)
}

// Entry represents a single row in the monthly leaderboard.
type Entry struct {
	Rank        int    `json:"rank"`
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Level       int    `json:"level"`
	LevelName   string `json:"level_name"`
	LevelIcon   string `json:"level_icon"`
	MonthlyXP   int    `json:"monthly_xp"`
	TotalXP     int    `json:"total_xp"`
	BadgeCount  int    `json:"badge_count"`
}

// UserStats is the extended per-user summary.
type UserStats struct {
	UserID        uint `json:"user_id"`
	TotalXP       int  `json:"total_xp"`
	MonthlyXP     int  `json:"monthly_xp"`
	Level         int  `json:"level"`
	CurrentStreak int  `json:"current_streak"`
	LongestStreak int  `json:"longest_streak"`
	CheckIns      int  `json:"check_ins"`
	VotesCast     int  `json:"votes_cast"`
	Ratings       int  `json:"ratings"`
	BadgeCount    int  `json:"badge_count"`
}

// Service handles leaderboard generation and user statistics.
type Service struct {
	progressRepo ProgressRepository
	badgeRepo    BadgeRepository
	cache        cache.Cache
	log          *logger.Logger
}

// NewService creates a new leaderboard service with concrete repository types.
func NewService(
	progressRepo *repository.ProgressRepository,
	badgeRepo *repository.BadgeRepository,
	cacheStore cache.Cache,
	log *logger.Logger,
) *Service {
	return &Service{
		progressRepo: progressRepo,
		badgeRepo:    badgeRepo,
		cache:        cacheStore,
		log:          log,
	}
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	progressRepo ProgressRepository,
	badgeRepo BadgeRepository,
	cacheStore cache.Cache,
	log *logger.Logger,
) *Service {
	return &Service{
		progressRepo: progressRepo,
		badgeRepo:    badgeRepo,
		cache:        cacheStore,
		log:          log,
	}
}

// GetMonthlyLeaderboard returns the top users by XP earned this month,
// served from the Redis snapshot when one is fresh. A cache outage degrades
// to a direct database read.
func (s *Service) GetMonthlyLeaderboard(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	cacheKey := fmt.Sprintf("leaderboard:monthly:%d", limit)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			s.log.Warn().Err(err).Msg("Leaderboard cache read failed")
		} else if cached != "" {
			var entries []Entry
			if unmarshalErr := json.Unmarshal([]byte(cached), &entries); unmarshalErr != nil {
				s.log.Warn().Err(unmarshalErr).Msg("Discarding malformed leaderboard cache entry")
			} else {
				prommetrics.RecordLeaderboardCache("hit")
				return entries, nil
			}
		}
		prommetrics.RecordLeaderboardCache("miss")
	}

	entries, err := s.buildLeaderboard(limit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(entries)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, cacheTTL); err != nil {
				s.log.Warn().Err(err).Msg("Leaderboard cache write failed")
			}
		}
	}

	return entries, nil
}

// buildLeaderboard assembles ranked entries from the progress table.
func (s *Service) buildLeaderboard(limit int) ([]Entry, error) {
	rows, err := s.progressRepo.TopByMonthlyXP(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard rows: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		badgeCount, err := s.badgeRepo.GetUserBadgeCount(row.UserID)
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", row.UserID).Msg("Failed to get badge count")
			badgeCount = 0
		}

		entries = append(entries, Entry{
			Rank:        i + 1,
			UserID:      row.UserID,
			Username:    row.User.Username,
			DisplayName: row.User.DisplayName,
			Level:       row.CurrentLevel,
			LevelName:   levels.Name(row.CurrentLevel),
			LevelIcon:   levels.Icon(row.CurrentLevel),
			MonthlyXP:   row.MonthlyXP,
			TotalXP:     row.TotalXP,
			BadgeCount:  int(badgeCount),
		})
	}

	return entries, nil
}

// GetUserStats returns the extended stat summary for one user.
//
//nolint:revive // ctx reserved for future context-aware operations (tracing, cancellation)
func (s *Service) GetUserStats(ctx context.Context, userID uint) (*UserStats, error) {
	prog, err := s.progressRepo.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	badgeCount, err := s.badgeRepo.GetUserBadgeCount(userID)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get badge count")
		badgeCount = 0
	}

	return &UserStats{
		UserID:        userID,
		TotalXP:       prog.TotalXP,
		MonthlyXP:     prog.MonthlyXP,
		Level:         prog.CurrentLevel,
		CurrentStreak: prog.CurrentStreak,
		LongestStreak: prog.LongestStreak,
		CheckIns:      prog.CheckInsTotal,
		VotesCast:     prog.VotesCastTotal,
		Ratings:       prog.RatingsTotal,
		BadgeCount:    int(badgeCount),
	}, nil
}

// InvalidateMonthlyCache drops cached leaderboard snapshots, used after the
// monthly XP reset so stale rankings never outlive the reset.
func (s *Service) InvalidateMonthlyCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, maxLimit)
	for limit := 1; limit <= maxLimit; limit++ {
		keys = append(keys, fmt.Sprintf("leaderboard:monthly:%d", limit))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Msg("Leaderboard cache invalidation failed")
	}
}
