// Package gamification provides the REST API handlers for player progress,
// badges, missions, leaderboards and the XP-earning actions.
package gamification

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nightpulse/gamification/internal/api/middleware"
	prommetrics "github.com/nightpulse/gamification/internal/metrics"
	"github.com/nightpulse/gamification/internal/models"
	"github.com/nightpulse/gamification/internal/service/awards"
	"github.com/nightpulse/gamification/internal/service/leaderboard"
	"github.com/nightpulse/gamification/internal/service/missions"
	"github.com/nightpulse/gamification/internal/service/progress"
	"github.com/nightpulse/gamification/pkg/logger"
)

// ProgressService interface for progress operations.
type ProgressService interface {
	GetSnapshot(ctx context.Context, userID uint) (*progress.Snapshot, error)
	TouchStreak(ctx context.Context, userID uint) (int, error)
}

// AwardService interface for XP award operations.
type AwardService interface {
	Award(ctx context.Context, userID uint, amount int, reason, entityType, entityID string) (*awards.Result, error)
}

// BadgeService interface for badge operations.
type BadgeService interface {
	GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
	GetBadgeCatalog(ctx context.Context) ([]models.Badge, error)
}

// MissionService interface for mission operations.
type MissionService interface {
	ListForUser(ctx context.Context, userID uint) ([]missions.View, error)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	GetMonthlyLeaderboard(ctx context.Context, limit int) ([]leaderboard.Entry, error)
	GetUserStats(ctx context.Context, userID uint) (*leaderboard.UserStats, error)
}

// SocialRepository interface for the XP-earning action records.
type SocialRepository interface {
	HasCheckedInOn(userID uint, day time.Time) (bool, error)
	CreateCheckIn(checkIn *models.CheckIn) error
	CreateFollow(followerID, venueID uint) (bool, error)
	DeleteFollow(followerID, venueID uint) error
	UpsertVote(reviewID, voterID uint, helpful bool) (bool, error)
	UpsertRating(userID, employeeID uint, value int) (bool, error)
	GetRating(userID, employeeID uint) (*models.EmployeeRating, error)
}

// CounterRepository bumps progress activity counters.
type CounterRepository interface {
	IncrementCounter(userID uint, column string) error
}

// Handler handles gamification API requests.
type Handler struct {
	progressService    ProgressService
	awardService       AwardService
	badgeService       BadgeService
	missionService     MissionService
	leaderboardService LeaderboardService
	socialRepo         SocialRepository
	counterRepo        CounterRepository
	log                *logger.Logger
}

// Deps bundles the handler dependencies.
type Deps struct {
	ProgressService    ProgressService
	AwardService       AwardService
	BadgeService       BadgeService
	MissionService     MissionService
	LeaderboardService LeaderboardService
	SocialRepo         SocialRepository
	CounterRepo        CounterRepository
	Log                *logger.Logger
}

// NewHandler creates a new gamification handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		progressService:    deps.ProgressService,
		awardService:       deps.AwardService,
		badgeService:       deps.BadgeService,
		missionService:     deps.MissionService,
		leaderboardService: deps.LeaderboardService,
		socialRepo:         deps.SocialRepo,
		counterRepo:        deps.CounterRepo,
		log:                deps.Log,
	}
}

// RegisterRoutes attaches all gamification routes to a router group.
// The group is expected to already carry the auth and CSRF middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/my-progress", h.GetMyProgress)
	rg.GET("/my-badges", h.GetMyBadges)
	rg.GET("/my-missions", h.GetMyMissions)
	rg.GET("/my-stats", h.GetMyStats)
	rg.GET("/badges", h.GetBadgeCatalog)
	rg.GET("/leaderboard", h.GetLeaderboard)
	rg.POST("/award-xp", h.AwardXP)
	rg.POST("/check-in", h.CheckIn)
	rg.POST("/follow/:id", h.Follow)
	rg.POST("/unfollow/:id", h.Unfollow)
	rg.POST("/reviews/:id/vote", h.VoteReview)
	rg.POST("/ratings", h.SubmitRating)
	rg.GET("/ratings/:employeeId/mine", h.GetMyRating)
}

// GetMyProgress returns the caller's progress snapshot.
// GET /api/gamification/my-progress.
func (h *Handler) GetMyProgress(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	snapshot, err := h.progressService.GetSnapshot(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get progress")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress":     snapshot,
		"generated_at": time.Now().UTC(),
	})
}

// GetMyBadges returns badges earned by the caller.
// GET /api/gamification/my-badges.
func (h *Handler) GetMyBadges(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	userBadges, err := h.badgeService.GetUserBadges(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       userBadges,
		"total_badges": len(userBadges),
		"generated_at": time.Now().UTC(),
	})
}

// GetMyMissions returns the caller's missions with current-period progress.
// GET /api/gamification/my-missions.
func (h *Handler) GetMyMissions(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	views, err := h.missionService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get missions")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve missions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"missions":     views,
		"generated_at": time.Now().UTC(),
	})
}

// GetMyStats returns the caller's extended stat summary.
// GET /api/gamification/my-stats.
func (h *Handler) GetMyStats(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	stats, err := h.leaderboardService.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user stats")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve statistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeCatalog returns all available badges.
// GET /api/gamification/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalog, err := h.badgeService.GetBadgeCatalog(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get badge catalog")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badge catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       catalog,
		"total_badges": len(catalog),
		"generated_at": time.Now().UTC(),
	})
}

// GetLeaderboard returns the monthly XP leaderboard.
// GET /api/gamification/leaderboard?limit=25.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit, err := h.parseLimit(c, 25)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.leaderboardService.GetMonthlyLeaderboard(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// awardRequest is the body for POST /award-xp.
type awardRequest struct {
	XPAmount   int    `json:"xpAmount" binding:"required"`
	Reason     string `json:"reason" binding:"required"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
}

// AwardXP grants XP to the caller.
// POST /api/gamification/award-xp.
func (h *Handler) AwardXP(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req awardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.awardService.Award(c.Request.Context(), userID, req.XPAmount, req.Reason, req.EntityType, req.EntityID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Str("reason", req.Reason).Msg("Failed to award XP")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to award XP")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"xpAwarded": result.XPAwarded,
		"totalXp":   result.TotalXP,
		"newLevel":  result.NewLevel,
		"leveledUp": result.LeveledUp,
		"newBadges": result.NewBadges,
	})
}

// CheckIn records the caller's daily check-in and awards check-in XP.
// Repeat check-ins on the same day succeed with zero XP.
// POST /api/gamification/check-in.
func (h *Handler) CheckIn(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req struct {
		VenueID uint `json:"venueId"`
	}
	_ = c.ShouldBindJSON(&req)

	today := time.Now().UTC().Truncate(24 * time.Hour)

	already, err := h.socialRepo.HasCheckedInOn(userID, today)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to check existing check-in")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to check in")
		return
	}
	if already {
		c.JSON(http.StatusOK, gin.H{"success": true, "xpAwarded": 0})
		return
	}

	checkIn := &models.CheckIn{UserID: userID, VenueID: req.VenueID, Day: today}
	if err := h.socialRepo.CreateCheckIn(checkIn); err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to record check-in")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to check in")
		return
	}

	prommetrics.RecordCheckIn()

	if err := h.counterRepo.IncrementCounter(userID, "check_ins_total"); err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to bump check-in counter")
	}
	if _, err := h.progressService.TouchStreak(c.Request.Context(), userID); err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to update streak")
	}

	entityID := fmt.Sprintf("%d:%s", userID, today.Format("2006-01-02"))
	result, err := h.awardService.Award(c.Request.Context(), userID, models.XPCheckIn, models.ReasonCheckIn, "check_in", entityID)
	if err != nil {
		// Check-in stands even if the award fails
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to award check-in XP")
		c.JSON(http.StatusOK, gin.H{"success": true, "xpAwarded": 0})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"xpAwarded": result.XPAwarded,
		"leveledUp": result.LeveledUp,
	})
}

// Follow follows a venue and awards XP for a first-time follow.
// POST /api/gamification/follow/:id.
func (h *Handler) Follow(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	venueID, err := h.parseIDParam(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.socialRepo.CreateFollow(userID, venueID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Uint("venue_id", venueID).Msg("Failed to follow venue")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to follow venue")
		return
	}

	xpAwarded := 0
	if created {
		entityID := fmt.Sprintf("venue:%d", venueID)
		result, err := h.awardService.Award(c.Request.Context(), userID, models.XPFollow, models.ReasonFollow, "follow", entityID)
		if err != nil {
			h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to award follow XP")
		} else {
			xpAwarded = result.XPAwarded
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "xpAwarded": xpAwarded})
}

// Unfollow removes a venue follow. No XP is clawed back.
// POST /api/gamification/unfollow/:id.
func (h *Handler) Unfollow(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	venueID, err := h.parseIDParam(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.socialRepo.DeleteFollow(userID, venueID); err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Uint("venue_id", venueID).Msg("Failed to unfollow venue")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to unfollow venue")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// voteRequest is the body for POST /reviews/:id/vote.
type voteRequest struct {
	Helpful *bool `json:"helpful" binding:"required"`
}

// VoteReview records a helpfulness vote on a review. Only the first vote on a
// review earns XP; changing the vote later is free.
// POST /api/gamification/reviews/:id/vote.
func (h *Handler) VoteReview(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	reviewID, err := h.parseIDParam(c, "id")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Helpful == nil {
		h.errorResponse(c, http.StatusBadRequest, "helpful field is required")
		return
	}

	created, err := h.socialRepo.UpsertVote(reviewID, userID, *req.Helpful)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Uint("review_id", reviewID).Msg("Failed to record vote")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to record vote")
		return
	}

	xpAwarded := 0
	if created {
		if err := h.counterRepo.IncrementCounter(userID, "votes_cast_total"); err != nil {
			h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to bump vote counter")
		}
		entityID := fmt.Sprintf("review:%d", reviewID)
		result, err := h.awardService.Award(c.Request.Context(), userID, models.XPHelpfulVote, models.ReasonHelpfulVote, "vote", entityID)
		if err != nil {
			h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to award vote XP")
		} else {
			xpAwarded = result.XPAwarded
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "xpAwarded": xpAwarded})
}

// ratingRequest is the body for POST /ratings.
type ratingRequest struct {
	EmployeeID uint `json:"employeeId" binding:"required"`
	Value      int  `json:"value" binding:"required"`
}

// SubmitRating upserts the caller's rating of an employee. Only the first
// rating of an employee earns XP; resubmissions replace the value for free.
// POST /api/gamification/ratings.
func (h *Handler) SubmitRating(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "employeeId and value are required")
		return
	}
	if req.Value < 1 || req.Value > 5 {
		h.errorResponse(c, http.StatusBadRequest, "value must be between 1 and 5")
		return
	}

	created, err := h.socialRepo.UpsertRating(userID, req.EmployeeID, req.Value)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Uint("employee_id", req.EmployeeID).Msg("Failed to save rating")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to save rating")
		return
	}

	xpAwarded := 0
	if created {
		if err := h.counterRepo.IncrementCounter(userID, "ratings_total"); err != nil {
			h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to bump rating counter")
		}
		entityID := fmt.Sprintf("employee:%d", req.EmployeeID)
		result, err := h.awardService.Award(c.Request.Context(), userID, models.XPRating, models.ReasonRating, "rating", entityID)
		if err != nil {
			h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to award rating XP")
		} else {
			xpAwarded = result.XPAwarded
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "xpAwarded": xpAwarded, "value": req.Value})
}

// GetMyRating returns the caller's rating of an employee, if any.
// GET /api/gamification/ratings/:employeeId/mine.
func (h *Handler) GetMyRating(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}

	employeeID, err := h.parseIDParam(c, "employeeId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	rating, err := h.socialRepo.GetRating(userID, employeeID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Uint("employee_id", employeeID).Msg("Failed to get rating")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve rating")
		return
	}

	if rating == nil {
		c.JSON(http.StatusOK, gin.H{"rating": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rating": rating})
}

// Helper functions

// parseIDParam extracts and validates a numeric ID from the URL parameter.
func (h *Handler) parseIDParam(c *gin.Context, name string) (uint, error) {
	idStr := c.Param(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s: %s", name, idStr)
	}
	return uint(id), nil
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("invalid limit: %s", limitStr)
	}
	return limit, nil
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
