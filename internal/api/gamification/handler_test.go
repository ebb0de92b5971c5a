//nolint:noctx // Test file uses http.NewRequest for simplicity
package gamification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/nightpulse/gamification/internal/api/middleware"
	"github.com/nightpulse/gamification/internal/models"
	"github.com/nightpulse/gamification/internal/service/awards"
	"github.com/nightpulse/gamification/internal/service/leaderboard"
	"github.com/nightpulse/gamification/internal/service/missions"
	"github.com/nightpulse/gamification/internal/service/progress"
	"github.com/nightpulse/gamification/pkg/logger"
)

const testUserID uint = 42

// Mock Progress Service
type mockProgressService struct {
	snapshots map[uint]*progress.Snapshot
	streaks   map[uint]int
}

func newMockProgressService() *mockProgressService {
	return &mockProgressService{
		snapshots: make(map[uint]*progress.Snapshot),
		streaks:   make(map[uint]int),
	}
}

func (m *mockProgressService) GetSnapshot(_ context.Context, userID uint) (*progress.Snapshot, error) {
	if snap, ok := m.snapshots[userID]; ok {
		return snap, nil
	}
	return nil, fmt.Errorf("progress not found")
}

func (m *mockProgressService) TouchStreak(_ context.Context, userID uint) (int, error) {
	m.streaks[userID]++
	return m.streaks[userID], nil
}

// Mock Award Service
type mockAwardService struct {
	results []awards.Result
	calls   []string // reasons
	err     error
}

func (m *mockAwardService) Award(_ context.Context, _ uint, amount int, reason, _, _ string) (*awards.Result, error) {
	m.calls = append(m.calls, reason)
	if m.err != nil {
		return nil, m.err
	}
	result := awards.Result{XPAwarded: amount, TotalXP: amount, NewLevel: 1}
	if len(m.results) > 0 {
		result = m.results[0]
	}
	return &result, nil
}

// Mock Badge Service
type mockBadgeService struct {
	userBadges map[uint][]models.UserBadge
	catalog    []models.Badge
}

func newMockBadgeService() *mockBadgeService {
	return &mockBadgeService{userBadges: make(map[uint][]models.UserBadge)}
}

func (m *mockBadgeService) GetUserBadges(_ context.Context, userID uint) ([]models.UserBadge, error) {
	return m.userBadges[userID], nil
}

func (m *mockBadgeService) GetBadgeCatalog(_ context.Context) ([]models.Badge, error) {
	return m.catalog, nil
}

// Mock Mission Service
type mockMissionService struct {
	views []missions.View
}

func (m *mockMissionService) ListForUser(_ context.Context, _ uint) ([]missions.View, error) {
	return m.views, nil
}

// Mock Leaderboard Service
type mockLeaderboardService struct {
	entries []leaderboard.Entry
	stats   map[uint]*leaderboard.UserStats
}

func (m *mockLeaderboardService) GetMonthlyLeaderboard(_ context.Context, limit int) ([]leaderboard.Entry, error) {
	entries := m.entries
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *mockLeaderboardService) GetUserStats(_ context.Context, userID uint) (*leaderboard.UserStats, error) {
	if stats, ok := m.stats[userID]; ok {
		return stats, nil
	}
	return &leaderboard.UserStats{UserID: userID, Level: 1}, nil
}

// Mock Social Repository
type mockSocialRepository struct {
	checkedIn map[string]bool
	follows   map[string]bool
	votes     map[string]bool
	ratings   map[string]*models.EmployeeRating
}

func newMockSocialRepository() *mockSocialRepository {
	return &mockSocialRepository{
		checkedIn: make(map[string]bool),
		follows:   make(map[string]bool),
		votes:     make(map[string]bool),
		ratings:   make(map[string]*models.EmployeeRating),
	}
}

func (m *mockSocialRepository) HasCheckedInOn(userID uint, day time.Time) (bool, error) {
	return m.checkedIn[fmt.Sprintf("%d/%s", userID, day.Format("2006-01-02"))], nil
}

func (m *mockSocialRepository) CreateCheckIn(checkIn *models.CheckIn) error {
	m.checkedIn[fmt.Sprintf("%d/%s", checkIn.UserID, checkIn.Day.Format("2006-01-02"))] = true
	return nil
}

func (m *mockSocialRepository) CreateFollow(followerID, venueID uint) (bool, error) {
	key := fmt.Sprintf("%d/%d", followerID, venueID)
	if m.follows[key] {
		return false, nil
	}
	m.follows[key] = true
	return true, nil
}

func (m *mockSocialRepository) DeleteFollow(followerID, venueID uint) error {
	delete(m.follows, fmt.Sprintf("%d/%d", followerID, venueID))
	return nil
}

func (m *mockSocialRepository) UpsertVote(reviewID, voterID uint, _ bool) (bool, error) {
	key := fmt.Sprintf("%d/%d", reviewID, voterID)
	if m.votes[key] {
		return false, nil
	}
	m.votes[key] = true
	return true, nil
}

func (m *mockSocialRepository) UpsertRating(userID, employeeID uint, value int) (bool, error) {
	key := fmt.Sprintf("%d/%d", userID, employeeID)
	_, existed := m.ratings[key]
	m.ratings[key] = &models.EmployeeRating{UserID: userID, EmployeeID: employeeID, Value: value}
	return !existed, nil
}

func (m *mockSocialRepository) GetRating(userID, employeeID uint) (*models.EmployeeRating, error) {
	return m.ratings[fmt.Sprintf("%d/%d", userID, employeeID)], nil
}

// Mock Counter Repository
type mockCounterRepository struct {
	counts map[string]int
}

func newMockCounterRepository() *mockCounterRepository {
	return &mockCounterRepository{counts: make(map[string]int)}
}

func (m *mockCounterRepository) IncrementCounter(userID uint, column string) error {
	m.counts[fmt.Sprintf("%d/%s", userID, column)]++
	return nil
}

// Test Setup

type handlerMocks struct {
	progress    *mockProgressService
	award       *mockAwardService
	badge       *mockBadgeService
	mission     *mockMissionService
	leaderboard *mockLeaderboardService
	social      *mockSocialRepository
	counter     *mockCounterRepository
}

func setupTestHandler() (*Handler, *handlerMocks) {
	mocks := &handlerMocks{
		progress:    newMockProgressService(),
		award:       &mockAwardService{},
		badge:       newMockBadgeService(),
		mission:     &mockMissionService{},
		leaderboard: &mockLeaderboardService{stats: make(map[uint]*leaderboard.UserStats)},
		social:      newMockSocialRepository(),
		counter:     newMockCounterRepository(),
	}

	handler := NewHandler(Deps{
		ProgressService:    mocks.progress,
		AwardService:       mocks.award,
		BadgeService:       mocks.badge,
		MissionService:     mocks.mission,
		LeaderboardService: mocks.leaderboard,
		SocialRepo:         mocks.social,
		CounterRepo:        mocks.counter,
		Log:                logger.New("debug", "text", "stdout"),
	})

	return handler, mocks
}

func setupRouter(handler *Handler, authenticated bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	api := router.Group("/api/gamification")
	if authenticated {
		api.Use(func(c *gin.Context) {
			c.Set(middleware.UserIDKey, testUserID)
		})
	}
	handler.RegisterRoutes(api)

	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Tests

func TestGetMyProgress_Success(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	mocks.progress.snapshots[testUserID] = &progress.Snapshot{
		UserProgress: models.UserProgress{UserID: testUserID, TotalXP: 700, CurrentLevel: 4},
		LevelName:    "Insider",
		LevelIcon:    "⭐",
	}

	w := doJSON(router, "GET", "/api/gamification/my-progress", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	prog := response["progress"].(map[string]interface{})
	assert.Equal(t, float64(700), prog["total_xp"])
	assert.Equal(t, "Insider", prog["level_name"])
}

func TestGetMyProgress_Unauthenticated(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, false)

	w := doJSON(router, "GET", "/api/gamification/my-progress", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetMyBadges_Success(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	mocks.badge.userBadges[testUserID] = []models.UserBadge{
		{UserID: testUserID, BadgeID: 1},
		{UserID: testUserID, BadgeID: 2},
	}

	w := doJSON(router, "GET", "/api/gamification/my-badges", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(2), response["total_badges"])
}

func TestGetMyMissions_Success(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	mocks.mission.views = []missions.View{
		{Mission: models.Mission{Code: "daily_check_in"}, Progress: 1, Target: 1, Completed: true},
	}

	w := doJSON(router, "GET", "/api/gamification/my-missions", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response["missions"], 1)
}

func TestGetLeaderboard_Success(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	mocks.leaderboard.entries = []leaderboard.Entry{
		{Rank: 1, UserID: 1, Username: "ava", MonthlyXP: 900},
		{Rank: 2, UserID: 2, Username: "ben", MonthlyXP: 400},
	}

	w := doJSON(router, "GET", "/api/gamification/leaderboard?limit=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(2), response["total_entries"])
}

func TestGetLeaderboard_InvalidLimit(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, true)

	w := doJSON(router, "GET", "/api/gamification/leaderboard?limit=abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Contains(t, response["error"], "invalid limit")
}

func TestAwardXP_Success(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	mocks.award.results = []awards.Result{{XPAwarded: 50, TotalXP: 700, NewLevel: 4, LeveledUp: true}}

	w := doJSON(router, "POST", "/api/gamification/award-xp", map[string]interface{}{
		"xpAmount": 50,
		"reason":   "check_in",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
	assert.Equal(t, float64(50), response["xpAwarded"])
	assert.Equal(t, true, response["leveledUp"])
}

func TestAwardXP_MissingFields(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, true)

	w := doJSON(router, "POST", "/api/gamification/award-xp", map[string]interface{}{
		"xpAmount": 50,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAwardXP_ServiceError(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	mocks.award.err = fmt.Errorf("database down")

	w := doJSON(router, "POST", "/api/gamification/award-xp", map[string]interface{}{
		"xpAmount": 50,
		"reason":   "check_in",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCheckIn_FirstOfDay(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	w := doJSON(router, "POST", "/api/gamification/check-in", map[string]interface{}{"venueId": 7})

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
	assert.Equal(t, float64(50), response["xpAwarded"])

	assert.Equal(t, 1, mocks.counter.counts[fmt.Sprintf("%d/check_ins_total", testUserID)])
	assert.Equal(t, 1, mocks.progress.streaks[testUserID])
	assert.Equal(t, []string{models.ReasonCheckIn}, mocks.award.calls)
}

func TestCheckIn_RepeatSameDay(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	doJSON(router, "POST", "/api/gamification/check-in", nil)
	w := doJSON(router, "POST", "/api/gamification/check-in", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, true, response["success"])
	assert.Equal(t, float64(0), response["xpAwarded"])

	// Only the first check-in awards
	assert.Len(t, mocks.award.calls, 1)
}

func TestFollow_FirstTime(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	w := doJSON(router, "POST", "/api/gamification/follow/7", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(10), response["xpAwarded"])
	assert.Equal(t, []string{models.ReasonFollow}, mocks.award.calls)
}

func TestFollow_Repeat(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	doJSON(router, "POST", "/api/gamification/follow/7", nil)
	w := doJSON(router, "POST", "/api/gamification/follow/7", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(0), response["xpAwarded"])
	assert.Len(t, mocks.award.calls, 1)
}

func TestUnfollow(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	doJSON(router, "POST", "/api/gamification/follow/7", nil)
	w := doJSON(router, "POST", "/api/gamification/unfollow/7", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mocks.social.follows)

	// Re-following awards again only if the event reference differs; the
	// handler defers that decision to the award service
	w = doJSON(router, "POST", "/api/gamification/unfollow/7", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFollow_InvalidID(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, true)

	w := doJSON(router, "POST", "/api/gamification/follow/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoteReview_FirstVote(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	w := doJSON(router, "POST", "/api/gamification/reviews/17/vote", map[string]interface{}{"helpful": true})

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(5), response["xpAwarded"])
	assert.Equal(t, 1, mocks.counter.counts[fmt.Sprintf("%d/votes_cast_total", testUserID)])
}

func TestVoteReview_ChangedVote(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	doJSON(router, "POST", "/api/gamification/reviews/17/vote", map[string]interface{}{"helpful": true})
	w := doJSON(router, "POST", "/api/gamification/reviews/17/vote", map[string]interface{}{"helpful": false})

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(0), response["xpAwarded"])
	assert.Len(t, mocks.award.calls, 1)
}

func TestVoteReview_MissingBody(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, true)

	w := doJSON(router, "POST", "/api/gamification/reviews/17/vote", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitRating_FirstRating(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	w := doJSON(router, "POST", "/api/gamification/ratings", map[string]interface{}{
		"employeeId": 9,
		"value":      5,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(15), response["xpAwarded"])
	assert.Equal(t, 1, mocks.counter.counts[fmt.Sprintf("%d/ratings_total", testUserID)])
}

func TestSubmitRating_Resubmit(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	doJSON(router, "POST", "/api/gamification/ratings", map[string]interface{}{"employeeId": 9, "value": 5})
	w := doJSON(router, "POST", "/api/gamification/ratings", map[string]interface{}{"employeeId": 9, "value": 2})

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(0), response["xpAwarded"])
	assert.Equal(t, float64(2), response["value"])
	assert.Len(t, mocks.award.calls, 1)
}

func TestSubmitRating_InvalidValue(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, true)

	w := doJSON(router, "POST", "/api/gamification/ratings", map[string]interface{}{
		"employeeId": 9,
		"value":      6,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetMyRating(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, true)

	// No rating yet
	w := doJSON(router, "GET", "/api/gamification/ratings/9/mine", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Nil(t, response["rating"])

	// After submitting
	doJSON(router, "POST", "/api/gamification/ratings", map[string]interface{}{"employeeId": 9, "value": 4})
	w = doJSON(router, "GET", "/api/gamification/ratings/9/mine", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	rating := response["rating"].(map[string]interface{})
	assert.Equal(t, float64(4), rating["value"])
}

func TestGetBadgeCatalog(t *testing.T) {
	handler, mocks := setupTestHandler()
	router := setupRouter(handler, true)

	mocks.badge.catalog = []models.Badge{{ID: 1, Name: "First Steps"}}

	w := doJSON(router, "GET", "/api/gamification/badges", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(1), response["total_badges"])
}
