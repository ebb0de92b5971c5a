package badges

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nightpulse/gamification/internal/models"
	"github.com/nightpulse/gamification/pkg/logger"
)

// Mock repositories for testing
type mockBadgeRepository struct {
	badges     map[uint]*models.Badge
	userBadges map[uint]map[uint]bool // userID -> badgeID -> earned
}

func newMockBadgeRepository() *mockBadgeRepository {
	return &mockBadgeRepository{
		badges:     make(map[uint]*models.Badge),
		userBadges: make(map[uint]map[uint]bool),
	}
}

func (m *mockBadgeRepository) addBadge(id uint, name, metric, operator string, value float64) {
	criteria, _ := json.Marshal(models.BadgeCriteria{Metric: metric, Operator: operator, Value: value})
	m.badges[id] = &models.Badge{ID: id, Name: name, Criteria: criteria}
}

func (m *mockBadgeRepository) GetAll() ([]models.Badge, error) {
	badges := make([]models.Badge, 0, len(m.badges))
	for _, b := range m.badges {
		badges = append(badges, *b)
	}
	return badges, nil
}

func (m *mockBadgeRepository) GetByID(id uint) (*models.Badge, error) {
	return m.badges[id], nil
}

func (m *mockBadgeRepository) HasUserEarnedBadge(userID, badgeID uint) (bool, error) {
	if earned, ok := m.userBadges[userID]; ok {
		return earned[badgeID], nil
	}
	return false, nil
}

func (m *mockBadgeRepository) AwardBadge(userID, badgeID uint) error {
	if m.userBadges[userID] == nil {
		m.userBadges[userID] = make(map[uint]bool)
	}
	m.userBadges[userID][badgeID] = true
	return nil
}

func (m *mockBadgeRepository) GetUserBadges(userID uint) ([]models.UserBadge, error) {
	var result []models.UserBadge
	for badgeID := range m.userBadges[userID] {
		result = append(result, models.UserBadge{
			UserID:   userID,
			BadgeID:  badgeID,
			EarnedAt: time.Now(),
		})
	}
	return result, nil
}

func (m *mockBadgeRepository) GetBadgeHoldersCount(badgeID uint) (int64, error) {
	count := int64(0)
	for _, earned := range m.userBadges {
		if earned[badgeID] {
			count++
		}
	}
	return count, nil
}

type mockProgressRepository struct {
	progress map[uint]*models.UserProgress
}

func newMockProgressRepository() *mockProgressRepository {
	return &mockProgressRepository{progress: make(map[uint]*models.UserProgress)}
}

func (m *mockProgressRepository) GetOrCreate(userID uint) (*models.UserProgress, error) {
	if prog, ok := m.progress[userID]; ok {
		return prog, nil
	}
	prog := &models.UserProgress{UserID: userID, CurrentLevel: 1}
	m.progress[userID] = prog
	return prog, nil
}

type mockUserRepository struct {
	users []models.User
}

func (m *mockUserRepository) List() ([]models.User, error) {
	return m.users, nil
}

func setupTestService() (*Service, *mockBadgeRepository, *mockProgressRepository, *mockUserRepository) {
	badgeRepo := newMockBadgeRepository()
	progressRepo := newMockProgressRepository()
	userRepo := &mockUserRepository{}
	log := logger.New("debug", "text", "stdout")

	service := NewServiceWithInterfaces(badgeRepo, progressRepo, userRepo, log)

	return service, badgeRepo, progressRepo, userRepo
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name        string
		operator    string
		threshold   float64
		actualValue float64
		expected    bool
		expectError bool
	}{
		{"Less than - true", "<", 100, 50, true, false},
		{"Less than - false", "<", 100, 150, false, false},
		{"Less than or equal - true (equal)", "<=", 100, 100, true, false},
		{"Greater than - true", ">", 100, 150, true, false},
		{"Greater than - false", ">", 100, 50, false, false},
		{"Greater than or equal - true (equal)", ">=", 100, 100, true, false},
		{"Greater than or equal - false", ">=", 100, 50, false, false},
		{"Equal - true", "==", 100, 100, true, false},
		{"Equal - false", "==", 100, 50, false, false},
		{"Invalid operator", "!=", 100, 50, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := compare(tt.operator, tt.threshold, tt.actualValue)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}

			if result != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestMetricValue(t *testing.T) {
	prog := &models.UserProgress{
		TotalXP:        700,
		MonthlyXP:      250,
		CurrentLevel:   4,
		CurrentStreak:  3,
		LongestStreak:  9,
		CheckInsTotal:  12,
		VotesCastTotal: 30,
		RatingsTotal:   5,
	}

	tests := []struct {
		metric   string
		expected float64
	}{
		{"total_xp", 700},
		{"monthly_xp", 250},
		{"current_level", 4},
		{"current_streak", 3},
		{"longest_streak", 9},
		{"check_ins", 12},
		{"votes_cast", 30},
		{"ratings", 5},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			value, err := metricValue(tt.metric, prog)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if value != tt.expected {
				t.Errorf("Expected %f, got %f", tt.expected, value)
			}
		})
	}

	t.Run("unknown metric", func(t *testing.T) {
		if _, err := metricValue("karma", prog); err == nil {
			t.Error("Expected error for unknown metric")
		}
	})
}

func TestEvaluateUserBadges(t *testing.T) {
	service, badgeRepo, progressRepo, _ := setupTestService()

	badgeRepo.addBadge(1, "First Steps", "check_ins", ">=", 1)
	badgeRepo.addBadge(2, "Night Owl", "check_ins", ">=", 10)
	badgeRepo.addBadge(3, "Critic", "ratings", ">=", 5)

	progressRepo.progress[42] = &models.UserProgress{
		UserID:        42,
		CurrentLevel:  2,
		CheckInsTotal: 3,
		RatingsTotal:  7,
	}

	earned, err := service.EvaluateUserBadges(context.Background(), 42)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(earned) != 2 {
		t.Fatalf("Expected 2 badges earned, got %d", len(earned))
	}

	names := map[string]bool{}
	for _, badge := range earned {
		names[badge.Name] = true
	}
	if !names["First Steps"] || !names["Critic"] {
		t.Errorf("Expected First Steps and Critic, got %v", names)
	}
}

func TestEvaluateUserBadgesIdempotent(t *testing.T) {
	service, badgeRepo, progressRepo, _ := setupTestService()

	badgeRepo.addBadge(1, "First Steps", "check_ins", ">=", 1)
	progressRepo.progress[42] = &models.UserProgress{UserID: 42, CheckInsTotal: 3}

	first, err := service.EvaluateUserBadges(context.Background(), 42)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("Expected 1 badge on first pass, got %d", len(first))
	}

	second, err := service.EvaluateUserBadges(context.Background(), 42)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("Expected no badges on second pass, got %d", len(second))
	}
}

func TestEvaluateAllBadges(t *testing.T) {
	service, badgeRepo, progressRepo, userRepo := setupTestService()

	badgeRepo.addBadge(1, "Regular", "total_xp", ">=", 100)
	userRepo.users = []models.User{{ID: 1}, {ID: 2}, {ID: 3}}
	progressRepo.progress[1] = &models.UserProgress{UserID: 1, TotalXP: 150}
	progressRepo.progress[2] = &models.UserProgress{UserID: 2, TotalXP: 50}
	progressRepo.progress[3] = &models.UserProgress{UserID: 3, TotalXP: 300}

	awarded, err := service.EvaluateAllBadges(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if awarded != 2 {
		t.Errorf("Expected 2 badges awarded, got %d", awarded)
	}
}

func TestEvaluateBadgeInvalidCriteria(t *testing.T) {
	service, _, _, _ := setupTestService()

	badge := &models.Badge{ID: 1, Name: "Broken", Criteria: []byte("not json")}
	if _, err := service.EvaluateBadge(badge, &models.UserProgress{}); err == nil {
		t.Error("Expected error for malformed criteria")
	}
}
