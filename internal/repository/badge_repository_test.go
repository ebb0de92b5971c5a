package repository

import (
	"encoding/json"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nightpulse/gamification/internal/models"
)

// setupBadgeTestDB creates an in-memory SQLite database for testing.
func setupBadgeTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Enable foreign key constraints (SQLite default is off)
	db.Exec("PRAGMA foreign_keys = ON")

	err = db.AutoMigrate(
		&models.User{},
		&models.Badge{},
		&models.UserBadge{},
	)
	if err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return &DB{db}
}

// createTestBadge creates a test badge in the database.
func createTestBadge(t *testing.T, repo *BadgeRepository, name, description, icon string) *models.Badge {
	t.Helper()

	badge := &models.Badge{
		Name:        name,
		Description: description,
		Icon:        icon,
		Rarity:      models.RarityCommon,
		Category:    "activity",
		Criteria:    json.RawMessage(`{"metric":"check_ins","operator":">=","value":10}`),
	}

	err := repo.Create(badge)
	if err != nil {
		t.Fatalf("Failed to create test badge: %v", err)
	}

	return badge
}

// createTestUser creates a test user in the database.
func createTestUser(t *testing.T, db *DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: username,
	}

	err := db.Create(user).Error
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

func TestBadgeRepository_Create(t *testing.T) {
	db := setupBadgeTestDB(t)
	repo := NewBadgeRepository(db)

	badge := &models.Badge{
		Name:        "night_owl",
		Description: "Checked in after midnight",
		Icon:        "🦉",
		Rarity:      models.RarityRare,
		Criteria:    json.RawMessage(`{"metric":"check_ins","operator":">=","value":5}`),
	}

	err := repo.Create(badge)
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	if badge.ID == 0 {
		t.Error("Expected badge ID to be set after creation")
	}

	if badge.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestBadgeRepository_GetByID(t *testing.T) {
	db := setupBadgeTestDB(t)
	repo := NewBadgeRepository(db)

	created := createTestBadge(t, repo, "test_badge", "Test", "🎯")

	retrieved, err := repo.GetByID(created.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}

	if retrieved.Name != "test_badge" {
		t.Errorf("Expected name 'test_badge', got %q", retrieved.Name)
	}

	// Test non-existent ID
	_, err = repo.GetByID(999)
	if err == nil {
		t.Error("Expected error for non-existent badge ID")
	}
}

func TestBadgeRepository_GetByName(t *testing.T) {
	db := setupBadgeTestDB(t)
	repo := NewBadgeRepository(db)

	createTestBadge(t, repo, "night_owl", "Regular after dark", "🦉")

	badge, err := repo.GetByName("night_owl")
	if err != nil {
		t.Fatalf("GetByName() failed: %v", err)
	}

	if badge.Description != "Regular after dark" {
		t.Errorf("Expected description 'Regular after dark', got %q", badge.Description)
	}

	_, err = repo.GetByName("non_existent")
	if err == nil {
		t.Error("Expected error for non-existent badge name")
	}
}

func TestBadgeRepository_GetAll(t *testing.T) {
	db := setupBadgeTestDB(t)
	repo := NewBadgeRepository(db)

	createTestBadge(t, repo, "badge1", "First", "1️⃣")
	createTestBadge(t, repo, "badge2", "Second", "2️⃣")
	createTestBadge(t, repo, "badge3", "Third", "3️⃣")

	badges, err := repo.GetAll()
	if err != nil {
		t.Fatalf("GetAll() failed: %v", err)
	}

	if len(badges) != 3 {
		t.Errorf("Expected 3 badges, got %d", len(badges))
	}
}

func TestBadgeRepository_AwardBadge(t *testing.T) {
	db := setupBadgeTestDB(t)
	repo := NewBadgeRepository(db)

	user := createTestUser(t, db, "alice")
	badge := createTestBadge(t, repo, "test_badge", "Test", "🏆")

	err := repo.AwardBadge(user.ID, badge.ID)
	if err != nil {
		t.Fatalf("AwardBadge() failed: %v", err)
	}

	hasEarned, err := repo.HasUserEarnedBadge(user.ID, badge.ID)
	if err != nil {
		t.Fatalf("HasUserEarnedBadge() failed: %v", err)
	}

	if !hasEarned {
		t.Error("Expected user to have earned the badge")
	}
}

func TestBadgeRepository_AwardBadge_Idempotent(t *testing.T) {
	db := setupBadgeTestDB(t)
	repo := NewBadgeRepository(db)

	user := createTestUser(t, db, "bob")
	badge := createTestBadge(t, repo, "test_badge", "Test", "🏆")

	err := repo.AwardBadge(user.ID, badge.ID)
	if err != nil {
		t.Fatalf("First AwardBadge() failed: %v", err)
	}

	err = repo.AwardBadge(user.ID, badge.ID)
	if err != nil {
		t.Fatalf("Second AwardBadge() failed: %v", err)
	}

	userBadges, err := repo.GetUserBadges(user.ID)
	if err != nil {
		t.Fatalf("GetUserBadges() failed: %v", err)
	}

	if len(userBadges) != 1 {
		t.Errorf("Expected 1 user badge entry, got %d", len(userBadges))
	}
}

func TestBadgeRepository_GetUserBadges(t *testing.T) {
	db := setupBadgeTestDB(t)
	repo := NewBadgeRepository(db)

	user := createTestUser(t, db, "charlie")
	badge1 := createTestBadge(t, repo, "badge1", "First", "1️⃣")
	badge2 := createTestBadge(t, repo, "badge2", "Second", "2️⃣")

	_ = repo.AwardBadge(user.ID, badge1.ID)
	time.Sleep(10 * time.Millisecond) // Ensure different timestamps
	_ = repo.AwardBadge(user.ID, badge2.ID)

	userBadges, err := repo.GetUserBadges(user.ID)
	if err != nil {
		t.Fatalf("GetUserBadges() failed: %v", err)
	}

	if len(userBadges) != 2 {
		t.Errorf("Expected 2 badges, got %d", len(userBadges))
	}

	// Verify order (DESC by earned_at, so badge2 should be first)
	if userBadges[0].Badge.Name != "badge2" {
		t.Errorf("Expected first badge to be 'badge2', got %q", userBadges[0].Badge.Name)
	}
}

func TestBadgeRepository_GetBadgeHoldersCount(t *testing.T) {
	db := setupBadgeTestDB(t)
	repo := NewBadgeRepository(db)

	user1 := createTestUser(t, db, "alice")
	user2 := createTestUser(t, db, "bob")
	badge := createTestBadge(t, repo, "test_badge", "Test", "📊")

	count, err := repo.GetBadgeHoldersCount(badge.ID)
	if err != nil {
		t.Fatalf("GetBadgeHoldersCount() failed: %v", err)
	}

	if count != 0 {
		t.Errorf("Expected count 0, got %d", count)
	}

	_ = repo.AwardBadge(user1.ID, badge.ID)
	_ = repo.AwardBadge(user2.ID, badge.ID)

	count, err = repo.GetBadgeHoldersCount(badge.ID)
	if err != nil {
		t.Fatalf("GetBadgeHoldersCount() after awards failed: %v", err)
	}

	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}
}

func TestBadgeRepository_GetUserBadgeCount(t *testing.T) {
	db := setupBadgeTestDB(t)
	repo := NewBadgeRepository(db)

	user := createTestUser(t, db, "frank")
	badge1 := createTestBadge(t, repo, "badge1", "First", "1️⃣")
	badge2 := createTestBadge(t, repo, "badge2", "Second", "2️⃣")

	count, err := repo.GetUserBadgeCount(user.ID)
	if err != nil {
		t.Fatalf("GetUserBadgeCount() failed: %v", err)
	}

	if count != 0 {
		t.Errorf("Expected count 0, got %d", count)
	}

	_ = repo.AwardBadge(user.ID, badge1.ID)
	_ = repo.AwardBadge(user.ID, badge2.ID)

	count, err = repo.GetUserBadgeCount(user.ID)
	if err != nil {
		t.Fatalf("GetUserBadgeCount() after awards failed: %v", err)
	}

	if count != 2 {
		t.Errorf("Expected count 2, got %d", count)
	}
}

func TestBadgeRepository_UniqueConstraint(t *testing.T) {
	db := setupBadgeTestDB(t)
	repo := NewBadgeRepository(db)

	badge1 := &models.Badge{
		Name:     "unique_badge",
		Icon:     "🔒",
		Criteria: json.RawMessage(`{}`),
	}
	err := repo.Create(badge1)
	if err != nil {
		t.Fatalf("Failed to create first badge: %v", err)
	}

	badge2 := &models.Badge{
		Name:     "unique_badge", // Duplicate name
		Icon:     "🔓",
		Criteria: json.RawMessage(`{}`),
	}
	err = repo.Create(badge2)
	if err == nil {
		t.Error("Expected error when creating badge with duplicate name")
	}
}
