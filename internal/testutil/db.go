package testutil

import (
	"fmt"
	"testing"

	"github.com/challengehub/challengehub/internal/models"
	"github.com/challengehub/challengehub/internal/repository"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens an isolated in-memory database with the full schema migrated.
// Each call gets its own database; the single connection keeps the shared
// cache alive for the test's lifetime.
func NewDB(t *testing.T) *repository.Database {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	database := &repository.Database{DB: db}
	if err := database.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		_ = database.Close()
	})

	return database
}

// CreateUser inserts a user with sane defaults, applying any overrides first.
func CreateUser(t *testing.T, db *repository.Database, overrides func(*models.User)) *models.User {
	t.Helper()

	suffix := uuid.NewString()[:8]
	user := &models.User{
		Username: "user_" + suffix,
		Email:    "user_" + suffix + "@example.com",
		Password: "hashed",
		Badges:   []string{},
	}
	if overrides != nil {
		overrides(user)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateVideo inserts a video owned by the given user.
func CreateVideo(t *testing.T, db *repository.Database, owner *models.User, overrides func(*models.Video)) *models.Video {
	t.Helper()

	video := &models.Video{
		UserID:      owner.ID,
		ChallengeID: "daily_" + uuid.NewString()[:8],
		VideoURL:    "https://media.example.com/" + uuid.NewString() + ".mp4",
	}
	if overrides != nil {
		overrides(video)
	}
	if err := db.Create(video).Error; err != nil {
		t.Fatalf("failed to create test video: %v", err)
	}
	return video
}
