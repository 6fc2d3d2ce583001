package repository

import (
	"context"
	"fmt"

	"github.com/challengehub/challengehub/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VideoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) WithTx(tx *gorm.DB) *VideoRepository {
	return &VideoRepository{db: tx}
}

func (r *VideoRepository) Create(ctx context.Context, video *models.Video) error {
	if err := r.db.WithContext(ctx).Create(video).Error; err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (r *VideoRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Video, error) {
	var video models.Video
	if err := r.db.WithContext(ctx).
		Preload("User").
		First(&video, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get video: %w", err)
	}
	return &video, nil
}

// ListRecent returns videos for the feed, newest first. A non-positive
// limit returns everything.
func (r *VideoRepository) ListRecent(ctx context.Context, limit int) ([]*models.Video, error) {
	var videos []*models.Video
	db := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC")
	if limit > 0 {
		db = db.Limit(limit)
	}
	if err := db.Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

func (r *VideoRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Video, error) {
	var videos []*models.Video
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("failed to get videos by user: %w", err)
	}
	return videos, nil
}

// CountByUserAndChallenge backs the duplicate-submission check.
func (r *VideoRepository) CountByUserAndChallenge(ctx context.Context, userID uuid.UUID, challengeID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Video{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count challenge submissions: %w", err)
	}
	return count, nil
}

func (r *VideoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Delete(&models.Video{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

func (r *VideoRepository) UpdateLikeCount(ctx context.Context, videoID uuid.UUID, delta int64) error {
	if err := r.db.WithContext(ctx).Model(&models.Video{}).
		Where("id = ?", videoID).
		UpdateColumn("likes", gorm.Expr("likes + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to update like count: %w", err)
	}
	return nil
}
