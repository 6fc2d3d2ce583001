package repository

import (
	"context"
	"fmt"

	"github.com/challengehub/challengehub/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChallengeRepository struct {
	db *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

func (r *ChallengeRepository) GetSlot(ctx context.Context, slot string) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).First(&challenge, "slot = ?", slot).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return &challenge, nil
}

// ReplaceSlot overwrites the singleton record; expired challenges are
// replaced, never accumulated. Last write wins on a rotation race.
func (r *ChallengeRepository) ReplaceSlot(ctx context.Context, challenge *models.Challenge) error {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot"}},
			UpdateAll: true,
		}).
		Create(challenge).Error; err != nil {
		return fmt.Errorf("failed to replace challenge: %w", err)
	}
	return nil
}
