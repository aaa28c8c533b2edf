package database

import (
	"context"
	"errors"
	"fmt"

	"grid-buy-planner/internal/models"

	"gorm.io/gorm"
)

// Store persists the inputs of the most recent calculation.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store over an opened and migrated database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// LoadRecent returns the last saved inputs, or nil when nothing was saved yet.
func (s *Store) LoadRecent(ctx context.Context) (*models.RecentCalculation, error) {
	var recent models.RecentCalculation
	err := s.db.WithContext(ctx).Order("updated_at desc").First(&recent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recent calculation: %w", err)
	}
	return &recent, nil
}

// SaveRecent replaces the saved inputs with recent.
func (s *Store) SaveRecent(ctx context.Context, recent *models.RecentCalculation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.RecentCalculation
		err := tx.Order("updated_at desc").First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			recent.ID = 0
		case err != nil:
			return fmt.Errorf("failed to load recent calculation: %w", err)
		default:
			recent.ID = existing.ID
			recent.CreatedAt = existing.CreatedAt
		}

		if err := tx.Save(recent).Error; err != nil {
			return fmt.Errorf("failed to save recent calculation: %w", err)
		}
		return nil
	})
}
