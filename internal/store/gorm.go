package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/identity"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/models"
	"gorm.io/gorm"
)

// GormStore persists reports through gorm (postgres in production, sqlite
// for local runs and tests).
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, r *models.GradingReport) error {
	r.ID = 0
	// Truncated to the precision postgres stores so the returned report
	// equals what a later read yields.
	r.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, owner *string) ([]models.GradingReport, error) {
	var reports []models.GradingReport
	err := s.db.WithContext(ctx).
		Scopes(identity.ForOwner(owner)).
		Order("created_at DESC").
		Order("id DESC").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

func (s *GormStore) GetByID(ctx context.Context, id uint, owner *string) (*models.GradingReport, error) {
	var report models.GradingReport
	err := s.db.WithContext(ctx).
		Scopes(identity.ForOwner(owner)).
		Where("id = ?", id).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get report %d: %w", id, err)
	}
	return &report, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
