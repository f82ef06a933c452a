// Package store persists grading reports. Reports are append-only: there is
// no update or delete path.
package store

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/models"
)

var ErrNotFound = errors.New("report not found")

// ReportStore is implemented by MemoryStore and GormStore. A nil owner means
// the caller is anonymous and sees every report.
type ReportStore interface {
	// Create assigns ID and CreatedAt on r.
	Create(ctx context.Context, r *models.GradingReport) error
	// List returns reports newest first, ties broken by id descending.
	List(ctx context.Context, owner *string) ([]models.GradingReport, error)
	// GetByID returns ErrNotFound for a missing id or a report owned by
	// someone else.
	GetByID(ctx context.Context, id uint, owner *string) (*models.GradingReport, error)
	Ping(ctx context.Context) error
}
