package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/ai"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/models"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/store"
	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

var ErrInvalidImage = errors.New("image must be base64-encoded image data")

// Grader is satisfied by *ai.Grader.
type Grader interface {
	Grade(ctx context.Context, pt contract.ProduceType, img ai.Image) ai.Result
	Mode() string
}

type GradingService struct {
	store  store.ReportStore
	grader Grader
}

func NewGradingService(s store.ReportStore, g Grader) *GradingService {
	return &GradingService{store: s, grader: g}
}

// Grade runs the AI grader and persists exactly one report. The request is
// expected to have passed contract validation. Once started it runs to
// completion even if the caller goes away.
func (s *GradingService) Grade(ctx context.Context, owner *string, req contract.GradeRequest) (*models.GradingReport, error) {
	img, err := ai.DecodeImage(req.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	res := s.grader.Grade(ctx, req.ProduceType, img)

	report := &models.GradingReport{
		UserID:      owner,
		ImageURL:    img.DataURI(),
		ProduceType: req.ProduceType,
		Grade:       res.Grade,
		Confidence:  res.Confidence,
		Analysis:    res.Analysis,
		Source:      res.Source,
		Provider:    res.Provider,
	}
	if err := s.store.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("persist report: %w", err)
	}

	metrics.GradingResults.WithLabelValues(res.Source).Inc()
	slog.Info("report graded",
		"action", "grade",
		"report_id", report.ID,
		"produce_type", string(report.ProduceType),
		"grade", report.Grade,
		"source", report.Source,
		"provider", report.Provider,
		"latency_ms", float64(time.Since(start).Milliseconds()),
	)
	return report, nil
}

func (s *GradingService) List(ctx context.Context, owner *string) ([]models.GradingReport, error) {
	return s.store.List(ctx, owner)
}

// Get returns store.ErrNotFound for missing and foreign reports alike.
func (s *GradingService) Get(ctx context.Context, id uint, owner *string) (*models.GradingReport, error) {
	return s.store.GetByID(ctx, id, owner)
}

// Health reports store reachability and the AI mode.
func (s *GradingService) Health(ctx context.Context) (db, aiMode string) {
	db = "ok"
	if err := s.store.Ping(ctx); err != nil {
		db = "unhealthy: " + err.Error()
	}
	return db, s.grader.Mode()
}
