package store

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/models"
	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

// SampleReports are inserted by Seed into an empty store.
func SampleReports() []models.GradingReport {
	return []models.GradingReport{
		{
			ImageURL:    "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg==",
			ProduceType: contract.ProduceCoconut,
			Grade:       contract.GradeA,
			Confidence:  95,
			Analysis: contract.Analysis{
				VisualDefects: []string{},
				Color:         "Uniform brown",
				SizeEstimate:  "Large (approx 15cm dia)",
				Observations:  "Excellent condition, no visible cracks or leakage.",
			},
			Source: contract.SourceDemo,
		},
		{
			ImageURL:    "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg==",
			ProduceType: contract.ProduceTurmeric,
			Grade:       contract.GradeB,
			Confidence:  82,
			Analysis: contract.Analysis{
				VisualDefects: []string{"Minor surface dirt", "Small irregular shapes"},
				Color:         "Deep orange-yellow",
				SizeEstimate:  "Mixed sizes",
				Observations:  "Good color but some cleaning required. Acceptable for powdering.",
			},
			Source: contract.SourceDemo,
		},
		{
			ImageURL:    "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==",
			ProduceType: contract.ProduceCoconut,
			Grade:       contract.GradeReject,
			Confidence:  98,
			Analysis: contract.Analysis{
				VisualDefects: []string{"Large crack", "Mold visible"},
				Color:         "Dark patches",
				SizeEstimate:  "Medium",
				Observations:  "Significant damage visible. Likely spoiled. Rejected.",
			},
			Source: contract.SourceDemo,
		},
	}
}

// Seed inserts SampleReports when the store holds no reports. It returns the
// number of reports inserted.
func Seed(ctx context.Context, s ReportStore, owner *string) (int, error) {
	existing, err := s.List(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("check existing reports: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	samples := SampleReports()
	for i := range samples {
		samples[i].UserID = owner
		if err := s.Create(ctx, &samples[i]); err != nil {
			return i, fmt.Errorf("seed report %d: %w", i+1, err)
		}
	}
	return len(samples), nil
}
