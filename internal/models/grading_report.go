package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

// GradingReport is one persisted outcome of grading a single produce image.
// Rows are written once and never updated.
type GradingReport struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	UserID      *string              `gorm:"size:128;index:idx_grading_reports_owner_created,priority:1" json:"userId,omitempty"`
	ImageURL    string               `gorm:"type:text;not null" json:"imageUrl"`
	ProduceType contract.ProduceType `gorm:"size:32;not null" json:"produceType"`
	Grade       string               `gorm:"size:32;not null" json:"grade"`
	Confidence  int                  `gorm:"not null;check:confidence >= 0 AND confidence <= 100" json:"confidence"`
	Analysis    contract.Analysis    `gorm:"type:jsonb;serializer:json;not null" json:"analysis"`
	Source      string               `gorm:"size:16;not null" json:"source"`
	Provider    string               `gorm:"size:32" json:"provider,omitempty"`
	CreatedAt   time.Time            `gorm:"not null;index:idx_grading_reports_owner_created,priority:2,sort:desc" json:"createdAt"`
}

func (GradingReport) TableName() string {
	return "grading_reports"
}

func (r *GradingReport) ToResponse() contract.Report {
	return contract.Report{
		ID:          r.ID,
		UserID:      r.UserID,
		ImageURL:    r.ImageURL,
		ProduceType: r.ProduceType,
		Grade:       r.Grade,
		Confidence:  r.Confidence,
		Analysis:    r.Analysis,
		Source:      r.Source,
		Provider:    r.Provider,
		CreatedAt:   r.CreatedAt,
	}
}

// ToResponses maps a slice of reports, returning an empty (non-nil) slice
// for no rows.
func ToResponses(reports []GradingReport) []contract.Report {
	out := make([]contract.Report, 0, len(reports))
	for i := range reports {
		out = append(out, reports[i].ToResponse())
	}
	return out
}
