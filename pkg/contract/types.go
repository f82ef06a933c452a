package contract

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// GradeRequest is the body of POST /api/grade. Image is base64, optionally
// prefixed with a data URI header.
type GradeRequest struct {
	Image       string      `json:"image" validate:"required,image_payload"`
	ProduceType ProduceType `json:"produceType" validate:"required,produce_type"`
}

// Report is the wire shape of a persisted grading report.
type Report struct {
	ID          uint        `json:"id"`
	UserID      *string     `json:"userId,omitempty"`
	ImageURL    string      `json:"imageUrl"`
	ProduceType ProduceType `json:"produceType"`
	Grade       string      `json:"grade"`
	Confidence  int         `json:"confidence"`
	Analysis    Analysis    `json:"analysis"`
	Source      string      `json:"source"`
	Provider    string      `json:"provider,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// ValidationError is returned with 400 responses.
type ValidationError struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ErrorResponse is returned with 401, 404 and 500 responses.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	AI        string `json:"ai"`
}

// Report sources. Anything other than SourceAI was not produced by a model.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
	SourceDemo     = "demo"
)

// SplitDataURI splits "data:<mime>;base64,<payload>". For a bare payload it
// returns an empty MIME type and the input unchanged.
func SplitDataURI(s string) (mime, payload string, err error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return "", s, nil
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return "", "", errors.New("data URI has no payload")
	}
	meta := s[len("data:"):comma]
	if !strings.HasSuffix(meta, ";base64") {
		return "", "", errors.New("data URI is not base64-encoded")
	}
	mime = strings.TrimSuffix(meta, ";base64")
	if semi := strings.IndexByte(mime, ';'); semi >= 0 {
		mime = mime[:semi]
	}
	return mime, s[comma+1:], nil
}

// ValidateReport checks a report received from the server.
func ValidateReport(r Report) error {
	if r.ID == 0 {
		return errors.New("report has no id")
	}
	if r.CreatedAt.IsZero() {
		return errors.New("report has no createdAt")
	}
	if !r.ProduceType.Valid() {
		return fmt.Errorf("report has unknown produceType %q", r.ProduceType)
	}
	if strings.TrimSpace(r.Grade) == "" {
		return errors.New("report has no grade")
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return fmt.Errorf("report confidence %d out of range [0,100]", r.Confidence)
	}
	return nil
}
