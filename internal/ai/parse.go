package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

var (
	ErrNoJSON       = errors.New("no JSON object in model output")
	ErrMissingGrade = errors.New("model output has no grade")
)

// StripCodeFences removes a surrounding markdown fence such as ```json ... ```.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string (json, JSON, etc.) on the opening line.
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if info := strings.TrimSpace(s[:nl]); !strings.ContainsAny(info, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the first balanced {...} span in s. Braces inside
// JSON strings are ignored.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(s); i++ {
			ch := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == '"':
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
		// Unbalanced from this brace; try the next one.
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

type rawResult struct {
	Grade      any             `json:"grade"`
	Confidence any             `json:"confidence"`
	Analysis   json.RawMessage `json:"analysis"`
}

// ParseResult turns untrusted model text into a Result. Source and Provider
// are left for the caller to set.
func ParseResult(text string) (Result, error) {
	text = StripCodeFences(text)

	var raw rawResult
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		obj, ok := ExtractJSONObject(text)
		if !ok {
			return Result{}, ErrNoJSON
		}
		raw = rawResult{}
		if err := json.Unmarshal([]byte(obj), &raw); err != nil {
			return Result{}, fmt.Errorf("decode model output: %w", err)
		}
	}

	grade := NormalizeGrade(scalarString(raw.Grade))
	if grade == "" {
		return Result{}, ErrMissingGrade
	}

	confidence, err := parseConfidence(raw.Confidence)
	if err != nil {
		return Result{}, err
	}

	var analysis contract.Analysis
	if len(raw.Analysis) > 0 {
		if err := json.Unmarshal(raw.Analysis, &analysis); err != nil {
			// An analysis of the wrong shape is kept as text rather than
			// discarding an otherwise usable grade.
			analysis = contract.Analysis{Summary: strings.TrimSpace(string(raw.Analysis))}
		}
	}
	if analysis.VisualDefects == nil {
		analysis.VisualDefects = []string{}
	}

	return Result{Grade: grade, Confidence: confidence, Analysis: analysis}, nil
}

// NormalizeGrade maps common spellings onto the grade vocabulary. Labels it
// does not recognise are returned trimmed but otherwise unchanged.
func NormalizeGrade(s string) string {
	s = strings.TrimSpace(s)
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	key = strings.TrimSuffix(key, ".")
	switch key {
	case "grade a", "a", "grade-a", "premium", "grade a (premium)":
		return contract.GradeA
	case "grade b", "b", "grade-b", "standard", "grade b (standard)":
		return contract.GradeB
	case "reject", "rejected", "poor", "reject (poor)":
		return contract.GradeReject
	}
	return s
}

// parseConfidence accepts 95, "95", "95%" and fractions such as 0.95. The
// result is clamped to [0, 100].
func parseConfidence(v any) (int, error) {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0, errors.New("model output has no confidence")
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("confidence %q is not a number", t)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("confidence has unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("confidence is not finite")
	}
	if f > 0 && f < 1 {
		f *= 100
	}
	return clamp(int(math.Round(f)), 0, 100), nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func clamp(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
