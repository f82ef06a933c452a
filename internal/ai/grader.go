// Package ai grades produce photos with an external vision model. Grading
// never fails from the caller's point of view: provider errors, timeouts and
// unusable output all degrade to a fixed fallback result.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

const DefaultTimeout = 30 * time.Second

// Provider is one external model. Generate returns the model's raw text.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, img Image) (string, error)
}

type Result struct {
	Grade      string
	Confidence int
	Analysis   contract.Analysis
	Source     string
	Provider   string
}

type Grader struct {
	providers []Provider
	timeout   time.Duration
}

// NewGrader tries providers in order until one yields a usable result. With
// no providers the grader runs in demo mode and never calls out.
func NewGrader(timeout time.Duration, providers ...Provider) *Grader {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Grader{providers: providers, timeout: timeout}
}

func (g *Grader) Demo() bool {
	return len(g.providers) == 0
}

// Mode reports demo or the configured provider chain, for health output.
func (g *Grader) Mode() string {
	if g.Demo() {
		return contract.SourceDemo
	}
	names := make([]string, 0, len(g.providers))
	for _, p := range g.providers {
		names = append(names, p.Name())
	}
	return strings.Join(names, ",")
}

// Grade always returns a well-formed result. The provider chain runs under
// its own deadline and is not cancelled when ctx is, so an accepted request
// always completes.
func (g *Grader) Grade(ctx context.Context, pt contract.ProduceType, img Image) Result {
	if g.Demo() {
		return DemoResult(pt)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
	defer cancel()

	prompt := BuildPrompt(pt)
	var errs []error
	for _, p := range g.providers {
		start := time.Now()
		res, outcome, err := g.try(ctx, p, prompt, img)
		metrics.AIDuration.WithLabelValues(p.Name(), outcome).Observe(time.Since(start).Seconds())
		if err == nil {
			return res
		}

		slog.Warn("AI provider failed",
			"provider", p.Name(),
			"produce_type", string(pt),
			"outcome", outcome,
			"error", err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}

	slog.Warn("AI grading degraded to fallback", "produce_type", string(pt), "error", errors.Join(errs...))
	return FallbackResult(pt)
}

func (g *Grader) try(ctx context.Context, p Provider, prompt string, img Image) (Result, string, error) {
	text, err := generate(ctx, p, prompt, img)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Result{}, "timeout", err
		}
		return Result{}, "error", err
	}
	res, err := ParseResult(text)
	if err != nil {
		return Result{}, "unparseable", err
	}
	res.Source = contract.SourceAI
	res.Provider = p.Name()
	return res, "ok", nil
}

// generate returns as soon as ctx expires even if the provider ignores it.
// A panicking provider is reported as an error.
func generate(ctx context.Context, p Provider, prompt string, img Image) (string, error) {
	type reply struct {
		text string
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		text, err := p.Generate(ctx, prompt, img)
		ch <- reply{text: text, err: err}
	}()

	select {
	case r := <-ch:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

const fallbackObservation = "AI grading unavailable: this is a placeholder result, not an assessment of the image. Re-grade when the AI service is reachable."

// FallbackResult is returned when no provider produced a usable result.
func FallbackResult(pt contract.ProduceType) Result {
	return Result{
		Grade:      contract.GradeB,
		Confidence: 50,
		Analysis: contract.Analysis{
			VisualDefects: []string{},
			Observations:  fallbackObservation,
		},
		Source: contract.SourceFallback,
	}
}

var demoColors = map[contract.ProduceType]string{
	contract.ProduceCoconut:  "Uniform brown husk",
	contract.ProduceTurmeric: "Deep orange-yellow",
}

// DemoResult is returned when no provider is configured.
func DemoResult(pt contract.ProduceType) Result {
	return Result{
		Grade:      contract.GradeA,
		Confidence: 85,
		Analysis: contract.Analysis{
			VisualDefects: []string{},
			Color:         demoColors[pt],
			SizeEstimate:  "Medium",
			Observations:  "Demo mode: no AI provider is configured, so this " + string(pt) + " was not analysed.",
		},
		Source: contract.SourceDemo,
	}
}
