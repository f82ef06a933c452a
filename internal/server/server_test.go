package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/ai"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/config"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/models"
	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/store"
	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

const (
	onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="
	testSecret  = "test-secret-key-for-testing-only"
)

type stubProvider struct {
	text  string
	err   error
	delay time.Duration
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) Generate(ctx context.Context, _ string, _ ai.Image) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.text, s.err
}

type testEnv struct {
	app   *fiber.App
	store *store.MemoryStore
}

func newTestEnv(t *testing.T, cfg *config.Config, providers ...ai.Provider) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{AuthMode: config.AuthNone, CORSOrigins: "*", BodyLimitMB: 15}
	}
	mem := store.NewMemoryStore()
	app := New(cfg, Dependencies{
		Store:  mem,
		Grader: ai.NewGrader(100*time.Millisecond, providers...),
	})
	return &testEnv{app: app, store: mem}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (int, []byte) {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

func (e *testEnv) count(t *testing.T) int {
	t.Helper()
	list, err := e.store.List(context.Background(), nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return len(list)
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func gradeBody(pt string) map[string]any {
	return map[string]any{"image": onePixelPNG, "produceType": pt}
}

func TestGradeScenario(t *testing.T) {
	env := newTestEnv(t, nil, stubProvider{text: `{"grade":"Grade A","confidence":95,"analysis":{"observations":"clean"}}`})

	status, body := env.do(t, "POST", "/api/grade", gradeBody("coconut"), "")
	if status != fiber.StatusCreated {
		t.Fatalf("status: got %d, want 201 (body %s)", status, body)
	}
	created := decode[contract.Report](t, body)
	if created.Grade != contract.GradeA || created.Confidence != 95 {
		t.Errorf("got %s/%d, want Grade A/95", created.Grade, created.Confidence)
	}
	if created.ProduceType != contract.ProduceCoconut {
		t.Errorf("produceType: got %q", created.ProduceType)
	}
	if created.Analysis.Observations != "clean" {
		t.Errorf("observations: got %q", created.Analysis.Observations)
	}
	if created.Source != contract.SourceAI {
		t.Errorf("source: got %q", created.Source)
	}
	if err := contract.ValidateReport(created); err != nil {
		t.Errorf("created report fails contract validation: %v", err)
	}

	status, body = env.do(t, "GET", contract.BuildURL(contract.Routes.Get.Path, map[string]any{"id": created.ID}), nil, "")
	if status != fiber.StatusOK {
		t.Fatalf("get status: got %d", status)
	}
	fetched := decode[contract.Report](t, body)
	if !reflect.DeepEqual(fetched, created) {
		t.Errorf("fetched report differs from creation response:\n got %+v\nwant %+v", fetched, created)
	}
}

func TestGradeDegradesToFallback(t *testing.T) {
	tests := []struct {
		name     string
		provider ai.Provider
	}{
		{name: "provider throws", provider: stubProvider{err: errors.New("insufficient_quota")}},
		{name: "non json text", provider: stubProvider{text: "Sorry, I cannot process this."}},
		{name: "timeout", provider: stubProvider{delay: time.Second, text: `{"grade":"Grade A","confidence":90}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, tt.provider)

			status, body := env.do(t, "POST", "/api/grade", gradeBody("turmeric"), "")
			if status != fiber.StatusCreated {
				t.Fatalf("status: got %d, want 201 (body %s)", status, body)
			}
			report := decode[contract.Report](t, body)
			if report.Source != contract.SourceFallback {
				t.Errorf("source: got %q, want fallback", report.Source)
			}
			if report.ProduceType != contract.ProduceTurmeric {
				t.Errorf("produceType: got %q", report.ProduceType)
			}
			if report.Confidence < 0 || report.Confidence > 100 {
				t.Errorf("confidence out of range: %d", report.Confidence)
			}
			if env.count(t) != 1 {
				t.Errorf("expected exactly one report, got %d", env.count(t))
			}
		})
	}
}

func TestGradeDemoMode(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, "POST", "/api/grade", gradeBody("coconut"), "")
	if status != fiber.StatusCreated {
		t.Fatalf("status: got %d (body %s)", status, body)
	}
	report := decode[contract.Report](t, body)
	if report.Source != contract.SourceDemo || report.Grade != contract.GradeA {
		t.Errorf("got %s from %q, want demo Grade A", report.Grade, report.Source)
	}
}

func TestGradeValidation(t *testing.T) {
	env := newTestEnv(t, nil, stubProvider{text: `{"grade":"Grade A","confidence":95}`})

	tests := []struct {
		name      string
		body      any
		wantField string
	}{
		{name: "produce type outside enum", body: gradeBody("mango"), wantField: "produceType"},
		{name: "missing produce type", body: map[string]any{"image": onePixelPNG}, wantField: "produceType"},
		{name: "produce type wrong type", body: map[string]any{"image": onePixelPNG, "produceType": 3}, wantField: "produceType"},
		{name: "missing image", body: map[string]any{"produceType": "coconut"}, wantField: "image"},
		{name: "image not base64", body: map[string]any{"image": "not an image!", "produceType": "coconut"}, wantField: "image"},
		{name: "malformed json", body: `{"image":`, wantField: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := env.do(t, "POST", "/api/grade", tt.body, "")
			if status != fiber.StatusBadRequest {
				t.Fatalf("status: got %d, want 400 (body %s)", status, body)
			}
			verr := decode[contract.ValidationError](t, body)
			if verr.Field != tt.wantField {
				t.Errorf("field: got %q, want %q", verr.Field, tt.wantField)
			}
			if verr.Message == "" {
				t.Error("expected a message")
			}
		})
	}

	if n := env.count(t); n != 0 {
		t.Errorf("validation failures must not write reports, found %d", n)
	}
}

func TestGradeIsNotIdempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	ids := map[uint]bool{}
	for i := 0; i < 2; i++ {
		status, body := env.do(t, "POST", "/api/grade", gradeBody("coconut"), "")
		if status != fiber.StatusCreated {
			t.Fatalf("status: got %d", status)
		}
		ids[decode[contract.Report](t, body).ID] = true
	}
	if len(ids) != 2 {
		t.Errorf("resubmitting should create a new report, got ids %v", ids)
	}
}

func TestListNewestFirst(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, "GET", "/api/reports", nil, "")
	if status != fiber.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("empty list: got %d %s, want 200 []", status, body)
	}

	const n = 4
	for i := 0; i < n; i++ {
		pt := "coconut"
		if i%2 == 1 {
			pt = "turmeric"
		}
		if status, _ := env.do(t, "POST", "/api/grade", gradeBody(pt), ""); status != fiber.StatusCreated {
			t.Fatalf("create %d: status %d", i, status)
		}
	}

	status, body = env.do(t, "GET", "/api/reports", nil, "")
	if status != fiber.StatusOK {
		t.Fatalf("status: got %d", status)
	}
	reports := decode[[]contract.Report](t, body)
	if len(reports) != n {
		t.Fatalf("got %d reports, want %d", len(reports), n)
	}
	for i := 1; i < len(reports); i++ {
		if reports[i].CreatedAt.After(reports[i-1].CreatedAt) {
			t.Errorf("not newest first at %d", i)
		}
		if reports[i].ID > reports[i-1].ID {
			t.Errorf("ids not descending at %d", i)
		}
	}
}

func TestGetNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, "POST", "/api/grade", gradeBody("coconut"), "")

	for _, path := range []string{"/api/reports/99999", "/api/reports/abc", "/api/reports/0", "/api/reports/-1"} {
		status, body := env.do(t, "GET", path, nil, "")
		if status != fiber.StatusNotFound {
			t.Errorf("%s: status got %d, want 404", path, status)
			continue
		}
		if msg := decode[contract.ErrorResponse](t, body).Message; msg != "Report not found" {
			t.Errorf("%s: message got %q", path, msg)
		}
	}
}

type brokenStore struct{ store.ReportStore }

func (brokenStore) Create(context.Context, *models.GradingReport) error {
	return errors.New("disk full")
}

func (brokenStore) List(context.Context, *string) ([]models.GradingReport, error) {
	return nil, errors.New("disk full")
}

func TestPersistenceErrors(t *testing.T) {
	app := New(&config.Config{AuthMode: config.AuthNone, CORSOrigins: "*"}, Dependencies{
		Store:  brokenStore{},
		Grader: ai.NewGrader(time.Second),
	})
	env := &testEnv{app: app}

	status, body := env.do(t, "POST", "/api/grade", gradeBody("coconut"), "")
	if status != fiber.StatusInternalServerError {
		t.Fatalf("grade status: got %d, want 500", status)
	}
	if resp := decode[contract.ErrorResponse](t, body); resp.Message == "" || strings.Contains(resp.Message, "disk full") {
		t.Errorf("500 should carry a generic message, got %q", resp.Message)
	}

	if status, _ := env.do(t, "GET", "/api/reports", nil, ""); status != fiber.StatusInternalServerError {
		t.Errorf("list status: got %d, want 500", status)
	}
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestOwnerScopingWithJWT(t *testing.T) {
	cfg := &config.Config{AuthMode: config.AuthJWT, JWTSecret: testSecret, CORSOrigins: "*"}
	env := newTestEnv(t, cfg)
	alice, bob := signToken(t, "alice"), signToken(t, "bob")

	if status, _ := env.do(t, "POST", "/api/grade", gradeBody("coconut"), ""); status != fiber.StatusUnauthorized {
		t.Errorf("missing token: got %d, want 401", status)
	}
	if status, _ := env.do(t, "GET", "/api/reports", nil, "garbage"); status != fiber.StatusUnauthorized {
		t.Errorf("invalid token: got %d, want 401", status)
	}

	status, body := env.do(t, "POST", "/api/grade", gradeBody("coconut"), alice)
	if status != fiber.StatusCreated {
		t.Fatalf("alice grade: got %d (body %s)", status, body)
	}
	report := decode[contract.Report](t, body)
	if report.UserID == nil || *report.UserID != "alice" {
		t.Errorf("userId: got %v, want alice", report.UserID)
	}
	path := "/api/reports/" + strconv.FormatUint(uint64(report.ID), 10)

	if status, _ := env.do(t, "GET", path, nil, alice); status != fiber.StatusOK {
		t.Errorf("owner get: got %d, want 200", status)
	}
	if status, _ := env.do(t, "GET", path, nil, bob); status != fiber.StatusNotFound {
		t.Errorf("foreign get: got %d, want 404", status)
	}

	_, body = env.do(t, "GET", "/api/reports", nil, bob)
	if got := decode[[]contract.Report](t, body); len(got) != 0 {
		t.Errorf("bob should see no reports, got %d", len(got))
	}
	_, body = env.do(t, "GET", "/api/reports", nil, alice)
	if got := decode[[]contract.Report](t, body); len(got) != 1 {
		t.Errorf("alice should see her report, got %d", len(got))
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.do(t, "GET", "/api/health", nil, "")
	if status != fiber.StatusOK {
		t.Fatalf("health status: got %d", status)
	}
	health := decode[contract.HealthResponse](t, body)
	if health.Status != "ok" || health.DB != "ok" || health.AI != contract.SourceDemo {
		t.Errorf("health: got %+v", health)
	}

	env.do(t, "POST", "/api/grade", gradeBody("coconut"), "")
	status, body = env.do(t, "GET", "/metrics", nil, "")
	if status != fiber.StatusOK {
		t.Fatalf("metrics status: got %d", status)
	}
	if !strings.Contains(string(body), `grading_results_total{source="demo"}`) {
		t.Error("expected grading_results_total in metrics output")
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := env.app.Test(httptest.NewRequest("GET", "/api/health", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options: got %q", got)
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Error("expected a request id header")
	}
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	env := newTestEnv(t, nil)
	status, body := env.do(t, "GET", "/api/nope", nil, "")
	if status != http.StatusNotFound {
		t.Fatalf("status: got %d", status)
	}
	if resp := decode[contract.ErrorResponse](t, body); !resp.Error || resp.Message == "" {
		t.Errorf("got %+v", resp)
	}
}
