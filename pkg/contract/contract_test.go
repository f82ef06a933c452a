package contract

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		params map[string]any
		want   string
	}{
		{name: "numeric id", path: Routes.Get.Path, params: map[string]any{"id": 42}, want: "/api/reports/42"},
		{name: "no params", path: Routes.Get.Path, params: nil, want: "/api/reports/:id"},
		{name: "unknown param ignored", path: Routes.List.Path, params: map[string]any{"id": 1}, want: "/api/reports"},
		{name: "prefix names", path: "/a/:id/:idx", params: map[string]any{"id": 1, "idx": 2}, want: "/a/1/2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildURL(tt.path, tt.params); got != tt.want {
				t.Errorf("BuildURL: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGradeRequestValidate(t *testing.T) {
	tests := []struct {
		name      string
		req       GradeRequest
		wantField string
	}{
		{name: "valid bare base64", req: GradeRequest{Image: onePixelPNG, ProduceType: ProduceCoconut}},
		{name: "valid data uri", req: GradeRequest{Image: "data:image/png;base64," + onePixelPNG, ProduceType: ProduceTurmeric}},
		{name: "missing produce type", req: GradeRequest{Image: onePixelPNG}, wantField: "produceType"},
		{name: "produce type outside enum", req: GradeRequest{Image: onePixelPNG, ProduceType: "mango"}, wantField: "produceType"},
		{name: "missing image", req: GradeRequest{ProduceType: ProduceCoconut}, wantField: "image"},
		{name: "image not base64", req: GradeRequest{Image: "not base64!!", ProduceType: ProduceCoconut}, wantField: "image"},
		{name: "data uri without base64 marker", req: GradeRequest{Image: "data:image/png," + onePixelPNG, ProduceType: ProduceCoconut}, wantField: "image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := tt.req.Validate()
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("expected valid request, got %+v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("expected validation error on %s, got nil", tt.wantField)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field: got %q, want %q", verr.Field, tt.wantField)
			}
			if verr.Message == "" {
				t.Error("expected a message")
			}
		})
	}
}

func TestSplitDataURI(t *testing.T) {
	mime, payload, err := SplitDataURI("data:image/jpeg;base64,AAAA")
	if err != nil {
		t.Fatalf("SplitDataURI error: %v", err)
	}
	if mime != "image/jpeg" || payload != "AAAA" {
		t.Errorf("got (%q, %q), want (image/jpeg, AAAA)", mime, payload)
	}

	mime, payload, err = SplitDataURI("AAAA")
	if err != nil || mime != "" || payload != "AAAA" {
		t.Errorf("bare payload: got (%q, %q, %v)", mime, payload, err)
	}

	if _, _, err := SplitDataURI("data:image/png;base64"); err == nil {
		t.Error("expected error for data URI without payload")
	}
}

func TestAnalysisUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Analysis
	}{
		{
			name: "full object",
			in:   `{"visual_defects":["crack"],"color":"brown","size_estimate":"large","observations":"ok"}`,
			want: Analysis{VisualDefects: []string{"crack"}, Color: "brown", SizeEstimate: "large", Observations: "ok"},
		},
		{
			name: "string where list expected",
			in:   `{"visual_defects":"mould near the eyes"}`,
			want: Analysis{VisualDefects: []string{"mould near the eyes"}},
		},
		{
			name: "camel case aliases and extras",
			in:   `{"visualDefects":[],"sizeEstimate":12,"moisture":"high"}`,
			want: Analysis{VisualDefects: []string{}, SizeEstimate: "12", Extra: map[string]any{"moisture": "high"}},
		},
		{
			name: "bare string is a summary",
			in:   `"looks fine"`,
			want: Analysis{Summary: "looks fine"},
		},
		{
			name: "bare list is factors",
			in:   `["uniform colour", 3]`,
			want: Analysis{Factors: []string{"uniform colour", "3"}},
		},
		{
			name: "null fields dropped",
			in:   `{"color":null,"observations":"clean"}`,
			want: Analysis{Observations: "clean"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Analysis
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	var a Analysis
	if err := json.Unmarshal([]byte(`42`), &a); err == nil {
		t.Error("expected error for numeric analysis")
	}
}

func TestAnalysisMarshalKeepsExtras(t *testing.T) {
	a := Analysis{Color: "yellow", Extra: map[string]any{"moisture": "low"}}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(b, &parsed); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if parsed["moisture"] != "low" {
		t.Errorf("moisture: got %v", parsed["moisture"])
	}
	if parsed["color"] != "yellow" {
		t.Errorf("color: got %v", parsed["color"])
	}
	if defects, ok := parsed["visual_defects"].([]any); !ok || len(defects) != 0 {
		t.Errorf("visual_defects: got %v, want empty list", parsed["visual_defects"])
	}
}

func TestValidateReport(t *testing.T) {
	valid := Report{ID: 1, ProduceType: ProduceCoconut, Grade: GradeA, Confidence: 95, CreatedAt: time.Now()}
	if err := ValidateReport(valid); err != nil {
		t.Fatalf("expected valid report, got %v", err)
	}

	bad := valid
	bad.Confidence = 101
	if err := ValidateReport(bad); err == nil {
		t.Error("expected error for confidence 101")
	}

	bad = valid
	bad.ProduceType = "mango"
	if err := ValidateReport(bad); err == nil {
		t.Error("expected error for unknown produce type")
	}
}
