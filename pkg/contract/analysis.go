package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Analysis is the semi-structured part of a report. Known fields are typed;
// anything else the model returns is kept in Extra and written back out
// unchanged.
type Analysis struct {
	VisualDefects []string
	Color         string
	SizeEstimate  string
	Observations  string
	Factors       []string
	Summary       string
	Extra         map[string]any
}

var analysisAliases = map[string]string{
	"visual_defects": "visual_defects",
	"visualDefects":  "visual_defects",
	"defects":        "visual_defects",
	"color":          "color",
	"colour":         "color",
	"size_estimate":  "size_estimate",
	"sizeEstimate":   "size_estimate",
	"size":           "size_estimate",
	"observations":   "observations",
	"observation":    "observations",
	"factors":        "factors",
	"summary":        "summary",
}

func (a Analysis) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Extra)+6)
	for k, v := range a.Extra {
		out[k] = v
	}
	// visual_defects is always present so clients can range over it.
	if a.VisualDefects != nil {
		out["visual_defects"] = a.VisualDefects
	} else {
		out["visual_defects"] = []string{}
	}
	if a.Color != "" {
		out["color"] = a.Color
	}
	if a.SizeEstimate != "" {
		out["size_estimate"] = a.SizeEstimate
	}
	if a.Observations != "" {
		out["observations"] = a.Observations
	}
	if len(a.Factors) > 0 {
		out["factors"] = a.Factors
	}
	if a.Summary != "" {
		out["summary"] = a.Summary
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts an object, a bare string (taken as the summary) or a
// bare list (taken as factors). Field values of the wrong type are coerced
// rather than rejected.
func (a *Analysis) UnmarshalJSON(data []byte) error {
	*a = Analysis{}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		a.Summary = strings.TrimSpace(v)
		return nil
	case []any:
		a.Factors = stringList(v)
		return nil
	case map[string]any:
		for k, val := range v {
			a.set(k, val)
		}
		return nil
	default:
		return fmt.Errorf("analysis: unsupported JSON value %s", string(data))
	}
}

func (a *Analysis) set(key string, val any) {
	if val == nil {
		return
	}
	switch analysisAliases[key] {
	case "visual_defects":
		a.VisualDefects = stringList(val)
	case "color":
		a.Color = stringValue(val)
	case "size_estimate":
		a.SizeEstimate = stringValue(val)
	case "observations":
		a.Observations = stringValue(val)
	case "factors":
		a.Factors = stringList(val)
	case "summary":
		a.Summary = stringValue(val)
	default:
		if a.Extra == nil {
			a.Extra = make(map[string]any)
		}
		a.Extra[key] = val
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		return strings.Join(stringList(t), "; ")
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "none") {
			return []string{}
		}
		return []string{s}
	default:
		return []string{stringValue(t)}
	}
}
