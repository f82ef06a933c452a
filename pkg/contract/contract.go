// Package contract holds the request, response and error shapes of the
// grading API. The server and pkg/client both validate against these types.
package contract

import (
	"fmt"
	"sort"
	"strings"
)

type ProduceType string

const (
	ProduceCoconut  ProduceType = "coconut"
	ProduceTurmeric ProduceType = "turmeric"
)

// ProduceTypes returns the closed set of gradeable produce types.
func ProduceTypes() []ProduceType {
	return []ProduceType{ProduceCoconut, ProduceTurmeric}
}

func (p ProduceType) Valid() bool {
	for _, t := range ProduceTypes() {
		if p == t {
			return true
		}
	}
	return false
}

// Grade labels the model is asked to choose from. Storage does not enforce them.
const (
	GradeA      = "Grade A"
	GradeB      = "Grade B"
	GradeReject = "Reject"
)

func Grades() []string {
	return []string{GradeA, GradeB, GradeReject}
}

type Route struct {
	Method string
	Path   string
}

var Routes = struct {
	Grade  Route
	List   Route
	Get    Route
	Health Route
}{
	Grade:  Route{Method: "POST", Path: "/api/grade"},
	List:   Route{Method: "GET", Path: "/api/reports"},
	Get:    Route{Method: "GET", Path: "/api/reports/:id"},
	Health: Route{Method: "GET", Path: "/api/health"},
}

// BuildURL substitutes ":name" path parameters. Parameters that do not
// appear in the path are ignored. Longer names are replaced first so ":id"
// never clobbers ":idx".
func BuildURL(path string, params map[string]any) string {
	if len(params) == 0 {
		return path
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	url := path
	for _, k := range keys {
		placeholder := ":" + k
		if strings.Contains(url, placeholder) {
			url = strings.Replace(url, placeholder, fmt.Sprint(params[k]), 1)
		}
	}
	return url
}
