package ai

import (
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

var produceCriteria = map[contract.ProduceType][]string{
	contract.ProduceCoconut: {
		"Husk and shell: cracks, splits, holes or punctures",
		"Mould, dark wet patches or signs of leakage around the eyes",
		"Husk colour uniformity (fresh brown versus grey or blackened)",
		"Apparent size and weight impression for its type",
	},
	contract.ProduceTurmeric: {
		"Rhizome colour: deep orange-yellow flesh and even skin tone",
		"Fingers versus bulbs, and how uniform the pieces are",
		"Surface dirt, soil clumps or residual roots",
		"Rot, soft spots, shrivelling or insect damage",
	},
}

const promptTemplate = `You are an agricultural quality inspector grading %s.
Analyze the attached photo and produce a grading report.

Assess colour, size, shape and visible defects (cracks, rot, spots). For %s check in particular:
%s
Choose exactly one grade: "Grade A" (premium), "Grade B" (standard) or "Reject" (poor).
Give a confidence score from 0 to 100 for that grade.
List every visible defect and summarise what you observed.

Return ONLY a JSON object with this structure and no other text:
{
  "grade": "Grade A" | "Grade B" | "Reject",
  "confidence": number,
  "analysis": {
    "visual_defects": string[],
    "color": string,
    "size_estimate": string,
    "observations": string
  }
}`

// BuildPrompt returns the grading instructions for one produce type.
func BuildPrompt(pt contract.ProduceType) string {
	var b strings.Builder
	for _, c := range produceCriteria[pt] {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteByte('\n')
	}
	return fmt.Sprintf(promptTemplate, pt, pt, b.String())
}
