package llm

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/sitevoice/fieldreport/internal/common"
	"github.com/sitevoice/fieldreport/internal/entity"
)

// CoerceFields walks a recovered JSON document and coerces it field-by-field
// into the typed extraction record. Missing arrays default to empty, missing
// scalars to null, wrong-typed scalars to a display string. Unknown keys are
// ignored. The only hard failure is a non-object top level.
func CoerceFields(raw []byte) (*entity.ExtractedData, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, common.Tag(common.ErrValidation, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, common.Tagf(common.ErrValidation, "top-level value is %T, want object", v)
	}

	out := entity.EmptyExtractedData()
	for _, item := range coerceObjectList(obj["workPerformed"]) {
		out.WorkPerformed = append(out.WorkPerformed, entity.WorkItem{
			Subcontractor: CoerceString(item["subcontractor"]),
			Task:          CoerceString(item["task"]),
			CrewSize:      CoerceCrewSize(item["crewSize"]),
		})
	}
	for _, item := range coerceObjectList(obj["deliveries"]) {
		out.Deliveries = append(out.Deliveries, entity.Delivery{
			Material: CoerceString(item["material"]),
			Status:   CoerceString(item["status"]),
		})
	}
	for _, item := range coerceObjectList(obj["delays"]) {
		out.Delays = append(out.Delays, entity.Delay{
			Reason:   CoerceString(item["reason"]),
			Duration: CoerceString(item["duration"]),
		})
	}
	out.SafetyNotes = CoerceString(obj["safetyNotes"])
	return out, nil
}

// coerceObjectList accepts whatever the model put where an array of objects
// belongs. Non-arrays and non-object elements are dropped rather than
// rejected.
func coerceObjectList(v any) []map[string]any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// CoerceString turns a scalar into a trimmed display string, or null for
// nil/empty/unrepresentable values.
func CoerceString(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = strings.TrimSpace(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		// arrays/objects where a scalar belongs: null, not an error
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

// CoerceCrewSize applies the numeric-or-null rule: JSON numbers and numeric
// strings round to the nearest integer; negatives and anything unparsable
// normalize to null, never to an error.
func CoerceCrewSize(v any) *int {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(math.Round(f))
	if n < 0 {
		return nil
	}
	return &n
}
