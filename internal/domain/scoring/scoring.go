// Package scoring turns a judge's per-field entries into a bounded total.
package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/tally/internal/domain/model"
)

// Total computes max(0, sum of clamped entries over fields - deduction).
// Entries whose key is not an active field are ignored.
func Total(fields []model.ActiveField, entries map[string]float64, deduction float64) float64 {
	raw := 0.0
	for _, f := range fields {
		raw += contribution(f, entries[f.ID])
	}
	return math.Max(0, raw-finite(deduction))
}

// Checked is Total but fails with ErrOverflow when the weighted sum of the
// entries is not finite.
func Checked(fields []model.ActiveField, entries map[string]float64, deduction float64) (float64, error) {
	total := Total(fields, entries, deduction)
	if math.IsInf(total, 0) || math.IsNaN(total) {
		return 0, fmt.Errorf("%w: entries sum to %v", ErrOverflow, total)
	}
	return total, nil
}

// ForEvent computes the total of entries against the event's active fields.
func ForEvent(e model.Event, entries map[string]float64, deduction float64) float64 {
	return Total(e.ActiveFields(), entries, deduction)
}

// Normalize keeps only the active fields of entries, clamped to their bounds.
// Missing fields are recorded as 0.
func Normalize(fields []model.ActiveField, entries map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(fields))
	for _, f := range fields {
		out[f.ID] = Clamp(f, entries[f.ID])
	}
	return out
}

// Clamp bounds one entry to [0, f.Max].
func Clamp(f model.ActiveField, v float64) float64 {
	v = finite(v)
	if v < 0 {
		return 0
	}
	if v > f.Max {
		return f.Max
	}
	return v
}

func contribution(f model.ActiveField, v float64) float64 {
	return Clamp(f, v) * finite(f.Multiplier)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Display returns the total as shown to users: quiz totals are rounded to
// the nearest integer, judged totals are unchanged.
func Display(kind model.Kind, total float64) float64 {
	if kind == model.KindQuiz {
		return math.Round(total)
	}
	return total
}

// ParseEntries converts loosely typed entries into numbers. Values that are
// not numeric become 0.
func ParseEntries(raw map[string]any) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		out[k] = toFloat(v)
	}
	return out
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return finite(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return finite(f)
	default:
		return 0
	}
}
