package dataset

import "github.com/okian/tally/internal/domain/model"

// MergeScore returns a new score set in which incoming replaces any score
// with the same id. current is not modified.
func MergeScore(current []model.Score, incoming model.Score) []model.Score {
	out := make([]model.Score, 0, len(current)+1)
	for _, s := range current {
		if s.ID != incoming.ID {
			out = append(out, s)
		}
	}
	return append(out, incoming)
}
