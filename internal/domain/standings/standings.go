// Package standings converts per-event district results into the regional
// mean-rank ordering.
package standings

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/ranking"
	"github.com/okian/tally/internal/domain/types"
)

// Normalize folds a district label for comparison. A Caser holds state, so
// one is created per call.
func Normalize(label string) string {
	return cases.Fold().String(strings.TrimSpace(label))
}

type roster struct {
	names []string
	index map[string]int
}

func newRoster(districts []string) roster {
	r := roster{index: make(map[string]int, len(districts))}
	for _, d := range districts {
		key := Normalize(d)
		if _, dup := r.index[key]; dup {
			continue
		}
		r.index[key] = len(r.names)
		r.names = append(r.names, d)
	}
	return r
}

// EventRanks ranks the roster districts for one event. Districts with at
// least one participant get ranks 1..k by descending mean of their
// participants' aggregates, ties in roster order. Every other district gets
// the sentinel rank len(districts). Participants whose district is not on the
// roster are ignored.
func EventRanks(event model.Event, participants []model.Participant, scores []model.Score, districts []string) map[string]int {
	return eventRanks(event, participants, scores, newRoster(districts))
}

func eventRanks(event model.Event, participants []model.Participant, scores []model.Score, r roster) map[string]int {
	mean, _ := ranking.Aggregates(event.ID, scores)

	sum := make([]float64, len(r.names))
	n := make([]int, len(r.names))
	for _, p := range participants {
		if p.EventID != event.ID {
			continue
		}
		i, ok := r.index[Normalize(p.District)]
		if !ok {
			continue
		}
		sum[i] += mean[p.ID]
		n[i]++
	}

	competing := make([]int, 0, len(r.names))
	for i := range r.names {
		if n[i] > 0 {
			competing = append(competing, i)
		}
	}
	sort.SliceStable(competing, func(a, b int) bool {
		return ranking.Key(sum[competing[a]]/float64(n[competing[a]])) >
			ranking.Key(sum[competing[b]]/float64(n[competing[b]]))
	})

	sentinel := len(r.names)
	ranks := make(map[string]int, len(r.names))
	for _, d := range r.names {
		ranks[d] = sentinel
	}
	for pos, i := range competing {
		ranks[r.names[i]] = pos + 1
	}
	return ranks
}

// Compute returns every roster district ordered by ascending mean rank
// across all events. Equal mean ranks keep roster order. With no events
// every mean rank is 0.
func Compute(events []model.Event, participants []model.Participant, scores []model.Score, districts []string) types.Standings {
	r := newRoster(districts)

	rows := make([]types.DistrictStanding, len(r.names))
	for i, d := range r.names {
		rows[i] = types.DistrictStanding{District: d, EventRanks: make(map[string]int, len(events))}
	}

	refs := make([]types.EventRef, 0, len(events))
	for _, e := range events {
		refs = append(refs, types.EventRef{ID: e.ID, Name: e.Name})
		ranks := eventRanks(e, participants, scores, r)
		for i := range rows {
			rows[i].EventRanks[e.ID] = ranks[rows[i].District]
		}
	}

	if len(events) > 0 {
		for i := range rows {
			total := 0
			for _, rank := range rows[i].EventRanks {
				total += rank
			}
			rows[i].MeanRank = float64(total) / float64(len(events))
		}
	}

	sort.SliceStable(rows, func(a, b int) bool {
		return ranking.Key(rows[a].MeanRank) < ranking.Key(rows[b].MeanRank)
	})
	for i := range rows {
		rows[i].Position = i + 1
	}
	return types.Standings{Events: refs, Rows: rows}
}
