// Package ranking orders the participants of one event by their mean judge
// total, breaking equal totals on the heaviest criterion.
package ranking

import (
	"math"
	"sort"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/types"
)

// keyScale is the fixed-point resolution used when comparing means.
const keyScale = 1e9

// Key maps a mean onto a fixed-point grid so averaging noise never creates
// or breaks a tie.
func Key(v float64) float64 {
	return math.Round(v*keyScale) / keyScale
}

// TieBreakCriterion returns the criterion with the largest weight. Among
// equal weights the first in stored order wins. Quiz events have none.
func TieBreakCriterion(e model.Event) (model.Criterion, bool) {
	criteria := e.Criteria()
	if len(criteria) == 0 {
		return model.Criterion{}, false
	}
	best := criteria[0]
	for _, c := range criteria[1:] {
		if c.Weight > best.Weight {
			best = c
		}
	}
	return best, true
}

// Aggregates returns the mean total per participant id over scores of the
// event, along with the number of scores seen.
func Aggregates(eventID string, scores []model.Score) (mean map[string]float64, count map[string]int) {
	sum := make(map[string]float64)
	count = make(map[string]int)
	for _, s := range scores {
		if s.EventID != eventID {
			continue
		}
		sum[s.ParticipantID] += s.Total
		count[s.ParticipantID]++
	}
	mean = make(map[string]float64, len(sum))
	for id, total := range sum {
		mean[id] = total / float64(count[id])
	}
	return mean, count
}

// RankEvent orders the participants of event by descending aggregate and
// descending tie-break value. Participants of other events are ignored.
// Equal aggregate and tie-break keep their input order.
func RankEvent(event model.Event, participants []model.Participant, scores []model.Score) []types.RankedParticipant {
	criterion, hasTieBreak := TieBreakCriterion(event)
	mean, count := Aggregates(event.ID, scores)

	tieSum := make(map[string]float64)
	if hasTieBreak {
		for _, s := range scores {
			if s.EventID == event.ID {
				tieSum[s.ParticipantID] += s.Entries[criterion.ID]
			}
		}
	}

	rows := make([]types.RankedParticipant, 0, len(participants))
	for _, p := range participants {
		if p.EventID != event.ID {
			continue
		}
		row := types.RankedParticipant{
			ParticipantID: p.ID,
			Name:          p.Name,
			District:      p.District,
			Aggregate:     mean[p.ID],
			ScoreCount:    count[p.ID],
		}
		if n := count[p.ID]; hasTieBreak && n > 0 {
			row.TieBreakValue = tieSum[p.ID] / float64(n)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ai, aj := Key(rows[i].Aggregate), Key(rows[j].Aggregate)
		if ai != aj {
			return ai > aj
		}
		return Key(rows[i].TieBreakValue) > Key(rows[j].TieBreakValue)
	})

	for i := range rows {
		rows[i].Position = i + 1
		if i == 0 {
			continue
		}
		prev := rows[i-1]
		if Key(rows[i].Aggregate) == Key(prev.Aggregate) && Key(rows[i].TieBreakValue) != Key(prev.TieBreakValue) {
			rows[i].TieBreakFlag = true
		}
	}
	return rows
}

// Ranking wraps RankEvent with the event metadata used by callers.
func Ranking(event model.Event, participants []model.Participant, scores []model.Score) types.EventRanking {
	out := types.EventRanking{
		EventID:   event.ID,
		EventName: event.Name,
		Kind:      string(event.Kind()),
		Rows:      RankEvent(event, participants, scores),
	}
	if c, ok := TieBreakCriterion(event); ok {
		out.Criterion = c.ID
	}
	return out
}
