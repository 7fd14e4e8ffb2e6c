package loadcheck

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/ranking"
	"github.com/okian/tally/internal/domain/scoring"
	"github.com/okian/tally/internal/domain/standings"
	"github.com/okian/tally/internal/domain/submission"
	"github.com/okian/tally/internal/domain/types"
)

type pairKey struct {
	judge       string
	participant string
}

// Ledger tracks the score the service should hold for every
// (judge, participant) pair.
type Ledger struct {
	mu     sync.Mutex
	events map[string]model.Event
	scores map[pairKey]model.Score
}

// NewLedger starts from the scores of the seed.
func NewLedger(seed repository.Seed) *Ledger {
	l := &Ledger{
		events: make(map[string]model.Event, len(seed.Events)),
		scores: make(map[pairKey]model.Score, len(seed.Scores)),
	}
	for _, e := range seed.Events {
		l.events[e.ID] = e
	}
	for _, s := range seed.Scores {
		l.scores[pairKey{s.JudgeID, s.ParticipantID}] = s
	}
	return l
}

// Record stores an accepted submission. The total is computed locally so
// a wrong total on the service shows up as a mismatch.
func (l *Ledger) Record(s Submission, res submission.Result) {
	fields := l.events[s.EventID].ActiveFields()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scores[pairKey{s.JudgeID, s.ParticipantID}] = model.Score{
		ID:            res.Score.ID,
		JudgeID:       s.JudgeID,
		ParticipantID: s.ParticipantID,
		EventID:       s.EventID,
		Entries:       scoring.Normalize(fields, s.Entries),
		Deduction:     s.Deduction,
		Total:         scoring.Total(fields, s.Entries, s.Deduction),
		Critique:      s.Critique,
	}
}

// Scores returns the expected scores ordered by id.
func (l *Ledger) Scores() []model.Score {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Score, 0, len(l.scores))
	for _, s := range l.scores {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var approx = cmp.Options{
	cmpopts.EquateApprox(0, aggregateTolerance),
	cmpopts.EquateEmpty(),
}

// VerifyRanking compares a published event ranking with the ranking of
// the expected scores. It returns one line per difference.
func VerifyRanking(seed repository.Seed, scores []model.Score, got types.EventRanking) []string {
	var event model.Event
	found := false
	for _, e := range seed.Events {
		if e.ID == got.EventID {
			event, found = e, true
			break
		}
	}
	if !found {
		return []string{fmt.Sprintf("event %q is not in the fixture", got.EventID)}
	}

	var parts []model.Participant
	for _, p := range seed.Participants {
		if p.EventID == event.ID {
			parts = append(parts, p)
		}
	}
	var own []model.Score
	for _, s := range scores {
		if s.EventID == event.ID {
			own = append(own, s)
		}
	}
	want := ranking.Ranking(event, parts, own)

	var diffs []string
	if d := cmp.Diff(want, got, approx); d != "" {
		diffs = append(diffs, fmt.Sprintf("ranking of %q (-want +got):\n%s", event.ID, d))
	}
	perPair := make(map[pairKey]int)
	for _, s := range own {
		perPair[pairKey{s.JudgeID, s.ParticipantID}]++
	}
	for k, n := range perPair {
		if n > 1 {
			diffs = append(diffs, fmt.Sprintf("judge %q holds %d scores for %q", k.judge, n, k.participant))
		}
	}
	return diffs
}

// VerifyStandings compares the published standings with the standings of
// the expected scores over districts.
func VerifyStandings(seed repository.Seed, scores []model.Score, districts []string, got types.Standings) []string {
	want := standings.Compute(seed.Events, seed.Participants, scores, districts)
	if d := cmp.Diff(want, got, approx); d != "" {
		return []string{fmt.Sprintf("standings (-want +got):\n%s", d)}
	}
	return nil
}
