package loadcheck

import (
	"fmt"
	"math"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/identity"
	"github.com/okian/tally/internal/domain/model"
)

// Submission is one planned judge submission.
type Submission struct {
	JudgeID       string
	Token         string
	EventID       string
	ParticipantID string
	Entries       map[string]float64
	Deduction     float64
	Critique      string
}

// Plan is the set of submissions derived from a fixture.
type Plan struct {
	Seed        repository.Seed
	Submissions []Submission

	faker *gofakeit.Faker
}

// NewPlan plans one submission per (judge, participant) pair of every
// unlocked event, for the fixture judges assigned to the event.
func NewPlan(seed repository.Seed, secret string, randSeed uint64) (*Plan, error) {
	p := &Plan{Seed: seed, faker: gofakeit.New(randSeed)}
	issuer := identity.NewIssuer(secret)

	byEvent := make(map[string][]model.Participant)
	for _, part := range seed.Participants {
		byEvent[part.EventID] = append(byEvent[part.EventID], part)
	}

	for _, e := range seed.Events {
		if e.Locked || len(byEvent[e.ID]) == 0 {
			continue
		}
		var roster []model.User
		for _, u := range seed.Profiles {
			if u.Role == model.RoleJudge && u.AssignedEventID == e.ID {
				roster = append(roster, u)
			}
		}
		for _, judge := range roster {
			token, err := issuer.Issue(judge, tokenTTL)
			if err != nil {
				return nil, fmt.Errorf("loadcheck: issue token for %s: %w", judge.ID, err)
			}
			for _, part := range byEvent[e.ID] {
				p.Submissions = append(p.Submissions, p.submission(e, judge.ID, token, part.ID))
			}
		}
	}
	if len(p.Submissions) == 0 {
		return nil, ErrNoWork
	}
	return p, nil
}

// Resubmissions returns a share of the planned submissions with fresh
// entries. Each pair appears at most once.
func (p *Plan) Resubmissions(share float64) []Submission {
	n := int(math.Round(share * float64(len(p.Submissions))))
	if n == 0 {
		return nil
	}
	picked := make([]Submission, len(p.Submissions))
	copy(picked, p.Submissions)
	p.faker.ShuffleAnySlice(picked)

	events := make(map[string]model.Event, len(p.Seed.Events))
	for _, e := range p.Seed.Events {
		events[e.ID] = e
	}
	out := make([]Submission, 0, n)
	for _, s := range picked[:n] {
		out = append(out, p.submission(events[s.EventID], s.JudgeID, s.Token, s.ParticipantID))
	}
	return out
}

func (p *Plan) submission(e model.Event, judgeID, token, participantID string) Submission {
	entries := make(map[string]float64)
	for _, f := range e.ActiveFields() {
		if math.IsInf(f.Max, 1) {
			entries[f.ID] = float64(p.faker.Number(0, maxQuizItems))
			continue
		}
		// Half-point steps keep totals exact in JSON.
		entries[f.ID] = math.Round(p.faker.Float64Range(0, f.Max)*2) / 2
	}
	var deduction float64
	if p.faker.Number(0, 3) == 0 {
		deduction = float64(p.faker.Number(1, maxDeduction))
	}
	return Submission{
		JudgeID:       judgeID,
		Token:         token,
		EventID:       e.ID,
		ParticipantID: participantID,
		Entries:       entries,
		Deduction:     deduction,
		Critique:      p.faker.Sentence(p.faker.Number(3, 8)),
	}
}
