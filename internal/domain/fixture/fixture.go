// Package fixture reads YAML seed files describing a region's events,
// participants, profiles and district roster.
package fixture

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/scoring"
	"github.com/okian/tally/internal/domain/standings"
)

// Fixture is the YAML document.
type Fixture struct {
	Districts    []string          `yaml:"districts"`
	Events       []Event           `yaml:"events"`
	Participants []Participant     `yaml:"participants"`
	Profiles     []Profile         `yaml:"profiles"`
	Settings     map[string]string `yaml:"settings,omitempty"`
	Scores       []Score           `yaml:"scores,omitempty"`
}

// Event is an event with either criteria (JUDGED) or rounds (QUIZ).
type Event struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name"`
	Type     model.Kind  `yaml:"type"`
	Locked   bool        `yaml:"locked,omitempty"`
	AdminID  string      `yaml:"admin,omitempty"`
	Criteria []Criterion `yaml:"criteria,omitempty"`
	Rounds   []Round     `yaml:"rounds,omitempty"`
}

// Criterion of a judged event.
type Criterion struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Weight      float64 `yaml:"weight"`
	Description string  `yaml:"description,omitempty"`
}

// Round of a quiz event.
type Round struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Points     float64 `yaml:"points"`
	TieBreaker bool    `yaml:"tiebreaker,omitempty"`
}

// Participant of one event.
type Participant struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	District string `yaml:"district"`
	Event    string `yaml:"event"`
}

// Profile of a judge or an admin.
type Profile struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Role  model.Role `yaml:"role"`
	Event string     `yaml:"event,omitempty"`
}

// Score is a pre-recorded judge score. Its total is computed on load.
type Score struct {
	ID          string             `yaml:"id"`
	Judge       string             `yaml:"judge"`
	Participant string             `yaml:"participant"`
	Entries     map[string]float64 `yaml:"entries"`
	Deduction   float64            `yaml:"deduction,omitempty"`
	Critique    string             `yaml:"critique,omitempty"`
}

// Load reads and parses the fixture at path.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture.Load: %w", err)
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("fixture.Load %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a fixture, rejecting unknown fields.
func Parse(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	seen := make(map[string]struct{}, len(f.Districts))
	for _, d := range f.Districts {
		key := standings.Normalize(d)
		if _, dup := seen[key]; dup || key == "" {
			return nil, fmt.Errorf("%w: duplicate or blank district %q", ErrInvalidFixture, d)
		}
		seen[key] = struct{}{}
	}
	return &f, nil
}

// Seed converts the fixture into store records. Score totals are computed
// against the event's active fields.
func (f *Fixture) Seed() (repository.Seed, error) {
	var seed repository.Seed
	events := make(map[string]model.Event, len(f.Events))
	for _, e := range f.Events {
		ev, err := e.model()
		if err != nil {
			return repository.Seed{}, err
		}
		events[ev.ID] = ev
		seed.Events = append(seed.Events, ev)
	}
	participants := make(map[string]model.Participant, len(f.Participants))
	for _, p := range f.Participants {
		mp := model.Participant{ID: p.ID, Name: p.Name, District: p.District, EventID: p.Event}
		participants[p.ID] = mp
		seed.Participants = append(seed.Participants, mp)
	}
	for _, p := range f.Profiles {
		seed.Profiles = append(seed.Profiles, model.User{ID: p.ID, Name: p.Name, Role: p.Role, AssignedEventID: p.Event})
	}

	keys := make([]string, 0, len(f.Settings))
	for k := range f.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		seed.Settings = append(seed.Settings, model.Setting{Key: k, Value: f.Settings[k]})
	}

	for _, s := range f.Scores {
		p, ok := participants[s.Participant]
		if !ok {
			return repository.Seed{}, fmt.Errorf("%w: score %q references unknown participant %q", ErrInvalidFixture, s.ID, s.Participant)
		}
		ev, ok := events[p.EventID]
		if !ok {
			return repository.Seed{}, fmt.Errorf("%w: participant %q references unknown event %q", ErrInvalidFixture, p.ID, p.EventID)
		}
		fields := ev.ActiveFields()
		seed.Scores = append(seed.Scores, model.Score{
			ID:            s.ID,
			JudgeID:       s.Judge,
			ParticipantID: p.ID,
			EventID:       ev.ID,
			Entries:       scoring.Normalize(fields, s.Entries),
			Deduction:     s.Deduction,
			Total:         scoring.Total(fields, s.Entries, s.Deduction),
			Critique:      s.Critique,
		})
	}

	if err := repository.ValidateSeed(seed); err != nil {
		return repository.Seed{}, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	return seed, nil
}

func (e Event) model() (model.Event, error) {
	var ev model.Event
	switch e.Type {
	case model.KindJudged:
		if len(e.Rounds) > 0 {
			return model.Event{}, fmt.Errorf("%w: judged event %q has rounds", ErrInvalidFixture, e.ID)
		}
		criteria := make([]model.Criterion, 0, len(e.Criteria))
		for _, c := range e.Criteria {
			criteria = append(criteria, model.Criterion{ID: c.ID, Name: c.Name, Weight: c.Weight, Description: c.Description})
		}
		ev = model.NewJudgedEvent(e.ID, e.Name, criteria...)
	case model.KindQuiz:
		if len(e.Criteria) > 0 {
			return model.Event{}, fmt.Errorf("%w: quiz event %q has criteria", ErrInvalidFixture, e.ID)
		}
		rounds := make([]model.Round, 0, len(e.Rounds))
		for _, r := range e.Rounds {
			rounds = append(rounds, model.Round{ID: r.ID, Name: r.Name, Points: r.Points, IsTieBreaker: r.TieBreaker})
		}
		ev = model.NewQuizEvent(e.ID, e.Name, rounds...)
	default:
		return model.Event{}, fmt.Errorf("%w: event %q has unknown type %q", ErrInvalidFixture, e.ID, e.Type)
	}
	ev.Locked = e.Locked
	ev.AdminID = e.AdminID
	return ev, nil
}
