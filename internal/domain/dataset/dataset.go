// Package dataset holds the process-owned, read-mostly copy of every record
// collection. Ranking and standings are computed from it on demand.
package dataset

import (
	"slices"
	"sync"

	"github.com/okian/tally/internal/domain/model"
)

// Collection names, used for load reports and metrics labels.
const (
	CollectionEvents       = "events"
	CollectionParticipants = "participants"
	CollectionScores       = "scores"
	CollectionProfiles     = "profiles"
	CollectionSettings     = "settings"
)

// Dataset is safe for concurrent use. Slices returned by query methods are
// copies and may be modified by the caller.
type Dataset struct {
	mu           sync.RWMutex
	events       []model.Event
	participants []model.Participant
	scores       []model.Score
	profiles     map[string]model.User
	settings     map[string]string
}

// Counts reports the size of each collection.
type Counts struct {
	Events       int `json:"events"`
	Participants int `json:"participants"`
	Scores       int `json:"scores"`
	Profiles     int `json:"profiles"`
	Settings     int `json:"settings"`
}

// New returns an empty dataset.
func New() *Dataset {
	return &Dataset{
		profiles: make(map[string]model.User),
		settings: make(map[string]string),
	}
}

// SetEvents replaces the event collection.
func (d *Dataset) SetEvents(events []model.Event) {
	d.mu.Lock()
	d.events = slices.Clone(events)
	d.mu.Unlock()
}

// SetParticipants replaces the participant collection.
func (d *Dataset) SetParticipants(participants []model.Participant) {
	d.mu.Lock()
	d.participants = slices.Clone(participants)
	d.mu.Unlock()
}

// SetScores replaces the score collection.
func (d *Dataset) SetScores(scores []model.Score) {
	d.mu.Lock()
	d.scores = slices.Clone(scores)
	d.mu.Unlock()
}

// SetProfiles replaces the profile collection.
func (d *Dataset) SetProfiles(users []model.User) {
	m := make(map[string]model.User, len(users))
	for _, u := range users {
		m[u.ID] = u
	}
	d.mu.Lock()
	d.profiles = m
	d.mu.Unlock()
}

// SetSettings replaces the settings collection.
func (d *Dataset) SetSettings(settings []model.Setting) {
	m := make(map[string]string, len(settings))
	for _, s := range settings {
		m[s.Key] = s.Value
	}
	d.mu.Lock()
	d.settings = m
	d.mu.Unlock()
}

// ApplyScore merges s into the score collection by id.
func (d *Dataset) ApplyScore(s model.Score) {
	d.mu.Lock()
	d.scores = MergeScore(d.scores, s)
	d.mu.Unlock()
}

// Event returns the event with the given id.
func (d *Dataset) Event(id string) (model.Event, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, e := range d.events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

// Events returns all events in stored order.
func (d *Dataset) Events() []model.Event {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.events)
}

// Participants returns all participants in stored order.
func (d *Dataset) Participants() []model.Participant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.participants)
}

// ParticipantsByEvent returns the participants of one event in stored order.
func (d *Dataset) ParticipantsByEvent(eventID string) []model.Participant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []model.Participant
	for _, p := range d.participants {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out
}

// Participant returns the participant with the given id.
func (d *Dataset) Participant(id string) (model.Participant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, p := range d.participants {
		if p.ID == id {
			return p, true
		}
	}
	return model.Participant{}, false
}

// Scores returns all scores.
func (d *Dataset) Scores() []model.Score {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.scores)
}

// ScoresByEvent returns the scores recorded for one event.
func (d *Dataset) ScoresByEvent(eventID string) []model.Score {
	return d.filterScores(func(s model.Score) bool { return s.EventID == eventID })
}

// ScoresByParticipant returns the scores recorded for one participant.
func (d *Dataset) ScoresByParticipant(participantID string) []model.Score {
	return d.filterScores(func(s model.Score) bool { return s.ParticipantID == participantID })
}

// ScoresByJudge returns the scores submitted by one judge.
func (d *Dataset) ScoresByJudge(judgeID string) []model.Score {
	return d.filterScores(func(s model.Score) bool { return s.JudgeID == judgeID })
}

func (d *Dataset) filterScores(keep func(model.Score) bool) []model.Score {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []model.Score
	for _, s := range d.scores {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// Profile returns the user profile with the given id.
func (d *Dataset) Profile(id string) (model.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.profiles[id]
	return u, ok
}

// Setting returns the value stored under key.
func (d *Dataset) Setting(key string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.settings[key]
	return v, ok
}

// Counts returns the current size of every collection.
func (d *Dataset) Counts() Counts {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Counts{
		Events:       len(d.events),
		Participants: len(d.participants),
		Scores:       len(d.scores),
		Profiles:     len(d.profiles),
		Settings:     len(d.settings),
	}
}
