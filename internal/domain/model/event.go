// Package model contains domain models passed between layers.
package model

import "math"

// Kind is the event type discriminator.
type Kind string

const (
	KindJudged Kind = "JUDGED"
	KindQuiz   Kind = "QUIZ"
)

// Criterion is one weighted dimension of a judged event. Weight is the
// maximum number of points a judge may award for it.
type Criterion struct {
	ID          string  `json:"id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Weight      float64 `json:"weight" validate:"gte=0"`
	Description string  `json:"description,omitempty"`
}

// Round is one round of a quiz event. Entries against a round are item
// counts, each worth Points.
type Round struct {
	ID           string  `json:"id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Points       float64 `json:"points" validate:"gte=0"`
	IsTieBreaker bool    `json:"isTieBreaker"`
}

// Fields is the active field set of an event. It is either Judged or Quiz.
type Fields interface {
	Kind() Kind
	Active() []ActiveField
	isFields()
}

// Judged holds the criteria of a JUDGED event.
type Judged struct {
	Criteria []Criterion `validate:"dive"`
}

// Quiz holds the rounds of a QUIZ event.
type Quiz struct {
	Rounds []Round `validate:"dive"`
}

// ActiveField describes how one field contributes to a total.
type ActiveField struct {
	ID string
	// Max is the upper clamp of an entry; +Inf when open-ended.
	Max float64
	// Multiplier converts an entry into points.
	Multiplier float64
}

func (Judged) Kind() Kind { return KindJudged }
func (Quiz) Kind() Kind   { return KindQuiz }
func (Judged) isFields()  {}
func (Quiz) isFields()    {}

// Active returns one field per criterion clamped to its weight.
func (j Judged) Active() []ActiveField {
	out := make([]ActiveField, 0, len(j.Criteria))
	for _, c := range j.Criteria {
		out = append(out, ActiveField{ID: c.ID, Max: c.Weight, Multiplier: 1})
	}
	return out
}

// Active returns one open-ended field per round.
func (q Quiz) Active() []ActiveField {
	out := make([]ActiveField, 0, len(q.Rounds))
	for _, r := range q.Rounds {
		out = append(out, ActiveField{ID: r.ID, Max: math.Inf(1), Multiplier: r.Points})
	}
	return out
}

// Event is a competition event. Exactly one field set is active and it is
// selected by the concrete type held in Fields.
type Event struct {
	ID      string `validate:"required"`
	Name    string `validate:"required"`
	Fields  Fields `validate:"required"`
	Locked  bool
	AdminID string
}

// NewJudgedEvent builds a JUDGED event.
func NewJudgedEvent(id, name string, criteria ...Criterion) Event {
	return Event{ID: id, Name: name, Fields: Judged{Criteria: criteria}}
}

// NewQuizEvent builds a QUIZ event.
func NewQuizEvent(id, name string, rounds ...Round) Event {
	return Event{ID: id, Name: name, Fields: Quiz{Rounds: rounds}}
}

// Kind returns the event type, or an empty Kind when no field set is present.
func (e Event) Kind() Kind {
	if e.Fields == nil {
		return ""
	}
	return e.Fields.Kind()
}

// ActiveFields returns the fields that may contribute to a total.
func (e Event) ActiveFields() []ActiveField {
	if e.Fields == nil {
		return nil
	}
	return e.Fields.Active()
}

// Criteria returns the criteria of a judged event and nil otherwise.
func (e Event) Criteria() []Criterion {
	if j, ok := e.Fields.(Judged); ok {
		return j.Criteria
	}
	return nil
}

// Rounds returns the rounds of a quiz event and nil otherwise.
func (e Event) Rounds() []Round {
	if q, ok := e.Fields.(Quiz); ok {
		return q.Rounds
	}
	return nil
}
