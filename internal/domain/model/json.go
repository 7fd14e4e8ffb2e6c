package model

import (
	"encoding/json"
	"fmt"
)

type eventJSON struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     Kind        `json:"type"`
	Criteria []Criterion `json:"criteria"`
	Rounds   []Round     `json:"rounds"`
	Locked   bool        `json:"isLocked"`
	AdminID  string      `json:"eventAdminId,omitempty"`
}

// MarshalJSON writes the event in the stored record shape. The inactive
// field set is written as an empty list.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		ID:       e.ID,
		Name:     e.Name,
		Type:     e.Kind(),
		Criteria: e.Criteria(),
		Rounds:   e.Rounds(),
		Locked:   e.Locked,
		AdminID:  e.AdminID,
	}
	if out.Criteria == nil {
		out.Criteria = []Criterion{}
	}
	if out.Rounds == nil {
		out.Rounds = []Round{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the stored record shape. Only the field set selected
// by type is kept.
func (e *Event) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Type {
	case KindJudged:
		*e = NewJudgedEvent(in.ID, in.Name, in.Criteria...)
	case KindQuiz:
		*e = NewQuizEvent(in.ID, in.Name, in.Rounds...)
	default:
		return fmt.Errorf("%w: event %q has unknown type %q", ErrInvalidRecord, in.ID, in.Type)
	}
	e.Locked = in.Locked
	e.AdminID = in.AdminID
	return nil
}
