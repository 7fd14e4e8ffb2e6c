package bunstore

import (
	"github.com/uptrace/bun"

	"github.com/okian/tally/internal/domain/model"
)

// EventRow is the events table. Only the column matching Type is populated.
type EventRow struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID       string            `bun:"id,pk"`
	Name     string            `bun:"name,notnull"`
	Type     string            `bun:"type,notnull"`
	Criteria []model.Criterion `bun:"criteria"`
	Rounds   []model.Round     `bun:"rounds"`
	IsLocked bool              `bun:"is_locked,notnull,default:false"`
	AdminID  string            `bun:"admin_id"`
	Seq      int64             `bun:"seq,notnull"`
}

// ParticipantRow is the participants table.
type ParticipantRow struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID       string `bun:"id,pk"`
	Name     string `bun:"name,notnull"`
	District string `bun:"district"`
	EventID  string `bun:"event_id,notnull"`
	Seq      int64  `bun:"seq,notnull"`
}

// ScoreRow is the scores table. (judge_id, participant_id) is unique.
type ScoreRow struct {
	bun.BaseModel `bun:"table:scores,alias:s"`

	ID            string             `bun:"id,pk"`
	JudgeID       string             `bun:"judge_id,notnull"`
	ParticipantID string             `bun:"participant_id,notnull"`
	EventID       string             `bun:"event_id,notnull"`
	Entries       map[string]float64 `bun:"entries"`
	Deduction     float64            `bun:"deduction,notnull"`
	Total         float64            `bun:"total,notnull"`
	Critique      string             `bun:"critique"`
	Seq           int64              `bun:"seq,notnull"`
}

// ProfileRow is the profiles table.
type ProfileRow struct {
	bun.BaseModel `bun:"table:profiles,alias:u"`

	ID              string `bun:"id,pk"`
	Name            string `bun:"name"`
	Role            string `bun:"role,notnull"`
	AssignedEventID string `bun:"assigned_event_id"`
	Seq             int64  `bun:"seq,notnull"`
}

// SettingRow is the settings table.
type SettingRow struct {
	bun.BaseModel `bun:"table:settings,alias:st"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value"`
	Seq   int64  `bun:"seq,notnull"`
}

func toEventRow(e model.Event, seq int64) EventRow {
	return EventRow{
		ID:       e.ID,
		Name:     e.Name,
		Type:     string(e.Kind()),
		Criteria: e.Criteria(),
		Rounds:   e.Rounds(),
		IsLocked: e.Locked,
		AdminID:  e.AdminID,
		Seq:      seq,
	}
}

func (r EventRow) toModel() model.Event {
	var e model.Event
	switch model.Kind(r.Type) {
	case model.KindJudged:
		e = model.NewJudgedEvent(r.ID, r.Name, r.Criteria...)
	case model.KindQuiz:
		e = model.NewQuizEvent(r.ID, r.Name, r.Rounds...)
	default:
		e = model.Event{ID: r.ID, Name: r.Name}
	}
	e.Locked = r.IsLocked
	e.AdminID = r.AdminID
	return e
}

func toParticipantRow(p model.Participant, seq int64) ParticipantRow {
	return ParticipantRow{ID: p.ID, Name: p.Name, District: p.District, EventID: p.EventID, Seq: seq}
}

func (r ParticipantRow) toModel() model.Participant {
	return model.Participant{ID: r.ID, Name: r.Name, District: r.District, EventID: r.EventID}
}

func toScoreRow(s model.Score, seq int64) ScoreRow {
	return ScoreRow{
		ID:            s.ID,
		JudgeID:       s.JudgeID,
		ParticipantID: s.ParticipantID,
		EventID:       s.EventID,
		Entries:       s.Entries,
		Deduction:     s.Deduction,
		Total:         s.Total,
		Critique:      s.Critique,
		Seq:           seq,
	}
}

func (r ScoreRow) toModel() model.Score {
	return model.Score{
		ID:            r.ID,
		JudgeID:       r.JudgeID,
		ParticipantID: r.ParticipantID,
		EventID:       r.EventID,
		Entries:       r.Entries,
		Deduction:     r.Deduction,
		Total:         r.Total,
		Critique:      r.Critique,
	}
}

func toProfileRow(u model.User, seq int64) ProfileRow {
	return ProfileRow{ID: u.ID, Name: u.Name, Role: string(u.Role), AssignedEventID: u.AssignedEventID, Seq: seq}
}

func (r ProfileRow) toModel() model.User {
	return model.User{ID: r.ID, Name: r.Name, Role: model.Role(r.Role), AssignedEventID: r.AssignedEventID}
}
