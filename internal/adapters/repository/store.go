// Package repository defines the record store interfaces, the in-memory
// store and the store errors.
package repository

import (
	"context"

	"github.com/okian/tally/internal/domain/model"
)

// EventReader reads events.
type EventReader interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	// GetEvent returns ErrNotFound if the event is unknown.
	GetEvent(ctx context.Context, id string) (model.Event, error)
}

// EventLocker toggles the lock flag of an event.
type EventLocker interface {
	SetEventLocked(ctx context.Context, id string, locked bool) error
}

// ParticipantReader reads participants.
type ParticipantReader interface {
	ListParticipants(ctx context.Context) ([]model.Participant, error)
	GetParticipant(ctx context.Context, id string) (model.Participant, error)
}

// ScoreStore reads and writes scores.
type ScoreStore interface {
	ListScores(ctx context.Context) ([]model.Score, error)
	GetScore(ctx context.Context, id string) (model.Score, error)
	// FindScore returns the score of judgeID for participantID or ErrNotFound.
	FindScore(ctx context.Context, judgeID, participantID string) (model.Score, error)
	// UpsertScore atomically inserts s, or replaces the existing score of the
	// same (judge, participant) pair keeping its id. It fails with
	// ErrEventLocked if the event is locked at write time.
	UpsertScore(ctx context.Context, s model.Score) (model.ScoreChange, error)
}

// ProfileReader reads user profiles.
type ProfileReader interface {
	ListProfiles(ctx context.Context) ([]model.User, error)
	GetProfile(ctx context.Context, id string) (model.User, error)
}

// SettingsReader reads global settings.
type SettingsReader interface {
	ListSettings(ctx context.Context) ([]model.Setting, error)
}

// Seed is a batch of records written by Seeder.
type Seed struct {
	Events       []model.Event
	Participants []model.Participant
	Profiles     []model.User
	Settings     []model.Setting
	Scores       []model.Score
}

// Seeder writes a batch of records, replacing records with the same id.
type Seeder interface {
	Seed(ctx context.Context, seed Seed) error
}

// Store is the full record store.
type Store interface {
	EventReader
	EventLocker
	ParticipantReader
	ScoreStore
	ProfileReader
	SettingsReader
	Seeder
	Close() error
}
