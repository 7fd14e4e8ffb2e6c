package repository

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/okian/tally/internal/domain/model"
)

type pairKey struct {
	judgeID       string
	participantID string
}

// MemoryStore is a mutex-guarded Store. Listing keeps insertion order.
type MemoryStore struct {
	mu sync.RWMutex

	events       map[string]model.Event
	eventOrder   []string
	participants map[string]model.Participant
	partOrder    []string
	scores       map[string]model.Score
	scoreOrder   []string
	byPair       map[pairKey]string // unique (judge, participant) -> score id
	profiles     map[string]model.User
	profileOrder []string
	settings     map[string]string
	settingOrder []string

	newID  func() string
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		events:       make(map[string]model.Event),
		participants: make(map[string]model.Participant),
		scores:       make(map[string]model.Score),
		byPair:       make(map[pairKey]string),
		profiles:     make(map[string]model.User),
		settings:     make(map[string]string),
		newID:        NewChangeID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) readable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return ErrClosed
	}
	return nil
}

// ListEvents returns every event in insertion order.
func (s *MemoryStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(s.eventOrder))
	for _, id := range s.eventOrder {
		out = append(out, s.events[id])
	}
	return out, nil
}

// GetEvent returns one event.
func (s *MemoryStore) GetEvent(ctx context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return model.Event{}, err
	}
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("repository.GetEvent %q: %w", id, ErrNotFound)
	}
	return e, nil
}

// SetEventLocked sets the lock flag of an event.
func (s *MemoryStore) SetEventLocked(ctx context.Context, id string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return err
	}
	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("repository.SetEventLocked %q: %w", id, ErrNotFound)
	}
	e.Locked = locked
	s.events[id] = e
	return nil
}

// ListParticipants returns every participant in insertion order.
func (s *MemoryStore) ListParticipants(ctx context.Context) ([]model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Participant, 0, len(s.partOrder))
	for _, id := range s.partOrder {
		out = append(out, s.participants[id])
	}
	return out, nil
}

// GetParticipant returns one participant.
func (s *MemoryStore) GetParticipant(ctx context.Context, id string) (model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return model.Participant{}, err
	}
	p, ok := s.participants[id]
	if !ok {
		return model.Participant{}, fmt.Errorf("repository.GetParticipant %q: %w", id, ErrNotFound)
	}
	return p, nil
}

// ListScores returns every score in insertion order.
func (s *MemoryStore) ListScores(ctx context.Context) ([]model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Score, 0, len(s.scoreOrder))
	for _, id := range s.scoreOrder {
		out = append(out, copyScore(s.scores[id]))
	}
	return out, nil
}

// GetScore returns one score.
func (s *MemoryStore) GetScore(ctx context.Context, id string) (model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return model.Score{}, err
	}
	sc, ok := s.scores[id]
	if !ok {
		return model.Score{}, fmt.Errorf("repository.GetScore %q: %w", id, ErrNotFound)
	}
	return copyScore(sc), nil
}

// FindScore returns the score of a (judge, participant) pair.
func (s *MemoryStore) FindScore(ctx context.Context, judgeID, participantID string) (model.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return model.Score{}, err
	}
	id, ok := s.byPair[pairKey{judgeID, participantID}]
	if !ok {
		return model.Score{}, fmt.Errorf("repository.FindScore %s/%s: %w", judgeID, participantID, ErrNotFound)
	}
	return copyScore(s.scores[id]), nil
}

// UpsertScore writes sc under the store lock so the lock check, the pair
// lookup and the write are one step.
func (s *MemoryStore) UpsertScore(ctx context.Context, sc model.Score) (model.ScoreChange, error) {
	if err := model.ValidateScore(sc); err != nil {
		return model.ScoreChange{}, fmt.Errorf("repository.UpsertScore: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return model.ScoreChange{}, err
	}

	e, ok := s.events[sc.EventID]
	if !ok {
		return model.ScoreChange{}, fmt.Errorf("repository.UpsertScore event %q: %w", sc.EventID, ErrNotFound)
	}
	if e.Locked {
		return model.ScoreChange{}, fmt.Errorf("repository.UpsertScore event %q: %w", sc.EventID, ErrEventLocked)
	}

	key := pairKey{sc.JudgeID, sc.ParticipantID}
	kind := model.ChangeInserted
	if existing, found := s.byPair[key]; found {
		sc.ID = existing
		kind = model.ChangeUpdated
	} else if other, taken := s.scores[sc.ID]; taken && (other.JudgeID != sc.JudgeID || other.ParticipantID != sc.ParticipantID) {
		return model.ScoreChange{}, fmt.Errorf("repository.UpsertScore %q: %w", sc.ID, ErrDuplicateScore)
	}

	s.putScore(copyScore(sc))
	return model.ScoreChange{ID: s.newID(), Kind: kind, Score: copyScore(sc)}, nil
}

func (s *MemoryStore) putScore(sc model.Score) {
	if old, ok := s.scores[sc.ID]; ok {
		delete(s.byPair, pairKey{old.JudgeID, old.ParticipantID})
	} else {
		s.scoreOrder = append(s.scoreOrder, sc.ID)
	}
	s.scores[sc.ID] = sc
	s.byPair[pairKey{sc.JudgeID, sc.ParticipantID}] = sc.ID
}

// ListProfiles returns every profile in insertion order.
func (s *MemoryStore) ListProfiles(ctx context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	out := make([]model.User, 0, len(s.profileOrder))
	for _, id := range s.profileOrder {
		out = append(out, s.profiles[id])
	}
	return out, nil
}

// GetProfile returns one profile.
func (s *MemoryStore) GetProfile(ctx context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return model.User{}, err
	}
	u, ok := s.profiles[id]
	if !ok {
		return model.User{}, fmt.Errorf("repository.GetProfile %q: %w", id, ErrNotFound)
	}
	return u, nil
}

// ListSettings returns every setting in insertion order.
func (s *MemoryStore) ListSettings(ctx context.Context) ([]model.Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readable(ctx); err != nil {
		return nil, err
	}
	out := make([]model.Setting, 0, len(s.settingOrder))
	for _, k := range s.settingOrder {
		out = append(out, model.Setting{Key: k, Value: s.settings[k]})
	}
	return out, nil
}

// Seed validates and writes a batch of records. Nothing is written if any
// record is malformed.
func (s *MemoryStore) Seed(ctx context.Context, seed Seed) error {
	if err := ValidateSeed(seed); err != nil {
		return fmt.Errorf("repository.Seed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readable(ctx); err != nil {
		return err
	}
	pending := make(map[pairKey]string, len(seed.Scores))
	for _, sc := range seed.Scores {
		key := pairKey{sc.JudgeID, sc.ParticipantID}
		if id, ok := s.byPair[key]; ok && id != sc.ID {
			return fmt.Errorf("repository.Seed score %q: %w", sc.ID, ErrDuplicateScore)
		}
		if id, ok := pending[key]; ok && id != sc.ID {
			return fmt.Errorf("repository.Seed score %q: %w", sc.ID, ErrDuplicateScore)
		}
		pending[key] = sc.ID
	}
	for _, e := range seed.Events {
		if _, ok := s.events[e.ID]; !ok {
			s.eventOrder = append(s.eventOrder, e.ID)
		}
		s.events[e.ID] = e
	}
	for _, p := range seed.Participants {
		if _, ok := s.participants[p.ID]; !ok {
			s.partOrder = append(s.partOrder, p.ID)
		}
		s.participants[p.ID] = p
	}
	for _, u := range seed.Profiles {
		if _, ok := s.profiles[u.ID]; !ok {
			s.profileOrder = append(s.profileOrder, u.ID)
		}
		s.profiles[u.ID] = u
	}
	for _, st := range seed.Settings {
		if _, ok := s.settings[st.Key]; !ok {
			s.settingOrder = append(s.settingOrder, st.Key)
		}
		s.settings[st.Key] = st.Value
	}
	for _, sc := range seed.Scores {
		s.putScore(copyScore(sc))
	}
	return nil
}

// Close marks the store closed; later calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// ValidateSeed checks every record of a seed batch.
func ValidateSeed(seed Seed) error {
	for _, e := range seed.Events {
		if err := model.ValidateEvent(e); err != nil {
			return err
		}
	}
	for _, p := range seed.Participants {
		if err := model.ValidateParticipant(p); err != nil {
			return err
		}
	}
	for _, u := range seed.Profiles {
		if err := model.ValidateUser(u); err != nil {
			return err
		}
	}
	for _, st := range seed.Settings {
		if err := model.ValidateSetting(st); err != nil {
			return err
		}
	}
	for _, sc := range seed.Scores {
		if err := model.ValidateScore(sc); err != nil {
			return err
		}
	}
	return nil
}

func copyScore(sc model.Score) model.Score {
	sc.Entries = maps.Clone(sc.Entries)
	return sc
}
