// Package bunstore implements repository.Store on Postgres or SQLite via bun.
package bunstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ChangeNotification is the pg_notify payload emitted with every score write.
type ChangeNotification struct {
	ChangeID string `json:"change_id"`
	Kind     string `json:"kind"`
	ScoreID  string `json:"score_id"`
}

// Store is a repository.Store backed by a SQL database.
type Store struct {
	db            *bun.DB
	notifyChannel string
	newID         func() string
	log           logger.Logger
	seq           atomic.Int64
}

var _ repository.Store = (*Store)(nil)

// Open connects to the database named by dsn. Migrations are not applied;
// see the migrations package.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	var db *bun.DB
	switch driver {
	case DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db = bun.NewDB(sqldb, pgdialect.New())
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("bunstore.Open: %w", err)
		}
		// SQLite allows one writer; a single connection serializes transactions.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("bunstore.Open: unknown driver %q", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bunstore.Open: ping: %w", err)
	}
	return New(db, opts...), nil
}

// New wraps an existing bun.DB.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{
		db:            db,
		notifyChannel: "score_changes",
		newID:         repository.NewChangeID,
		log:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.seq.Store(time.Now().UnixNano())
	return s
}

// DB exposes the underlying bun.DB for migrations and tests.
func (s *Store) DB() *bun.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) postgres() bool {
	return s.db.Dialect().Name() == dialect.PG
}

func (s *Store) nextSeq() int64 { return s.seq.Add(1) }

// ListEvents returns every well-formed event. Malformed rows are skipped.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	var rows []EventRow
	if err := s.db.NewSelect().Model(&rows).Order("seq", "id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("bunstore.ListEvents: %w", err)
	}
	out := make([]model.Event, 0, len(rows))
	for _, r := range rows {
		e := r.toModel()
		if err := model.ValidateEvent(e); err != nil {
			s.log.Warn(ctx, "skipping malformed event", logger.String("id", r.ID), logger.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// GetEvent returns one event.
func (s *Store) GetEvent(ctx context.Context, id string) (model.Event, error) {
	return getEvent(ctx, s.db, id, false)
}

func getEvent(ctx context.Context, db bun.IDB, id string, share bool) (model.Event, error) {
	var row EventRow
	q := db.NewSelect().Model(&row).Where("id = ?", id)
	if share {
		q = q.For("SHARE")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, fmt.Errorf("bunstore.GetEvent %q: %w", id, repository.ErrNotFound)
		}
		return model.Event{}, fmt.Errorf("bunstore.GetEvent %q: %w", id, err)
	}
	e := row.toModel()
	if err := model.ValidateEvent(e); err != nil {
		return model.Event{}, fmt.Errorf("bunstore.GetEvent: %w", err)
	}
	return e, nil
}

// SetEventLocked sets the lock flag of an event.
func (s *Store) SetEventLocked(ctx context.Context, id string, locked bool) error {
	res, err := s.db.NewUpdate().Model((*EventRow)(nil)).
		Set("is_locked = ?", locked).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("bunstore.SetEventLocked %q: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("bunstore.SetEventLocked %q: %w", id, repository.ErrNotFound)
	}
	return nil
}

// ListParticipants returns every participant.
func (s *Store) ListParticipants(ctx context.Context) ([]model.Participant, error) {
	var rows []ParticipantRow
	if err := s.db.NewSelect().Model(&rows).Order("seq", "id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("bunstore.ListParticipants: %w", err)
	}
	out := make([]model.Participant, 0, len(rows))
	for _, r := range rows {
		p := r.toModel()
		if err := model.ValidateParticipant(p); err != nil {
			s.log.Warn(ctx, "skipping malformed participant", logger.String("id", r.ID), logger.Error(err))
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// GetParticipant returns one participant.
func (s *Store) GetParticipant(ctx context.Context, id string) (model.Participant, error) {
	var row ParticipantRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Participant{}, fmt.Errorf("bunstore.GetParticipant %q: %w", id, repository.ErrNotFound)
		}
		return model.Participant{}, fmt.Errorf("bunstore.GetParticipant %q: %w", id, err)
	}
	return row.toModel(), nil
}

// ListScores returns every score.
func (s *Store) ListScores(ctx context.Context) ([]model.Score, error) {
	var rows []ScoreRow
	if err := s.db.NewSelect().Model(&rows).Order("seq", "id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("bunstore.ListScores: %w", err)
	}
	out := make([]model.Score, 0, len(rows))
	for _, r := range rows {
		sc := r.toModel()
		if err := model.ValidateScore(sc); err != nil {
			s.log.Warn(ctx, "skipping malformed score", logger.String("id", r.ID), logger.Error(err))
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}

// GetScore returns one score.
func (s *Store) GetScore(ctx context.Context, id string) (model.Score, error) {
	var row ScoreRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Score{}, fmt.Errorf("bunstore.GetScore %q: %w", id, repository.ErrNotFound)
		}
		return model.Score{}, fmt.Errorf("bunstore.GetScore %q: %w", id, err)
	}
	return row.toModel(), nil
}

// FindScore returns the score of a (judge, participant) pair.
func (s *Store) FindScore(ctx context.Context, judgeID, participantID string) (model.Score, error) {
	return findScore(ctx, s.db, judgeID, participantID)
}

func findScore(ctx context.Context, db bun.IDB, judgeID, participantID string) (model.Score, error) {
	var row ScoreRow
	err := db.NewSelect().Model(&row).
		Where("judge_id = ?", judgeID).
		Where("participant_id = ?", participantID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Score{}, fmt.Errorf("bunstore.FindScore %s/%s: %w", judgeID, participantID, repository.ErrNotFound)
		}
		return model.Score{}, fmt.Errorf("bunstore.FindScore: %w", err)
	}
	return row.toModel(), nil
}

// UpsertScore re-reads the event lock and writes the score in one
// transaction. On Postgres the event row is share-locked so a concurrent
// lock toggle waits for the write, and a pg_notify is sent on commit.
func (s *Store) UpsertScore(ctx context.Context, sc model.Score) (model.ScoreChange, error) {
	if err := model.ValidateScore(sc); err != nil {
		return model.ScoreChange{}, fmt.Errorf("bunstore.UpsertScore: %w", err)
	}

	var change model.ScoreChange
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		e, err := getEvent(ctx, tx, sc.EventID, s.postgres())
		if err != nil {
			return err
		}
		if e.Locked {
			return fmt.Errorf("event %q: %w", sc.EventID, repository.ErrEventLocked)
		}

		row := toScoreRow(sc, s.nextSeq())
		kind, err := s.upsertScoreRow(ctx, tx, &row)
		if err != nil {
			return err
		}

		stored := sc
		stored.ID = row.ID
		change = model.ScoreChange{ID: s.newID(), Kind: kind, Score: stored}

		if s.postgres() {
			payload, err := json.Marshal(ChangeNotification{ChangeID: change.ID, Kind: string(kind), ScoreID: stored.ID})
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "SELECT pg_notify(?, ?)", s.notifyChannel, string(payload)); err != nil {
				return fmt.Errorf("notify: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return model.ScoreChange{}, fmt.Errorf("bunstore.UpsertScore: %w", err)
	}
	return change, nil
}

// upsertScoreRow writes row and reports whether it created the pair's score.
// Postgres reports it from the upsert itself: a freshly inserted tuple has
// xmax = 0. SQLite runs on one connection, so a read inside the transaction
// cannot race another writer.
func (s *Store) upsertScoreRow(ctx context.Context, tx bun.Tx, row *ScoreRow) (model.ChangeKind, error) {
	q := tx.NewInsert().Model(row).
		On("CONFLICT (judge_id, participant_id) DO UPDATE").
		Set("event_id = EXCLUDED.event_id").
		Set("entries = EXCLUDED.entries").
		Set("deduction = EXCLUDED.deduction").
		Set("total = EXCLUDED.total").
		Set("critique = EXCLUDED.critique")

	if s.postgres() {
		var inserted bool
		if err := q.Returning("id, (xmax = 0) AS inserted").Scan(ctx, &row.ID, &inserted); err != nil {
			return "", mapWriteError(err)
		}
		if inserted {
			return model.ChangeInserted, nil
		}
		return model.ChangeUpdated, nil
	}

	kind := model.ChangeInserted
	if _, err := findScore(ctx, tx, row.JudgeID, row.ParticipantID); err == nil {
		kind = model.ChangeUpdated
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}
	if _, err := q.Returning("id").Exec(ctx); err != nil {
		return "", mapWriteError(err)
	}
	return kind, nil
}

// ListProfiles returns every profile.
func (s *Store) ListProfiles(ctx context.Context) ([]model.User, error) {
	var rows []ProfileRow
	if err := s.db.NewSelect().Model(&rows).Order("seq", "id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("bunstore.ListProfiles: %w", err)
	}
	out := make([]model.User, 0, len(rows))
	for _, r := range rows {
		u := r.toModel()
		if err := model.ValidateUser(u); err != nil {
			s.log.Warn(ctx, "skipping malformed profile", logger.String("id", r.ID), logger.Error(err))
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// GetProfile returns one profile.
func (s *Store) GetProfile(ctx context.Context, id string) (model.User, error) {
	var row ProfileRow
	if err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, fmt.Errorf("bunstore.GetProfile %q: %w", id, repository.ErrNotFound)
		}
		return model.User{}, fmt.Errorf("bunstore.GetProfile %q: %w", id, err)
	}
	u := row.toModel()
	if err := model.ValidateUser(u); err != nil {
		return model.User{}, fmt.Errorf("bunstore.GetProfile: %w", err)
	}
	return u, nil
}

// ListSettings returns every setting.
func (s *Store) ListSettings(ctx context.Context) ([]model.Setting, error) {
	var rows []SettingRow
	if err := s.db.NewSelect().Model(&rows).Order("seq", "key").Scan(ctx); err != nil {
		return nil, fmt.Errorf("bunstore.ListSettings: %w", err)
	}
	out := make([]model.Setting, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Setting{Key: r.Key, Value: r.Value})
	}
	return out, nil
}

// Seed writes a batch of records in one transaction.
func (s *Store) Seed(ctx context.Context, seed repository.Seed) error {
	if err := repository.ValidateSeed(seed); err != nil {
		return fmt.Errorf("bunstore.Seed: %w", err)
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, e := range seed.Events {
			row := toEventRow(e, s.nextSeq())
			if _, err := tx.NewInsert().Model(&row).
				On("CONFLICT (id) DO UPDATE").
				Set("name = EXCLUDED.name").
				Set("type = EXCLUDED.type").
				Set("criteria = EXCLUDED.criteria").
				Set("rounds = EXCLUDED.rounds").
				Set("is_locked = EXCLUDED.is_locked").
				Set("admin_id = EXCLUDED.admin_id").
				Exec(ctx); err != nil {
				return fmt.Errorf("event %q: %w", e.ID, err)
			}
		}
		for _, p := range seed.Participants {
			row := toParticipantRow(p, s.nextSeq())
			if _, err := tx.NewInsert().Model(&row).
				On("CONFLICT (id) DO UPDATE").
				Set("name = EXCLUDED.name").
				Set("district = EXCLUDED.district").
				Set("event_id = EXCLUDED.event_id").
				Exec(ctx); err != nil {
				return fmt.Errorf("participant %q: %w", p.ID, err)
			}
		}
		for _, u := range seed.Profiles {
			row := toProfileRow(u, s.nextSeq())
			if _, err := tx.NewInsert().Model(&row).
				On("CONFLICT (id) DO UPDATE").
				Set("name = EXCLUDED.name").
				Set("role = EXCLUDED.role").
				Set("assigned_event_id = EXCLUDED.assigned_event_id").
				Exec(ctx); err != nil {
				return fmt.Errorf("profile %q: %w", u.ID, err)
			}
		}
		for _, st := range seed.Settings {
			row := SettingRow{Key: st.Key, Value: st.Value, Seq: s.nextSeq()}
			if _, err := tx.NewInsert().Model(&row).
				On("CONFLICT (key) DO UPDATE").
				Set("value = EXCLUDED.value").
				Exec(ctx); err != nil {
				return fmt.Errorf("setting %q: %w", st.Key, err)
			}
		}
		for _, sc := range seed.Scores {
			row := toScoreRow(sc, s.nextSeq())
			if _, err := tx.NewInsert().Model(&row).
				On("CONFLICT (id) DO UPDATE").
				Set("entries = EXCLUDED.entries").
				Set("deduction = EXCLUDED.deduction").
				Set("total = EXCLUDED.total").
				Set("critique = EXCLUDED.critique").
				Exec(ctx); err != nil {
				return fmt.Errorf("score %q: %w", sc.ID, mapWriteError(err))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bunstore.Seed: %w", err)
	}
	return nil
}

// mapWriteError turns unique violations into repository.ErrDuplicateScore.
func mapWriteError(err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
		return fmt.Errorf("%w: %w", repository.ErrDuplicateScore, err)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", repository.ErrDuplicateScore, err)
	}
	return err
}
