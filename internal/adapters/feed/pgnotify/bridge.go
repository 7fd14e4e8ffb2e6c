// Package pgnotify relays Postgres score change notifications onto the
// in-process bus so writes made by other processes reach the listener.
package pgnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/okian/tally/internal/adapters/repository/bunstore"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

// ScoreGetter resolves a notified score id to the stored record.
type ScoreGetter interface {
	GetScore(ctx context.Context, id string) (model.Score, error)
}

// Publisher accepts resolved changes.
type Publisher interface {
	Publish(ctx context.Context, change model.ScoreChange) error
}

// Bridge LISTENs on a channel and republishes every notification.
type Bridge struct {
	dsn            string
	channel        string
	scores         ScoreGetter
	pub            Publisher
	log            logger.Logger
	reconnectDelay time.Duration
}

// New creates a bridge. It does nothing until Run is called.
func New(dsn string, scores ScoreGetter, pub Publisher, opts ...Option) *Bridge {
	b := &Bridge{
		dsn:            dsn,
		channel:        "score_changes",
		scores:         scores,
		pub:            pub,
		log:            logger.Nop(),
		reconnectDelay: time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run listens until ctx is done, reconnecting after connection failures.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		err := b.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		b.log.Warn(ctx, "notification listener disconnected", logger.Error(err), logger.Duration("retry_in", b.reconnectDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(b.reconnectDelay):
		}
	}
}

func (b *Bridge) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, b.dsn)
	if err != nil {
		return fmt.Errorf("pgnotify: connect: %w", err)
	}
	defer func() { _ = conn.Close(context.Background()) }()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{b.channel}.Sanitize()); err != nil {
		return fmt.Errorf("pgnotify: listen: %w", err)
	}
	b.log.Info(ctx, "listening for score changes", logger.String("channel", b.channel))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("pgnotify: wait: %w", err)
		}
		if err := b.Handle(ctx, n.Payload); err != nil {
			b.log.Error(ctx, "failed to relay score change", logger.String("payload", n.Payload), logger.Error(err))
		}
	}
}

// Handle resolves one notification payload and publishes the change.
func (b *Bridge) Handle(ctx context.Context, payload string) error {
	var n bunstore.ChangeNotification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return fmt.Errorf("%w: %w", ErrPayload, err)
	}
	if n.ChangeID == "" || n.ScoreID == "" {
		return fmt.Errorf("%w: missing change or score id", ErrPayload)
	}
	score, err := b.scores.GetScore(ctx, n.ScoreID)
	if err != nil {
		return fmt.Errorf("pgnotify: resolve score %q: %w", n.ScoreID, err)
	}
	change := model.ScoreChange{ID: n.ChangeID, Kind: model.ChangeKind(n.Kind), Score: score}
	if err := b.pub.Publish(ctx, change); err != nil {
		return fmt.Errorf("pgnotify: publish: %w", err)
	}
	return nil
}
