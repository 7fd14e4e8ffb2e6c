// Package worker runs the reconciliation listener that merges score change
// notifications into the local dataset.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/okian/tally/internal/adapters/feed"
	"github.com/okian/tally/internal/domain/dedupe"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
	"github.com/okian/tally/pkg/metrics"
)

// Rejection reasons used as metric labels.
const (
	ReasonDecode      = "decode"
	ReasonUnknownKind = "unknown_kind"
	ReasonInvalid     = "invalid"
)

// Subscriber delivers change messages.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

// Applier merges a score into the local set by id.
type Applier interface {
	ApplyScore(s model.Score)
}

// Listener consumes change notifications. Every message is acked: a change
// that cannot be applied now will not become applicable on redelivery.
type Listener struct {
	sub     Subscriber
	view    Applier
	deduper dedupe.Deduper
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewListener creates a listener with configuration options.
func NewListener(sub Subscriber, view Applier, deduper dedupe.Deduper, opts ...Option) *Listener {
	l := &Listener{
		sub:      sub,
		view:     view,
		deduper:  deduper,
		name:     "listener",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.deduper == nil {
		l.deduper = dedupe.NewInMemoryDeduper()
	}
	l.logger = l.logger.Named(l.name)
	return l
}

// Start subscribes and processes messages in the background until ctx is
// canceled, Shutdown is called or the subscription closes. Changes published
// after Start returns are delivered.
func (l *Listener) Start(ctx context.Context) error {
	msgs, err := l.sub.Subscribe(ctx)
	if err != nil {
		close(l.done)
		return fmt.Errorf("worker.Start: %w", err)
	}
	go l.run(ctx, msgs)
	return nil
}

func (l *Listener) run(ctx context.Context, msgs <-chan *message.Message) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.shutdown:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			l.Process(ctx, msg)
			msg.Ack()
		}
	}
}

// Shutdown stops the loop and waits for the message in flight.
func (l *Listener) Shutdown(ctx context.Context) error {
	select {
	case <-l.shutdown:
	default:
		close(l.shutdown)
	}
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Seen reports how many change ids the listener currently remembers.
func (l *Listener) Seen() int64 {
	return l.deduper.Size()
}

// Process applies one message. It reports whether the change was applied.
func (l *Listener) Process(ctx context.Context, msg *message.Message) bool {
	change, err := feed.Decode(msg)
	if err != nil {
		metrics.RecordReconcileRejected(ReasonDecode)
		l.logger.Error(ctx, "dropping undecodable change", logger.String("message", msg.UUID), logger.Error(err))
		return false
	}
	return l.Apply(ctx, change)
}

// Apply merges change into the view unless its id was already seen.
func (l *Listener) Apply(ctx context.Context, change model.ScoreChange) bool {
	start := time.Now()
	if change.Kind != model.ChangeInserted && change.Kind != model.ChangeUpdated {
		metrics.RecordReconcileRejected(ReasonUnknownKind)
		l.logger.Debug(ctx, "ignoring change kind", logger.String("change", change.ID), logger.String("kind", string(change.Kind)))
		return false
	}
	if l.deduper.SeenAndRecord(ctx, change.ID) {
		metrics.RecordReconcileDuplicate()
		return false
	}
	metrics.UpdateDedupeIDs(l.deduper.Size())
	if err := model.ValidateChange(change); err != nil {
		metrics.RecordReconcileRejected(ReasonInvalid)
		l.logger.Warn(ctx, "dropping invalid change", logger.String("change", change.ID), logger.Error(err))
		return false
	}
	if err := model.ValidateScore(change.Score); err != nil {
		metrics.RecordReconcileRejected(ReasonInvalid)
		l.logger.Warn(ctx, "dropping change with invalid score", logger.String("change", change.ID), logger.Error(err))
		return false
	}

	l.view.ApplyScore(change.Score)
	metrics.RecordReconcileApplied()
	l.logger.Debug(ctx, "applied score change",
		logger.String("change", change.ID),
		logger.String("score", change.Score.ID),
		logger.String("kind", string(change.Kind)),
		logger.Duration("took", time.Since(start)),
	)
	return true
}
