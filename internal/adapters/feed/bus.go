// Package feed carries score change notifications between the writers and
// the reconciliation listener.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/pkg/logger"
)

// Topic is the topic every score change is published on.
const Topic = "scores.changes"

const metadataKind = "kind"

// Bus is an in-process pub/sub for score changes. Messages are keyed by the
// change id so a redelivered change can be recognized.
type Bus struct {
	pubsub     *gochannel.GoChannel
	bufferSize int64
	log        logger.Logger
}

// NewBus creates a bus with configuration options.
func NewBus(opts ...Option) *Bus {
	b := &Bus{bufferSize: 1024, log: logger.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	b.pubsub = gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: b.bufferSize},
		newWatermillLogger(b.log),
	)
	return b
}

// Publish sends a change to every subscriber.
func (b *Bus) Publish(ctx context.Context, change model.ScoreChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("feed.Publish: %w", err)
	}
	msg := message.NewMessage(change.ID, payload)
	msg.Metadata.Set(metadataKind, string(change.Kind))
	msg.SetContext(ctx)
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("feed.Publish: %w", err)
	}
	return nil
}

// Subscribe returns a channel of change messages. Every message must be
// acked before the next one is delivered. The channel closes with ctx.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	msgs, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("feed.Subscribe: %w", err)
	}
	return msgs, nil
}

// Close closes the bus and every subscription.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Decode reads the change carried by msg.
func Decode(msg *message.Message) (model.ScoreChange, error) {
	var change model.ScoreChange
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		return model.ScoreChange{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if change.ID == "" {
		change.ID = msg.UUID
	}
	if change.Kind == "" {
		change.Kind = model.ChangeKind(msg.Metadata.Get(metadataKind))
	}
	return change, nil
}
