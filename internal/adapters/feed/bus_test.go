package feed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/okian/tally/internal/adapters/feed"
	"github.com/okian/tally/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBus(t *testing.T) {
	Convey("Given a bus with a subscriber", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		bus := feed.NewBus(feed.WithBufferSize(4))
		msgs, err := bus.Subscribe(ctx)
		So(err, ShouldBeNil)
		Reset(func() {
			cancel()
			_ = bus.Close()
		})

		Convey("When a change is published", func() {
			change := model.ScoreChange{
				ID:   "change-1",
				Kind: model.ChangeUpdated,
				Score: model.Score{
					ID: "s1", JudgeID: "j1", ParticipantID: "p1", EventID: "quiz-a",
					Entries: map[string]float64{"R1": 5, "R2": 3}, Deduction: 2, Total: 9,
				},
			}
			So(bus.Publish(ctx, change), ShouldBeNil)

			Convey("Then the subscriber receives it keyed by the change id", func() {
				var msg *message.Message
				select {
				case msg = <-msgs:
				case <-time.After(2 * time.Second):
				}
				So(msg, ShouldNotBeNil)
				msg.Ack()
				So(msg.UUID, ShouldEqual, "change-1")

				got, err := feed.Decode(msg)
				So(err, ShouldBeNil)
				So(got, ShouldResemble, change)
			})
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("Given raw messages", t, func() {
		Convey("When the payload is not json", func() {
			_, err := feed.Decode(message.NewMessage("x", []byte("{")))
			So(errors.Is(err, feed.ErrDecode), ShouldBeTrue)
		})

		Convey("When the payload omits the id and kind", func() {
			msg := message.NewMessage("change-9", []byte(`{"newRecord":{"id":"s1"}}`))
			msg.Metadata.Set("kind", "inserted")
			got, err := feed.Decode(msg)

			Convey("Then they are taken from the envelope", func() {
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "change-9")
				So(got.Kind, ShouldEqual, model.ChangeInserted)
				So(got.Score.ID, ShouldEqual, "s1")
			})
		})
	})
}
