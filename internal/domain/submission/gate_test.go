package submission_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/adapters/repository/storetest"
	"github.com/okian/tally/internal/domain/dataset"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/submission"
)

type recorder struct {
	mu      sync.Mutex
	changes []model.ScoreChange
	err     error
}

func (r *recorder) Publish(_ context.Context, c model.ScoreChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return r.err
}

// lockingStore locks the event right after the gate has read it.
type lockingStore struct {
	*repository.MemoryStore
}

func (s lockingStore) GetEvent(ctx context.Context, id string) (model.Event, error) {
	e, err := s.MemoryStore.GetEvent(ctx, id)
	if err == nil {
		err = s.SetEventLocked(ctx, id, true)
	}
	return e, err
}

func newFixture() (*repository.MemoryStore, *dataset.Dataset) {
	store := repository.NewMemoryStore()
	if err := store.Seed(context.Background(), storetest.Fixture()); err != nil {
		panic(err)
	}
	return store, dataset.New()
}

func TestSubmit(t *testing.T) {
	Convey("Given a gate over a seeded store", t, func() {
		ctx := context.Background()
		store, view := newFixture()
		pub := &recorder{}
		gate := submission.NewGate(store, view, submission.WithPublisher(pub))

		quiz := submission.Request{
			JudgeID: "j1", ParticipantID: "p1", EventID: "quiz-a",
			Entries: map[string]float64{"R1": 5, "R2": 3},
		}

		Convey("When a judge scores a quiz participant", func() {
			res, err := gate.Submit(ctx, quiz)

			Convey("Then rounds are weighted by their points", func() {
				So(err, ShouldBeNil)
				So(res.Score.Total, ShouldEqual, 11)
				So(res.Replaced, ShouldBeFalse)
				So(res.Score.ID, ShouldNotBeEmpty)
			})

			Convey("Then the local view and the feed see the score", func() {
				So(view.ScoresByEvent("quiz-a"), ShouldHaveLength, 1)
				So(pub.changes, ShouldHaveLength, 1)
				So(pub.changes[0].Kind, ShouldEqual, model.ChangeInserted)
			})

			Convey("When the judge resubmits with a deduction", func() {
				quiz.Deduction = 2
				again, err := gate.Submit(ctx, quiz)

				Convey("Then the score is replaced in place", func() {
					So(err, ShouldBeNil)
					So(again.Score.Total, ShouldEqual, 9)
					So(again.Replaced, ShouldBeTrue)
					So(again.Score.ID, ShouldEqual, res.Score.ID)

					stored, err := store.ListScores(ctx)
					So(err, ShouldBeNil)
					So(stored, ShouldHaveLength, 1)
					So(view.ScoresByEvent("quiz-a"), ShouldHaveLength, 1)
					So(view.ScoresByEvent("quiz-a")[0].Total, ShouldEqual, 9)
				})
			})
		})

		Convey("When a judged entry exceeds its weight", func() {
			res, err := gate.Submit(ctx, submission.Request{
				JudgeID: "j1", ParticipantID: "p2", EventID: "dance",
				Entries: map[string]float64{"C1": 70, "C2": 20, "old": 50},
			})

			Convey("Then it is clamped and stale keys are dropped", func() {
				So(err, ShouldBeNil)
				So(res.Score.Total, ShouldEqual, 80)
				So(res.Score.Entries, ShouldResemble, map[string]float64{"C1": 60, "C2": 20})
			})
		})

		Convey("When the event is locked", func() {
			_, err := gate.Submit(ctx, submission.Request{JudgeID: "j1", ParticipantID: "p3", EventID: "locked"})

			Convey("Then nothing is written", func() {
				So(errors.Is(err, submission.ErrLockedEvent), ShouldBeTrue)
				stored, _ := store.ListScores(ctx)
				So(stored, ShouldBeEmpty)
				So(view.Scores(), ShouldBeEmpty)
				So(pub.changes, ShouldBeEmpty)
			})
		})

		Convey("When the event is locked after the gate read it", func() {
			racing := submission.NewGate(lockingStore{store}, view)
			_, err := racing.Submit(ctx, quiz)

			Convey("Then the store rejects the write as locked", func() {
				So(errors.Is(err, submission.ErrLockedEvent), ShouldBeTrue)
				So(errors.Is(err, repository.ErrEventLocked), ShouldBeTrue)
				So(view.Scores(), ShouldBeEmpty)
			})
		})

		Convey("When the request is invalid", func() {
			cases := []submission.Request{
				{JudgeID: "j1", ParticipantID: "p1", EventID: "quiz-a", Deduction: -1},
				{JudgeID: "j1", ParticipantID: "p2", EventID: "quiz-a"},
				{JudgeID: "j1", ParticipantID: "ghost", EventID: "quiz-a"},
				{ParticipantID: "p1", EventID: "quiz-a"},
			}
			for _, req := range cases {
				_, err := gate.Submit(ctx, req)
				So(errors.Is(err, submission.ErrValidation), ShouldBeTrue)
			}
			So(view.Scores(), ShouldBeEmpty)
		})

		Convey("When a quiz count overflows the weighted total", func() {
			_, err := gate.Submit(ctx, submission.Request{
				JudgeID: "j1", ParticipantID: "p1", EventID: "quiz-a",
				Entries: map[string]float64{"R2": 1e308},
			})

			Convey("Then the submission is rejected before any write", func() {
				So(errors.Is(err, submission.ErrValidation), ShouldBeTrue)
				stored, _ := store.ListScores(ctx)
				So(stored, ShouldBeEmpty)
				So(view.Scores(), ShouldBeEmpty)
				So(pub.changes, ShouldBeEmpty)
			})
		})

		Convey("When the event does not exist", func() {
			_, err := gate.Submit(ctx, submission.Request{JudgeID: "j1", ParticipantID: "p1", EventID: "nope"})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When publishing fails", func() {
			pub.err = errors.New("bus closed")
			res, err := gate.Submit(ctx, quiz)

			Convey("Then the write still succeeds", func() {
				So(err, ShouldBeNil)
				So(view.ScoresByEvent("quiz-a"), ShouldHaveLength, 1)
				So(res.Score.Total, ShouldEqual, 11)
			})
		})
	})
}

func TestSubmitConcurrentPair(t *testing.T) {
	Convey("Given many simultaneous submissions for one pair", t, func() {
		ctx := context.Background()
		store, view := newFixture()
		n := 0
		var mu sync.Mutex
		gate := submission.NewGate(store, view, submission.WithScoreIDFunc(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("s-%d", n)
		}))

		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func(r float64) {
				defer wg.Done()
				_, _ = gate.Submit(ctx, submission.Request{
					JudgeID: "j1", ParticipantID: "p1", EventID: "quiz-a",
					Entries: map[string]float64{"R1": r},
				})
			}(float64(i))
		}
		wg.Wait()

		Convey("Then exactly one score exists for the pair", func() {
			stored, err := store.ListScores(ctx)
			So(err, ShouldBeNil)
			So(stored, ShouldHaveLength, 1)
			So(view.ScoresByJudge("j1"), ShouldHaveLength, 1)
			So(view.ScoresByJudge("j1")[0].ID, ShouldEqual, stored[0].ID)
		})
	})
}
