// Package storetest holds the behaviour every repository.Store must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Fixture returns a small seed with a quiz event, a judged event, a locked
// event, participants, profiles and a setting.
func Fixture() repository.Seed {
	locked := model.NewJudgedEvent("locked", "Locked Dance", model.Criterion{ID: "c1", Name: "Tech", Weight: 100})
	locked.Locked = true
	return repository.Seed{
		Events: []model.Event{
			model.NewQuizEvent("quiz-a", "Quiz A",
				model.Round{ID: "R1", Name: "Round 1", Points: 1},
				model.Round{ID: "R2", Name: "Round 2", Points: 2, IsTieBreaker: true},
			),
			model.NewJudgedEvent("dance", "Dance",
				model.Criterion{ID: "C1", Name: "Technique", Weight: 60, Description: "footwork"},
				model.Criterion{ID: "C2", Name: "Style", Weight: 40},
			),
			locked,
		},
		Participants: []model.Participant{
			{ID: "p1", Name: "Ann", District: "North", EventID: "quiz-a"},
			{ID: "p2", Name: "Bob", District: "South", EventID: "dance"},
			{ID: "p3", Name: "Cid", District: "East", EventID: "locked"},
		},
		Profiles: []model.User{
			{ID: "j1", Name: "Judge One", Role: model.RoleJudge, AssignedEventID: "quiz-a"},
			{ID: "admin", Name: "Admin", Role: model.RoleSuperAdmin},
		},
		Settings: []model.Setting{{Key: model.SettingAllowAdminSignup, Value: "false"}},
	}
}

// Run exercises a store built by newStore. Each call must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Helper()
	ctx := context.Background()

	Convey("Given a seeded store", t, func() {
		s := newStore(t)
		Reset(func() { _ = s.Close() })
		So(s.Seed(ctx, Fixture()), ShouldBeNil)

		Convey("Then every collection reads back in seed order", func() {
			events, err := s.ListEvents(ctx)
			So(err, ShouldBeNil)
			So(events, ShouldHaveLength, 3)
			So(events[0].ID, ShouldEqual, "quiz-a")
			So(events[0].Kind(), ShouldEqual, model.KindQuiz)
			So(events[0].Rounds()[1].IsTieBreaker, ShouldBeTrue)
			So(events[1].Criteria()[0].Description, ShouldEqual, "footwork")
			So(events[2].Locked, ShouldBeTrue)

			parts, err := s.ListParticipants(ctx)
			So(err, ShouldBeNil)
			So(parts, ShouldHaveLength, 3)

			profiles, err := s.ListProfiles(ctx)
			So(err, ShouldBeNil)
			So(profiles, ShouldHaveLength, 2)

			settings, err := s.ListSettings(ctx)
			So(err, ShouldBeNil)
			So(settings, ShouldResemble, []model.Setting{{Key: model.SettingAllowAdminSignup, Value: "false"}})

			u, err := s.GetProfile(ctx, "j1")
			So(err, ShouldBeNil)
			So(u.AssignedEventID, ShouldEqual, "quiz-a")
		})

		Convey("When a record is missing", func() {
			_, err := s.GetEvent(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.GetParticipant(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.GetProfile(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			_, err = s.FindScore(ctx, "j1", "p1")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a judge scores the same participant twice", func() {
			first, err := s.UpsertScore(ctx, model.Score{
				ID: "s-first", JudgeID: "j1", ParticipantID: "p1", EventID: "quiz-a",
				Entries: map[string]float64{"R1": 5, "R2": 3}, Total: 11,
			})
			So(err, ShouldBeNil)
			second, err := s.UpsertScore(ctx, model.Score{
				ID: "s-second", JudgeID: "j1", ParticipantID: "p1", EventID: "quiz-a",
				Entries: map[string]float64{"R1": 5, "R2": 3}, Deduction: 2, Total: 9, Critique: "late",
			})
			So(err, ShouldBeNil)

			Convey("Then the second write replaces the first in place", func() {
				So(first.Kind, ShouldEqual, model.ChangeInserted)
				So(second.Kind, ShouldEqual, model.ChangeUpdated)
				So(second.Score.ID, ShouldEqual, "s-first")
				So(first.ID, ShouldNotEqual, second.ID)

				scores, err := s.ListScores(ctx)
				So(err, ShouldBeNil)
				So(scores, ShouldHaveLength, 1)
				So(scores[0].Total, ShouldEqual, 9)
				So(scores[0].Deduction, ShouldEqual, 2)
				So(scores[0].Critique, ShouldEqual, "late")
				So(scores[0].Entries, ShouldResemble, map[string]float64{"R1": 5, "R2": 3})

				found, err := s.FindScore(ctx, "j1", "p1")
				So(err, ShouldBeNil)
				So(found.ID, ShouldEqual, "s-first")

				got, err := s.GetScore(ctx, "s-first")
				So(err, ShouldBeNil)
				So(got.Total, ShouldEqual, 9)
			})
		})

		Convey("When the event is locked", func() {
			_, err := s.UpsertScore(ctx, model.Score{
				ID: "s1", JudgeID: "j1", ParticipantID: "p3", EventID: "locked", Total: 10,
			})

			Convey("Then nothing is written", func() {
				So(errors.Is(err, repository.ErrEventLocked), ShouldBeTrue)
				scores, _ := s.ListScores(ctx)
				So(scores, ShouldBeEmpty)
			})
		})

		Convey("When an event is locked after a score was written", func() {
			_, err := s.UpsertScore(ctx, model.Score{ID: "s1", JudgeID: "j1", ParticipantID: "p2", EventID: "dance", Total: 10})
			So(err, ShouldBeNil)
			So(s.SetEventLocked(ctx, "dance", true), ShouldBeNil)

			_, err = s.UpsertScore(ctx, model.Score{ID: "s2", JudgeID: "j1", ParticipantID: "p2", EventID: "dance", Total: 20})

			Convey("Then the replacement is rejected and the old score stays", func() {
				So(errors.Is(err, repository.ErrEventLocked), ShouldBeTrue)
				got, err := s.GetScore(ctx, "s1")
				So(err, ShouldBeNil)
				So(got.Total, ShouldEqual, 10)
			})

			Convey("And unlocking allows writes again", func() {
				So(s.SetEventLocked(ctx, "dance", false), ShouldBeNil)
				_, err := s.UpsertScore(ctx, model.Score{ID: "s2", JudgeID: "j1", ParticipantID: "p2", EventID: "dance", Total: 20})
				So(err, ShouldBeNil)
			})
		})

		Convey("When a score id is reused for another pair", func() {
			_, err := s.UpsertScore(ctx, model.Score{ID: "dup", JudgeID: "j1", ParticipantID: "p1", EventID: "quiz-a", Total: 1})
			So(err, ShouldBeNil)
			_, err = s.UpsertScore(ctx, model.Score{ID: "dup", JudgeID: "j2", ParticipantID: "p1", EventID: "quiz-a", Total: 1})
			So(errors.Is(err, repository.ErrDuplicateScore), ShouldBeTrue)
		})

		Convey("When the event is unknown", func() {
			_, err := s.UpsertScore(ctx, model.Score{ID: "x", JudgeID: "j1", ParticipantID: "p1", EventID: "ghost", Total: 1})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When many writers race on one pair", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 16)
			kinds := make(chan model.ChangeKind, 16)
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					change, err := s.UpsertScore(ctx, model.Score{
						ID: fmt.Sprintf("race-%d", i), JudgeID: "j1", ParticipantID: "p2", EventID: "dance", Total: float64(i),
					})
					errs <- err
					if err == nil {
						kinds <- change.Kind
					}
				}(i)
			}
			wg.Wait()
			close(errs)
			close(kinds)

			Convey("Then exactly one score exists for the pair", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				scores, err := s.ListScores(ctx)
				So(err, ShouldBeNil)
				So(scores, ShouldHaveLength, 1)
			})

			Convey("Then exactly one write reports an insert", func() {
				inserted := 0
				for k := range kinds {
					if k == model.ChangeInserted {
						inserted++
					}
				}
				So(inserted, ShouldEqual, 1)
			})
		})

		Convey("When a seed contains a malformed record", func() {
			bad := repository.Seed{Events: []model.Event{{ID: "broken", Name: "No fields"}}}
			err := s.Seed(ctx, bad)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)
				_, err := s.GetEvent(ctx, "broken")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
