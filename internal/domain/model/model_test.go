package model_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	model "github.com/okian/tally/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestEventFields(t *testing.T) {
	convey.Convey("Given a judged event", t, func() {
		e := model.NewJudgedEvent("e1", "Dance",
			model.Criterion{ID: "c1", Name: "Technique", Weight: 60},
			model.Criterion{ID: "c2", Name: "Style", Weight: 40},
		)

		convey.Convey("Then criteria are the active fields clamped to their weight", func() {
			convey.So(e.Kind(), convey.ShouldEqual, model.KindJudged)
			active := e.ActiveFields()
			convey.So(active, convey.ShouldHaveLength, 2)
			convey.So(active[0], convey.ShouldResemble, model.ActiveField{ID: "c1", Max: 60, Multiplier: 1})
			convey.So(e.Rounds(), convey.ShouldBeNil)
			convey.So(e.Criteria(), convey.ShouldHaveLength, 2)
		})
	})

	convey.Convey("Given a quiz event", t, func() {
		e := model.NewQuizEvent("q1", "Quiz A",
			model.Round{ID: "r1", Name: "R1", Points: 1},
			model.Round{ID: "r2", Name: "R2", Points: 2, IsTieBreaker: true},
		)

		convey.Convey("Then rounds are open-ended and weighted by points", func() {
			convey.So(e.Kind(), convey.ShouldEqual, model.KindQuiz)
			active := e.ActiveFields()
			convey.So(active[1].Multiplier, convey.ShouldEqual, 2)
			convey.So(math.IsInf(active[1].Max, 1), convey.ShouldBeTrue)
			convey.So(e.Criteria(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given an event without a field set", t, func() {
		e := model.Event{ID: "x", Name: "Broken"}

		convey.Convey("Then it has no kind and no active fields", func() {
			convey.So(e.Kind(), convey.ShouldEqual, model.Kind(""))
			convey.So(e.ActiveFields(), convey.ShouldBeNil)
		})
	})
}

func TestValidation(t *testing.T) {
	convey.Convey("Given record validation", t, func() {
		convey.Convey("When an event is well formed", func() {
			e := model.NewJudgedEvent("e1", "Dance", model.Criterion{ID: "c1", Name: "Technique", Weight: 100})
			convey.So(model.ValidateEvent(e), convey.ShouldBeNil)
		})

		convey.Convey("When an event has no field set", func() {
			err := model.ValidateEvent(model.Event{ID: "e1", Name: "Dance"})
			convey.So(errors.Is(err, model.ErrInvalidRecord), convey.ShouldBeTrue)
		})

		convey.Convey("When a criterion has a negative weight", func() {
			e := model.NewJudgedEvent("e1", "Dance", model.Criterion{ID: "c1", Name: "Technique", Weight: -5})
			convey.So(model.ValidateEvent(e), convey.ShouldNotBeNil)
		})

		convey.Convey("When rounds share an id", func() {
			e := model.NewQuizEvent("q1", "Quiz",
				model.Round{ID: "r1", Name: "One", Points: 1},
				model.Round{ID: "r1", Name: "Again", Points: 2},
			)
			err := model.ValidateEvent(e)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "duplicate field")
		})

		convey.Convey("When a score has a negative deduction", func() {
			s := model.Score{ID: "s1", JudgeID: "j1", ParticipantID: "p1", EventID: "e1", Deduction: -1}
			convey.So(model.ValidateScore(s), convey.ShouldNotBeNil)
		})

		convey.Convey("When a score total is not finite", func() {
			s := model.Score{ID: "s1", JudgeID: "j1", ParticipantID: "p1", EventID: "e1", Total: math.Inf(1)}
			convey.So(model.ValidateScore(s), convey.ShouldNotBeNil)
			s.Total = 1
			s.Entries = map[string]float64{"R1": math.Inf(1)}
			convey.So(model.ValidateScore(s), convey.ShouldNotBeNil)
		})

		convey.Convey("When a score is complete", func() {
			s := model.Score{ID: "s1", JudgeID: "j1", ParticipantID: "p1", EventID: "e1", Total: 11}
			convey.So(model.ValidateScore(s), convey.ShouldBeNil)
		})

		convey.Convey("When a user has an unknown role", func() {
			convey.So(model.ValidateUser(model.User{ID: "u1", Role: "OWNER"}), convey.ShouldNotBeNil)
			convey.So(model.ValidateUser(model.User{ID: "u1", Role: model.RoleJudge}), convey.ShouldBeNil)
		})

		convey.Convey("When a participant has no event", func() {
			convey.So(model.ValidateParticipant(model.Participant{ID: "p1", Name: "Ann"}), convey.ShouldNotBeNil)
		})

		convey.Convey("When a setting has no key", func() {
			convey.So(model.ValidateSetting(model.Setting{Value: "true"}), convey.ShouldNotBeNil)
		})

		convey.Convey("When a change has an unknown kind", func() {
			c := model.ScoreChange{
				ID:    "ch1",
				Kind:  "removed",
				Score: model.Score{ID: "s1", JudgeID: "j1", ParticipantID: "p1", EventID: "e1"},
			}
			convey.So(model.ValidateChange(c), convey.ShouldNotBeNil)
			c.Kind = model.ChangeUpdated
			convey.So(model.ValidateChange(c), convey.ShouldBeNil)
		})
	})
}

func TestEventJSON(t *testing.T) {
	convey.Convey("Given a locked quiz event", t, func() {
		e := model.NewQuizEvent("q1", "Quiz", model.Round{ID: "R1", Name: "Round 1", Points: 2, IsTieBreaker: true})
		e.Locked = true
		e.AdminID = "a1"

		convey.Convey("When it is encoded", func() {
			data, err := json.Marshal(e)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then it uses the record shape with an empty criteria list", func() {
				convey.So(string(data), convey.ShouldEqual,
					`{"id":"q1","name":"Quiz","type":"QUIZ","criteria":[],"rounds":[{"id":"R1","name":"Round 1","points":2,"isTieBreaker":true}],"isLocked":true,"eventAdminId":"a1"}`)
			})

			convey.Convey("Then it decodes back to the same variant", func() {
				var back model.Event
				convey.So(json.Unmarshal(data, &back), convey.ShouldBeNil)
				convey.So(back, convey.ShouldResemble, e)
			})
		})

		convey.Convey("Then only the field set named by type is kept", func() {
			var back model.Event
			err := json.Unmarshal([]byte(`{"id":"d1","name":"D","type":"JUDGED","criteria":[{"id":"C1","name":"C","weight":10}],"rounds":[{"id":"R1","name":"R","points":1}]}`), &back)
			convey.So(err, convey.ShouldBeNil)
			convey.So(back.Rounds(), convey.ShouldBeNil)
			convey.So(back.Criteria(), convey.ShouldHaveLength, 1)
		})

		convey.Convey("Then an unknown type is rejected", func() {
			var back model.Event
			err := json.Unmarshal([]byte(`{"id":"x","type":"RACE"}`), &back)
			convey.So(errors.Is(err, model.ErrInvalidRecord), convey.ShouldBeTrue)
		})
	})
}
