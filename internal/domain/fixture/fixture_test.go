package fixture_test

import (
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/domain/fixture"
	"github.com/okian/tally/internal/domain/model"
)

func TestLoad(t *testing.T) {
	Convey("Given the sample region fixture", t, func() {
		f, err := fixture.Load("testdata/region.yaml")
		So(err, ShouldBeNil)

		Convey("When it is converted to a seed", func() {
			seed, err := f.Seed()
			So(err, ShouldBeNil)

			Convey("Then events keep their variant and lock flag", func() {
				So(seed.Events, ShouldHaveLength, 2)
				So(seed.Events[0].Kind(), ShouldEqual, model.KindQuiz)
				So(seed.Events[0].Rounds()[1].IsTieBreaker, ShouldBeTrue)
				So(seed.Events[0].AdminID, ShouldEqual, "a1")
				So(seed.Events[1].Kind(), ShouldEqual, model.KindJudged)
				So(seed.Events[1].Locked, ShouldBeTrue)
			})

			Convey("Then records are mapped", func() {
				So(f.Districts, ShouldResemble, []string{"North", "South", "East", "West"})
				So(seed.Participants, ShouldHaveLength, 3)
				So(seed.Profiles[1], ShouldResemble, model.User{ID: "j1", Name: "Judge One", Role: model.RoleJudge, AssignedEventID: "quiz-a"})
				So(seed.Settings, ShouldResemble, []model.Setting{{Key: model.SettingAllowAdminSignup, Value: "false"}})
			})

			Convey("Then score totals are computed from the active fields", func() {
				So(seed.Scores, ShouldHaveLength, 1)
				So(seed.Scores[0].EventID, ShouldEqual, "dance")
				So(seed.Scores[0].Total, ShouldEqual, 75)
				So(seed.Scores[0].Entries, ShouldResemble, map[string]float64{"C1": 60, "C2": 20})
			})
		})
	})
}

func TestParseRejects(t *testing.T) {
	Convey("Given malformed fixtures", t, func() {
		Convey("Then unknown fields are rejected", func() {
			_, err := fixture.Parse(strings.NewReader("evnts: []\n"))
			So(errors.Is(err, fixture.ErrInvalidFixture), ShouldBeTrue)
		})

		Convey("Then districts that fold to the same label are rejected", func() {
			_, err := fixture.Parse(strings.NewReader("districts: [North, north, South]\n"))
			So(errors.Is(err, fixture.ErrInvalidFixture), ShouldBeTrue)
		})

		Convey("Then an event with both field sets is rejected", func() {
			f, err := fixture.Parse(strings.NewReader(`
events:
  - id: e1
    name: Mixed
    type: QUIZ
    rounds: [{id: R1, name: R, points: 1}]
    criteria: [{id: C1, name: C, weight: 10}]
`))
			So(err, ShouldBeNil)
			_, err = f.Seed()
			So(errors.Is(err, fixture.ErrInvalidFixture), ShouldBeTrue)
		})

		Convey("Then an unknown event type is rejected", func() {
			f, err := fixture.Parse(strings.NewReader("events:\n  - {id: e1, name: E, type: RACE}\n"))
			So(err, ShouldBeNil)
			_, err = f.Seed()
			So(errors.Is(err, fixture.ErrInvalidFixture), ShouldBeTrue)
		})

		Convey("Then a score for an unknown participant is rejected", func() {
			f, err := fixture.Parse(strings.NewReader("scores:\n  - {id: s1, judge: j1, participant: ghost}\n"))
			So(err, ShouldBeNil)
			_, err = f.Seed()
			So(errors.Is(err, fixture.ErrInvalidFixture), ShouldBeTrue)
		})

		Convey("Then records failing validation are rejected", func() {
			f, err := fixture.Parse(strings.NewReader("profiles:\n  - {id: u1, name: U, role: OWNER}\n"))
			So(err, ShouldBeNil)
			_, err = f.Seed()
			So(errors.Is(err, fixture.ErrInvalidFixture), ShouldBeTrue)
			So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)
		})
	})
}
