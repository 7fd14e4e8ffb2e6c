package loadcheck_test

import (
	"context"
	"errors"
	"math"
	"net/http/httptest"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/http/api"
	"github.com/okian/tally/internal/adapters/repository"
	service "github.com/okian/tally/internal/app"
	"github.com/okian/tally/internal/domain/fixture"
	"github.com/okian/tally/internal/domain/submission"
	"github.com/okian/tally/internal/domain/types"
	"github.com/okian/tally/internal/loadcheck"
	"github.com/okian/tally/pkg/logger"
)

const secret = "loadcheck-secret"

var regionFixture = filepath.Join("..", "domain", "fixture", "testdata", "region.yaml")

func regionSeed() (repository.Seed, []string) {
	f, err := fixture.Load(regionFixture)
	if err != nil {
		panic(err)
	}
	seed, err := f.Seed()
	if err != nil {
		panic(err)
	}
	return seed, f.Districts
}

func TestPlan(t *testing.T) {
	Convey("Given the region fixture", t, func() {
		seed, _ := regionSeed()

		Convey("When planning for the fixture judges", func() {
			plan, err := loadcheck.NewPlan(seed, secret, 7)
			So(err, ShouldBeNil)

			Convey("Then every judge scores every participant of the unlocked event once", func() {
				So(plan.Submissions, ShouldHaveLength, 6)
				pairs := make(map[string]bool)
				for _, s := range plan.Submissions {
					So(s.EventID, ShouldEqual, "quiz-a")
					So(s.Token, ShouldNotBeEmpty)
					key := s.JudgeID + "/" + s.ParticipantID
					So(pairs[key], ShouldBeFalse)
					pairs[key] = true
					for _, v := range s.Entries {
						So(v, ShouldEqual, math.Trunc(v))
						So(v, ShouldBeGreaterThanOrEqualTo, 0)
					}
				}
				So(pairs, ShouldContainKey, "j1/p1")
				So(pairs, ShouldContainKey, "j4/p2")
				So(pairs, ShouldNotContainKey, "j2/p3")
			})

			Convey("Then resubmissions cover the requested share of distinct pairs", func() {
				again := plan.Resubmissions(0.5)
				So(again, ShouldHaveLength, 3)
				seen := make(map[string]bool)
				for _, s := range again {
					key := s.JudgeID + "/" + s.ParticipantID
					So(seen[key], ShouldBeFalse)
					seen[key] = true
				}
				So(plan.Resubmissions(0), ShouldBeEmpty)
			})
		})

		Convey("When every event is locked", func() {
			for i := range seed.Events {
				seed.Events[i].Locked = true
			}
			_, err := loadcheck.NewPlan(seed, secret, 1)
			So(errors.Is(err, loadcheck.ErrNoWork), ShouldBeTrue)
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a ledger over the region seed", t, func() {
		seed, districts := regionSeed()
		ledger := loadcheck.NewLedger(seed)
		plan, err := loadcheck.NewPlan(seed, secret, 3)
		So(err, ShouldBeNil)
		s := plan.Submissions[0]
		s.Entries = map[string]float64{"R1": 2, "R2": 1}
		s.Deduction = 0
		ledger.Record(s, submission.Result{})

		Convey("Then the recorded total is computed locally", func() {
			var total float64
			for _, sc := range ledger.Scores() {
				if sc.JudgeID == s.JudgeID && sc.ParticipantID == s.ParticipantID {
					total = sc.Total
				}
			}
			So(total, ShouldEqual, 4)
		})

		Convey("When a published ranking disagrees", func() {
			got := types.EventRanking{EventID: "quiz-a", EventName: "Quiz A", Kind: "QUIZ"}
			diffs := loadcheck.VerifyRanking(seed, ledger.Scores(), got)
			So(diffs, ShouldNotBeEmpty)
		})

		Convey("When the standings disagree", func() {
			diffs := loadcheck.VerifyStandings(seed, ledger.Scores(), districts, types.Standings{})
			So(diffs, ShouldNotBeEmpty)
		})

		Convey("When the event is not in the fixture", func() {
			diffs := loadcheck.VerifyRanking(seed, ledger.Scores(), types.EventRanking{EventID: "ghost"})
			So(diffs, ShouldHaveLength, 1)
		})
	})
}

func TestRunAgainstService(t *testing.T) {
	Convey("Given a service seeded from the region fixture", t, func() {
		ctx := context.Background()
		seed, districts := regionSeed()
		store := repository.NewMemoryStore()
		So(store.Seed(ctx, seed), ShouldBeNil)

		svc := service.New(
			service.WithStore(store),
			service.WithLogger(logger.Nop()),
			service.WithDistricts(districts),
			service.WithJWTSecret(secret),
		)
		So(svc.Start(ctx), ShouldBeNil)
		srv := httptest.NewServer(api.NewServer(svc, svc).Handler(ctx))
		Reset(func() {
			srv.Close()
			svc.Stop()
		})

		Convey("When the load check runs", func() {
			stats, err := loadcheck.Run(ctx, &loadcheck.Config{
				BaseURL:   srv.URL,
				SeedFile:  regionFixture,
				JWTSecret: secret,
				Workers:   4,
				Rate:      500,
				Burst:     10,
				Resubmit:  0.5,
				RandSeed:  11,
			}, logger.Nop())

			Convey("Then every submission lands and the results agree", func() {
				So(err, ShouldBeNil)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Submitted, ShouldEqual, stats.Planned+stats.Resubmitted)
				So(stats.Replaced, ShouldBeGreaterThanOrEqualTo, stats.Resubmitted)
				So(stats.Events, ShouldEqual, 2)
				So(stats.Mismatches, ShouldEqual, 0)
			})
		})

		Convey("When the secret is wrong", func() {
			stats, err := loadcheck.Run(ctx, &loadcheck.Config{
				BaseURL:   srv.URL,
				SeedFile:  regionFixture,
				JWTSecret: "wrong",
			}, logger.Nop())

			Convey("Then every submission fails and verification still holds", func() {
				So(err, ShouldBeNil)
				So(stats.Failed, ShouldEqual, stats.Submitted)
			})
		})
	})
}
