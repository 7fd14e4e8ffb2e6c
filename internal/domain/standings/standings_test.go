package standings_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/tally/internal/domain/model"
	"github.com/okian/tally/internal/domain/standings"
	"github.com/okian/tally/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func quiz(id string) model.Event {
	return model.NewQuizEvent(id, "Quiz "+id, model.Round{ID: "r1", Name: "R1", Points: 1})
}

func TestEventRanks(t *testing.T) {
	Convey("Given a 16-district roster and an event with two competing districts", t, func() {
		districts := make([]string, 16)
		for i := range districts {
			districts[i] = fmt.Sprintf("D%02d", i+1)
		}
		participants := []model.Participant{
			{ID: "p1", District: "D03", EventID: "x"},
			{ID: "p2", District: "D07", EventID: "x"},
		}
		scores := []model.Score{
			{ID: "s1", ParticipantID: "p1", EventID: "x", Total: 40},
			{ID: "s2", ParticipantID: "p2", EventID: "x", Total: 60},
		}

		ranks := standings.EventRanks(quiz("x"), participants, scores, districts)

		Convey("Then the competing districts rank 1 and 2 and the rest get rank 16", func() {
			So(ranks["D07"], ShouldEqual, 1)
			So(ranks["D03"], ShouldEqual, 2)
			sentinel := 0
			for _, d := range districts {
				if d != "D03" && d != "D07" {
					So(ranks[d], ShouldEqual, 16)
					sentinel++
				}
			}
			So(sentinel, ShouldEqual, 14)
		})
	})

	Convey("Given a district that fields several participants", t, func() {
		districts := []string{"North", "South"}
		participants := []model.Participant{
			{ID: "n1", District: "North", EventID: "x"},
			{ID: "n2", District: " north ", EventID: "x"},
			{ID: "s1", District: "South", EventID: "x"},
			{ID: "z", District: "Atlantis", EventID: "x"},
		}
		scores := []model.Score{
			{ID: "a", ParticipantID: "n1", EventID: "x", Total: 100},
			{ID: "b", ParticipantID: "n2", EventID: "x", Total: 0},
			{ID: "c", ParticipantID: "s1", EventID: "x", Total: 60},
			{ID: "d", ParticipantID: "z", EventID: "x", Total: 1000},
		}

		ranks := standings.EventRanks(quiz("x"), participants, scores, districts)

		Convey("Then the district average is over its participants and labels are folded", func() {
			So(ranks, ShouldResemble, map[string]int{"South": 1, "North": 2})
		})
	})

	Convey("Given two districts with equal averages", t, func() {
		districts := []string{"B", "A"}
		participants := []model.Participant{
			{ID: "a", District: "A", EventID: "x"},
			{ID: "b", District: "B", EventID: "x"},
		}
		scores := []model.Score{
			{ID: "1", ParticipantID: "a", EventID: "x", Total: 50},
			{ID: "2", ParticipantID: "b", EventID: "x", Total: 50},
		}

		Convey("Then roster order decides and ranks stay distinct", func() {
			So(standings.EventRanks(quiz("x"), participants, scores, districts), ShouldResemble, map[string]int{"B": 1, "A": 2})
		})
	})
}

func TestCompute(t *testing.T) {
	Convey("Given three districts over two events", t, func() {
		districts := []string{"North", "South", "East"}
		events := []model.Event{quiz("e1"), quiz("e2")}
		participants := []model.Participant{
			{ID: "n1", District: "North", EventID: "e1"},
			{ID: "s1", District: "South", EventID: "e1"},
			{ID: "s2", District: "South", EventID: "e2"},
			{ID: "e2p", District: "East", EventID: "e2"},
		}
		scores := []model.Score{
			{ID: "1", ParticipantID: "n1", EventID: "e1", Total: 90},
			{ID: "2", ParticipantID: "s1", EventID: "e1", Total: 80},
			{ID: "3", ParticipantID: "s2", EventID: "e2", Total: 80},
			{ID: "4", ParticipantID: "e2p", EventID: "e2", Total: 75},
		}

		got := standings.Compute(events, participants, scores, districts)

		Convey("Then districts are ordered by ascending mean rank with sentinels counted", func() {
			want := types.Standings{
				Events: []types.EventRef{{ID: "e1", Name: "Quiz e1"}, {ID: "e2", Name: "Quiz e2"}},
				Rows: []types.DistrictStanding{
					{Position: 1, District: "South", EventRanks: map[string]int{"e1": 2, "e2": 1}, MeanRank: 1.5},
					{Position: 2, District: "North", EventRanks: map[string]int{"e1": 1, "e2": 3}, MeanRank: 2},
					{Position: 3, District: "East", EventRanks: map[string]int{"e1": 3, "e2": 2}, MeanRank: 2.5},
				},
			}
			So(cmp.Diff(want, got), ShouldBeEmpty)
		})
	})

	Convey("Given a district that never competes", t, func() {
		districts := []string{"Ghost", "Real"}
		events := []model.Event{quiz("e1")}
		participants := []model.Participant{{ID: "r", District: "Real", EventID: "e1"}}

		got := standings.Compute(events, participants, nil, districts)

		Convey("Then it is ranked last with the sentinel mean", func() {
			So(got.Rows[0].District, ShouldEqual, "Real")
			So(got.Rows[1].MeanRank, ShouldEqual, 2)
		})
	})

	Convey("Given no events", t, func() {
		got := standings.Compute(nil, nil, nil, []string{"A", "B"})

		Convey("Then every district has mean rank 0 in roster order", func() {
			So(got.Rows, ShouldHaveLength, 2)
			So(got.Rows[0].District, ShouldEqual, "A")
			So(got.Rows[0].MeanRank, ShouldEqual, 0)
			So(got.Events, ShouldBeEmpty)
		})
	})
}
