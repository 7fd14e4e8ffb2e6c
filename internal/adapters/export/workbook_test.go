package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"github.com/okian/tally/internal/domain/types"
)

func TestWrite(t *testing.T) {
	convey.Convey("Given standings over two events with clashing names", t, func() {
		st := types.Standings{
			Events: []types.EventRef{{ID: "e1", Name: "Quiz: Final"}, {ID: "e2", Name: "Quiz- Final"}},
			Rows: []types.DistrictStanding{
				{Position: 1, District: "North", EventRanks: map[string]int{"e1": 1, "e2": 2}, MeanRank: 1.5},
				{Position: 2, District: "South", EventRanks: map[string]int{"e1": 2, "e2": 1}, MeanRank: 1.5},
			},
		}
		rankings := []types.EventRanking{
			{EventID: "e1", EventName: "Quiz: Final", Rows: []types.RankedParticipant{
				{Position: 1, Name: "Ann", District: "North", Aggregate: 11, ScoreCount: 2},
			}},
			{EventID: "e2", EventName: "Quiz- Final", Rows: []types.RankedParticipant{
				{Position: 1, Name: "Bob", District: "South", Aggregate: 85, TieBreakValue: 9},
				{Position: 2, Name: "Cid", District: "North", Aggregate: 85, TieBreakValue: 7, TieBreakFlag: true},
			}},
		}

		convey.Convey("When the workbook is written", func() {
			var buf bytes.Buffer
			convey.So(Write(&buf, st, rankings), convey.ShouldBeNil)

			f, err := excelize.OpenReader(&buf)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = f.Close() }()

			convey.Convey("Then the standings sheet comes first", func() {
				convey.So(f.GetSheetList(), convey.ShouldResemble, []string{"Standings", "Quiz- Final", "Quiz- Final (2)"})
				rows, err := f.GetRows(StandingsSheet)
				convey.So(err, convey.ShouldBeNil)
				convey.So(rows[0], convey.ShouldResemble, []string{"Position", "District", "Quiz: Final", "Quiz- Final", "Mean Rank"})
				convey.So(rows[1], convey.ShouldResemble, []string{"1", "North", "1", "2", "1.5"})
			})

			convey.Convey("Then every event has its ranking sheet", func() {
				rows, err := f.GetRows("Quiz- Final (2)")
				convey.So(err, convey.ShouldBeNil)
				convey.So(rows, convey.ShouldHaveLength, 3)
				convey.So(rows[2][1], convey.ShouldEqual, "Cid")
				convey.So(rows[2][5], convey.ShouldEqual, "TRUE")
			})
		})
	})
}

func TestSheetName(t *testing.T) {
	convey.Convey("Given event names that are not valid sheet names", t, func() {
		used := map[string]bool{"standings": true}

		convey.Convey("Then they are cleaned, shortened and made unique", func() {
			convey.So(sheetName("Standings", "e1", used), convey.ShouldEqual, "Standings (2)")
			convey.So(sheetName("  ", "e2", used), convey.ShouldEqual, "e2")
			long := sheetName(strings.Repeat("x", 40), "e3", used)
			convey.So(len(long), convey.ShouldEqual, 31)
			convey.So(len(sheetName(strings.Repeat("x", 40), "e4", used)), convey.ShouldEqual, 31)
		})
	})
}
