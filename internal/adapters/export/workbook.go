// Package export writes standings and event rankings to an Excel workbook.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/okian/tally/internal/domain/types"
)

// StandingsSheet is the name of the first sheet.
const StandingsSheet = "Standings"

const maxSheetName = 31

// Workbook builds a workbook with the standings sheet followed by one sheet
// per event ranking. The caller closes the returned file.
func Workbook(st types.Standings, rankings []types.EventRanking) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), StandingsSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("export.Workbook: %w", err)
	}
	if err := writeStandings(f, st); err != nil {
		_ = f.Close()
		return nil, err
	}

	used := map[string]bool{strings.ToLower(StandingsSheet): true}
	for _, r := range rankings {
		name := sheetName(r.EventName, r.EventID, used)
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("export.Workbook sheet %q: %w", name, err)
		}
		if err := writeRanking(f, name, r); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write builds the workbook and writes it to w.
func Write(w io.Writer, st types.Standings, rankings []types.EventRanking) error {
	f, err := Workbook(st, rankings)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export.Write: %w", err)
	}
	return nil
}

func writeStandings(f *excelize.File, st types.Standings) error {
	header := []any{"Position", "District"}
	for _, e := range st.Events {
		header = append(header, e.Name)
	}
	header = append(header, "Mean Rank")
	if err := f.SetSheetRow(StandingsSheet, "A1", &header); err != nil {
		return fmt.Errorf("export.Workbook: %w", err)
	}
	for i, row := range st.Rows {
		values := []any{row.Position, row.District}
		for _, e := range st.Events {
			values = append(values, row.EventRanks[e.ID])
		}
		values = append(values, row.MeanRank)
		if err := setRow(f, StandingsSheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func writeRanking(f *excelize.File, sheet string, r types.EventRanking) error {
	header := []any{"Position", "Participant", "District", "Aggregate", "Tie-break Value", "Decided by Tie-break", "Scores"}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, row := range r.Rows {
		values := []any{row.Position, row.Name, row.District, row.Aggregate, row.TieBreakValue, row.TieBreakFlag, row.ScoreCount}
		if err := setRow(f, sheet, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("export.Workbook: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("export.Workbook sheet %q row %d: %w", sheet, row, err)
	}
	return nil
}

// sheetName derives a unique, valid sheet name from an event name.
func sheetName(name, id string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	clean = strings.Trim(clean, "'")
	if clean == "" {
		clean = id
	}
	clean = truncate(clean, maxSheetName)
	candidate := clean
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		candidate = truncate(clean, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
