// Package report renders one month of the time bank as CSV or XLSX.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"timebank-backend/internal/balance"
	"timebank-backend/internal/dates"
	"timebank-backend/internal/domain"
)

// DayRow is one calendar day of the month.
type DayRow struct {
	Date              string
	Weekday           string
	FirstIn           string
	LastOut           string
	WorkedMinutes     int
	TargetMinutes     int
	AdjustmentMinutes int
	DiffMinutes       int
	Excused           bool
}

// Month is the assembled report. Days past today carry target zero so an
// export mid-month does not count the future as absence.
type Month struct {
	Key         string
	Rows        []DayRow
	TotalWorked int
	TotalTarget int
	TotalDiff   int
}

// BuildMonth walks every day of the month identified by key ("2006-01").
func BuildMonth(eng balance.Engine, punches []domain.Punch, adjustments []domain.Adjustment, settings domain.Settings, key string, today string) (Month, error) {
	anchor, err := time.ParseInLocation("2006-01", key, time.Local)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q", key)
	}
	start := dates.StartOfMonth(dates.Key(anchor))
	end := dates.EndOfMonth(dates.Key(anchor))

	adjByDay := make(map[string][]domain.Adjustment)
	for _, a := range adjustments {
		k := dates.Key(a.At)
		adjByDay[k] = append(adjByDay[k], a)
	}

	m := Month{Key: key}
	for _, k := range dates.Range(start, end) {
		if today != "" && k > today {
			break
		}
		dayPunches := balance.DayPunches(punches, k)
		worked := eng.WorkedMinutes(dayPunches)
		target := eng.DailyTargetMinutes(k, settings)

		row := DayRow{
			Date:          k,
			Weekday:       dates.Parse(k).Weekday().String(),
			WorkedMinutes: worked,
			TargetMinutes: target,
		}
		if len(dayPunches) > 0 {
			sorted := domain.SortPunchesAsc(dayPunches)
			row.FirstIn = sorted[0].At.Format("15:04")
			last := sorted[len(sorted)-1]
			if last.Kind == domain.PunchClockOut {
				row.LastOut = last.At.Format("15:04")
			}
		}
		for _, a := range adjByDay[k] {
			row.AdjustmentMinutes += a.SignedMinutes()
			if a.Kind == domain.AdjustmentMedicalLeave {
				row.Excused = true
			}
		}
		if row.Excused && len(dayPunches) == 0 {
			row.TargetMinutes = 0
		}
		row.DiffMinutes = row.WorkedMinutes - row.TargetMinutes + row.AdjustmentMinutes

		m.Rows = append(m.Rows, row)
		m.TotalWorked += row.WorkedMinutes
		m.TotalTarget += row.TargetMinutes
		m.TotalDiff += row.DiffMinutes
	}
	return m, nil
}

// EncodeCSV renders the month as CSV with a trailing totals row.
func EncodeCSV(m Month) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"date", "weekday", "first_in", "last_out", "worked", "target", "adjustments", "diff", "excused"})
	for _, row := range m.Rows {
		_ = w.Write([]string{
			row.Date,
			row.Weekday,
			row.FirstIn,
			row.LastOut,
			balance.FormatMinutesUnsigned(row.WorkedMinutes),
			balance.FormatMinutesUnsigned(row.TargetMinutes),
			balance.FormatMinutes(row.AdjustmentMinutes),
			balance.FormatMinutes(row.DiffMinutes),
			strconv.FormatBool(row.Excused),
		})
	}
	_ = w.Write([]string{
		"total", "", "", "",
		balance.FormatMinutesUnsigned(m.TotalWorked),
		balance.FormatMinutesUnsigned(m.TotalTarget),
		"",
		balance.FormatMinutes(m.TotalDiff),
		"",
	})
	w.Flush()
	return buf.Bytes(), w.Error()
}

// EncodeXLSX renders the month as a single-sheet workbook.
func EncodeXLSX(m Month) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "Time Bank"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	header := []string{"Date", "Weekday", "First In", "Last Out", "Worked", "Target", "Adjustments", "Diff", "Excused"}
	for c, v := range header {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for r, row := range m.Rows {
		values := []any{
			row.Date,
			row.Weekday,
			row.FirstIn,
			row.LastOut,
			balance.FormatMinutesUnsigned(row.WorkedMinutes),
			balance.FormatMinutesUnsigned(row.TargetMinutes),
			balance.FormatMinutes(row.AdjustmentMinutes),
			balance.FormatMinutes(row.DiffMinutes),
			row.Excused,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	totalRow := len(m.Rows) + 2
	totals := []any{
		"Total", "", "", "",
		balance.FormatMinutesUnsigned(m.TotalWorked),
		balance.FormatMinutesUnsigned(m.TotalTarget),
		"",
		balance.FormatMinutes(m.TotalDiff),
		"",
	}
	for c, v := range totals {
		cell, _ := excelize.CoordinatesToCellName(c+1, totalRow)
		_ = f.SetCellValue(sheet, cell, v)
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "C", "D", 10)
	_ = f.SetColWidth(sheet, "E", "H", 13)
	_ = f.SetColWidth(sheet, "I", "I", 9)

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#1F2937"}, Pattern: 1},
	})
	_ = f.SetCellStyle(sheet, "A1", "I1", style)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
