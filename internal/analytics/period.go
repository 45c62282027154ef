package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DatedPnL is a P&L amount attributed to a point in time.
type DatedPnL struct {
	Time time.Time
	PnL  decimal.Decimal
}

// DayKey identifies a calendar day.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

func (k DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

// WeekKey identifies an ISO 8601 week.
type WeekKey struct {
	Year int
	Week int
}

func (k WeekKey) String() string {
	return fmt.Sprintf("%04d-W%02d", k.Year, k.Week)
}

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// PeriodPnL is one bucket of a sorted period view.
type PeriodPnL struct {
	Label string
	Start time.Time // First instant of the bucket, UTC
	PnL   decimal.Decimal
}

func dayKey(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

func weekKey(t time.Time) WeekKey {
	y, w := t.ISOWeek()
	return WeekKey{Year: y, Week: w}
}

func monthKey(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// CalculateDailyPnL sums P&L per calendar day. Days without entries are absent.
func CalculateDailyPnL(entries []DatedPnL) map[DayKey]decimal.Decimal {
	return bucket(entries, dayKey)
}

// CalculateWeeklyPnL sums P&L per ISO week.
func CalculateWeeklyPnL(entries []DatedPnL) map[WeekKey]decimal.Decimal {
	return bucket(entries, weekKey)
}

// CalculateMonthlyPnL sums P&L per calendar month.
func CalculateMonthlyPnL(entries []DatedPnL) map[MonthKey]decimal.Decimal {
	return bucket(entries, monthKey)
}

// CalculateYearlyPnL sums P&L per calendar year.
func CalculateYearlyPnL(entries []DatedPnL) map[int]decimal.Decimal {
	return bucket(entries, func(t time.Time) int { return t.Year() })
}

func bucket[K comparable](entries []DatedPnL, keyOf func(time.Time) K) map[K]decimal.Decimal {
	out := make(map[K]decimal.Decimal)
	for _, e := range entries {
		k := keyOf(e.Time)
		out[k] = out[k].Add(e.PnL)
	}
	return out
}

// RealizedEntries converts closed results into dated entries keyed on exit date.
func RealizedEntries(results []PositionPnL) []DatedPnL {
	entries := make([]DatedPnL, 0, len(results))
	for _, r := range results {
		if !r.RealizedPnL.Valid || r.ExitDate.IsZero() {
			continue
		}
		entries = append(entries, DatedPnL{Time: r.ExitDate, PnL: r.RealizedPnL.Decimal})
	}
	return entries
}

// SortedDaily returns daily buckets in chronological order.
func SortedDaily(entries []DatedPnL) []PeriodPnL {
	daily := CalculateDailyPnL(entries)
	out := make([]PeriodPnL, 0, len(daily))
	for k, v := range daily {
		out = append(out, PeriodPnL{Label: k.String(), Start: time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC), PnL: v})
	}
	return sortPeriods(out)
}

// SortedWeekly returns ISO week buckets in chronological order. Start is the
// Monday of the week.
func SortedWeekly(entries []DatedPnL) []PeriodPnL {
	weekly := CalculateWeeklyPnL(entries)
	out := make([]PeriodPnL, 0, len(weekly))
	for k, v := range weekly {
		out = append(out, PeriodPnL{Label: k.String(), Start: isoWeekStart(k), PnL: v})
	}
	return sortPeriods(out)
}

// SortedMonthly returns monthly buckets in chronological order.
func SortedMonthly(entries []DatedPnL) []PeriodPnL {
	monthly := CalculateMonthlyPnL(entries)
	out := make([]PeriodPnL, 0, len(monthly))
	for k, v := range monthly {
		out = append(out, PeriodPnL{Label: k.String(), Start: time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC), PnL: v})
	}
	return sortPeriods(out)
}

// SortedYearly returns yearly buckets in chronological order.
func SortedYearly(entries []DatedPnL) []PeriodPnL {
	yearly := CalculateYearlyPnL(entries)
	out := make([]PeriodPnL, 0, len(yearly))
	for y, v := range yearly {
		out = append(out, PeriodPnL{Label: fmt.Sprintf("%04d", y), Start: time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), PnL: v})
	}
	return sortPeriods(out)
}

func sortPeriods(periods []PeriodPnL) []PeriodPnL {
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Start.Before(periods[j].Start)
	})
	return periods
}

// isoWeekStart returns the Monday of the given ISO week. January 4th always
// falls in week 1.
func isoWeekStart(k WeekKey) time.Time {
	jan4 := time.Date(k.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := int(jan4.Weekday()+6) % 7
	return jan4.AddDate(0, 0, -offset+(k.Week-1)*7)
}
