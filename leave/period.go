package leave

import (
	"fmt"
	"time"
)

// =============================================================================
// FINANCIAL YEAR - Reporting periods over projected rows
// =============================================================================

// DefaultFinancialYearStartMonth is July.
const DefaultFinancialYearStartMonth = 7

// FinancialYear is the twelve-month period starting on StartMonth.
// Label follows the year it ends in ("FY2025" for Jul 2024 - Jun 2025);
// a January-start year is labelled with its own calendar year.
type FinancialYear struct {
	Start Month
	End   Month
}

// FinancialYearFor returns the financial year containing m.
// startMonth outside 1..12 falls back to DefaultFinancialYearStartMonth.
func FinancialYearFor(m Month, startMonth int) FinancialYear {
	if startMonth < 1 || startMonth > 12 {
		startMonth = DefaultFinancialYearStartMonth
	}
	start := NewMonth(m.Year, time.Month(startMonth))

	// Before this year's start month, we're in the previous financial year
	if m.Before(start) {
		start = NewMonth(m.Year-1, time.Month(startMonth))
	}
	return FinancialYear{Start: start, End: start.AddMonths(11)}
}

func (fy FinancialYear) Contains(m Month) bool {
	return !m.Before(fy.Start) && !m.After(fy.End)
}

func (fy FinancialYear) Label() string {
	return fmt.Sprintf("FY%d", fy.End.Year)
}

func (fy FinancialYear) String() string {
	return "[" + fy.Start.Key() + ", " + fy.End.Key() + "]"
}

// YearSummary totals the projected rows falling in one financial year.
// Partial years (at either end of the projection) cover only the rows present.
type YearSummary struct {
	Label          string `json:"label"`
	FirstMonth     string `json:"firstMonth"`
	LastMonth      string `json:"lastMonth"`
	Months         int    `json:"months"`
	OpeningBalance Hours  `json:"openingBalance"`
	Accrued        Hours  `json:"accrued"`
	Taken          Hours  `json:"taken"`
	ClosingBalance Hours  `json:"closingBalance"`
	ClosingDays    Days   `json:"closingDays"`
}

// SummarizeFinancialYears groups consecutive rows by financial year.
// Rows with an unparsable MonthKey are skipped.
func SummarizeFinancialYears(rows []CalculatedRow, startMonth int) []YearSummary {
	summaries := []YearSummary{}
	var current *FinancialYear

	for _, row := range rows {
		m, err := ParseMonth(row.MonthKey)
		if err != nil {
			continue
		}
		if current == nil || !current.Contains(m) {
			fy := FinancialYearFor(m, startMonth)
			current = &fy
			summaries = append(summaries, YearSummary{
				Label:          fy.Label(),
				FirstMonth:     row.MonthKey,
				OpeningBalance: row.OpeningBalance,
			})
		}

		s := &summaries[len(summaries)-1]
		s.LastMonth = row.MonthKey
		s.Months++
		s.Accrued = s.Accrued.Add(row.Accrued)
		s.Taken = s.Taken.Add(row.Taken)
		s.ClosingBalance = row.ClosingBalance
		s.ClosingDays = row.ClosingDays
	}

	return summaries
}
