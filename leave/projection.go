/*
projection.go - Monthly balance projection

PURPOSE:
  Turns settings, leave entries and per-month overrides into one row per
  month, from the month of StartDate up to HORIZON months after "now".

KEY INSIGHT:
  The end of the projection is anchored to now, not to StartDate. With a fixed
  StartDate in the past the table grows by one row every calendar month.

PER-MONTH FOLD (strictly left to right, no look-ahead):
  opening  = previous closing, or StartBalance for the first row
  accrued  = override accrual if present, else DefaultAccrualRate
  taken    = sum of HoursTaken of entries starting in this month
  closing  = override balance if present, else opening + accrued - taken
  days     = closing / HoursPerDay

  A balance override pins closing; accrued and taken are still reported.

TERMINATION:
  At most MaxProjectionMonths rows, whatever StartDate and the horizon say.
  An unset StartDate yields no rows. Project never fails.

EXAMPLE:
  rows := leave.Project(settings, entries, overrides, time.Now())

SEE ALSO:
  - store.go: Source of the three inputs
  - period.go: Financial-year roll-up of the rows
*/
package leave

import (
	"time"
)

const (
	// MaxProjectionMonths bounds the fold (50 years).
	MaxProjectionMonths = 600

	// DefaultProjectionHorizon is used when Settings.ProjectionHorizon is 0.
	// A negative horizon is kept and ends the projection before now.
	DefaultProjectionHorizon = 12
)

// DefaultHoursPerDay is used when Settings.HoursPerDay <= 0.
var DefaultHoursPerDay = NewHours(7.6)

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

// Project computes the monthly rows. It is pure for a fixed now.
func Project(settings Settings, entries []LeaveEntry, overrides []MonthlyBalance, now time.Time) []CalculatedRow {
	rows := []CalculatedRow{}
	if settings.StartDate.IsZero() {
		return rows
	}

	horizon := settings.ProjectionHorizon
	if horizon == 0 {
		horizon = DefaultProjectionHorizon
	}
	targetEnd := MonthOfTime(now).AddMonths(horizon)

	hoursPerDay := settings.HoursPerDay
	if !hoursPerDay.IsPositive() {
		hoursPerDay = DefaultHoursPerDay
	}

	byMonth := make(map[Month]MonthlyBalance, len(overrides))
	for _, o := range overrides {
		if _, seen := byMonth[o.Month]; !seen {
			byMonth[o.Month] = o
		}
	}

	current := settings.StartDate.MonthOf()
	for i := 0; !current.After(targetEnd) && i < MaxProjectionMonths; i++ {
		// A missing record leaves every field unset.
		stored := byMonth[current]

		opening := settings.StartBalance
		if len(rows) > 0 {
			opening = rows[len(rows)-1].ClosingBalance
		}

		accrued, accrualOverridden := stored.Accrual.Get()
		if !accrualOverridden {
			accrued = settings.DefaultAccrualRate
		}

		taken := Hours{}
		descriptions := []string{}
		for _, e := range entries {
			if !current.Contains(e.StartDate) {
				continue
			}
			taken = taken.Add(e.HoursTaken)
			if e.Description != "" {
				descriptions = append(descriptions, e.Description)
			}
		}

		closing, balanceOverridden := stored.Balance.Get()
		if !balanceOverridden {
			closing = opening.Add(accrued).Sub(taken)
		}

		rows = append(rows, CalculatedRow{
			MonthKey:            current.Key(),
			DisplayMonth:        current.Display(),
			OpeningBalance:      opening,
			Accrued:             accrued,
			Taken:               taken,
			ClosingBalance:      closing,
			ClosingDays:         closing.Div(hoursPerDay),
			LeaveDescriptions:   descriptions,
			IsAccrualOverridden: accrualOverridden,
			IsBalanceOverridden: balanceOverridden,
			Notes:               stored.Notes,
		})

		current = current.AddMonths(1)
	}

	return rows
}

// =============================================================================
// PROJECTOR - Project against a live store
// =============================================================================

// Projector evaluates Project over the current contents of a Store.
type Projector struct {
	Store *Store
	Clock Clock
}

// NewProjector uses time.Now when clock is nil.
func NewProjector(store *Store, clock Clock) *Projector {
	if clock == nil {
		clock = time.Now
	}
	return &Projector{Store: store, Clock: clock}
}

// Rows projects as of the projector's clock.
func (p *Projector) Rows() []CalculatedRow {
	return p.RowsAt(p.Clock())
}

// RowsAt projects as of the given instant.
func (p *Projector) RowsAt(now time.Time) []CalculatedRow {
	d := p.Store.Snapshot()
	return Project(d.Settings, d.LeaveEntries, d.MonthlyBalances, now)
}

// FinancialYears summarizes Rows by financial year.
func (p *Projector) FinancialYears() []YearSummary {
	d := p.Store.Snapshot()
	rows := Project(d.Settings, d.LeaveEntries, d.MonthlyBalances, p.Clock())
	return SummarizeFinancialYears(rows, d.Settings.FinancialYearStartMonth)
}
