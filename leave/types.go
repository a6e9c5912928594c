/*
Package leave provides the leave balance planner: the data set, the balance
store that mutates it, and the projection engine that turns it into monthly rows.

PURPOSE:
  An individual tracks a personal leave entitlement. Starting from a known
  opening balance and date, the planner projects the balance forward month by
  month, applying accrual and recorded leave, with optional manual overrides of
  any month's accrual or closing balance.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: A quantity of leave hours (decimal, never float arithmetic)
  - OptionalHours: A three-state override field (unset, cleared, value)
  - Settings, LeaveEntry, MonthlyBalance: The persisted data set
  - CalculatedRow: One projected month (derived, never persisted)

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so 10 + 8 - 16 is exactly 2
  2. Three states: An omitted override field and an explicit null are different
  3. One direction: Store -> Projection -> caller. Projection never mutates.

USAGE:
  s := leave.NewStore()
  s.AddLeaveEntry(leave.LeaveEntry{StartDate: leave.MustParseDate("2024-01-15"), HoursTaken: leave.NewHours(16)})
  rows := leave.Project(s.Settings(), s.LeaveEntries(), s.MonthlyBalances(), time.Now())

SEE ALSO:
  - store.go: Balance store and override merge
  - projection.go: Monthly projection engine
  - time.go: Date and Month
*/
package leave

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Quantity of leave (the only unit this system tracks)
// =============================================================================

// Hours is an amount of leave in hours. It encodes to JSON as a bare number.
type Hours struct {
	Value decimal.Decimal
}

// Days is a balance expressed in working days (hours / HoursPerDay).
// It shares the decimal representation and JSON encoding of Hours.
type Days = Hours

func NewHours(value float64) Hours { return Hours{Value: decimal.NewFromFloat(value)} }

func NewHoursFromInt(value int) Hours { return Hours{Value: decimal.NewFromInt(int64(value))} }

// ParseHours parses a decimal string such as "7.6".
func ParseHours(s string) (Hours, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Hours{}, fmt.Errorf("parse hours %q: %w", s, err)
	}
	return Hours{Value: d}, nil
}

func (h Hours) Add(o Hours) Hours { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) Div(o Hours) Hours { return Hours{Value: h.Value.Div(o.Value)} }
func (h Hours) IsZero() bool { return h.Value.IsZero() }
func (h Hours) IsPositive() bool { return h.Value.IsPositive() }
func (h Hours) Equal(o Hours) bool { return h.Value.Equal(o.Value) }
func (h Hours) String() string { return h.Value.String() }
func (h Hours) Float64() float64 { f, _ := h.Value.Float64(); return f }

func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(h.Value.String()), nil
}

// UnmarshalJSON accepts numbers and quoted numbers. null leaves h at zero.
func (h *Hours) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		h.Value = decimal.Zero
		return nil
	}
	return h.Value.UnmarshalJSON(data)
}

// =============================================================================
// OPTIONAL HOURS - Three-state override field
// =============================================================================

// FieldState distinguishes "not supplied" from "explicitly cleared".
type FieldState int

const (
	// FieldUnset means the field was absent. Merges keep the stored value.
	FieldUnset FieldState = iota
	// FieldCleared means the field was an explicit null. Inherit the default.
	FieldCleared
	// FieldSet means the field carries a value.
	FieldSet
)

func (s FieldState) String() string {
	switch s {
	case FieldCleared:
		return "cleared"
	case FieldSet:
		return "set"
	default:
		return "unset"
	}
}

// OptionalHours is an override field. Both unset and cleared mean
// "no override"; only the merge in Store.SetMonthlyBalance tells them apart.
//
// JSON: an omitted field decodes to unset (with the omitzero tag it is also
// omitted on encode), null decodes to cleared, a number to set.
type OptionalHours struct {
	State FieldState
	Hours Hours
}

// Some returns a set field.
func Some(h Hours) OptionalHours { return OptionalHours{State: FieldSet, Hours: h} }

// SomeFloat is shorthand for Some(NewHours(v)).
func SomeFloat(v float64) OptionalHours { return Some(NewHours(v)) }

// Cleared returns an explicitly cleared field.
func Cleared() OptionalHours { return OptionalHours{State: FieldCleared} }

// Present reports whether the field overrides the computed value.
func (o OptionalHours) Present() bool { return o.State == FieldSet }

// IsZero reports unset; encoding/json uses it for omitzero.
func (o OptionalHours) IsZero() bool { return o.State == FieldUnset }

// Get returns the value and whether it is present.
func (o OptionalHours) Get() (Hours, bool) { return o.Hours, o.Present() }

func (o OptionalHours) String() string {
	if o.Present() {
		return o.Hours.String()
	}
	return o.State.String()
}

func (o OptionalHours) MarshalJSON() ([]byte, error) {
	if !o.Present() {
		return []byte("null"), nil
	}
	return o.Hours.MarshalJSON()
}

func (o *OptionalHours) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Cleared()
		return nil
	}
	var h Hours
	if err := h.UnmarshalJSON(data); err != nil {
		return err
	}
	*o = Some(h)
	return nil
}

// =============================================================================
// DATA SET
// =============================================================================

// Settings configure the projection.
type Settings struct {
	StartBalance       Hours `json:"startBalance"`
	StartDate          Date  `json:"startDate"`
	DefaultAccrualRate Hours `json:"defaultAccrualRate"`
	ProjectionHorizon  int   `json:"projectionHorizon"`
	// HoursPerDay converts hours to days. Values <= 0 fall back to DefaultHoursPerDay.
	HoursPerDay Hours `json:"hoursPerDay"`
	// FinancialYearStartMonth is 1 for January through 12 for December.
	FinancialYearStartMonth int `json:"financialYearStartMonth"`
	// PublicHolidayURLTemplate holds a {year} placeholder. Empty disables lookups.
	PublicHolidayURLTemplate string `json:"publicHolidayUrlTemplate,omitempty"`
}

// LeaveEntry is one recorded period of leave. It counts against the month of
// StartDate only; EndDate is informational.
type LeaveEntry struct {
	ID          string `json:"id"`
	StartDate   Date   `json:"startDate"`
	EndDate     Date   `json:"endDate"`
	HoursTaken  Hours  `json:"hoursTaken"`
	Description string `json:"description"`
}

// MonthlyBalance is a sparse per-month override record.
type MonthlyBalance struct {
	Month   Month         `json:"month"`
	Accrual OptionalHours `json:"accrual,omitzero"`
	Balance OptionalHours `json:"balance,omitzero"`
	Notes   string        `json:"notes,omitempty"`
}

// Data is the whole persisted data set. It is also the export/import unit.
type Data struct {
	Settings        Settings         `json:"settings"`
	LeaveEntries    []LeaveEntry     `json:"leaveEntries"`
	MonthlyBalances []MonthlyBalance `json:"monthlyBalances"`
}

// Clone returns a deep copy.
func (d Data) Clone() Data {
	out := Data{
		Settings:        d.Settings,
		LeaveEntries:    make([]LeaveEntry, len(d.LeaveEntries)),
		MonthlyBalances: make([]MonthlyBalance, len(d.MonthlyBalances)),
	}
	copy(out.LeaveEntries, d.LeaveEntries)
	copy(out.MonthlyBalances, d.MonthlyBalances)
	return out
}

// =============================================================================
// CALCULATED ROW - Projection output
// =============================================================================

// CalculatedRow is one projected month.
type CalculatedRow struct {
	MonthKey            string   `json:"monthKey"`
	DisplayMonth        string   `json:"displayMonth"`
	OpeningBalance      Hours    `json:"openingBalance"`
	Accrued             Hours    `json:"accrued"`
	Taken               Hours    `json:"taken"`
	ClosingBalance      Hours    `json:"closingBalance"`
	ClosingDays         Days     `json:"closingDays"`
	LeaveDescriptions   []string `json:"leaveDescriptions"`
	IsAccrualOverridden bool     `json:"isAccrualOverridden"`
	IsBalanceOverridden bool     `json:"isBalanceOverridden"`
	Notes               string   `json:"notes"`
}
