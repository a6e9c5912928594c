/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Decouples the JSON contract of the HTTP API from the domain types.
  Amounts cross the wire as plain numbers; dates as YYYY-MM-DD strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Wrappers

EXCEPTIONS:
  OverrideRequest uses leave.OptionalHours directly, because the difference
  between an omitted field and an explicit null is part of the contract.
  Import and export use the snapshot format itself (leave.Data).

VALIDATION:
  Struct tags are checked with go-playground/validator in the handlers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/leave-planner/leave"
)

// =============================================================================
// SETTINGS
// =============================================================================

// SettingsDTO is both the settings response and the PUT /api/settings body.
type SettingsDTO struct {
	StartBalance             float64 `json:"startBalance"`
	StartDate                string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	DefaultAccrualRate       float64 `json:"defaultAccrualRate"`
	ProjectionHorizon        int     `json:"projectionHorizon" validate:"gte=0,lte=600"`
	HoursPerDay              float64 `json:"hoursPerDay" validate:"gt=0"`
	FinancialYearStartMonth  int     `json:"financialYearStartMonth" validate:"omitempty,min=1,max=12"`
	PublicHolidayURLTemplate string  `json:"publicHolidayUrlTemplate,omitempty" validate:"omitempty,startswith=http"`
}

func toSettingsDTO(s leave.Settings) SettingsDTO {
	return SettingsDTO{
		StartBalance:             s.StartBalance.Float64(),
		StartDate:                s.StartDate.String(),
		DefaultAccrualRate:       s.DefaultAccrualRate.Float64(),
		ProjectionHorizon:        s.ProjectionHorizon,
		HoursPerDay:              s.HoursPerDay.Float64(),
		FinancialYearStartMonth:  s.FinancialYearStartMonth,
		PublicHolidayURLTemplate: s.PublicHolidayURLTemplate,
	}
}

func (d SettingsDTO) toSettings() (leave.Settings, error) {
	start, err := leave.ParseDate(d.StartDate)
	if err != nil {
		return leave.Settings{}, err
	}
	fyStart := d.FinancialYearStartMonth
	if fyStart == 0 {
		fyStart = leave.DefaultFinancialYearStartMonth
	}
	return leave.Settings{
		StartBalance:             leave.NewHours(d.StartBalance),
		StartDate:                start,
		DefaultAccrualRate:       leave.NewHours(d.DefaultAccrualRate),
		ProjectionHorizon:        d.ProjectionHorizon,
		HoursPerDay:              leave.NewHours(d.HoursPerDay),
		FinancialYearStartMonth:  fyStart,
		PublicHolidayURLTemplate: d.PublicHolidayURLTemplate,
	}, nil
}

// =============================================================================
// LEAVE ENTRIES
// =============================================================================

// LeaveEntryDTO represents a leave entry in API responses.
type LeaveEntryDTO struct {
	ID          string  `json:"id"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
	HoursTaken  float64 `json:"hoursTaken"`
	Description string  `json:"description"`
}

// LeaveEntryRequest is the body for creating or replacing a leave entry.
type LeaveEntryRequest struct {
	StartDate   string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	HoursTaken  float64 `json:"hoursTaken" validate:"gte=0"`
	Description string  `json:"description" validate:"max=500"`
}

func toLeaveEntryDTO(e leave.LeaveEntry) LeaveEntryDTO {
	return LeaveEntryDTO{
		ID:          e.ID,
		StartDate:   e.StartDate.String(),
		EndDate:     e.EndDate.String(),
		HoursTaken:  e.HoursTaken.Float64(),
		Description: e.Description,
	}
}

func (r LeaveEntryRequest) toLeaveEntry(id string) (leave.LeaveEntry, error) {
	start, err := leave.ParseDate(r.StartDate)
	if err != nil {
		return leave.LeaveEntry{}, err
	}
	end, err := leave.ParseDate(r.EndDate)
	if err != nil {
		return leave.LeaveEntry{}, err
	}
	return leave.LeaveEntry{
		ID:          id,
		StartDate:   start,
		EndDate:     end,
		HoursTaken:  leave.NewHours(r.HoursTaken),
		Description: r.Description,
	}, nil
}

// =============================================================================
// MONTHLY OVERRIDES
// =============================================================================

// OverrideRequest is the PUT /api/overrides/{month} body.
//
//	{"balance": 100}  set balance, keep the stored accrual
//	{"accrual": null} clear the accrual override
type OverrideRequest struct {
	Accrual leave.OptionalHours `json:"accrual,omitzero"`
	Balance leave.OptionalHours `json:"balance,omitzero"`
	Notes   string              `json:"notes" validate:"max=1000"`
}

// OverrideDTO represents an override record. Nil means no override.
type OverrideDTO struct {
	Month   string   `json:"month"`
	Accrual *float64 `json:"accrual"`
	Balance *float64 `json:"balance"`
	Notes   string   `json:"notes"`
}

func toOverrideDTO(b leave.MonthlyBalance) OverrideDTO {
	return OverrideDTO{
		Month:   b.Month.Key(),
		Accrual: optionalFloat(b.Accrual),
		Balance: optionalFloat(b.Balance),
		Notes:   b.Notes,
	}
}

func optionalFloat(o leave.OptionalHours) *float64 {
	h, ok := o.Get()
	if !ok {
		return nil
	}
	f := h.Float64()
	return &f
}

// =============================================================================
// PROJECTION
// =============================================================================

// RowDTO is one projected month.
type RowDTO struct {
	MonthKey            string   `json:"monthKey"`
	DisplayMonth        string   `json:"displayMonth"`
	OpeningBalance      float64  `json:"openingBalance"`
	Accrued             float64  `json:"accrued"`
	Taken               float64  `json:"taken"`
	ClosingBalance      float64  `json:"closingBalance"`
	ClosingDays         float64  `json:"closingDays"`
	LeaveDescriptions   []string `json:"leaveDescriptions"`
	IsAccrualOverridden bool     `json:"isAccrualOverridden"`
	IsBalanceOverridden bool     `json:"isBalanceOverridden"`
	Notes               string   `json:"notes"`
}

// ProjectionResponse wraps the projected rows.
type ProjectionResponse struct {
	AsOf string   `json:"asOf"`
	Rows []RowDTO `json:"rows"`
}

func toRowDTO(r leave.CalculatedRow) RowDTO {
	return RowDTO{
		MonthKey:            r.MonthKey,
		DisplayMonth:        r.DisplayMonth,
		OpeningBalance:      r.OpeningBalance.Float64(),
		Accrued:             r.Accrued.Float64(),
		Taken:               r.Taken.Float64(),
		ClosingBalance:      r.ClosingBalance.Float64(),
		ClosingDays:         r.ClosingDays.Float64(),
		LeaveDescriptions:   r.LeaveDescriptions,
		IsAccrualOverridden: r.IsAccrualOverridden,
		IsBalanceOverridden: r.IsBalanceOverridden,
		Notes:               r.Notes,
	}
}

// YearSummaryDTO is one financial year of the projection.
type YearSummaryDTO struct {
	Label          string  `json:"label"`
	FirstMonth     string  `json:"firstMonth"`
	LastMonth      string  `json:"lastMonth"`
	Months         int     `json:"months"`
	OpeningBalance float64 `json:"openingBalance"`
	Accrued        float64 `json:"accrued"`
	Taken          float64 `json:"taken"`
	ClosingBalance float64 `json:"closingBalance"`
	ClosingDays    float64 `json:"closingDays"`
}

func toYearSummaryDTO(s leave.YearSummary) YearSummaryDTO {
	return YearSummaryDTO{
		Label:          s.Label,
		FirstMonth:     s.FirstMonth,
		LastMonth:      s.LastMonth,
		Months:         s.Months,
		OpeningBalance: s.OpeningBalance.Float64(),
		Accrued:        s.Accrued.Float64(),
		Taken:          s.Taken.Float64(),
		ClosingBalance: s.ClosingBalance.Float64(),
		ClosingDays:    s.ClosingDays.Float64(),
	}
}

// =============================================================================
// HOLIDAYS / MISC
// =============================================================================

// HolidaysResponse lists the holidays of one year.
type HolidaysResponse struct {
	Year     int          `json:"year"`
	Enabled  bool         `json:"enabled"`
	Holidays []HolidayDTO `json:"holidays"`
}

// HolidayDTO is a single public holiday.
type HolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
