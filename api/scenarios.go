/*
scenarios.go - Sample data sets for demos and manual testing

PURPOSE:

	Replaces the planner's data with a realistic data set that exercises a
	specific feature of the projection. Dates are relative to the handler's
	clock so every scenario shows past and future months.

AVAILABLE SCENARIOS:

	new-starter:       Zero opening balance, standard accrual, first holiday booked
	payslip-reconcile: Balance overrides pinning the projection to payslip figures
	parental-leave:    Long leave with accrual suspended (overrides of 0)
	part-time:         Reduced hours per day and accrual, several short absences

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "payslip-reconcile"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Write a builder: func(now time.Time) leave.Data
 3. Register it in scenarioBuilders

NOTE:

	Loading a scenario discards the current data set. Export first.

SEE ALSO:
  - handlers.go: Import uses the same replace path
*/
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/warp/leave-planner/leave"
)

// ScenarioDTO describes one sample data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the POST /api/scenarios/load body.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-starter",
		Name:        "New Starter",
		Description: "Zero opening balance, 10h/month accrual, first holiday booked ahead",
	},
	{
		ID:          "payslip-reconcile",
		Name:        "Payslip Reconciliation",
		Description: "Closing balances pinned to payslip figures with notes",
	},
	{
		ID:          "parental-leave",
		Name:        "Parental Leave",
		Description: "Three months of leave with accrual overridden to zero",
	},
	{
		ID:          "part-time",
		Name:        "Part-Time",
		Description: "Four-hour days, reduced accrual, several short absences",
	},
}

var scenarioBuilders = map[string]func(now time.Time) leave.Data{
	"new-starter":       newStarterScenario,
	"payslip-reconcile": payslipReconcileScenario,
	"parental-leave":    parentalLeaveScenario,
	"part-time":         partTimeScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
// Any later import clears it.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces the data set with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	build, ok := scenarioBuilders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	d := build(h.Projector.Clock())
	h.replaceData(d)

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	h.logger.Info("scenario loaded", slog.String("scenario", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func scenarioSettings(now time.Time, monthsBack int) leave.Settings {
	start := leave.MonthOfTime(now).AddMonths(-monthsBack)
	s := leave.DefaultSettings(now)
	s.StartDate = start.First()
	return s
}

func monthDate(now time.Time, offset, day int) leave.Date {
	m := leave.MonthOfTime(now).AddMonths(offset)
	return leave.NewDate(m.Year, m.Month, day)
}

func newStarterScenario(now time.Time) leave.Data {
	settings := scenarioSettings(now, 2)

	return leave.Data{
		Settings: settings,
		LeaveEntries: []leave.LeaveEntry{
			{
				ID:          "ns-1",
				StartDate:   monthDate(now, 4, 10),
				EndDate:     monthDate(now, 4, 14),
				HoursTaken:  leave.NewHours(38),
				Description: "Beach week",
			},
		},
	}
}

func payslipReconcileScenario(now time.Time) leave.Data {
	settings := scenarioSettings(now, 6)
	settings.StartBalance = leave.NewHours(64.2)
	settings.DefaultAccrualRate = leave.NewHours(12.67)

	return leave.Data{
		Settings: settings,
		LeaveEntries: []leave.LeaveEntry{
			{ID: "pr-1", StartDate: monthDate(now, -5, 3), EndDate: monthDate(now, -5, 3), HoursTaken: leave.NewHours(7.6), Description: "Dentist"},
			{ID: "pr-2", StartDate: monthDate(now, -2, 20), EndDate: monthDate(now, -2, 24), HoursTaken: leave.NewHours(30.4), Description: "Family visit"},
		},
		MonthlyBalances: []leave.MonthlyBalance{
			{Month: leave.MonthOfTime(now).AddMonths(-4), Balance: leave.SomeFloat(88.5), Notes: "Payslip"},
			{Month: leave.MonthOfTime(now).AddMonths(-1), Balance: leave.SomeFloat(84.1), Notes: "Payslip"},
		},
	}
}

func parentalLeaveScenario(now time.Time) leave.Data {
	settings := scenarioSettings(now, 3)
	settings.StartBalance = leave.NewHours(120)

	var overrides []leave.MonthlyBalance
	for offset := 1; offset <= 3; offset++ {
		overrides = append(overrides, leave.MonthlyBalance{
			Month:   leave.MonthOfTime(now).AddMonths(offset),
			Accrual: leave.SomeFloat(0),
			Notes:   "Unpaid parental leave",
		})
	}

	return leave.Data{
		Settings: settings,
		LeaveEntries: []leave.LeaveEntry{
			{ID: "pl-1", StartDate: monthDate(now, 1, 1), EndDate: monthDate(now, 1, 28), HoursTaken: leave.NewHours(76), Description: "Parental leave (paid)"},
		},
		MonthlyBalances: overrides,
	}
}

func partTimeScenario(now time.Time) leave.Data {
	settings := scenarioSettings(now, 1)
	settings.StartBalance = leave.NewHours(20)
	settings.DefaultAccrualRate = leave.NewHours(5)
	settings.HoursPerDay = leave.NewHours(4)

	var entries []leave.LeaveEntry
	for i, offset := range []int{0, 2, 3, 7} {
		d := monthDate(now, offset, 15)
		entries = append(entries, leave.LeaveEntry{
			ID:          "pt-" + string(rune('a'+i)),
			StartDate:   d,
			EndDate:     d,
			HoursTaken:  leave.NewHours(4),
			Description: "Day off",
		})
	}

	return leave.Data{Settings: settings, LeaveEntries: entries}
}

// =============================================================================
// HELPERS
// =============================================================================

// replaceData swaps the whole data set and keeps the holiday cache consistent.
func (h *Handler) replaceData(d leave.Data) {
	previous := h.Store.Settings()
	h.Store.Import(d)
	if previous.PublicHolidayURLTemplate != d.Settings.PublicHolidayURLTemplate {
		h.Holidays.Invalidate()
	}
}
