/*
handlers.go - HTTP API handlers for the leave planner

PURPOSE:
  Exposes the balance store, the projection and the holiday lookup over REST.
  Handles HTTP request/response and JSON; all semantics live in package leave.

ENDPOINTS:
  Settings:
    GET    /api/settings                Current settings
    PUT    /api/settings                Replace settings

  Leave entries:
    GET    /api/entries                 List entries
    POST   /api/entries                 Add entry (server assigns id)
    PUT    /api/entries/{id}            Replace entry
    DELETE /api/entries/{id}            Delete entry

  Overrides:
    GET    /api/overrides               List override records
    PUT    /api/overrides/{month}       Upsert with merge (null clears, omitted keeps)
    DELETE /api/overrides/{month}       Drop the record

  Projection:
    GET    /api/projection              Monthly rows (?now=YYYY-MM-DD for what-if)
    GET    /api/projection/years        Financial-year summaries

  Bulk:
    GET    /api/export                  Snapshot download
    POST   /api/import                  Replace everything

  Holidays:
    GET    /api/holidays/{year}         Lookup via the settings URL template

  Scenarios (scenarios.go):
    GET    /api/scenarios               Sample data sets
    GET    /api/scenarios/current       Last loaded sample, or null
    POST   /api/scenarios/load          Replace everything with a sample

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Entry or override not found
  - 502: Holiday endpoint failed or returned garbage
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/leave-planner/holidays"
	"github.com/warp/leave-planner/leave"
)

// maxImportBytes bounds an import body.
const maxImportBytes = 8 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *leave.Store
	Projector *leave.Projector
	Holidays  *holidays.Client

	validate *validator.Validate
	logger   *slog.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. A nil clock means time.Now.
func NewHandler(store *leave.Store, hc *holidays.Client, clock leave.Clock, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if hc == nil {
		hc = holidays.NewClient(nil)
	}
	return &Handler{
		Store:     store,
		Projector: leave.NewProjector(store, clock),
		Holidays:  hc,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the current settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toSettingsDTO(h.Store.Settings()))
}

// UpdateSettings replaces the settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsDTO
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	settings, err := req.toSettings()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings", err)
		return
	}
	if err := settings.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings", err)
		return
	}

	previous := h.Store.Settings()
	h.Store.UpdateSettings(settings)
	if previous.PublicHolidayURLTemplate != settings.PublicHolidayURLTemplate {
		h.Holidays.Invalidate()
	}

	h.logger.Info("settings updated",
		slog.String("start_date", settings.StartDate.String()),
		slog.Int("horizon", settings.ProjectionHorizon))
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

// =============================================================================
// LEAVE ENTRY HANDLERS
// =============================================================================

// ListEntries returns all leave entries in stored order.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries := h.Store.LeaveEntries()
	dtos := make([]LeaveEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toLeaveEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEntry adds a leave entry.
func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req LeaveEntryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	entry, err := req.toLeaveEntry("")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave entry", err)
		return
	}

	created := h.Store.AddLeaveEntry(entry)
	writeJSON(w, http.StatusCreated, toLeaveEntryDTO(created))
}

// UpdateEntry replaces the leave entry with the id in the path.
func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req LeaveEntryRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	entry, err := req.toLeaveEntry(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave entry", err)
		return
	}

	if !h.Store.UpdateLeaveEntry(entry) {
		writeError(w, http.StatusNotFound, "Leave entry not found", fmt.Errorf("%w: %s", leave.ErrEntryNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, toLeaveEntryDTO(entry))
}

// DeleteEntry removes a leave entry.
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.Store.DeleteLeaveEntry(id) {
		writeError(w, http.StatusNotFound, "Leave entry not found", fmt.Errorf("%w: %s", leave.ErrEntryNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// OVERRIDE HANDLERS
// =============================================================================

// ListOverrides returns all override records.
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	records := h.Store.MonthlyBalances()
	dtos := make([]OverrideDTO, len(records))
	for i, b := range records {
		dtos[i] = toOverrideDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SetOverride merges the body into the override record for the month.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	month, err := leave.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}

	var req OverrideRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	stored := h.Store.SetMonthlyBalance(leave.MonthlyBalance{
		Month:   month,
		Accrual: req.Accrual,
		Balance: req.Balance,
		Notes:   req.Notes,
	})
	writeJSON(w, http.StatusOK, toOverrideDTO(stored))
}

// DeleteOverride removes the override record for the month.
func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	month, err := leave.ParseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
		return
	}
	if !h.Store.DeleteMonthlyBalance(month) {
		writeError(w, http.StatusNotFound, "Override not found", fmt.Errorf("%w: %s", leave.ErrOverrideNotFound, month))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PROJECTION HANDLERS
// =============================================================================

// GetProjection returns the monthly rows.
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	now := h.Projector.Clock()
	if raw := r.URL.Query().Get("now"); raw != "" {
		d, err := leave.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid now (use YYYY-MM-DD)", err)
			return
		}
		now = d.Time
	}

	rows := h.Projector.RowsAt(now)
	dtos := make([]RowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toRowDTO(row)
	}
	writeJSON(w, http.StatusOK, ProjectionResponse{
		AsOf: leave.DateOf(now).String(),
		Rows: dtos,
	})
}

// GetFinancialYears returns the projection rolled up by financial year.
func (h *Handler) GetFinancialYears(w http.ResponseWriter, r *http.Request) {
	summaries := h.Projector.FinancialYears()
	dtos := make([]YearSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = toYearSummaryDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// IMPORT / EXPORT
// =============================================================================

// Export returns the snapshot as a download.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	raw, err := h.Store.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to export data", err)
		return
	}
	filename := fmt.Sprintf("leave-planner-%s.json", leave.DateOf(h.Projector.Clock()).String())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

// Import replaces the whole data set with the body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}

	previous := h.Store.Settings()
	if err := h.Store.ImportJSON(raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid import data", err)
		return
	}
	if previous.PublicHolidayURLTemplate != h.Store.Settings().PublicHolidayURLTemplate {
		h.Holidays.Invalidate()
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	d := h.Store.Snapshot()
	h.logger.Info("data imported",
		slog.Int("leave_entries", len(d.LeaveEntries)),
		slog.Int("monthly_balances", len(d.MonthlyBalances)))
	writeJSON(w, http.StatusOK, map[string]int{
		"leaveEntries":    len(d.LeaveEntries),
		"monthlyBalances": len(d.MonthlyBalances),
	})
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// GetHolidays looks up public holidays for a year.
func (h *Handler) GetHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	template := h.Store.Settings().PublicHolidayURLTemplate
	list, err := h.Holidays.Lookup(r.Context(), template, year)
	if err != nil {
		h.logger.Warn("holiday lookup failed", slog.Int("year", year), slog.Any("error", err))
		code := "fetch_failed"
		if errors.Is(err, holidays.ErrInvalidPayload) {
			code = "invalid_payload"
		}
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "Holiday lookup failed", Code: code, Details: err.Error()})
		return
	}

	dtos := make([]HolidayDTO, len(list))
	for i, hol := range list {
		dtos[i] = HolidayDTO{Date: hol.Date, Name: hol.Name}
	}
	writeJSON(w, http.StatusOK, HolidaysResponse{Year: year, Enabled: template != "", Holidays: dtos})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make(map[string]string, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Error()
			}
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Code: "validation", Details: details})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
