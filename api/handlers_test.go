/*
handlers_test.go - Tests for the HTTP API

Tests for:
- Settings round trip and validation
- Leave entry CRUD
- Override merge through JSON (omitted vs null)
- Projection and financial-year endpoints
- Import / export
- Holiday lookup status codes
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-planner/holidays"
	"github.com/warp/leave-planner/leave"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

type testServer struct {
	store  *leave.Store
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := func() time.Time { return testNow }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := leave.NewStore(leave.WithClock(clock), leave.WithLogger(logger))
	store.UpdateSettings(leave.Settings{
		StartBalance:            leave.NewHours(10),
		StartDate:               leave.MustParseDate("2024-01-01"),
		DefaultAccrualRate:      leave.NewHours(8),
		ProjectionHorizon:       12,
		HoursPerDay:             leave.NewHours(8),
		FinancialYearStartMonth: 7,
	})

	h := NewHandler(store, holidays.NewClient(nil), clock, logger)
	opts := DefaultRouterOptions()
	opts.RateLimitPerMinute = 0
	return &testServer{store: store, router: NewRouter(h, opts)}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// HEALTH / SETTINGS
// =============================================================================

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestSettings_GetAndPut(t *testing.T) {
	s := newTestServer(t)

	got := decode[SettingsDTO](t, s.do(t, http.MethodGet, "/api/settings", ""))
	assert.Equal(t, "2024-01-01", got.StartDate)
	assert.Equal(t, 8.0, got.HoursPerDay)

	body := `{"startBalance": 40, "startDate": "2023-07-01", "defaultAccrualRate": 12.67,
		"projectionHorizon": 24, "hoursPerDay": 7.6}`
	rec := s.do(t, http.MethodPut, "/api/settings", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := s.store.Settings()
	assert.Equal(t, "2023-07-01", updated.StartDate.String())
	assert.Equal(t, 24, updated.ProjectionHorizon)
	assert.Equal(t, leave.DefaultFinancialYearStartMonth, updated.FinancialYearStartMonth)
}

func TestSettings_PutRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero hours per day", `{"startDate": "2024-01-01", "hoursPerDay": 0}`},
		{"negative hours per day", `{"startDate": "2024-01-01", "hoursPerDay": -1}`},
		{"missing start date", `{"hoursPerDay": 7.6}`},
		{"bad start date", `{"startDate": "01/01/2024", "hoursPerDay": 7.6}`},
		{"horizon too large", `{"startDate": "2024-01-01", "hoursPerDay": 7.6, "projectionHorizon": 601}`},
		{"fy month out of range", `{"startDate": "2024-01-01", "hoursPerDay": 7.6, "financialYearStartMonth": 13}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			before := s.store.Settings()

			rec := s.do(t, http.MethodPut, "/api/settings", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, before, s.store.Settings())
		})
	}
}

// =============================================================================
// LEAVE ENTRIES
// =============================================================================

func TestEntries_CRUD(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/entries",
		`{"startDate": "2024-01-15", "endDate": "2024-01-16", "hoursTaken": 16, "description": "PTO"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[LeaveEntryDTO](t, rec)
	assert.NotEmpty(t, created.ID)

	list := decode[[]LeaveEntryDTO](t, s.do(t, http.MethodGet, "/api/entries", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "PTO", list[0].Description)

	rec = s.do(t, http.MethodPut, "/api/entries/"+created.ID,
		`{"startDate": "2024-02-01", "hoursTaken": 8, "description": "Moved"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Moved", s.store.LeaveEntries()[0].Description)

	rec = s.do(t, http.MethodDelete, "/api/entries/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.store.LeaveEntries())
}

func TestEntries_MissingID_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/entries/nope", `{"startDate": "2024-02-01", "hoursTaken": 8}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/entries/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEntries_ValidationDetails(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/entries", `{"startDate": "", "hoursTaken": -3}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "validation", resp.Code)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, details, "StartDate")
	assert.Contains(t, details, "HoursTaken")
}

// =============================================================================
// OVERRIDES
// =============================================================================

func TestOverrides_MergeOverHTTP(t *testing.T) {
	// GIVEN: {accrual: 5} stored for 2024-03
	// WHEN: PUT {balance: 100}, then PUT {accrual: null}
	// THEN: First keeps accrual 5; second clears it and keeps balance

	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/overrides/2024-03", `{"accrual": 5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decode[OverrideDTO](t, s.do(t, http.MethodPut, "/api/overrides/2024-03", `{"balance": 100}`))
	require.NotNil(t, got.Accrual)
	require.NotNil(t, got.Balance)
	assert.Equal(t, 5.0, *got.Accrual)
	assert.Equal(t, 100.0, *got.Balance)

	got = decode[OverrideDTO](t, s.do(t, http.MethodPut, "/api/overrides/2024-03", `{"accrual": null}`))
	assert.Nil(t, got.Accrual)
	require.NotNil(t, got.Balance)

	list := decode[[]OverrideDTO](t, s.do(t, http.MethodGet, "/api/overrides", ""))
	assert.Len(t, list, 1)
}

func TestOverrides_AffectProjection(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPut, "/api/overrides/2024-03", `{"balance": 100, "notes": "payslip"}`)

	resp := decode[ProjectionResponse](t, s.do(t, http.MethodGet, "/api/projection", ""))

	var mar, apr RowDTO
	for _, r := range resp.Rows {
		switch r.MonthKey {
		case "2024-03":
			mar = r
		case "2024-04":
			apr = r
		}
	}
	assert.True(t, mar.IsBalanceOverridden)
	assert.Equal(t, 100.0, mar.ClosingBalance)
	assert.Equal(t, "payslip", mar.Notes)
	assert.Equal(t, 100.0, apr.OpeningBalance)
	assert.Equal(t, 108.0, apr.ClosingBalance)
}

func TestOverrides_BadMonthAndDelete(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/overrides/March", `{"accrual": 5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/overrides/2024-03", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.do(t, http.MethodPut, "/api/overrides/2024-03", `{"accrual": 5}`)
	rec = s.do(t, http.MethodDelete, "/api/overrides/2024-03", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.store.MonthlyBalances())
}

// =============================================================================
// PROJECTION
// =============================================================================

func TestProjection_Rows(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/entries", `{"startDate": "2024-01-15", "hoursTaken": 16, "description": "PTO"}`)

	resp := decode[ProjectionResponse](t, s.do(t, http.MethodGet, "/api/projection", ""))

	assert.Equal(t, "2024-06-15", resp.AsOf)
	require.Len(t, resp.Rows, 18)
	jan := resp.Rows[0]
	assert.Equal(t, "2024-01", jan.MonthKey)
	assert.Equal(t, 2.0, jan.ClosingBalance)
	assert.Equal(t, 0.25, jan.ClosingDays)
	assert.Equal(t, []string{"PTO"}, jan.LeaveDescriptions)
	assert.Equal(t, "2025-06", resp.Rows[17].MonthKey)
}

func TestProjection_ClosingDaysNotRounded(t *testing.T) {
	// GIVEN: 10h opening, no accrual, 7.6h days
	// THEN: closingDays is closingBalance / hoursPerDay at full precision

	s := newTestServer(t)
	settings := s.store.Settings()
	settings.DefaultAccrualRate = leave.NewHours(0)
	settings.HoursPerDay = leave.NewHours(7.6)
	s.store.UpdateSettings(settings)

	resp := decode[ProjectionResponse](t, s.do(t, http.MethodGet, "/api/projection", ""))
	require.NotEmpty(t, resp.Rows)
	for _, r := range resp.Rows {
		assert.InDelta(t, r.ClosingBalance/7.6, r.ClosingDays, 1e-9, r.MonthKey)
	}
	assert.InDelta(t, 10/7.6, resp.Rows[0].ClosingDays, 1e-9)
	assert.NotEqual(t, 1.3158, resp.Rows[0].ClosingDays)

	years := decode[[]YearSummaryDTO](t, s.do(t, http.MethodGet, "/api/projection/years", ""))
	require.NotEmpty(t, years)
	assert.InDelta(t, 10/7.6, years[0].ClosingDays, 1e-9)
}

func TestProjection_WhatIfNow(t *testing.T) {
	s := newTestServer(t)

	resp := decode[ProjectionResponse](t, s.do(t, http.MethodGet, "/api/projection?now=2024-12-01", ""))
	assert.Equal(t, "2024-12-01", resp.AsOf)
	assert.Len(t, resp.Rows, 24)

	rec := s.do(t, http.MethodGet, "/api/projection?now=tomorrow", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProjection_FinancialYears(t *testing.T) {
	s := newTestServer(t)

	got := decode[[]YearSummaryDTO](t, s.do(t, http.MethodGet, "/api/projection/years", ""))

	require.Len(t, got, 2)
	assert.Equal(t, "FY2024", got[0].Label)
	assert.Equal(t, 6, got[0].Months)
	assert.Equal(t, "FY2025", got[1].Label)
	assert.Equal(t, 154.0, got[1].ClosingBalance)
}

// =============================================================================
// IMPORT / EXPORT
// =============================================================================

func TestExportImport(t *testing.T) {
	src := newTestServer(t)
	src.do(t, http.MethodPost, "/api/entries", `{"startDate": "2024-01-15", "hoursTaken": 16}`)
	src.do(t, http.MethodPut, "/api/overrides/2024-03", `{"accrual": null, "notes": "x"}`)

	rec := src.do(t, http.MethodGet, "/api/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "leave-planner-2024-06-15.json")
	exported := rec.Body.String()

	dst := newTestServer(t)
	rec = dst.do(t, http.MethodPost, "/api/import", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	counts := decode[map[string]int](t, rec)
	assert.Equal(t, 1, counts["leaveEntries"])
	assert.Equal(t, 1, counts["monthlyBalances"])

	ov, err := dst.store.MonthlyBalance(leave.MustParseMonth("2024-03"))
	require.NoError(t, err)
	assert.Equal(t, leave.FieldCleared, ov.Accrual.State)
	assert.Equal(t, leave.FieldUnset, ov.Balance.State)
}

func TestImport_Malformed_KeepsData(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/entries", `{"startDate": "2024-01-15", "hoursTaken": 16}`)

	rec := s.do(t, http.MethodPost, "/api/import", `[1, 2, 3]`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, s.store.LeaveEntries(), 1)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays_DisabledWithoutTemplate(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/holidays/2025", "")

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[HolidaysResponse](t, rec)
	assert.False(t, resp.Enabled)
	assert.Empty(t, resp.Holidays)
}

func TestHolidays_LookupAndErrors(t *testing.T) {
	body := `[{"date": "2025-01-01", "localName": "New Year's Day"}]`
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "2025"):
			w.Write([]byte(body))
		case strings.Contains(r.URL.Path, "2026"):
			w.Write([]byte(`{"oops": true}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer upstream.Close()

	s := newTestServer(t)
	settings := s.store.Settings()
	settings.PublicHolidayURLTemplate = upstream.URL + "/{year}"
	s.store.UpdateSettings(settings)

	rec := s.do(t, http.MethodGet, "/api/holidays/2025", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[HolidaysResponse](t, rec)
	assert.True(t, resp.Enabled)
	require.Len(t, resp.Holidays, 1)
	assert.Equal(t, "New Year's Day", resp.Holidays[0].Name)

	rec = s.do(t, http.MethodGet, "/api/holidays/2026", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "invalid_payload", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/holidays/2027", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "fetch_failed", decode[ErrorResponse](t, rec).Code)

	rec = s.do(t, http.MethodGet, "/api/holidays/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsTemplateChange_InvalidatesHolidayCache(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	s := newTestServer(t)
	h := NewHandler(s.store, holidays.NewClient(upstream.Client()), func() time.Time { return testNow }, nil)
	router := NewRouter(h, RouterOptions{})

	put := func(template string) {
		body, _ := json.Marshal(map[string]any{
			"startDate": "2024-01-01", "hoursPerDay": 8, "publicHolidayUrlTemplate": template,
		})
		req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	put(upstream.URL + "/a/{year}")
	req := httptest.NewRequest(http.MethodGet, "/api/holidays/2025", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, h.Holidays.Cached(2025))

	put(upstream.URL + "/b/{year}")
	assert.False(t, h.Holidays.Cached(2025))
}
