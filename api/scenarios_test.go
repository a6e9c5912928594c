/*
scenarios_test.go - Tests for sample data sets

PURPOSE:
	Each scenario must load through the API and produce a projection that
	shows the feature it was written for.
*/
package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, s *testServer, id string) ProjectionResponse {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[ProjectionResponse](t, s.do(t, http.MethodGet, "/api/projection", ""))
}

func TestScenarios_ListMatchesBuilders(t *testing.T) {
	s := newTestServer(t)

	list := decode[[]ScenarioDTO](t, s.do(t, http.MethodGet, "/api/scenarios", ""))

	require.Len(t, list, len(scenarioBuilders))
	for _, sc := range list {
		assert.Contains(t, scenarioBuilders, sc.ID)
	}
}

func TestScenario_NewStarter(t *testing.T) {
	// GIVEN: New starter scenario, two months before now
	// THEN: Rows start two months back and the booked holiday shows up

	s := newTestServer(t)
	resp := loadScenario(t, s, "new-starter")

	require.NotEmpty(t, resp.Rows)
	assert.Equal(t, "2024-04", resp.Rows[0].MonthKey)
	assert.Equal(t, 0.0, resp.Rows[0].OpeningBalance)

	var found bool
	for _, r := range resp.Rows {
		if r.MonthKey == "2024-10" {
			found = true
			assert.Equal(t, []string{"Beach week"}, r.LeaveDescriptions)
			assert.Equal(t, 38.0, r.Taken)
		}
	}
	assert.True(t, found)
}

func TestScenario_PayslipReconcile(t *testing.T) {
	s := newTestServer(t)
	resp := loadScenario(t, s, "payslip-reconcile")

	var pinned int
	for _, r := range resp.Rows {
		if r.IsBalanceOverridden {
			pinned++
			assert.Equal(t, "Payslip", r.Notes)
		}
	}
	assert.Equal(t, 2, pinned)
}

func TestScenario_ParentalLeave(t *testing.T) {
	s := newTestServer(t)
	resp := loadScenario(t, s, "parental-leave")

	var suspended int
	for _, r := range resp.Rows {
		if r.IsAccrualOverridden {
			suspended++
			assert.Equal(t, 0.0, r.Accrued)
		}
	}
	assert.Equal(t, 3, suspended)
}

func TestScenario_PartTime(t *testing.T) {
	s := newTestServer(t)
	resp := loadScenario(t, s, "part-time")

	require.NotEmpty(t, resp.Rows)
	first := resp.Rows[0]
	assert.Equal(t, "2024-05", first.MonthKey)
	// 20 + 5 accrued, 4h days
	assert.Equal(t, 25.0, first.ClosingBalance)
	assert.Equal(t, 6.25, first.ClosingDays)
	assert.Len(t, s.store.LeaveEntries(), 4)
}

func TestScenario_CurrentTracksLoadAndImport(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/scenarios/current", "")
	assert.Equal(t, "null", trimNewline(rec.Body.String()))

	loadScenario(t, s, "part-time")
	current := decode[ScenarioDTO](t, s.do(t, http.MethodGet, "/api/scenarios/current", ""))
	assert.Equal(t, "part-time", current.ID)

	exported := s.do(t, http.MethodGet, "/api/export", "").Body.String()
	s.do(t, http.MethodPost, "/api/import", exported)
	rec = s.do(t, http.MethodGet, "/api/scenarios/current", "")
	assert.Equal(t, "null", trimNewline(rec.Body.String()))
}

func TestScenario_Unknown(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/load", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}
