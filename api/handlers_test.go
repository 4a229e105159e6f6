package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glaciarsur/booking-engine/api"
	"github.com/glaciarsur/booking-engine/booking/store"
	"github.com/glaciarsur/booking-engine/desk"
	"github.com/glaciarsur/booking-engine/localstate"
	"github.com/glaciarsur/booking-engine/reconcile"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *reconcile.RefreshSignal) {
	t.Helper()
	mem := store.NewMemory()
	local := localstate.Open(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	d := desk.New(mem, local, zerolog.Nop())
	sig := reconcile.NewRefreshSignal()

	h := api.NewHandler(d, sig, nil, zerolog.Nop())
	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, sig
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func commitBody(vendor, date string, names ...string) map[string]any {
	passengers := make([]map[string]any, 0, len(names))
	for _, n := range names {
		passengers = append(passengers, map[string]any{"name": n, "category": "adult"})
	}
	return map[string]any{
		"vendor":       vendor,
		"service_date": date,
		"passengers":   passengers,
	}
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func TestCommitReservation_Created(t *testing.T) {
	// GIVEN: a valid reservation form
	// WHEN: POSTing it
	// THEN: 201 with the allocated code and group

	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/reservations", commitBody("javier", "2026-01-10", "Ana"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	result := decode[map[string]any](t, resp)
	assert.Equal(t, "A1", result["code"])
	assert.Equal(t, "1", result["group"])
	assert.Equal(t, true, result["remote_saved"])
}

func TestCommitReservation_ValidationMessages(t *testing.T) {
	// An invalid form comes back as one 400 with the full message list.
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/reservations", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[api.ErrorResponse](t, resp)
	assert.Equal(t, "Validation failed", body.Error)
	assert.Len(t, body.Messages, 3)
}

func TestGetReservation_SummaryAndNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/reservations", commitBody("javier", "2026-01-10", "Ana", "Luis"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/reservations/A1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decode[map[string]any](t, resp)
	assert.Equal(t, float64(2), summary["passengers"])

	resp, err = http.Get(srv.URL + "/api/reservations/Z9")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVoidReservation_RetiresCode(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/reservations", commitBody("javier", "2026-01-10", "Ana"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/reservations/A1", map[string]any{
		"vendor": "javier", "reason": "no show",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/retired")
	require.NoError(t, err)
	retired := decode[api.RetiredDTO](t, resp)
	assert.Contains(t, retired.Codes, "A1")

	// The next preview skips the retired code.
	resp, err = http.Get(srv.URL + "/api/vendors/javier/next-code")
	require.NoError(t, err)
	next := decode[api.NextCodeDTO](t, resp)
	assert.Equal(t, "A2", next.Code)
}

// =============================================================================
// VENDORS
// =============================================================================

func TestVendors_ListAndNextCode(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/vendors")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	vendors := decode[[]api.VendorDTO](t, resp)
	require.Len(t, vendors, 4)

	byKey := map[string]api.VendorDTO{}
	for _, v := range vendors {
		byKey[v.Key] = v
	}
	assert.Equal(t, "Admin", byKey["javier"].Name)
	assert.True(t, byKey["javier"].Builtin)

	resp, err = http.Get(srv.URL + "/api/vendors/vicente/next-code")
	require.NoError(t, err)
	next := decode[api.NextCodeDTO](t, resp)
	assert.Equal(t, "B1", next.Code)
}

func TestVendors_UpsertAndRemove(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/vendors/zoe", map[string]any{
		"name": "Zoe", "prefix": "Z",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/vendors/zoe/next-code")
	require.NoError(t, err)
	next := decode[api.NextCodeDTO](t, resp)
	assert.Equal(t, "Z1", next.Code)

	// A built-in vendor cannot be removed.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/vendors/javier", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestAddPayment_NonNumericAmount(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/payments", map[string]any{
		"vendor": "javier", "code": "A1", "method": "Efectivo", "amount": "lots",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[api.ErrorResponse](t, resp)
	assert.Contains(t, body.Messages, "amount must be numeric")
}

func TestAddPayment_Created(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/reservations", commitBody("javier", "2026-01-10", "Ana"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/payments", map[string]any{
		"vendor": "vicente", "code": "A1", "method": "Efectivo", "amount": "50000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	status := decode[map[string]any](t, resp)
	assert.Equal(t, true, status["remote_saved"])
}

// =============================================================================
// GROUPS AND DAY SHEET
// =============================================================================

func TestNextGroup_RequiresDate(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/groups/next")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/groups/next?date=2026-01-10")
	require.NoError(t, err)
	group := decode[api.NextGroupDTO](t, resp)
	assert.Equal(t, "1", group.Group)
}

func TestDaySheet_EmptyDateIsAnEmptyList(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/day-sheet?date=2026-01-10")
	require.NoError(t, err)
	sheet := decode[api.DaySheetDTO](t, resp)
	assert.Equal(t, "2026-01-10", sheet.Date)
	assert.NotNil(t, sheet.Rows)
	assert.Empty(t, sheet.Rows)
}

func TestMonthSummary_ValidatesMonth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/months/january")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/reservations", commitBody("javier", "2026-01-10", "Ana"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/months/2026-01")
	require.NoError(t, err)
	summary := decode[map[string]any](t, resp)
	assert.Equal(t, float64(1), summary["passengers"])
}

func TestPreferences_RoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/prefs", map[string]any{
		"column_widths": map[string]int{"name": 200},
		"hidden_months": []string{"2025-11"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err := http.Get(srv.URL + "/api/prefs")
	require.NoError(t, err)
	prefs := decode[map[string]any](t, resp)
	widths := prefs["column_widths"].(map[string]any)
	assert.Equal(t, float64(200), widths["name"])
}

// =============================================================================
// REFRESH
// =============================================================================

func TestRefresh_EmitsManualTrigger(t *testing.T) {
	srv, sig := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/refresh", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case reason := <-sig.C():
		assert.Equal(t, reconcile.ReasonManual, reason)
	default:
		t.Fatal("expected a pending manual trigger")
	}
}
