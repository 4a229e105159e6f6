/*
handlers.go - HTTP API handlers for the booking engine

PURPOSE:
  Exposes the desk via REST. Handles HTTP request/response and JSON
  serialization, delegates everything else to the desk.

ENDPOINTS:
  Vendors:
    GET    /api/vendors                  List resolved vendor profiles
    PUT    /api/vendors/{key}            Upsert an override
    DELETE /api/vendors/{key}            Remove an added vendor
    GET    /api/vendors/{key}/next-code  Live allocation preview

  Reservations:
    POST   /api/reservations             Commit a reservation
    GET    /api/reservations/{code}      Voucher summary
    PUT    /api/reservations/{code}      Modify (bulk row replace)
    DELETE /api/reservations/{code}      Void (code is retired)

  Payments:
    POST   /api/payments                 Record a payment or refund

  Codes and groups:
    GET    /api/retired                  Retirement ledger
    POST   /api/codes/{code}/retire      Explicit retirement
    GET    /api/groups/next?date=        Group slot preview

  Viewer:
    GET    /api/day-sheet?date=          Rows for one service date
    PUT    /api/day-sheet/comment        Operator note for a date
    GET    /api/months/{month}           Per-day and month totals
    GET    /api/history                  Voucher snapshots, newest first
    GET    /api/prefs                    Persisted viewer preferences
    PUT    /api/prefs                    Edit column widths, hidden months

  Admin:
    GET    /api/config                   Active rate configuration
    PUT    /api/config                   Append a new configuration
    POST   /api/refresh                  Manual sync trigger

ERROR HANDLING:
  - 400: validation failures, with the full corrective message list
  - 404: unknown vendor or reservation
  - 409: range exhaustion, protected built-in vendor
  - 500: remote store failures during reads
  Write responses carry a remote_saved flag: false with an error string
  means the operation committed locally but not remotely.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/glaciarsur/booking-engine/booking"
	"github.com/glaciarsur/booking-engine/desk"
	"github.com/glaciarsur/booking-engine/pricing"
	"github.com/glaciarsur/booking-engine/reconcile"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Desk      *desk.Desk
	Signal    *reconcile.RefreshSignal
	Refresher *Refresher
	Log       zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(d *desk.Desk, sig *reconcile.RefreshSignal, rf *Refresher, log zerolog.Logger) *Handler {
	return &Handler{Desk: d, Signal: sig, Refresher: rf, Log: log}
}

var yearMonth = regexp.MustCompile(`^\d{4}-\d{2}$`)

// notifyPeers publishes a change notification so other stations resync.
func (h *Handler) notifyPeers(r *http.Request) {
	if h.Refresher != nil {
		h.Refresher.Notify(r.Context())
	}
}

// =============================================================================
// VENDOR HANDLERS
// =============================================================================

// ListVendors returns every resolved vendor profile.
func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	profiles := h.Desk.Vendors()
	dtos := make([]VendorDTO, len(profiles))
	for i, p := range profiles {
		dtos[i] = VendorDTO{
			Key:        string(p.Key),
			Name:       p.Name,
			Prefix:     p.Prefix,
			RangeStart: p.RangeStart,
			RangeEnd:   p.RangeEnd,
			Builtin:    booking.IsBuiltin(p.Key),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpsertVendor inserts or edits a vendor override.
func (h *Handler) UpsertVendor(w http.ResponseWriter, r *http.Request) {
	key := booking.VendorKey(chi.URLParam(r, "key"))
	var req UpsertVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	status, err := h.Desk.UpsertVendor(r.Context(), key, booking.VendorOverride{
		Name:       req.Name,
		Prefix:     req.Prefix,
		RangeStart: req.RangeStart,
		RangeEnd:   req.RangeEnd,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.notifyPeers(r)
	writeJSON(w, http.StatusOK, status)
}

// RemoveVendor deletes an admin-added vendor.
func (h *Handler) RemoveVendor(w http.ResponseWriter, r *http.Request) {
	key := booking.VendorKey(chi.URLParam(r, "key"))
	status, err := h.Desk.RemoveVendor(r.Context(), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.notifyPeers(r)
	writeJSON(w, http.StatusOK, status)
}

// NextCode returns the live allocation preview for a vendor.
func (h *Handler) NextCode(w http.ResponseWriter, r *http.Request) {
	key := booking.VendorKey(chi.URLParam(r, "key"))
	code, err := h.Desk.PreviewNextCode(key)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NextCodeDTO{Vendor: string(key), Code: code})
}

// =============================================================================
// RESERVATION HANDLERS
// =============================================================================

// CommitReservation allocates the final code and writes the booking.
func (h *Handler) CommitReservation(w http.ResponseWriter, r *http.Request) {
	var req CommitReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result, err := h.Desk.CommitReservation(r.Context(), req.CommitInput)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.notifyPeers(r)
	writeJSON(w, http.StatusCreated, result)
}

// GetReservation returns the live voucher summary of one code.
func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	summary, err := h.Desk.SummaryForCode(code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.Desk.SetLastOpened(code)
	writeJSON(w, http.StatusOK, summary)
}

// ModifyReservation replaces every row of a code with the edited form.
func (h *Handler) ModifyReservation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req ModifyReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result, err := h.Desk.ModifyReservation(r.Context(), code, req.CommitInput, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.notifyPeers(r)
	writeJSON(w, http.StatusOK, result)
}

// VoidReservation deletes a booking's passengers and retires its code.
func (h *Handler) VoidReservation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	var req VoidReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	status, err := h.Desk.VoidReservation(r.Context(), req.Vendor, code, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.notifyPeers(r)
	writeJSON(w, http.StatusOK, status)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// AddPayment records a payment or refund movement.
func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:    "Validation failed",
			Messages: []string{"amount must be numeric"},
		})
		return
	}
	status, err := h.Desk.AddPayment(r.Context(), req.Vendor, req.Code, desk.PaymentInput{
		Method:  req.Method,
		Amount:  amount,
		Receipt: req.Receipt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.notifyPeers(r)
	writeJSON(w, http.StatusCreated, status)
}

// =============================================================================
// CODE AND GROUP HANDLERS
// =============================================================================

// ListRetired returns the retirement ledger.
func (h *Handler) ListRetired(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RetiredDTO{Codes: h.Desk.RetiredCodes()})
}

// RetireCode explicitly poisons a code.
func (h *Handler) RetireCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	h.Desk.RetireCode(code)
	writeJSON(w, http.StatusOK, RetiredDTO{Codes: h.Desk.RetiredCodes()})
}

// NextGroup previews the group slot a booking on the date would take.
func (h *Handler) NextGroup(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required", nil)
		return
	}
	writeJSON(w, http.StatusOK, NextGroupDTO{Date: date, Group: h.Desk.NextGroupForDate(date)})
}

// =============================================================================
// VIEWER HANDLERS
// =============================================================================

// DaySheet returns the printable rows for one service date.
func (h *Handler) DaySheet(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date query parameter is required", nil)
		return
	}
	h.Desk.SetViewerDate(date)
	rows := h.Desk.DaySheet(date)
	if rows == nil {
		rows = []booking.PassengerRow{}
	}
	writeJSON(w, http.StatusOK, DaySheetDTO{
		Date:    date,
		Comment: h.Desk.DayComment(date),
		Rows:    rows,
	})
}

// SetDayComment stores the operator note for a date.
func (h *Handler) SetDayComment(w http.ResponseWriter, r *http.Request) {
	var req DayCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required", nil)
		return
	}
	h.Desk.SetDayComment(req.Date, req.Text)
	writeJSON(w, http.StatusOK, map[string]bool{"saved": true})
}

// MonthSummary returns per-day and whole-month totals for one YYYY-MM.
func (h *Handler) MonthSummary(w http.ResponseWriter, r *http.Request) {
	month := chi.URLParam(r, "month")
	if !yearMonth.MatchString(month) {
		writeError(w, http.StatusBadRequest, "month must be YYYY-MM", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.Desk.MonthSummary(month))
}

// GetPreferences returns the persisted viewer preferences.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Desk.Preferences())
}

// SetPreferences replaces the editable viewer preferences.
func (h *Handler) SetPreferences(w http.ResponseWriter, r *http.Request) {
	var prefs desk.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	h.Desk.SetPreferences(prefs)
	writeJSON(w, http.StatusOK, h.Desk.Preferences())
}

// History returns the archived voucher snapshots, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries := h.Desk.History()
	if entries == nil {
		entries = []booking.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// GetConfig returns the active rate configuration.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Desk.Config())
}

// SetConfig appends and activates a new configuration document.
func (h *Handler) SetConfig(w http.ResponseWriter, r *http.Request) {
	var cfg pricing.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	status, err := h.Desk.SetConfig(r.Context(), cfg)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.notifyPeers(r)
	writeJSON(w, http.StatusOK, status)
}

// Refresh triggers a manual sync.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.Signal.Emit(reconcile.ReasonManual)
	writeJSON(w, http.StatusAccepted, RefreshResponse{Triggered: true})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

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

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *booking.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:    "Validation failed",
			Messages: ve.Messages,
		})
	case errors.Is(err, booking.ErrRangeExhausted):
		writeError(w, http.StatusConflict, "Code range exhausted", err)
	case errors.Is(err, booking.ErrBuiltinVendor):
		writeError(w, http.StatusConflict, "Built-in vendor cannot be removed", err)
	case errors.Is(err, booking.ErrVendorNotFound):
		writeError(w, http.StatusNotFound, "Vendor not found", err)
	case errors.Is(err, booking.ErrReservationNotFound):
		writeError(w, http.StatusNotFound, "Reservation not found", err)
	default:
		writeError(w, http.StatusInternalServerError, "Operation failed", err)
	}
}
