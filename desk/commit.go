/*
commit.go - Reservation write operations

PURPOSE:
  The commit, payment, modification and void flows. Every operation
  validates before any write, applies locally so the operator sees the
  result immediately, then writes to the remote store. A remote failure
  after a local apply is a distinct, explicitly surfaced state: the
  operator must know whether the reservation truly committed.

MARKERS:
  Administrative log entries are zero-amount payment rows. The receipt
  text carries a "vend:" marker naming the acting salesperson, and
  modification/void entries are prefixed "MOD:" / "DEL:".
*/
package desk

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/glaciarsur/booking-engine/booking"
	"github.com/glaciarsur/booking-engine/pricing"
)

// =============================================================================
// INPUTS
// =============================================================================

type PassengerInput struct {
	Name          string           `json:"name"`
	Document      string           `json:"document"`
	Nationality   string           `json:"nationality"`
	Phone         string           `json:"phone"`
	Email         string           `json:"email"`
	Category      booking.Category `json:"category"`
	Transport     bool             `json:"transport"`
	AddonIncluded bool             `json:"addon_included"`
	AddonCategory string           `json:"addon_category"`
}

type PaymentInput struct {
	Method  string          `json:"method"`
	Amount  decimal.Decimal `json:"amount"`
	Receipt string          `json:"receipt"`
}

type CommitInput struct {
	Vendor      booking.VendorKey `json:"vendor"`
	Candidate   string            `json:"candidate"` // previewed code, may be stale or empty
	ServiceDate string            `json:"service_date"`
	Status      booking.Status    `json:"status"`
	Passengers  []PassengerInput  `json:"passengers"`

	TourDiscount decimal.Decimal `json:"tour_discount"`

	AddonType     booking.AddonType `json:"addon_type"`
	Provider      string            `json:"provider"`
	AddonDate     string            `json:"addon_date"`
	AddonDiscount decimal.Decimal   `json:"addon_discount"`

	Notes          string        `json:"notes"`
	InitialPayment *PaymentInput `json:"initial_payment,omitempty"`
}

// RemoteStatus reports whether the remote write landed. A false value
// with a populated error means the operation succeeded locally only.
type RemoteStatus struct {
	RemoteSaved bool   `json:"remote_saved"`
	RemoteErr   string `json:"remote_error,omitempty"`
}

type CommitResult struct {
	Code  string        `json:"code"`
	Group string        `json:"group"`
	Quote pricing.Quote `json:"quote"`
	RemoteStatus
}

// =============================================================================
// VALIDATION
// =============================================================================

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func validCategory(c booking.Category) bool {
	switch c {
	case booking.CategoryAdult, booking.CategoryChild, booking.CategoryInfant:
		return true
	}
	return false
}

// validate collects every corrective message before rejecting, so the
// operator fixes the form in one pass. Nothing is written on failure.
func validate(in CommitInput) error {
	var msgs []string
	if in.Vendor == "" {
		msgs = append(msgs, "vendor is required")
	}
	if !isoDate.MatchString(in.ServiceDate) {
		msgs = append(msgs, "service date must be YYYY-MM-DD")
	}
	if len(in.Passengers) == 0 {
		msgs = append(msgs, "at least one passenger is required")
	}
	for i, p := range in.Passengers {
		if p.Name == "" {
			msgs = append(msgs, fmt.Sprintf("passenger %d: name is required", i+1))
		}
		if !validCategory(p.Category) {
			msgs = append(msgs, fmt.Sprintf("passenger %d: invalid category %q", i+1, p.Category))
		}
	}
	switch in.AddonType {
	case booking.AddonNone, booking.AddonFM, booking.AddonCM:
	default:
		msgs = append(msgs, fmt.Sprintf("invalid add-on type %q", in.AddonType))
	}
	optedIn := 0
	for _, p := range in.Passengers {
		if p.AddonIncluded {
			optedIn++
		}
	}
	if optedIn > 0 && in.AddonType == booking.AddonNone {
		msgs = append(msgs, "add-on type is required when passengers opt in")
	}
	if optedIn > 0 && in.AddonDate == "" {
		msgs = append(msgs, "add-on date is required when passengers opt in")
	}
	if in.AddonDate != "" && !isoDate.MatchString(in.AddonDate) {
		msgs = append(msgs, "add-on date must be YYYY-MM-DD")
	}
	if in.InitialPayment != nil {
		if in.InitialPayment.Method == "" {
			msgs = append(msgs, "payment method is required")
		}
		// Refunds are recorded later against the code, never at creation.
		if in.InitialPayment.Amount.IsNegative() {
			msgs = append(msgs, "initial payment cannot be negative")
		}
	}
	if len(msgs) > 0 {
		return &booking.ValidationError{Messages: msgs}
	}
	return nil
}

func quoteInput(in CommitInput) pricing.QuoteInput {
	q := pricing.QuoteInput{
		ServiceDate:   in.ServiceDate,
		TourDiscount:  in.TourDiscount,
		AddonType:     in.AddonType,
		AddonDate:     in.AddonDate,
		AddonDiscount: in.AddonDiscount,
	}
	for _, p := range in.Passengers {
		switch p.Category {
		case booking.CategoryAdult:
			q.Adults++
		case booking.CategoryChild:
			q.Children++
		case booking.CategoryInfant:
			q.Infants++
		}
		if p.Transport {
			q.Transport++
		}
		if p.AddonIncluded {
			q.AddonIncluded++
		}
	}
	return q
}

func vendMarkerSuffix(name string) string {
	return " · vend: " + name
}

// =============================================================================
// COMMIT
// =============================================================================

// CommitReservation allocates the final code and writes the reservation.
// The previewed candidate survives if still free; otherwise the lowest
// free number is taken silently. The remote write is atomic; a remote
// failure leaves the reservation committed locally and is surfaced in
// the result, never hidden.
func (d *Desk) CommitReservation(ctx context.Context, in CommitInput) (*CommitResult, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = booking.StatusPreReservation
	}

	d.mu.Lock()
	code, err := booking.CommitCode(d.registry, in.Vendor, &d.cache, d.retired, in.Candidate)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	group := booking.NextGroupForDate(in.ServiceDate, &d.cache)
	qi := quoteInput(in)
	quote := pricing.Compute(qi, d.cfg)
	vendorName := d.registry.Resolve(in.Vendor).Name
	now := time.Now()

	rows := d.buildRows(in, code, group, vendorName, quote.Season, now)
	d.cache.Passengers = append(d.cache.Passengers, rows...)

	bundle := d.buildBundle(in, code, group, now)

	paid := decimal.Zero
	if in.InitialPayment != nil {
		pay := booking.PaymentRow{
			CreatedAt: now,
			Vendor:    vendorName,
			Code:      code,
			Method:    in.InitialPayment.Method,
			Amount:    in.InitialPayment.Amount,
			Receipt:   in.InitialPayment.Receipt + vendMarkerSuffix(vendorName),
		}
		d.cache.Payments = append(d.cache.Payments, pay)
		paid = in.InitialPayment.Amount
		bundle.Payments = append(bundle.Payments, booking.PaymentRecord{
			ID:        uuid.NewString(),
			Code:      code,
			Method:    pay.Method,
			Amount:    pay.Amount,
			Receipt:   pay.Receipt,
			CreatedAt: now,
		})
	}

	snapshot := booking.VoucherSnapshot{
		Code:          code,
		Vendor:        vendorName,
		ServiceDate:   in.ServiceDate,
		AddonDate:     in.AddonDate,
		TourSubtotal:  quote.TourSubtotal,
		TourDiscount:  quote.TourDiscount,
		Transport:     quote.Transport,
		TourTotal:     quote.TourTotal,
		AddonType:     in.AddonType,
		Provider:      in.Provider,
		AddonSubtotal: quote.AddonSubtotal,
		AddonDiscount: quote.AddonDiscount,
		AddonTotal:    quote.AddonTotal,
		GrandTotal:    quote.GrandTotal,
		Paid:          paid,
		Balance:       quote.GrandTotal.Sub(paid),
		Passengers:    len(in.Passengers),
		Adults:        qi.Adults,
		Children:      qi.Children,
		Infants:       qi.Infants,
		Notes:         in.Notes,
	}
	d.appendHistoryLocked(booking.HistoryEntry{
		Vendor: in.Vendor, Code: code, Snapshot: snapshot, CreatedAt: now,
	})

	cacheCopy := d.cache.Clone()
	d.mu.Unlock()

	d.persist(cacheCopy)

	result := &CommitResult{Code: code, Group: group, Quote: quote}
	if err := d.remote.CommitReservation(ctx, bundle); err != nil {
		d.log.Error().Err(err).Str("code", code).Msg("desk: commit saved locally but failed remotely")
		result.RemoteErr = (&booking.RemoteError{Op: "commit reservation", Err: err}).Error()
		return result, nil
	}
	result.RemoteSaved = true
	d.log.Info().Str("code", code).Str("group", group).Int("passengers", len(in.Passengers)).Msg("desk: reservation committed")
	return result, nil
}

// appendHistoryLocked prepends an entry and trims to the cap, newest
// first.
func (d *Desk) appendHistoryLocked(e booking.HistoryEntry) {
	d.cache.History = append([]booking.HistoryEntry{e}, d.cache.History...)
	if len(d.cache.History) > booking.HistoryCap {
		d.cache.History = d.cache.History[:booking.HistoryCap]
	}
}

func (d *Desk) buildRows(in CommitInput, code, group, vendorName string, season pricing.Season, now time.Time) []booking.PassengerRow {
	rows := make([]booking.PassengerRow, 0, len(in.Passengers))
	for _, p := range in.Passengers {
		tour, transportVal, addonVal := pricing.RowValues(p.Category, p.Transport, in.AddonType, p.AddonIncluded, season, d.cfg)
		row := booking.PassengerRow{
			CreatedAt:      now,
			Status:         in.Status,
			Vendor:         vendorName,
			Code:           code,
			Group:          group,
			Name:           p.Name,
			Document:       p.Document,
			Nationality:    p.Nationality,
			Phone:          p.Phone,
			Email:          p.Email,
			Category:       p.Category,
			Transport:      p.Transport,
			TourValue:      tour,
			TransportValue: transportVal,
			TourDiscount:   in.TourDiscount,
			Provider:       in.Provider,
			AddonDate:      in.AddonDate,
			AddonValue:     addonVal,
			AddonDiscount:  in.AddonDiscount,
			Notes:          in.Notes,
			ServiceDate:    in.ServiceDate,
		}
		if p.AddonIncluded {
			row.AddonCategory = p.AddonCategory
		}
		rows = append(rows, row)
	}
	return rows
}

func (d *Desk) buildBundle(in CommitInput, code, group string, now time.Time) booking.ReservationBundle {
	groupNum, _ := strconv.Atoi(group)
	resID := uuid.NewString()
	bundle := booking.ReservationBundle{
		Reservation: booking.ReservationRecord{
			ID:            resID,
			Code:          code,
			VendorKey:     in.Vendor,
			ServiceDate:   in.ServiceDate,
			Group:         groupNum,
			Status:        in.Status,
			TourDiscount:  in.TourDiscount,
			AddonType:     in.AddonType,
			Provider:      in.Provider,
			AddonDate:     in.AddonDate,
			AddonDiscount: in.AddonDiscount,
			Notes:         in.Notes,
			CreatedAt:     now,
		},
	}
	for _, p := range in.Passengers {
		bundle.Passengers = append(bundle.Passengers, booking.PassengerRecord{
			ID:            uuid.NewString(),
			ReservationID: resID,
			Name:          p.Name,
			Document:      p.Document,
			Nationality:   p.Nationality,
			Phone:         p.Phone,
			Email:         p.Email,
			Category:      p.Category,
			Transport:     p.Transport,
			AddonIncluded: p.AddonIncluded,
			AddonCategory: p.AddonCategory,
			CreatedAt:     now,
		})
	}
	return bundle
}

// =============================================================================
// PAYMENTS
// =============================================================================

// AddPayment records a payment or refund against a code. Payments to a
// code without passenger rows are legal (audit trail of voided work)
// and immediately poison that code via the orphan scan.
func (d *Desk) AddPayment(ctx context.Context, vendor booking.VendorKey, code string, in PaymentInput) (*RemoteStatus, error) {
	var msgs []string
	if code == "" {
		msgs = append(msgs, "code is required")
	}
	if in.Method == "" {
		msgs = append(msgs, "payment method is required")
	}
	if len(msgs) > 0 {
		return nil, &booking.ValidationError{Messages: msgs}
	}

	d.mu.Lock()
	vendorName := d.registry.Resolve(vendor).Name
	now := time.Now()
	pay := booking.PaymentRow{
		CreatedAt: now,
		Vendor:    vendorName,
		Code:      code,
		Method:    in.Method,
		Amount:    in.Amount,
		Receipt:   in.Receipt + vendMarkerSuffix(vendorName),
	}
	d.cache.Payments = append(d.cache.Payments, pay)
	newlyRetired := d.retired.RetireOrphans(&d.cache)
	cacheCopy := d.cache.Clone()
	d.mu.Unlock()

	if len(newlyRetired) > 0 {
		d.log.Info().Strs("codes", newlyRetired).Msg("desk: retired orphan codes after payment")
	}
	d.persist(cacheCopy)

	rec := booking.PaymentRecord{
		ID:        uuid.NewString(),
		Code:      code,
		Method:    pay.Method,
		Amount:    pay.Amount,
		Receipt:   pay.Receipt,
		CreatedAt: now,
	}
	if err := d.remote.InsertPayment(ctx, rec); err != nil {
		d.log.Error().Err(err).Str("code", code).Msg("desk: payment saved locally but failed remotely")
		return &RemoteStatus{RemoteErr: (&booking.RemoteError{Op: "insert payment", Err: err}).Error()}, nil
	}
	return &RemoteStatus{RemoteSaved: true}, nil
}

// =============================================================================
// MODIFICATION
// =============================================================================

// ModifyReservation replaces every row sharing the code with the edited
// composition and logs a zero-amount "MOD:" marker payment. The code
// never changes; the group number is kept unless the service date
// moved, in which case a fresh slot on the new date is taken.
func (d *Desk) ModifyReservation(ctx context.Context, code string, in CommitInput, reason string) (*CommitResult, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = booking.StatusConfirmed
	}

	d.mu.Lock()
	var prevDate, prevGroup string
	found := false
	for _, r := range d.cache.Passengers {
		if r.Code == code {
			prevDate, prevGroup = r.ServiceDate, r.Group
			found = true
			break
		}
	}
	if !found {
		d.mu.Unlock()
		return nil, booking.ErrReservationNotFound
	}

	kept := d.cache.Passengers[:0]
	for _, r := range d.cache.Passengers {
		if r.Code != code {
			kept = append(kept, r)
		}
	}
	d.cache.Passengers = kept

	group := prevGroup
	if in.ServiceDate != prevDate {
		group = booking.NextGroupForDate(in.ServiceDate, &d.cache)
	}

	quote := pricing.Compute(quoteInput(in), d.cfg)
	vendorName := d.registry.Resolve(in.Vendor).Name
	now := time.Now()

	rows := d.buildRows(in, code, group, vendorName, quote.Season, now)
	d.cache.Passengers = append(d.cache.Passengers, rows...)

	marker := booking.PaymentRow{
		CreatedAt: now,
		Vendor:    vendorName,
		Code:      code,
		Method:    "ajuste",
		Amount:    decimal.Zero,
		Receipt:   "MOD: " + reason + vendMarkerSuffix(vendorName),
	}
	d.cache.Payments = append(d.cache.Payments, marker)

	bundle := d.buildBundle(in, code, group, now)
	bundle.Payments = append(bundle.Payments, booking.PaymentRecord{
		ID:        uuid.NewString(),
		Code:      code,
		Method:    marker.Method,
		Amount:    decimal.Zero,
		Receipt:   marker.Receipt,
		CreatedAt: now,
	})

	cacheCopy := d.cache.Clone()
	d.mu.Unlock()

	d.persist(cacheCopy)

	result := &CommitResult{Code: code, Group: group, Quote: quote}
	if err := d.remote.ReplaceReservation(ctx, bundle); err != nil {
		d.log.Error().Err(err).Str("code", code).Msg("desk: modification saved locally but failed remotely")
		result.RemoteErr = (&booking.RemoteError{Op: "replace reservation", Err: err}).Error()
		return result, nil
	}
	result.RemoteSaved = true
	d.log.Info().Str("code", code).Msg("desk: reservation modified")
	return result, nil
}

// =============================================================================
// VOID
// =============================================================================

// VoidReservation deletes the passenger rows of a code and logs a
// zero-amount "DEL:" marker payment. The marker makes the code an
// orphan, so the reactive scan retires it immediately; the code is
// never offered again.
func (d *Desk) VoidReservation(ctx context.Context, vendor booking.VendorKey, code, reason string) (*RemoteStatus, error) {
	d.mu.Lock()
	found := false
	kept := d.cache.Passengers[:0]
	for _, r := range d.cache.Passengers {
		if r.Code == code {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		d.mu.Unlock()
		return nil, booking.ErrReservationNotFound
	}
	d.cache.Passengers = kept

	vendorName := d.registry.Resolve(vendor).Name
	now := time.Now()
	marker := booking.PaymentRow{
		CreatedAt: now,
		Vendor:    vendorName,
		Code:      code,
		Method:    "ajuste",
		Amount:    decimal.Zero,
		Receipt:   "DEL: " + reason + vendMarkerSuffix(vendorName),
	}
	d.cache.Payments = append(d.cache.Payments, marker)
	d.retired.RetireOrphans(&d.cache)
	cacheCopy := d.cache.Clone()
	d.mu.Unlock()

	d.persist(cacheCopy)
	d.log.Info().Str("code", code).Msg("desk: reservation voided, code retired")

	status := &RemoteStatus{}
	if err := d.remote.DeleteReservationByCode(ctx, code); err != nil {
		status.RemoteErr = (&booking.RemoteError{Op: "delete reservation", Err: err}).Error()
		d.log.Error().Err(err).Str("code", code).Msg("desk: void applied locally but failed remotely")
		return status, nil
	}
	rec := booking.PaymentRecord{
		ID:        uuid.NewString(),
		Code:      code,
		Method:    marker.Method,
		Amount:    decimal.Zero,
		Receipt:   marker.Receipt,
		CreatedAt: now,
	}
	if err := d.remote.InsertPayment(ctx, rec); err != nil {
		status.RemoteErr = (&booking.RemoteError{Op: "insert void marker", Err: err}).Error()
		d.log.Error().Err(err).Str("code", code).Msg("desk: void marker failed remotely")
		return status, nil
	}
	status.RemoteSaved = true
	return status, nil
}

// =============================================================================
// SUMMARY
// =============================================================================

// SummaryForCode recomputes the voucher view of one reservation from
// the current cache: composition-priced tour totals, row-summed add-on
// values, and the live paid/balance figures.
func (d *Desk) SummaryForCode(code string) (*booking.VoucherSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var rows []booking.PassengerRow
	for _, r := range d.cache.Passengers {
		if r.Code == code {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return nil, booking.ErrReservationNotFound
	}
	first := rows[0]

	q := pricing.QuoteInput{
		ServiceDate:  first.ServiceDate,
		TourDiscount: first.TourDiscount,
	}
	addonSubtotal := decimal.Zero
	for _, r := range rows {
		switch r.Category {
		case booking.CategoryAdult:
			q.Adults++
		case booking.CategoryChild:
			q.Children++
		case booking.CategoryInfant:
			q.Infants++
		}
		if r.Transport {
			q.Transport++
		}
		addonSubtotal = addonSubtotal.Add(r.AddonValue)
	}
	quote := pricing.Compute(q, d.cfg)

	addonDiscount := first.AddonDiscount
	if addonDiscount.GreaterThan(addonSubtotal) {
		addonDiscount = addonSubtotal
	}
	addonTotal := addonSubtotal.Sub(addonDiscount)

	paid := decimal.Zero
	for _, p := range d.cache.Payments {
		if p.Code == code {
			paid = paid.Add(p.Amount)
		}
	}

	grand := quote.TourTotal.Add(addonTotal)
	return &booking.VoucherSnapshot{
		Code:          code,
		Vendor:        first.Vendor,
		ServiceDate:   first.ServiceDate,
		AddonDate:     first.AddonDate,
		TourSubtotal:  quote.TourSubtotal,
		TourDiscount:  quote.TourDiscount,
		Transport:     quote.Transport,
		TourTotal:     quote.TourTotal,
		Provider:      first.Provider,
		AddonSubtotal: addonSubtotal,
		AddonDiscount: addonDiscount,
		AddonTotal:    addonTotal,
		GrandTotal:    grand,
		Paid:          paid,
		Balance:       grand.Sub(paid),
		Passengers:    len(rows),
		Adults:        q.Adults,
		Children:      q.Children,
		Infants:       q.Infants,
		Notes:         first.Notes,
	}, nil
}
