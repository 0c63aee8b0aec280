package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cineseat/internal/clock"
	apperrors "cineseat/internal/errors"
	"cineseat/internal/lockstore"
	"cineseat/internal/models"
)

// fakeBookingStore keeps bookings in memory and enforces the session_id
// uniqueness the real table provides.
type fakeBookingStore struct {
	byID      map[string]*models.Booking
	bySession map[string]*models.Booking
	tickets   map[string][]models.Ticket
	nextID    int
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{
		byID:      make(map[string]*models.Booking),
		bySession: make(map[string]*models.Booking),
		tickets:   make(map[string][]models.Ticket),
	}
}

func (f *fakeBookingStore) Create(_ context.Context, booking *models.Booking) error {
	if _, exists := f.bySession[booking.SessionID]; exists {
		return fmt.Errorf("duplicate session_id %s", booking.SessionID)
	}
	f.nextID++
	booking.ID = fmt.Sprintf("bk-%d", f.nextID)
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	stored := *booking
	f.byID[booking.ID] = &stored
	f.bySession[booking.SessionID] = &stored
	f.tickets[booking.ID] = append([]models.Ticket(nil), booking.Tickets...)
	return nil
}

func (f *fakeBookingStore) GetByID(_ context.Context, id string) (*models.Booking, error) {
	b, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	out := *b
	out.Tickets = nil
	return &out, nil
}

func (f *fakeBookingStore) GetBySessionID(_ context.Context, sessionID string) (*models.Booking, error) {
	b, ok := f.bySession[sessionID]
	if !ok {
		return nil, nil
	}
	out := *b
	out.Tickets = nil
	return &out, nil
}

func (f *fakeBookingStore) ListByOwner(_ context.Context, ownerID string) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range f.byID {
		if b.OwnerID == ownerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) UpdateStatus(_ context.Context, id, status string) error {
	b, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("booking %s not found", id)
	}
	b.Status = status
	return nil
}

func (f *fakeBookingStore) GetTickets(_ context.Context, bookingID string) ([]models.Ticket, error) {
	return f.tickets[bookingID], nil
}

// fakeGateway records void and refund calls.
type fakeGateway struct {
	voided   []string
	refunded []string
}

func (g *fakeGateway) VoidPayment(paymentID string, _ string) error {
	g.voided = append(g.voided, paymentID)
	return nil
}

func (g *fakeGateway) RefundPayment(paymentID string, _ int64, _ string) error {
	g.refunded = append(g.refunded, paymentID)
	return nil
}

type bookingFixture struct {
	svc       *BookingService
	locks     lockstore.Store
	bookings  *fakeBookingStore
	gateway   *fakeGateway
	publisher *recordingPublisher
	clk       *clock.Fake
}

func newBookingFixture() *bookingFixture {
	clk := clock.NewFake(testStart)
	store := lockstore.NewMemoryStore(clk)
	bookings := newFakeBookingStore()
	gateway := &fakeGateway{}
	publisher := &recordingPublisher{}
	svc := NewBookingService(store, bookings, newFakeCatalog(), gateway, publisher, nil, clk)
	return &bookingFixture{
		svc:       svc,
		locks:     store,
		bookings:  bookings,
		gateway:   gateway,
		publisher: publisher,
		clk:       clk,
	}
}

func (f *bookingFixture) hold(t *testing.T, sessionID string, seats ...string) {
	t.Helper()
	payload := models.BookingPayload{}
	for _, code := range seats {
		payload.Seats = append(payload.Seats, models.PricedSeat{SeatCode: code, SeatType: models.SeatNormal, Price: 8000})
		payload.TotalAmount += 8000
	}
	_, err := f.locks.TryAcquire(context.Background(), lockstore.AcquireRequest{
		ShowtimeID:   "st-1",
		SeatCodes:    seats,
		SessionID:    sessionID,
		OwnerID:      "user-1",
		HoldDuration: testHold,
		Payload:      payload,
	})
	require.NoError(t, err)
}

func TestFinalize_SuccessCreatesBookingAndTickets(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	f.hold(t, "lock_abc", "A1", "A2")

	booking, err := f.svc.Finalize(ctx, &models.FinalizeBookingRequest{
		SessionID: "lock_abc",
		PaymentResult: models.PaymentResult{
			PaymentID: "pay-1",
			Status:    models.PaymentSucceeded,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingConfirmed, booking.Status)
	assert.Equal(t, []string{"A1", "A2"}, booking.SeatCodes)
	assert.Equal(t, int64(16000), booking.TotalAmount)
	require.NotNil(t, booking.PaymentID)
	assert.Equal(t, "pay-1", *booking.PaymentID)
	require.Len(t, booking.Tickets, 2)
	assert.NotEmpty(t, booking.Tickets[0].Barcode)

	// Seats are now sold, not merely held.
	_, err = f.locks.TryAcquire(ctx, lockstore.AcquireRequest{
		ShowtimeID: "st-1", SeatCodes: []string{"A1"}, SessionID: "lock_other", HoldDuration: testHold,
	})
	var conflict *apperrors.ConflictError
	require.ErrorAs(t, err, &conflict)

	assert.Contains(t, f.publisher.subjects(), models.EventBookingConfirmed)
	assert.Empty(t, f.gateway.voided)
}

func TestFinalize_IdempotentRetry(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	f.hold(t, "lock_abc", "A1")

	req := &models.FinalizeBookingRequest{
		SessionID: "lock_abc",
		PaymentResult: models.PaymentResult{
			PaymentID: "pay-1",
			Status:    models.PaymentSucceeded,
		},
	}

	first, err := f.svc.Finalize(ctx, req)
	require.NoError(t, err)

	second, err := f.svc.Finalize(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.bookings.byID, 1)
	assert.Empty(t, f.gateway.voided, "retry must not touch the gateway")
}

func TestFinalize_ExpiredHoldVoidsPayment(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	f.hold(t, "lock_abc", "A1")
	f.clk.Advance(8 * time.Minute)

	_, err := f.svc.Finalize(ctx, &models.FinalizeBookingRequest{
		SessionID: "lock_abc",
		PaymentResult: models.PaymentResult{
			PaymentID: "pay-1",
			Status:    models.PaymentSucceeded,
		},
	})
	assert.ErrorIs(t, err, apperrors.ErrHoldExpired)

	assert.Equal(t, []string{"pay-1"}, f.gateway.voided)
	assert.Contains(t, f.publisher.subjects(), models.EventPaymentVoided)
	assert.Empty(t, f.bookings.byID)
}

func TestFinalize_UnknownSessionVoidsPayment(t *testing.T) {
	f := newBookingFixture()

	_, err := f.svc.Finalize(context.Background(), &models.FinalizeBookingRequest{
		SessionID: "lock_never",
		PaymentResult: models.PaymentResult{
			PaymentID: "pay-9",
			Status:    models.PaymentSucceeded,
		},
	})
	assert.ErrorIs(t, err, apperrors.ErrHoldExpired)
	assert.Equal(t, []string{"pay-9"}, f.gateway.voided)
}

func TestFinalize_PaymentFailureReleasesSeats(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	f.hold(t, "lock_abc", "A1", "A2")

	_, err := f.svc.Finalize(ctx, &models.FinalizeBookingRequest{
		SessionID: "lock_abc",
		PaymentResult: models.PaymentResult{
			Status: models.PaymentFailed,
		},
	})
	assert.ErrorIs(t, err, apperrors.ErrPaymentFailed)

	// Seats go straight back into circulation.
	_, err = f.locks.TryAcquire(ctx, lockstore.AcquireRequest{
		ShowtimeID: "st-1", SeatCodes: []string{"A1", "A2"}, SessionID: "lock_next", HoldDuration: testHold,
	})
	require.NoError(t, err)

	assert.Contains(t, f.publisher.subjects(), models.EventLockReleased)
	assert.Empty(t, f.bookings.byID)
	assert.Empty(t, f.gateway.voided)
}

func TestFinalize_UnknownPaymentStatus(t *testing.T) {
	f := newBookingFixture()
	f.hold(t, "lock_abc", "A1")

	_, err := f.svc.Finalize(context.Background(), &models.FinalizeBookingRequest{
		SessionID: "lock_abc",
		PaymentResult: models.PaymentResult{
			Status: "maybe",
		},
	})
	var verr *apperrors.ValidationError
	require.ErrorAs(t, err, &verr)

	// The hold is untouched until a definite outcome arrives.
	seats, err := f.locks.ActiveSeats(context.Background(), "st-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, seats)
}

func TestCancel_RefundsAndIsIdempotent(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	f.hold(t, "lock_abc", "A1")
	booking, err := f.svc.Finalize(ctx, &models.FinalizeBookingRequest{
		SessionID: "lock_abc",
		PaymentResult: models.PaymentResult{
			PaymentID: "pay-1",
			Status:    models.PaymentSucceeded,
		},
	})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, booking.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	assert.Equal(t, []string{"pay-1"}, f.gateway.refunded)

	// Second cancel is a no-op, no double refund.
	_, err = f.svc.Cancel(ctx, booking.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pay-1"}, f.gateway.refunded)
}

func TestCancel_ReturnsSeatsToInventory(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	f.hold(t, "lock_abc", "A1", "A2")
	booking, err := f.svc.Finalize(ctx, &models.FinalizeBookingRequest{
		SessionID: "lock_abc",
		PaymentResult: models.PaymentResult{
			PaymentID: "pay-1",
			Status:    models.PaymentSucceeded,
		},
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, booking.ID, "user-1")
	require.NoError(t, err)

	// Cancelled seats are sellable again, not stranded as sold.
	attempt, err := f.locks.TryAcquire(ctx, lockstore.AcquireRequest{
		ShowtimeID: "st-1", SeatCodes: []string{"A1", "A2"}, SessionID: "lock_next", HoldDuration: testHold,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, attempt.SeatCodes)

	assert.Contains(t, f.publisher.subjects(), models.EventBookingCancelled)
}

func TestCancel_WrongOwnerForbidden(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	f.hold(t, "lock_abc", "A1")
	booking, err := f.svc.Finalize(ctx, &models.FinalizeBookingRequest{
		SessionID: "lock_abc",
		PaymentResult: models.PaymentResult{
			PaymentID: "pay-1",
			Status:    models.PaymentSucceeded,
		},
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, booking.ID, "someone-else")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCancel_UnknownBooking(t *testing.T) {
	f := newBookingFixture()

	_, err := f.svc.Cancel(context.Background(), "bk-missing", "user-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
