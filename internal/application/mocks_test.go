package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	bookingDomain "github.com/ProLink-Marketplace/service-booking/internal/domain/booking"
	"github.com/ProLink-Marketplace/service-booking/internal/domain/payment"
	"github.com/ProLink-Marketplace/service-booking/pkg/domain"
)

// fakeBookingRepo is an in-memory booking.Repository reproducing the
// status-guarded compare-and-set semantics of the real store.
type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*bookingDomain.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[uuid.UUID]*bookingDomain.Booking)}
}

func cloneBooking(bk *bookingDomain.Booking) *bookingDomain.Booking {
	history := make([]bookingDomain.StatusChange, len(bk.History()))
	copy(history, bk.History())

	var intentID *string
	if id := bk.PaymentIntentID(); id != nil {
		v := *id
		intentID = &v
	}

	return bookingDomain.Reconstruct(
		bk.ID(), bk.CustomerID(), bk.ProID(),
		bk.ServiceName(),
		bk.Status(),
		history,
		bk.Price(),
		bk.Currency(),
		intentID,
		bk.PaymentStatus(),
		bk.AcceptedAt(), bk.EnRouteAt(), bk.StartedAt(), bk.CompletedAt(), bk.CancelledAt(),
		bk.CancelNote(), bk.Notes(),
		bk.CreatedAt(), bk.UpdatedAt(),
	)
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.bookings[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return cloneBooking(bk), nil
}

func (r *fakeBookingRepo) FindByCustomerID(_ context.Context, customerID uuid.UUID, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if bk.CustomerID() == customerID {
			result = append(result, cloneBooking(bk))
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeBookingRepo) FindByProID(_ context.Context, proID uuid.UUID, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*bookingDomain.Booking
	for _, bk := range r.bookings {
		if bk.ProID() == proID {
			result = append(result, cloneBooking(bk))
		}
	}
	return result, int64(len(result)), nil
}

func (r *fakeBookingRepo) ListAll(_ context.Context, _, _ int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*bookingDomain.Booking
	for _, bk := range r.bookings {
		result = append(result, cloneBooking(bk))
	}
	return result, int64(len(result)), nil
}

func (r *fakeBookingRepo) CountByStatus(_ context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, bk := range r.bookings {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (r *fakeBookingRepo) Save(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[bk.ID()] = cloneBooking(bk)
	return nil
}

func (r *fakeBookingRepo) UpdateGuarded(_ context.Context, bk *bookingDomain.Booking, expectedStatus bookingDomain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[bk.ID()]
	if !ok {
		return domain.NewNotFoundError("Booking", bk.ID().String())
	}
	if stored.Status() != expectedStatus {
		return domain.NewConflictError("booking was modified by another transaction", string(stored.Status()))
	}
	r.bookings[bk.ID()] = cloneBooking(bk)
	return nil
}

// recordingNotifier captures emitted notifications.
type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	RecipientID uuid.UUID
	EventType   string
	Payload     interface{}
}

func (n *recordingNotifier) Emit(_ context.Context, recipientID uuid.UUID, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{RecipientID: recipientID, EventType: eventType, Payload: payload})
}

func (n *recordingNotifier) recorded() []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]recordedEvent, len(n.events))
	copy(out, n.events)
	return out
}

// fakeGateway is an in-memory payment.Gateway.
type fakeGateway struct {
	mu      sync.Mutex
	intents map[string]*payment.Intent
	created []payment.CreateIntentParams
	seq     int

	createErr   error
	retrieveErr error
	captureErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: make(map[string]*payment.Intent)}
}

// CreateIntent always returns an intent awaiting the customer's client-side
// confirmation; tests drive later provider states through setIntentStatus.
func (g *fakeGateway) CreateIntent(_ context.Context, params payment.CreateIntentParams) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	intent := &payment.Intent{
		ID:                  fmt.Sprintf("pi_test_%03d", g.seq),
		ClientSecret:        fmt.Sprintf("pi_test_%03d_secret", g.seq),
		AmountCents:         params.AmountCents,
		Currency:            params.Currency,
		Status:              payment.IntentRequiresConfirmation,
		ApplicationFeeCents: params.ApplicationFeeCents,
		Destination:         params.Destination,
	}
	g.intents[intent.ID] = intent
	g.created = append(g.created, params)
	return intent, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, id string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	intent, ok := g.intents[id]
	if !ok {
		return nil, domain.NewUpstreamError("no such payment_intent: "+id, nil)
	}
	copied := *intent
	return &copied, nil
}

func (g *fakeGateway) CaptureIntent(_ context.Context, id string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	intent, ok := g.intents[id]
	if !ok {
		return nil, domain.NewUpstreamError("no such payment_intent: "+id, nil)
	}
	intent.Status = payment.IntentSucceeded
	copied := *intent
	return &copied, nil
}

func (g *fakeGateway) setIntentStatus(id string, status payment.IntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if intent, ok := g.intents[id]; ok {
		intent.Status = status
	}
}

func (g *fakeGateway) createdParams() []payment.CreateIntentParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]payment.CreateIntentParams, len(g.created))
	copy(out, g.created)
	return out
}

// fakeAccountRepo is an in-memory payment.AccountRepository.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*payment.ConnectedAccount
	findErr  error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*payment.ConnectedAccount)}
}

func (r *fakeAccountRepo) FindByProID(_ context.Context, proID uuid.UUID) (*payment.ConnectedAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	account, ok := r.accounts[proID]
	if !ok {
		return nil, domain.NewNotFoundError("PaymentAccount", proID.String())
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) Upsert(_ context.Context, account *payment.ConnectedAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *account
	r.accounts[account.ProID] = &copied
	return nil
}
