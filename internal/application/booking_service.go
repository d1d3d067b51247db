package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/ProLink-Marketplace/service-booking/internal/domain/booking"
	"github.com/ProLink-Marketplace/service-booking/internal/events"
	"github.com/ProLink-Marketplace/service-booking/pkg/domain"
)

// CreateBookingRequest holds the data needed to request a service pro.
type CreateBookingRequest struct {
	ProID       uuid.UUID `json:"pro_id" binding:"required"`
	ServiceName string    `json:"service_name" binding:"required"`
	Price       float64   `json:"price" binding:"required"`
	Currency    string    `json:"currency"`
	Notes       string    `json:"notes"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID              uuid.UUID                    `json:"id"`
	CustomerID      uuid.UUID                    `json:"customer_id"`
	ProID           uuid.UUID                    `json:"pro_id"`
	ServiceName     string                       `json:"service_name"`
	Status          string                       `json:"status"`
	History         []bookingDomain.StatusChange `json:"status_history"`
	Price           float64                      `json:"price"`
	Currency        string                       `json:"currency"`
	PaymentIntentID *string                      `json:"payment_intent_id,omitempty"`
	PaymentStatus   string                       `json:"payment_status"`
	AcceptedAt      *time.Time                   `json:"accepted_at,omitempty"`
	EnRouteAt       *time.Time                   `json:"en_route_at,omitempty"`
	StartedAt       *time.Time                   `json:"started_at,omitempty"`
	CompletedAt     *time.Time                   `json:"completed_at,omitempty"`
	CancelledAt     *time.Time                   `json:"cancelled_at,omitempty"`
	CancelNote      string                       `json:"cancel_note,omitempty"`
	Notes           string                       `json:"notes,omitempty"`
	CreatedAt       time.Time                    `json:"created_at"`
	UpdatedAt       time.Time                    `json:"updated_at"`
}

// BookingService orchestrates the booking lifecycle: it validates the actor
// against the operation, applies the transition on the aggregate, persists
// it with a status-guarded update, and emits the counterparty notification
// only after the write committed.
type BookingService struct {
	repo     bookingDomain.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(repo bookingDomain.Repository, notifier Notifier, logger *zap.Logger) *BookingService {
	return &BookingService{repo: repo, notifier: notifier, logger: logger}
}

// CreateBooking creates a new booking request addressed to a pro.
func (s *BookingService) CreateBooking(ctx context.Context, customerID uuid.UUID, req CreateBookingRequest) (*BookingDTO, error) {
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	bk, err := bookingDomain.NewBooking(customerID, req.ProID, req.ServiceName, req.Price, currency, req.Notes)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.notify(ctx, bk, bk.ProID(), events.BookingRequested, "")

	result := toBookingDTO(bk)
	return &result, nil
}

// AcceptBooking lets the assigned pro accept a requested booking.
func (s *BookingService) AcceptBooking(ctx context.Context, bookingID, proID uuid.UUID) (*BookingDTO, error) {
	return s.proTransition(ctx, bookingID, proID, events.BookingAccepted, (*bookingDomain.Booking).Accept)
}

// DeclineBooking lets the assigned pro decline a requested booking.
func (s *BookingService) DeclineBooking(ctx context.Context, bookingID, proID uuid.UUID) (*BookingDTO, error) {
	return s.proTransition(ctx, bookingID, proID, events.BookingDeclined, (*bookingDomain.Booking).Decline)
}

// MarkOnTheWay lets the assigned pro signal they are en route.
func (s *BookingService) MarkOnTheWay(ctx context.Context, bookingID, proID uuid.UUID) (*BookingDTO, error) {
	return s.proTransition(ctx, bookingID, proID, events.BookingProOnTheWay, (*bookingDomain.Booking).MarkOnTheWay)
}

// StartJob lets the assigned pro mark work as started.
func (s *BookingService) StartJob(ctx context.Context, bookingID, proID uuid.UUID) (*BookingDTO, error) {
	return s.proTransition(ctx, bookingID, proID, events.BookingStarted, (*bookingDomain.Booking).Start)
}

// CompleteJob lets the assigned pro mark work as finished, moving the
// booking to awaiting_payment and prompting the customer to pay.
func (s *BookingService) CompleteJob(ctx context.Context, bookingID, proID uuid.UUID) (*BookingDTO, error) {
	return s.proTransition(ctx, bookingID, proID, events.BookingPaymentRequired, (*bookingDomain.Booking).Complete)
}

// proTransition runs the generic transition algorithm for a pro-side
// operation: load, verify actor, apply, persist guarded, notify customer.
func (s *BookingService) proTransition(
	ctx context.Context,
	bookingID, proID uuid.UUID,
	eventType string,
	apply func(*bookingDomain.Booking) error,
) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if bk.ProID() != proID {
		return nil, domain.NewForbiddenError("booking is not assigned to this pro")
	}

	expected := bk.Status()
	if err := apply(bk); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateGuarded(ctx, bk, expected); err != nil {
		return nil, err
	}

	s.notify(ctx, bk, bk.CustomerID(), eventType, "")

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels a booking. Either party on the booking may cancel
// while it has not reached a terminal or completed state.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actorID != bk.CustomerID() && actorID != bk.ProID() {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}

	expected := bk.Status()
	if err := bk.Cancel(reason); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateGuarded(ctx, bk, expected); err != nil {
		return nil, err
	}

	counterparty := bk.ProID()
	if actorID == bk.ProID() {
		counterparty = bk.CustomerID()
	}
	s.notify(ctx, bk, counterparty, events.BookingCancelled, reason)

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking returns a booking to either assigned party.
func (s *BookingService) GetBooking(ctx context.Context, bookingID, actorID uuid.UUID) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actorID != bk.CustomerID() && actorID != bk.ProID() {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetCustomerBookings retrieves paginated bookings owned by a customer.
func (s *BookingService) GetCustomerBookings(ctx context.Context, customerID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByCustomerID(ctx, customerID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// GetProBookings retrieves paginated bookings assigned to a pro.
func (s *BookingService) GetProBookings(ctx context.Context, proID uuid.UUID, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	bookings, total, err := s.repo.FindByProID(ctx, proID, page, limit)
	if err != nil {
		return nil, err
	}
	result := domain.NewPaginatedResult(toBookingDTOs(bookings), total, page, limit)
	return &result, nil
}

// --- Admin methods ---

// BookingStatsDTO holds booking statistics for the admin dashboard.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// ListAllBookings returns a paginated list of all bookings (admin).
func (s *BookingService) ListAllBookings(ctx context.Context, page, limit int) ([]BookingDTO, int64, error) {
	bookings, total, err := s.repo.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return toBookingDTOs(bookings), total, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}
	return &BookingStatsDTO{TotalBookings: total, ByStatus: counts}, nil
}

// --- Helpers ---

func (s *BookingService) notify(ctx context.Context, bk *bookingDomain.Booking, recipientID uuid.UUID, eventType, note string) {
	s.notifier.Emit(ctx, recipientID, eventType, events.BookingNotification{
		BookingID:   bk.ID(),
		RecipientID: recipientID,
		CustomerID:  bk.CustomerID(),
		ProID:       bk.ProID(),
		Status:      string(bk.Status()),
		ServiceName: bk.ServiceName(),
		Note:        note,
		OccurredAt:  time.Now().UTC(),
	})
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:              bk.ID(),
		CustomerID:      bk.CustomerID(),
		ProID:           bk.ProID(),
		ServiceName:     bk.ServiceName(),
		Status:          string(bk.Status()),
		History:         bk.History(),
		Price:           bk.Price(),
		Currency:        bk.Currency(),
		PaymentIntentID: bk.PaymentIntentID(),
		PaymentStatus:   string(bk.PaymentStatus()),
		AcceptedAt:      bk.AcceptedAt(),
		EnRouteAt:       bk.EnRouteAt(),
		StartedAt:       bk.StartedAt(),
		CompletedAt:     bk.CompletedAt(),
		CancelledAt:     bk.CancelledAt(),
		CancelNote:      bk.CancelNote(),
		Notes:           bk.Notes(),
		CreatedAt:       bk.CreatedAt(),
		UpdatedAt:       bk.UpdatedAt(),
	}
}

func toBookingDTOs(bookings []*bookingDomain.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}
	return dtos
}
