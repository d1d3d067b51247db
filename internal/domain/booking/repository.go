package booking

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence contract for booking aggregates.
//
// UpdateGuarded is the single mutation path for existing rows: the write is
// conditional on the status the caller read before mutating the aggregate.
// When another writer changed the status concurrently the conditional update
// affects zero rows and a Conflict error carrying the row's present status
// is returned; nothing is silently overwritten.
type Repository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByCustomerID retrieves a customer's bookings with pagination.
	FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// FindByProID retrieves a pro's assigned bookings with pagination.
	FindByProID(ctx context.Context, proID uuid.UUID, page, limit int) ([]*Booking, int64, error)

	// ListAll retrieves all bookings with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Booking, int64, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, bk *Booking) error

	// UpdateGuarded persists the aggregate's current state, conditional on
	// the row still holding expectedStatus.
	UpdateGuarded(ctx context.Context, bk *Booking, expectedStatus Status) error
}
