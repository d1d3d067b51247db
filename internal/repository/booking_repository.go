package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	bookingDomain "github.com/ProLink-Marketplace/service-booking/internal/domain/booking"
	"github.com/ProLink-Marketplace/service-booking/pkg/domain"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerID      uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProID           uuid.UUID       `gorm:"type:uuid;index;not null"`
	ServiceName     string          `gorm:"not null;size:120"`
	Status          string          `gorm:"not null;size:30;index"`
	StatusHistory   json.RawMessage `gorm:"type:jsonb;not null"`
	Price           float64         `gorm:"not null"`
	Currency        string          `gorm:"not null;size:3;default:'usd'"`
	PaymentIntentID *string         `gorm:"size:64;index"`
	PaymentStatus   string          `gorm:"not null;size:20;default:'UNPAID'"`
	AcceptedAt      *time.Time      `gorm:""`
	EnRouteAt       *time.Time      `gorm:""`
	StartedAt       *time.Time      `gorm:""`
	CompletedAt     *time.Time      `gorm:""`
	CancelledAt     *time.Time      `gorm:""`
	CancelNote      string          `gorm:"size:500"`
	Notes           string          `gorm:"size:1000"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of booking.Repository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByCustomerID retrieves bookings owned by a customer with pagination.
func (r *GormBookingRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findWhere(ctx, "customer_id = ?", customerID, page, limit)
}

// FindByProID retrieves bookings assigned to a pro with pagination.
func (r *GormBookingRepository) FindByProID(ctx context.Context, proID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findWhere(ctx, "pro_id = ?", proID, page, limit)
}

func (r *GormBookingRepository) findWhere(ctx context.Context, cond string, id uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where(cond, id).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where(cond, id).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// UpdateGuarded persists the aggregate's state in a single atomic update
// conditional on the status the caller read. Zero affected rows means a
// concurrent writer won the race; the row's present status is re-read and
// returned inside a Conflict error so the caller can reconcile.
func (r *GormBookingRepository) UpdateGuarded(ctx context.Context, bk *bookingDomain.Booking, expectedStatus bookingDomain.Status) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND status IN ?", model.ID, expectedStatus.StoredNames()).
		Updates(map[string]interface{}{
			"status":            model.Status,
			"status_history":    model.StatusHistory,
			"payment_intent_id": model.PaymentIntentID,
			"payment_status":    model.PaymentStatus,
			"accepted_at":       model.AcceptedAt,
			"en_route_at":       model.EnRouteAt,
			"started_at":        model.StartedAt,
			"completed_at":      model.CompletedAt,
			"cancelled_at":      model.CancelledAt,
			"cancel_note":       model.CancelNote,
			"updated_at":        model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		current := r.currentStatus(ctx, model.ID)
		return domain.NewConflictError("booking was modified by another transaction", current)
	}

	return nil
}

// currentStatus re-reads the row's status after a lost race; best effort.
func (r *GormBookingRepository) currentStatus(ctx context.Context, id uuid.UUID) string {
	var model BookingModel
	if err := r.db.WithContext(ctx).Select("status").Where("id = ?", id).First(&model).Error; err != nil {
		return ""
	}
	return model.Status
}

// ListAll retrieves all bookings with pagination (admin).
func (r *GormBookingRepository) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	return toDomainBookings(models, total)
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	historyJSON, err := json.Marshal(bk.History())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status history: %w", err)
	}

	return &BookingModel{
		ID:              bk.ID(),
		CustomerID:      bk.CustomerID(),
		ProID:           bk.ProID(),
		ServiceName:     bk.ServiceName(),
		Status:          string(bk.Status()),
		StatusHistory:   historyJSON,
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
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var history []bookingDomain.StatusChange
	if err := json.Unmarshal(m.StatusHistory, &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status history: %w", err)
	}

	status, err := bookingDomain.ParseStatus(m.Status)
	if err != nil {
		return nil, err
	}

	return bookingDomain.Reconstruct(
		m.ID,
		m.CustomerID,
		m.ProID,
		m.ServiceName,
		status,
		history,
		m.Price,
		m.Currency,
		m.PaymentIntentID,
		bookingDomain.PaymentStatus(m.PaymentStatus),
		m.AcceptedAt,
		m.EnRouteAt,
		m.StartedAt,
		m.CompletedAt,
		m.CancelledAt,
		m.CancelNote,
		m.Notes,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toDomainBookings(models []BookingModel, total int64) ([]*bookingDomain.Booking, int64, error) {
	bookings := make([]*bookingDomain.Booking, len(models))
	for i, m := range models {
		bk, err := toDomainBooking(&m)
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}
	return bookings, total, nil
}
