package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ProLink-Marketplace/service-booking/internal/domain/payment"
	"github.com/ProLink-Marketplace/service-booking/pkg/domain"
)

// PaymentAccountModel is the GORM model for pro connected payout accounts.
type PaymentAccountModel struct {
	ProID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	AccountID      string    `gorm:"not null;size:64;uniqueIndex"`
	ChargesEnabled bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (PaymentAccountModel) TableName() string {
	return "payment_accounts"
}

// GormAccountRepository is the GORM-based implementation of payment.AccountRepository.
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository.
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByProID returns the pro's connected account.
func (r *GormAccountRepository) FindByProID(ctx context.Context, proID uuid.UUID) (*payment.ConnectedAccount, error) {
	var model PaymentAccountModel
	if err := r.db.WithContext(ctx).Where("pro_id = ?", proID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("PaymentAccount", proID.String())
		}
		return nil, fmt.Errorf("failed to find payment account: %w", err)
	}

	return &payment.ConnectedAccount{
		ProID:          model.ProID,
		AccountID:      model.AccountID,
		ChargesEnabled: model.ChargesEnabled,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
	}, nil
}

// Upsert creates or updates the pro's connected account.
func (r *GormAccountRepository) Upsert(ctx context.Context, account *payment.ConnectedAccount) error {
	now := time.Now().UTC()
	model := PaymentAccountModel{
		ProID:          account.ProID,
		AccountID:      account.AccountID,
		ChargesEnabled: account.ChargesEnabled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pro_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"account_id", "charges_enabled", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert payment account: %w", err)
	}
	return nil
}
