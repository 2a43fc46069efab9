package checkout

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for checkout data access.
type Repository interface {
	// SavePending upserts the subscription and appends the payment in one transaction.
	SavePending(ctx context.Context, sub *Subscription, payment *Payment) error

	// GetSubscription returns the user's subscription or ErrNotFound.
	GetSubscription(ctx context.Context, userID string) (*Subscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new checkout repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) SavePending(ctx context.Context, sub *Subscription, payment *Payment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"assinatura_id",
				"data_assinatura",
				"proximo_pagamento",
				"assinatura_ativa",
				"updated_at",
			}),
		}).Create(sub).Error
		if err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}

		if err := tx.Create(payment).Error; err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		return nil
	})
}

func (r *repository) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	var sub Subscription
	err := r.db.WithContext(ctx).First(&sub, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}
