package checkout

import (
	"time"

	"github.com/google/uuid"
)

// Payment methods and statuses written by this module.
const (
	PaymentMethodPIX     = "PIX"
	PaymentStatusPending = "pending"
)

// Subscription is a user's recurring-billing enrollment. Keyed by user.
// This module never sets AssinaturaAtiva; activation belongs to payment confirmation.
type Subscription struct {
	UserID           string    `gorm:"column:user_id;primaryKey"`
	AssinaturaID     string    `gorm:"column:assinatura_id;not null"`
	DataAssinatura   time.Time `gorm:"column:data_assinatura;not null"`
	ProximoPagamento time.Time `gorm:"column:proximo_pagamento;not null"`
	AssinaturaAtiva  bool      `gorm:"column:assinatura_ativa;not null"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

// TableName returns the database table name.
func (Subscription) TableName() string {
	return "assinaturas"
}

// ToResponse converts to the API representation.
func (s *Subscription) ToResponse() *SubscriptionResponse {
	return &SubscriptionResponse{
		UserID:           s.UserID,
		AssinaturaID:     s.AssinaturaID,
		DataAssinatura:   s.DataAssinatura,
		ProximoPagamento: s.ProximoPagamento,
		AssinaturaAtiva:  s.AssinaturaAtiva,
	}
}

// Payment is one billing attempt. Rows are only ever inserted.
type Payment struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID            string    `gorm:"column:user_id;not null;index"`
	AssinaturaID      string    `gorm:"column:assinatura_id;not null"`
	ReferenciaExterna string    `gorm:"column:referencia_externa;not null"`
	Valor             float64   `gorm:"column:valor;type:numeric(10,2);not null"`
	MetodoPagamento   string    `gorm:"column:metodo_pagamento;not null"`
	Status            string    `gorm:"column:status;not null"`
	CreatedAt         time.Time `gorm:"column:created_at"`
}

// TableName returns the database table name.
func (Payment) TableName() string {
	return "pagamentos"
}

// NextPaymentDate returns the due date one calendar month after start.
func NextPaymentDate(start time.Time) time.Time {
	return start.AddDate(0, 1, 0)
}
