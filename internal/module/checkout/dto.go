package checkout

import (
	"strings"
	"time"
)

// UserData is the payer profile sent by the initiator.
type UserData struct {
	Name      string `json:"name" validate:"required,max=120"`
	Email     string `json:"email" validate:"required,email,max=254"`
	CPF       string `json:"cpf" validate:"required,cpf"`
	Cellphone string `json:"cellphone,omitempty" validate:"omitempty,min=10,max=13,numeric"`
}

// BillingRequest is the body of POST /billing.
type BillingRequest struct {
	UserID      string   `json:"user_id" validate:"required,max=128"`
	UserData    UserData `json:"user_data"`
	Amount      float64  `json:"amount" validate:"gt=0,lte=100000"`
	Description string   `json:"description" validate:"required,max=255"`
}

// Normalize trims whitespace and strips punctuation from document and phone numbers.
func (r *BillingRequest) Normalize() {
	r.UserID = strings.TrimSpace(r.UserID)
	r.Description = strings.TrimSpace(r.Description)
	r.UserData.Name = strings.TrimSpace(r.UserData.Name)
	r.UserData.Email = strings.TrimSpace(r.UserData.Email)
	r.UserData.CPF = digitsOnly(r.UserData.CPF)
	r.UserData.Cellphone = digitsOnly(r.UserData.Cellphone)
}

// BillingResponse is the success body of POST /billing.
type BillingResponse struct {
	Success     bool   `json:"success"`
	BillingID   string `json:"billing_id"`
	RedirectURL string `json:"redirect_url"`
	Message     string `json:"message"`
}

// ErrorResponse is the failure body of every checkout endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SubscriptionResponse is the body of GET /subscription.
type SubscriptionResponse struct {
	UserID           string    `json:"user_id"`
	AssinaturaID     string    `json:"assinatura_id"`
	DataAssinatura   time.Time `json:"data_assinatura"`
	ProximoPagamento time.Time `json:"proximo_pagamento"`
	AssinaturaAtiva  bool      `json:"assinatura_ativa"`
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
