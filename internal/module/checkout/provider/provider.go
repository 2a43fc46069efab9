package provider

import (
	"context"
	"errors"
	"fmt"
)

// Billing frequencies and methods accepted by the provider.
const (
	FrequencyMonthly = "MONTHLY"
	MethodPIX        = "PIX"
)

// Provider errors.
var (
	ErrBreakerOpen       = errors.New("provider circuit open")
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Provider creates hosted billing instances.
type Provider interface {
	// Name returns the provider name used in logs and metrics.
	Name() string

	// CreateBilling creates one billing instance and returns its id and checkout URL.
	CreateBilling(ctx context.Context, req *BillingRequest) (*Billing, error)
}

// Customer identifies the payer.
type Customer struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	TaxID     string `json:"taxId"`
	Cellphone string `json:"cellphone,omitempty"`
}

// Product is one billed line. Price is in minor units.
type Product struct {
	ExternalID  string `json:"externalId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

// BillingRequest is the billing-creation payload.
type BillingRequest struct {
	Frequency     string    `json:"frequency"`
	Methods       []string  `json:"methods"`
	Products      []Product `json:"products"`
	Customer      Customer  `json:"customer"`
	ReturnURL     string    `json:"returnUrl,omitempty"`
	CompletionURL string    `json:"completionUrl,omitempty"`
}

// Billing is a created billing instance.
type Billing struct {
	ID     string
	URL    string
	Status string
}

// APIError is a non-success reply from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the failure reflects provider health rather than the request.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
