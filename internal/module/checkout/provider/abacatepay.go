package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/praxis/server/internal/utils/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	abacatePayName    = "abacatepay"
	createBillingPath = "/billing/create"
	maxErrorBody      = 4 << 10
)

// AbacatePayConfig holds AbacatePay client settings.
type AbacatePayConfig struct {
	BaseURL  string
	APIToken string

	// Circuit breaker
	FailureThreshold uint32
	OpenTimeout      time.Duration
	MaxHalfOpen      uint32
}

// AbacatePay is the AbacatePay billing API client.
type AbacatePay struct {
	config  AbacatePayConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Billing]
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewAbacatePay creates a new AbacatePay client.
func NewAbacatePay(cfg AbacatePayConfig, client *http.Client, m *metrics.Metrics, logger *zap.Logger) *AbacatePay {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.MaxHalfOpen == 0 {
		cfg.MaxHalfOpen = 1
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	p := &AbacatePay{
		config:  cfg,
		client:  client,
		metrics: m,
		logger:  logger,
	}

	p.breaker = gobreaker.NewCircuitBreaker[*Billing](gobreaker.Settings{
		Name:        abacatePayName,
		MaxRequests: cfg.MaxHalfOpen,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			m.SetBreakerState(int(to))
		},
		IsSuccessful: isHealthy,
	})

	return p
}

// Name returns the provider name.
func (p *AbacatePay) Name() string {
	return abacatePayName
}

// CreateBilling posts the billing to AbacatePay.
func (p *AbacatePay) CreateBilling(ctx context.Context, req *BillingRequest) (*Billing, error) {
	start := time.Now()
	billing, err := p.breaker.Execute(func() (*Billing, error) {
		return p.createBilling(ctx, req)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		p.metrics.RecordProviderCall(abacatePayName, metrics.OutcomeProviderTripped, time.Since(start))
		return nil, fmt.Errorf("%w: %v", ErrBreakerOpen, err)
	case err != nil:
		p.metrics.RecordProviderCall(abacatePayName, metrics.OutcomeProviderError, time.Since(start))
		return nil, err
	}

	p.metrics.RecordProviderCall(abacatePayName, metrics.OutcomeProviderOK, time.Since(start))
	return billing, nil
}

// --- Wire format ---

type createBillingResponse struct {
	Data *struct {
		ID     string `json:"id"`
		URL    string `json:"url"`
		Status string `json:"status"`
	} `json:"data"`
	Error any `json:"error"`
}

func (p *AbacatePay) createBilling(ctx context.Context, req *BillingRequest) (*Billing, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode billing request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+createBillingPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build billing request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out createBillingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out.Data == nil || out.Data.ID == "" || out.Data.URL == "" {
		return nil, fmt.Errorf("%w: missing data.id or data.url", ErrMalformedResponse)
	}

	return &Billing{ID: out.Data.ID, URL: out.Data.URL, Status: out.Data.Status}, nil
}

// isHealthy decides what the breaker counts as a provider failure.
// Rejections of a specific request (4xx, malformed bodies) leave it closed.
func isHealthy(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Temporary()
	}
	if errors.Is(err, ErrMalformedResponse) || errors.Is(err, context.Canceled) {
		return true
	}
	return false
}
