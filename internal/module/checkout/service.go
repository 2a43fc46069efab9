package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/praxis/server/internal/module/checkout/provider"
	"github.com/praxis/server/internal/utils/metrics"
	"github.com/praxis/server/internal/utils/requestctx"
	"go.uber.org/zap"
)

// ServiceConfig holds the plan and redirect settings used to build provider requests.
// A zero PlanAmount or empty PlanDescription accepts any value from the client.
type ServiceConfig struct {
	PlanName        string
	PlanAmount      float64
	PlanDescription string
	SuccessMessage  string
	ReturnURL      string
	CompletionURL  string
}

// Service implements billing creation.
type Service struct {
	repo     Repository
	provider provider.Provider
	config   ServiceConfig
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new checkout service.
func NewService(
	repo Repository,
	p provider.Provider,
	cfg ServiceConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	if cfg.PlanName == "" {
		cfg.PlanName = "Praxis Mensal"
	}
	if cfg.SuccessMessage == "" {
		cfg.SuccessMessage = "Cobrança criada com sucesso"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		provider: p,
		config:   cfg,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateBilling creates the provider billing and records the pending subscription and payment.
// Nothing is written when the provider call fails.
func (s *Service) CreateBilling(ctx context.Context, req *BillingRequest) (*BillingResponse, error) {
	log := s.logger.With(
		zap.String("user_id", req.UserID),
		zap.String("request_id", requestctx.RequestID(ctx)),
	)

	providerReq, err := s.buildProviderRequest(req)
	if err != nil {
		s.metrics.RecordBillingAttempt(metrics.OutcomeInvalid)
		return nil, err
	}

	billing, err := s.provider.CreateBilling(ctx, providerReq)
	if err != nil {
		s.metrics.RecordBillingAttempt(metrics.OutcomeProviderFailed)
		fields := []zap.Field{zap.String("provider", s.provider.Name()), zap.Error(err)}
		var apiErr *provider.APIError
		if errors.As(err, &apiErr) {
			fields = append(fields, zap.Int("status", apiErr.StatusCode), zap.String("provider_body", apiErr.Body))
		}
		log.Error("provider billing creation failed", fields...)
		return nil, fmt.Errorf("%w: %w", ErrProviderCallFailed, err)
	}

	log = log.With(zap.String("billing_id", billing.ID))

	now := s.now().UTC()
	sub := &Subscription{
		UserID:           req.UserID,
		AssinaturaID:     billing.ID,
		DataAssinatura:   now,
		ProximoPagamento: NextPaymentDate(now),
		AssinaturaAtiva:  false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	payment := &Payment{
		ID:                uuid.New(),
		UserID:            req.UserID,
		AssinaturaID:      billing.ID,
		ReferenciaExterna: billing.ID,
		Valor:             req.Amount,
		MetodoPagamento:   PaymentMethodPIX,
		Status:            PaymentStatusPending,
		CreatedAt:         now,
	}

	if err := s.repo.SavePending(ctx, sub, payment); err != nil {
		s.metrics.RecordBillingAttempt(metrics.OutcomePersistFailed)
		// The provider billing exists upstream with no local bookkeeping.
		log.Error("billing created upstream but not recorded locally",
			zap.String("billing_url", billing.URL),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %w", ErrPersistenceFailed, err)
	}

	s.metrics.RecordBillingAttempt(metrics.OutcomeCreated)
	log.Info("billing created", zap.String("payment_id", payment.ID.String()))

	return &BillingResponse{
		Success:     true,
		BillingID:   billing.ID,
		RedirectURL: billing.URL,
		Message:     s.config.SuccessMessage,
	}, nil
}

// GetSubscription returns the user's subscription.
func (s *Service) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	return s.repo.GetSubscription(ctx, userID)
}

func (s *Service) buildProviderRequest(req *BillingRequest) (*provider.BillingRequest, error) {
	price, err := ToMinorUnits(req.Amount)
	if err != nil {
		return nil, invalid(err.Error())
	}
	if s.config.PlanAmount > 0 {
		planPrice, err := ToMinorUnits(s.config.PlanAmount)
		if err != nil {
			return nil, fmt.Errorf("plan amount: %w", err)
		}
		if price != planPrice {
			return nil, invalid("amount does not match the plan price")
		}
	}
	if s.config.PlanDescription != "" && req.Description != s.config.PlanDescription {
		return nil, invalid("description does not match the plan")
	}

	return &provider.BillingRequest{
		Frequency: provider.FrequencyMonthly,
		Methods:   []string{provider.MethodPIX},
		Products: []provider.Product{{
			ExternalID:  ExternalID(req.UserID),
			Name:        s.config.PlanName,
			Description: req.Description,
			Quantity:    1,
			Price:       price,
		}},
		Customer: provider.Customer{
			Name:      req.UserData.Name,
			Email:     req.UserData.Email,
			TaxID:     req.UserData.CPF,
			Cellphone: req.UserData.Cellphone,
		},
		ReturnURL:     s.config.ReturnURL,
		CompletionURL: s.config.CompletionURL,
	}, nil
}
