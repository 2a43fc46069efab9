package checkout

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/praxis/server/internal/module/checkout/provider"
	apperrors "github.com/praxis/server/internal/shared/errors"
	"github.com/praxis/server/internal/utils/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(repo Repository, p provider.Provider) (*Service, *metrics.Metrics) {
	m := metrics.New("test", prometheus.NewRegistry())
	svc := NewService(repo, p, ServiceConfig{
		PlanName:       "Praxis Mensal",
		SuccessMessage: "Cobrança criada com sucesso",
		ReturnURL:      "https://praxis.app/assinatura",
	}, m, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC) }
	return svc, m
}

func TestService_CreateBilling(t *testing.T) {
	repo := new(MockRepository)
	prov := new(MockProvider)
	svc, m := newTestService(repo, prov)

	prov.On("CreateBilling", mock.Anything, mock.MatchedBy(func(req *provider.BillingRequest) bool {
		p := req.Products[0]
		return req.Frequency == "MONTHLY" &&
			len(req.Methods) == 1 && req.Methods[0] == "PIX" &&
			len(req.Products) == 1 &&
			p.ExternalID == "praxis-monthly-abc123" &&
			p.Price == 990 && p.Quantity == 1 &&
			p.Name == "Praxis Mensal" &&
			p.Description == "Praxis - Assinatura Mensal" &&
			req.Customer.TaxID == SentinelCPF &&
			req.Customer.Name == "Maria Silva" &&
			req.ReturnURL == "https://praxis.app/assinatura"
	})).Return(&provider.Billing{ID: "bill_1", URL: "https://pay/bill_1"}, nil)

	var savedSub *Subscription
	var savedPayment *Payment
	repo.On("SavePending", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			savedSub = args.Get(1).(*Subscription)
			savedPayment = args.Get(2).(*Payment)
		}).
		Return(nil)

	resp, err := svc.CreateBilling(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, &BillingResponse{
		Success:     true,
		BillingID:   "bill_1",
		RedirectURL: "https://pay/bill_1",
		Message:     "Cobrança criada com sucesso",
	}, resp)

	require.NotNil(t, savedSub)
	assert.Equal(t, "abc123", savedSub.UserID)
	assert.Equal(t, "bill_1", savedSub.AssinaturaID)
	assert.False(t, savedSub.AssinaturaAtiva)
	assert.Equal(t, time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC), savedSub.DataAssinatura)
	// Jan 31 + 1 month normalizes to Mar 3 (2025 is not a leap year).
	assert.Equal(t, time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), savedSub.ProximoPagamento)

	require.NotNil(t, savedPayment)
	assert.Equal(t, "bill_1", savedPayment.AssinaturaID)
	assert.Equal(t, "bill_1", savedPayment.ReferenciaExterna)
	assert.Equal(t, 9.90, savedPayment.Valor)
	assert.Equal(t, "PIX", savedPayment.MetodoPagamento)
	assert.Equal(t, "pending", savedPayment.Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BillingAttemptsTotal.WithLabelValues(metrics.OutcomeCreated)))
	prov.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestService_CreateBilling_ProviderFailure(t *testing.T) {
	repo := new(MockRepository)
	prov := new(MockProvider)
	svc, m := newTestService(repo, prov)

	prov.On("CreateBilling", mock.Anything, mock.Anything).
		Return(nil, &provider.APIError{StatusCode: 402, Body: `{"error":"payment required"}`})

	_, err := svc.CreateBilling(context.Background(), validRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderCallFailed)

	var apiErr *provider.APIError
	assert.ErrorAs(t, err, &apiErr)

	repo.AssertNotCalled(t, "SavePending", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BillingAttemptsTotal.WithLabelValues(metrics.OutcomeProviderFailed)))
}

func TestService_CreateBilling_EnforcesPlan(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *BillingRequest)
		message string
	}{
		{"cheaper amount", func(r *BillingRequest) { r.Amount = 0.01 }, "amount does not match the plan price"},
		{"higher amount", func(r *BillingRequest) { r.Amount = 99.90 }, "amount does not match the plan price"},
		{"other description", func(r *BillingRequest) { r.Description = "Praxis - Plano Pro" }, "description does not match the plan"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			prov := new(MockProvider)
			svc, m := newTestService(repo, prov)
			svc.config.PlanAmount = 9.90
			svc.config.PlanDescription = "Praxis - Assinatura Mensal"

			req := validRequest()
			tt.mutate(req)

			_, err := svc.CreateBilling(context.Background(), req)
			require.ErrorIs(t, err, ErrInvalidRequest)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
			assert.Equal(t, tt.message, appErr.Message)

			prov.AssertNotCalled(t, "CreateBilling", mock.Anything, mock.Anything)
			repo.AssertNotCalled(t, "SavePending", mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.BillingAttemptsTotal.WithLabelValues(metrics.OutcomeInvalid)))
		})
	}
}

func TestService_CreateBilling_MatchingPlan(t *testing.T) {
	repo := new(MockRepository)
	prov := new(MockProvider)
	svc, _ := newTestService(repo, prov)
	svc.config.PlanAmount = 9.90
	svc.config.PlanDescription = "Praxis - Assinatura Mensal"

	prov.On("CreateBilling", mock.Anything, mock.Anything).
		Return(&provider.Billing{ID: "bill_1", URL: "https://pay/bill_1"}, nil)
	repo.On("SavePending", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.CreateBilling(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "bill_1", resp.BillingID)
}

func TestService_CreateBilling_PersistenceFailure(t *testing.T) {
	repo := new(MockRepository)
	prov := new(MockProvider)
	svc, m := newTestService(repo, prov)

	prov.On("CreateBilling", mock.Anything, mock.Anything).
		Return(&provider.Billing{ID: "bill_1", URL: "https://pay/bill_1"}, nil)
	repo.On("SavePending", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection reset"))

	resp, err := svc.CreateBilling(context.Background(), validRequest())
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrPersistenceFailed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BillingAttemptsTotal.WithLabelValues(metrics.OutcomePersistFailed)))
}

func TestService_CreateBilling_RoundsAmount(t *testing.T) {
	repo := new(MockRepository)
	prov := new(MockProvider)
	svc, _ := newTestService(repo, prov)

	prov.On("CreateBilling", mock.Anything, mock.MatchedBy(func(req *provider.BillingRequest) bool {
		return req.Products[0].Price == 991
	})).Return(&provider.Billing{ID: "bill_2", URL: "https://pay/bill_2"}, nil)
	repo.On("SavePending", mock.Anything, mock.Anything, mock.MatchedBy(func(p *Payment) bool {
		return p.Valor == 9.905
	})).Return(nil)

	req := validRequest()
	req.Amount = 9.905
	_, err := svc.CreateBilling(context.Background(), req)
	require.NoError(t, err)
	prov.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestService_GetSubscription(t *testing.T) {
	repo := new(MockRepository)
	svc, _ := newTestService(repo, new(MockProvider))

	repo.On("GetSubscription", mock.Anything, "abc123").Return(nil, ErrNotFound)

	_, err := svc.GetSubscription(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrNotFound)
}
