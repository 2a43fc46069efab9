package checkout

import (
	"context"

	"github.com/praxis/server/internal/module/checkout/provider"
	"github.com/stretchr/testify/mock"
)

// --- Mock Repository ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SavePending(ctx context.Context, sub *Subscription, payment *Payment) error {
	args := m.Called(ctx, sub, payment)
	return args.Error(0)
}

func (m *MockRepository) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Subscription), args.Error(1)
}

// --- Mock Provider ---

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) CreateBilling(ctx context.Context, req *provider.BillingRequest) (*provider.Billing, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Billing), args.Error(1)
}
