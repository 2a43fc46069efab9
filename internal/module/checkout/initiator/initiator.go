// Package initiator starts a subscription checkout on behalf of a signed-in user.
package initiator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/praxis/server/internal/infra/httpclient"
	"github.com/praxis/server/internal/module/checkout"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Defaults for the single monthly plan.
const (
	DefaultAmount      = 9.90
	DefaultDescription = "Praxis - Assinatura Mensal"
	DefaultLoginPath   = "/login"
	placeholderName    = "Usuário"
	maxResponseBytes   = 64 << 10
)

// Navigator performs full-page navigation of the browsing context.
type Navigator interface {
	Redirect(ctx context.Context, url string) error
}

// Notification is a user-facing message.
type Notification struct {
	Title   string
	Message string
	Error   bool
}

// Notifier surfaces notifications to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Initiator issues billing requests for the current session.
type Initiator struct {
	endpoint     string
	sessions     SessionSource
	navigator    Navigator
	notifier     Notifier
	client       *http.Client
	logger       *zap.Logger
	language     language.Tag
	loginPath    string
	amount       float64
	description  string
	requireTaxID bool

	busy atomic.Bool
}

// Option configures an Initiator.
type Option func(*Initiator)

// WithHTTPClient sets the client used to reach the billing endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Initiator) { i.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(i *Initiator) { i.logger = l }
}

// WithLanguage selects the notification language.
func WithLanguage(tag language.Tag) Option {
	return func(i *Initiator) { i.language = tag }
}

// WithLoginPath sets where unauthenticated users are sent.
func WithLoginPath(path string) Option {
	return func(i *Initiator) { i.loginPath = path }
}

// WithPlan overrides the charged amount and description.
func WithPlan(amount float64, description string) Option {
	return func(i *Initiator) {
		i.amount = amount
		i.description = description
	}
}

// WithRequireTaxID makes a missing cpf an error instead of sending the placeholder.
func WithRequireTaxID(require bool) Option {
	return func(i *Initiator) { i.requireTaxID = require }
}

// New creates an Initiator that posts to endpoint, e.g. https://api.praxis.app/api/billing.
func New(endpoint string, sessions SessionSource, navigator Navigator, notifier Notifier, opts ...Option) *Initiator {
	i := &Initiator{
		endpoint:    endpoint,
		sessions:    sessions,
		navigator:   navigator,
		notifier:    notifier,
		language:    language.BrazilianPortuguese,
		loginPath:   DefaultLoginPath,
		amount:      DefaultAmount,
		description: DefaultDescription,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.client == nil {
		i.client = httpclient.New(httpclient.DefaultConfig())
	}
	if i.logger == nil {
		i.logger = zap.NewNop()
	}
	return i
}

// Subscribe creates a billing for the current session and navigates to the
// provider checkout. It returns the checkout URL.
func (i *Initiator) Subscribe(ctx context.Context) (string, error) {
	if !i.busy.CompareAndSwap(false, true) {
		return "", ErrBusy
	}
	defer i.busy.Store(false)

	sess, err := i.sessions.Session(ctx)
	if err != nil || sess == nil || sess.AccessToken == "" || sess.UserID == "" {
		i.logger.Info("subscribe without session", zap.Error(err))
		i.notify(ctx, msgLoginRequired)
		if navErr := i.navigator.Redirect(ctx, i.loginPath); navErr != nil {
			i.logger.Warn("redirect to login failed", zap.Error(navErr))
		}
		return "", ErrUnauthenticated
	}

	log := i.logger.With(zap.String("user_id", sess.UserID))

	req, err := i.buildRequest(sess)
	if err != nil {
		log.Warn("billing request not sent", zap.Error(err))
		i.notify(ctx, msgTaxIDRequired)
		return "", err
	}

	resp, err := i.post(ctx, sess.AccessToken, req)
	if err != nil {
		log.Error("billing request failed", zap.Error(err))
		i.notify(ctx, msgInitiateFailed)
		return "", fmt.Errorf("%w: %w", ErrSubscriptionInitiationFailed, err)
	}

	log.Info("redirecting to checkout", zap.String("billing_id", resp.BillingID))
	if err := i.navigator.Redirect(ctx, resp.RedirectURL); err != nil {
		log.Error("redirect to checkout failed", zap.Error(err))
		i.notify(ctx, msgInitiateFailed)
		return "", fmt.Errorf("%w: navigate to checkout: %w", ErrSubscriptionInitiationFailed, err)
	}
	return resp.RedirectURL, nil
}

// buildRequest fills the billing payload from the session profile.
func (i *Initiator) buildRequest(sess *Session) (*checkout.BillingRequest, error) {
	req := &checkout.BillingRequest{
		UserID: sess.UserID,
		UserData: checkout.UserData{
			Name:      displayName(sess),
			Email:     sess.Email,
			CPF:       sess.CPF,
			Cellphone: sess.Cellphone,
		},
		Amount:      i.amount,
		Description: i.description,
	}
	req.Normalize()

	if req.UserData.CPF == "" {
		if i.requireTaxID {
			return nil, ErrMissingTaxID
		}
		req.UserData.CPF = checkout.SentinelCPF
	}
	return req, nil
}

func (i *Initiator) post(ctx context.Context, token string, payload *checkout.BillingRequest) (*checkout.BillingResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal billing request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build billing request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := i.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send billing request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read billing response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		respErr := &ResponseError{StatusCode: httpResp.StatusCode}
		var body checkout.ErrorResponse
		if json.Unmarshal(raw, &body) == nil {
			respErr.Code = body.Error
			respErr.Message = body.Message
		}
		return nil, respErr
	}

	var resp checkout.BillingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: success flag not set", ErrMalformedResponse)
	}
	if strings.TrimSpace(resp.RedirectURL) == "" {
		return nil, fmt.Errorf("%w: missing redirect_url", ErrMalformedResponse)
	}
	return &resp, nil
}

func (i *Initiator) notify(ctx context.Context, key string) {
	p := newPrinter(i.language)
	i.notifier.Notify(ctx, Notification{
		Title:   p.Sprintf(msgErrorTitle),
		Message: p.Sprintf(key),
		Error:   true,
	})
}

// displayName picks full name, then the email local part, then a placeholder.
func displayName(sess *Session) string {
	if name := strings.TrimSpace(sess.FullName); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(strings.TrimSpace(sess.Email), "@"); ok && local != "" {
		return local
	}
	return placeholderName
}

// IsInitiationFailure reports whether err is a failed billing attempt the user may retry.
func IsInitiationFailure(err error) bool {
	return errors.Is(err, ErrSubscriptionInitiationFailed)
}
