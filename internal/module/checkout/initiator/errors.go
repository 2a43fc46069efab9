package initiator

import (
	"errors"
	"fmt"
)

// Initiator errors.
var (
	ErrUnauthenticated              = errors.New("no authenticated session")
	ErrNoSession                    = errors.New("session not found")
	ErrMissingTaxID                 = errors.New("profile has no cpf")
	ErrBusy                         = errors.New("subscription already in progress")
	ErrSubscriptionInitiationFailed = errors.New("subscription initiation failed")
	ErrMalformedResponse            = errors.New("malformed billing response")
)

// ResponseError is a non-2xx answer from the billing endpoint.
type ResponseError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("billing endpoint returned %d", e.StatusCode)
	}
	return fmt.Sprintf("billing endpoint returned %d: %s: %s", e.StatusCode, e.Code, e.Message)
}
