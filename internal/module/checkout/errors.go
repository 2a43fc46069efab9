package checkout

import "errors"

// Module errors.
var (
	ErrInvalidRequest     = errors.New("invalid billing request")
	ErrSubjectMismatch    = errors.New("token subject does not match user_id")
	ErrProviderCallFailed = errors.New("provider call failed")
	ErrPersistenceFailed  = errors.New("persistence failed")
	ErrNotFound           = errors.New("subscription not found")
)

// GenericFailureMessage is the only failure text returned for provider or database errors.
const GenericFailureMessage = "Não foi possível criar a cobrança. Tente novamente mais tarde."
