package identity

import (
	dErrors "trustid/pkg/domain-errors"
)

// Templates for errors.Is. Returned errors carry the same code plus detail.
var (
	ErrRejected            = &dErrors.Error{Code: dErrors.CodeRejected}
	ErrUnreachable         = &dErrors.Error{Code: dErrors.CodeUnreachable}
	ErrProviderUnavailable = &dErrors.Error{Code: dErrors.CodeProviderUnavailable}
	ErrMissingClaims       = &dErrors.Error{Code: dErrors.CodeMissingClaims}
)
