package claim

import (
	"fmt"

	"github.com/alecgard/troupe/internal/apperr"
)

// Claim workflow errors. Each wraps one of the apperr kinds.
var (
	ErrSelfLink         = fmt.Errorf("%w: an account cannot claim itself", apperr.ErrValidation)
	ErrInvalidRole      = fmt.Errorf("%w: target account is not a dancer", apperr.ErrValidation)
	ErrClaimInProgress  = fmt.Errorf("%w: a claim is already in progress for this account", apperr.ErrValidation)
	ErrInvalidDecision  = fmt.Errorf("%w: decision must be approved, rejected or completed", apperr.ErrValidation)
	ErrMissingTarget    = fmt.Errorf("%w: claim has no target account", apperr.ErrValidation)
	ErrClaimNotPending  = fmt.Errorf("%w: claim is not pending", apperr.ErrConflict)
	ErrClaimNotApproved = fmt.Errorf("%w: claim is not approved", apperr.ErrConflict)
	ErrUnauthorized     = fmt.Errorf("%w: admin role required", apperr.ErrUnauthorized)
)
