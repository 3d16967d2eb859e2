package flows

import (
	"errors"

	"github.com/credlock/credlock/jwt"
)

// ValidateFailureKind classifies validation failures for root-level mapping.
type ValidateFailureKind int

const (
	ValidateFailureNone ValidateFailureKind = iota
	ValidateFailureExpired
	ValidateFailureUnauthorized
)

// ValidateResult returns either the parsed claims or a classified failure.
type ValidateResult struct {
	Failure ValidateFailureKind
	Err     error
	Claims  *jwt.AccessClaims
}

// ValidateDeps captures access-token validation dependencies.
type ValidateDeps struct {
	ParseAccess  func(string) (*jwt.AccessClaims, error)
	TokenExpired error
}

// RunValidate executes stateless access-token validation. No store is
// consulted: validity is proven by signature and time claims alone.
func RunValidate(tokenStr string, deps ValidateDeps) ValidateResult {
	claims, err := deps.ParseAccess(tokenStr)
	if err != nil {
		if deps.TokenExpired != nil && errors.Is(err, deps.TokenExpired) {
			return ValidateResult{Failure: ValidateFailureExpired, Err: err}
		}
		return ValidateResult{Failure: ValidateFailureUnauthorized, Err: err}
	}

	return ValidateResult{Claims: claims}
}
