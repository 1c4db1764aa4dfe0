package jwtx

import (
	"errors"
	"fmt"
)

// ErrInvalid is the root of every verification failure. Callers that only
// care whether a token can be trusted match on it with errors.Is.
var ErrInvalid = errors.New("jwtx: invalid token")

var (
	ErrMalformed   = fmt.Errorf("%w: malformed", ErrInvalid)
	ErrAlgMismatch = fmt.Errorf("%w: algorithm mismatch", ErrInvalid)
	ErrInvalidSig  = fmt.Errorf("%w: invalid signature", ErrInvalid)

	ErrIssuer      = fmt.Errorf("%w: issuer mismatch", ErrInvalid)
	ErrAudience    = fmt.Errorf("%w: audience mismatch", ErrInvalid)
	ErrSubject     = fmt.Errorf("%w: subject mismatch", ErrInvalid)
	ErrExpired     = fmt.Errorf("%w: token expired", ErrInvalid)
	ErrNotYetValid = fmt.Errorf("%w: token not yet valid", ErrInvalid)
)

// Configuration errors, returned by constructors and never wrap ErrInvalid.
var (
	ErrEmptySecret = errors.New("jwtx: empty signing secret")
	ErrNoSigner    = errors.New("jwtx: codec requires a signer")
	ErrNegativeTTL = errors.New("jwtx: negative duration")
)
