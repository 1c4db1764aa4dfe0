package service

import "errors"

var (
	// ErrPayloadDecode means a token verified (and decrypted) but its data
	// is not a valid login payload.
	ErrPayloadDecode = errors.New("service: payload decode failed")

	// ErrConfigUnavailable means a policy setting could not be read or
	// coerced. Callers must treat it as blocking.
	ErrConfigUnavailable = errors.New("service: configuration unavailable")

	// ErrInvalidCredentials is the only failure a login caller ever sees.
	ErrInvalidCredentials = errors.New("service: invalid credentials")

	ErrInvalidAuthorization = errors.New("service: invalid authorization header")

	// ErrSettingValue means a stored value does not parse as its type tag.
	ErrSettingValue = errors.New("service: setting value does not match its type")
)
