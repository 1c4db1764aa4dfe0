package domain

import (
	"errors"
	"fmt"
	"time"
)

// LoginFrom is the origin of the credential event.
type LoginFrom string

const (
	LoginFromPassword LoginFrom = "PASSWORD"
	LoginFromGoogle   LoginFrom = "GOOGLE"
)

func (f LoginFrom) Valid() bool {
	switch f {
	case LoginFromPassword, LoginFromGoogle:
		return true
	}
	return false
}

// LoginWith is the identifying field the user logged in with.
type LoginWith string

const (
	LoginWithEmail        LoginWith = "EMAIL"
	LoginWithMobileNumber LoginWith = "MOBILE_NUMBER"
	LoginWithUsername     LoginWith = "USERNAME"
)

func (w LoginWith) Valid() bool {
	switch w {
	case LoginWithEmail, LoginWithMobileNumber, LoginWithUsername:
		return true
	}
	return false
}

// ErrInvalidPayload is returned by Validate for structurally invalid payloads.
var ErrInvalidPayload = errors.New("domain: invalid payload")

// UserRef is the opaque user reference carried in tokens.
type UserRef struct {
	ID string `json:"_id"`
}

// LoginPayload is what an access token carries. Field order is the wire
// order: loginDate leads so ciphertexts diverge right after the constant
// opening bytes.
type LoginPayload struct {
	LoginDate time.Time `json:"loginDate"`
	User      UserRef   `json:"user"`
	LoginFrom LoginFrom `json:"loginFrom"`
	LoginWith LoginWith `json:"loginWith"`
}

// RefreshPayload has the same shape as LoginPayload so a refresh can
// regenerate an equivalent access payload without re-authentication.
type RefreshPayload = LoginPayload

// NewLoginPayload stamps loginDate with now.
func NewLoginPayload(userID string, from LoginFrom, with LoginWith, now time.Time) LoginPayload {
	return LoginPayload{
		LoginDate: now.UTC(),
		User:      UserRef{ID: userID},
		LoginFrom: from,
		LoginWith: with,
	}
}

func (p LoginPayload) Validate() error {
	switch {
	case p.User.ID == "":
		return fmt.Errorf("%w: missing user._id", ErrInvalidPayload)
	case p.LoginDate.IsZero():
		return fmt.Errorf("%w: missing loginDate", ErrInvalidPayload)
	case !p.LoginFrom.Valid():
		return fmt.Errorf("%w: loginFrom %q", ErrInvalidPayload, p.LoginFrom)
	case !p.LoginWith.Valid():
		return fmt.Errorf("%w: loginWith %q", ErrInvalidPayload, p.LoginWith)
	}
	return nil
}

// ValidateAt is Validate plus the rule that a login cannot lie in the future.
func (p LoginPayload) ValidateAt(now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.LoginDate.After(now) {
		return fmt.Errorf("%w: loginDate %s is after %s", ErrInvalidPayload,
			p.LoginDate.UTC().Format(time.RFC3339Nano), now.UTC().Format(time.RFC3339Nano))
	}
	return nil
}

// PrincipalID lets HTTP middleware key on the authenticated user.
func (p LoginPayload) PrincipalID() string { return p.User.ID }

// TokenKind selects keys, TTLs and cipher for a token.
type TokenKind int

const (
	Access TokenKind = iota
	Refresh
)

func (k TokenKind) String() string {
	switch k {
	case Access:
		return "access"
	case Refresh:
		return "refresh"
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}
