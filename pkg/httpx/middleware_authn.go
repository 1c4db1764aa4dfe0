package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

var (
	ErrMissingToken = errors.New("httpx: missing authorization token")
	ErrTokenScheme  = errors.New("httpx: unexpected authorization scheme")
)

// ParseAuthorization extracts the token from "<prefix> <token>". The prefix
// is compared case-insensitively as RFC 7235 requires.
func ParseAuthorization(header, prefix string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok {
		return "", ErrMissingToken
	}
	if !strings.EqualFold(scheme, prefix) {
		return "", ErrTokenScheme
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

// AuthnMiddleware validates the Authorization header with validate and
// injects the resulting payload into the request context. Failures get an
// RFC 6750 challenge; the reason is only logged.
func AuthnMiddleware[T any](prefix string, validate func(token string) (T, error)) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, err := ParseAuthorization(r.Header.Get("Authorization"), prefix)
			if err != nil {
				writeBearerError(w, prefix, "missing or malformed authorization header")
				return
			}

			payload, err := validate(raw)
			if err != nil {
				log.Warn("token validation failed",
					"err", err,
					"token_fp", cryptox.FingerprintToken(raw),
				)
				writeBearerError(w, prefix, "token validation failed")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, payload)))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, scheme, desc string) {
	w.Header().Set("WWW-Authenticate", scheme+` error="invalid_token", error_description="`+desc+`"`)
	NoCache(w)
	w.WriteHeader(http.StatusUnauthorized)
}
