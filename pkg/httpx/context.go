package httpx

import "context"

type ctxKey int

const (
	ctxKeyPrincipal ctxKey = iota
	ctxKeyPrincipalID
)

// Identified is implemented by principals that can name themselves, which
// lets rate limiting key on the authenticated account.
type Identified interface {
	PrincipalID() string
}

// WithPrincipal stores the validated token payload in ctx.
func WithPrincipal[T any](ctx context.Context, p T) context.Context {
	ctx = context.WithValue(ctx, ctxKeyPrincipal, p)
	if id, ok := any(p).(Identified); ok {
		ctx = context.WithValue(ctx, ctxKeyPrincipalID, id.PrincipalID())
	}
	return ctx
}

// Principal returns the payload injected by AuthnMiddleware.
func Principal[T any](ctx context.Context) (T, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(T)
	return p, ok
}

// PrincipalID is empty for anonymous requests.
func PrincipalID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyPrincipalID).(string)
	return id
}
