package app

import (
	"context"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/getsentry/sentry-go"
)

func initSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          BuildVersion,
		AttachStacktrace: true,
	})
}

func flushSentry() {
	sentry.Flush(2 * time.Second)
}

// SentryAuditor forwards every failure to Next and additionally reports the
// ones caused by the system rather than the user.
type SentryAuditor struct {
	Next service.Auditor
	Hub  *sentry.Hub
}

func (a SentryAuditor) LoginFailed(ctx context.Context, accountID string, cause service.FailureCause, err error) {
	if a.Next != nil {
		a.Next.LoginFailed(ctx, accountID, cause, err)
	}
	if cause != service.CauseConfigUnavailable || err == nil {
		return
	}

	hub := a.Hub
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("cause", string(cause))
		scope.SetUser(sentry.User{ID: accountID})
		hub.CaptureException(err)
	})
}
