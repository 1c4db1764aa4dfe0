package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/authcore/pkg/slogx"
)

// FailureCause is the internal reason behind an ErrInvalidCredentials.
// Causes are logged and reported, never returned to the caller.
type FailureCause string

const (
	CauseUnknownAccount    FailureCause = "unknown_account"
	CauseWrongPassword     FailureCause = "wrong_password"
	CausePasswordExpired   FailureCause = "password_expired"
	CauseAttemptsExceeded  FailureCause = "attempts_exceeded"
	CauseConfigUnavailable FailureCause = "config_unavailable"
)

// Auditor records why a login failed.
type Auditor interface {
	LoginFailed(ctx context.Context, accountID string, cause FailureCause, err error)
}

// LogAuditor writes failures to the context logger.
type LogAuditor struct{}

func (LogAuditor) LoginFailed(ctx context.Context, accountID string, cause FailureCause, err error) {
	attrs := []any{
		slog.String("account_id", accountID),
		slog.String("cause", string(cause)),
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}

	l := slogx.FromContext(ctx)
	if cause == CauseConfigUnavailable {
		l.Error("login failed", attrs...)
		return
	}
	l.Warn("login failed", attrs...)
}
