package service

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
)

// DefaultMaxAttempt applies when neither settings nor config name a limit.
const DefaultMaxAttempt = 5

// AttemptPolicy decides whether an account has run out of password attempts.
// It holds no state; both settings are read on every call.
type AttemptPolicy struct {
	Settings SettingsProvider

	// Fallbacks used when the settings do not exist.
	Enabled    bool
	MaxAttempt int
}

// ShouldBlock reports enabled && attempts >= max. If either setting cannot
// be read it blocks and returns ErrConfigUnavailable.
func (p *AttemptPolicy) ShouldBlock(ctx context.Context, attempts int) (bool, error) {
	enabled, err := p.Settings.GetBool(ctx, domain.SettingPasswordAttempt, p.Enabled)
	if err != nil {
		return true, fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
	}
	if !enabled {
		return false, nil
	}

	fallback := p.MaxAttempt
	if fallback <= 0 {
		fallback = DefaultMaxAttempt
	}
	limit, err := p.Settings.GetInt(ctx, domain.SettingMaxPasswordAttempt, fallback)
	if err != nil {
		return true, fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
	}

	return attempts >= limit, nil
}

// Check is ShouldBlock expressed as a decision.
func (p *AttemptPolicy) Check(ctx context.Context, attempts int) (domain.AttemptDecision, error) {
	block, err := p.ShouldBlock(ctx, attempts)
	if block {
		return domain.Blocked, err
	}
	return domain.Allowed, err
}
