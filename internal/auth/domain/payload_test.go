package domain_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestLoginPayload_Validate(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	valid := domain.NewLoginPayload("123456", domain.LoginFromPassword, domain.LoginWithEmail, now)

	tests := []struct {
		name    string
		mutate  func(*domain.LoginPayload)
		wantErr bool
	}{
		{"valid", func(*domain.LoginPayload) {}, false},
		{"google mobile", func(p *domain.LoginPayload) {
			p.LoginFrom = domain.LoginFromGoogle
			p.LoginWith = domain.LoginWithMobileNumber
		}, false},
		{"missing user", func(p *domain.LoginPayload) { p.User.ID = "" }, true},
		{"missing login date", func(p *domain.LoginPayload) { p.LoginDate = time.Time{} }, true},
		{"unknown loginFrom", func(p *domain.LoginPayload) { p.LoginFrom = "FACEBOOK" }, true},
		{"lowercase loginWith", func(p *domain.LoginPayload) { p.LoginWith = "email" }, true},
		{"empty loginWith", func(p *domain.LoginPayload) { p.LoginWith = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)

			err := p.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoginPayload_ValidateAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		loginDate time.Time
		wantErr   bool
	}{
		{"past", now.Add(-time.Hour), false},
		{"now", now, false},
		{"one nanosecond ahead", now.Add(time.Nanosecond), true},
		{"tomorrow", now.Add(24 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := domain.NewLoginPayload("123456", domain.LoginFromPassword, domain.LoginWithEmail, tt.loginDate)
			err := p.ValidateAt(now)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
		})
	}

	var empty domain.LoginPayload
	require.ErrorIs(t, empty.ValidateAt(now), domain.ErrInvalidPayload)
}

func TestLoginPayload_JSON(t *testing.T) {
	p := domain.NewLoginPayload("123456", domain.LoginFromPassword, domain.LoginWithEmail,
		time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("AEST", 10*3600)))

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(string(raw), `{"loginDate":"2025-03-01T02:00:00Z"`), string(raw))
	require.Contains(t, string(raw), `"user":{"_id":"123456"}`)
	require.Contains(t, string(raw), `"loginFrom":"PASSWORD"`)
	require.Contains(t, string(raw), `"loginWith":"EMAIL"`)
	require.Equal(t, "123456", p.PrincipalID())
}

func TestTokenKind_String(t *testing.T) {
	require.Equal(t, "access", domain.Access.String())
	require.Equal(t, "refresh", domain.Refresh.String())
	require.Equal(t, "TokenKind(7)", domain.TokenKind(7).String())
}
