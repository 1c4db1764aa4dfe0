package domain

import "time"

// TokenPair is what a login or refresh hands back to the caller.
type TokenPair struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	TokenType    string        `json:"tokenType"` // prefixAuthorization, typically "Bearer"
	ExpiresIn    time.Duration `json:"expiresIn"` // access token lifetime
}
