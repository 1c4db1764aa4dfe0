package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var (
	ErrTokenRejected = errors.New("oauth: token rejected by provider")
	ErrNoAccessToken = errors.New("oauth: provider returned no access token")
)

// TokenInfo is the subset of Google's tokeninfo response the auth flows use.
type TokenInfo struct {
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	Subject       string    `json:"sub"`
	Audience      string    `json:"aud"`
	Scope         string    `json:"scope"`
	ExpiresAt     time.Time `json:"-"`
}

// RefreshedToken is what a refresh grant hands back.
type RefreshedToken struct {
	AccessToken string
	TokenType   string
	Expiry      time.Time
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string

	// Overridable for tests.
	TokenInfoURL string
	Endpoint     oauth2.Endpoint
	HTTPClient   *http.Client
}

// GoogleClient talks to Google's token endpoints on behalf of users that
// logged in through Google.
type GoogleClient struct {
	conf         *oauth2.Config
	tokenInfoURL string
	httpClient   *http.Client
}

func NewGoogleClient(cfg GoogleConfig) *GoogleClient {
	if cfg.TokenInfoURL == "" {
		cfg.TokenInfoURL = DefaultTokenInfoURL
	}
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = google.Endpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoogleClient{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		tokenInfoURL: cfg.TokenInfoURL,
		httpClient:   cfg.HTTPClient,
	}
}

// tokenInfoResponse mirrors the wire format, where Google sends numbers and
// booleans as strings.
type tokenInfoResponse struct {
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Sub           string `json:"sub"`
	Aud           string `json:"aud"`
	Scope         string `json:"scope"`
	Exp           string `json:"exp"`
	Error         string `json:"error"`
	ErrorDesc     string `json:"error_description"`
}

// GetTokenInfo asks Google who an access token belongs to.
func (c *GoogleClient) GetTokenInfo(ctx context.Context, accessToken string) (TokenInfo, error) {
	u := c.tokenInfoURL + "?" + url.Values{"access_token": {accessToken}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("oauth: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenInfo{}, fmt.Errorf("oauth: failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return TokenInfo{}, fmt.Errorf("oauth: failed to read response body: %w", err)
	}

	var raw tokenInfoResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return TokenInfo{}, fmt.Errorf("oauth: failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return TokenInfo{}, fmt.Errorf("%w: %d %s", ErrTokenRejected, resp.StatusCode, raw.ErrorDesc)
	}

	info := TokenInfo{
		Email:         raw.Email,
		EmailVerified: raw.EmailVerified == "true",
		Subject:       raw.Sub,
		Audience:      raw.Aud,
		Scope:         raw.Scope,
	}
	if exp, err := strconv.ParseInt(raw.Exp, 10, 64); err == nil {
		info.ExpiresAt = time.Unix(exp, 0).UTC()
	}
	return info, nil
}

// RefreshToken trades a Google refresh token for a new access token.
func (c *GoogleClient) RefreshToken(ctx context.Context, refreshToken string) (RefreshedToken, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return RefreshedToken{}, fmt.Errorf("%w: %s", ErrTokenRejected, re.ErrorCode)
		}
		return RefreshedToken{}, fmt.Errorf("oauth: refresh: %w", err)
	}
	if tok.AccessToken == "" {
		return RefreshedToken{}, ErrNoAccessToken
	}

	return RefreshedToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.Type(),
		Expiry:      tok.Expiry,
	}, nil
}
