package serviceaccount

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	assertionTTL = time.Hour
	jwtBearer    = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	maxErrBody   = 2048
)

// ErrTokenExchange marks every failure of the assertion-for-token exchange.
var ErrTokenExchange = errors.New("token exchange failed")

// Token is a bearer access token and the time it stops being valid.
type Token struct {
	AccessToken string
	Expiry      time.Time
}

// Assertion signs the RS256 JWT presented to the token endpoint at audience.
func (c *Credentials) Assertion(scope, audience string, now time.Time) (string, error) {
	if c == nil || c.key == nil {
		return "", errors.New("service account credentials not loaded")
	}
	// aud must serialize as a plain string, which RegisteredClaims does not do.
	claims := jwt.MapClaims{
		"iss":   c.ClientEmail,
		"scope": scope,
		"aud":   audience,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("signing assertion: %w", err)
	}
	return signed, nil
}

// Exchange trades a fresh assertion for an access token. tokenURL overrides
// the credentials' token_uri when set; it is also used as the audience.
func (c *Credentials) Exchange(ctx context.Context, httpClient *http.Client, tokenURL, scope string) (Token, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if strings.TrimSpace(tokenURL) == "" {
		tokenURL = c.TokenURI
	}
	now := time.Now()
	assertion, err := c.Assertion(scope, tokenURL, now)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearer)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return Token{}, fmt.Errorf("%w: token endpoint returned %d: %s", ErrTokenExchange, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Token{}, fmt.Errorf("%w: decoding token response: %v", ErrTokenExchange, err)
	}
	if payload.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: response missing access_token", ErrTokenExchange)
	}
	expiry := now.Add(assertionTTL)
	if payload.ExpiresIn > 0 {
		expiry = now.Add(time.Duration(payload.ExpiresIn) * time.Second)
	}
	return Token{AccessToken: payload.AccessToken, Expiry: expiry}, nil
}

// FetchFunc produces a new token.
type FetchFunc func(context.Context) (Token, error)

// CachingSource reuses a token until it is within a minute of expiring.
type CachingSource struct {
	mu    sync.Mutex
	token Token
	fetch FetchFunc
}

func NewCachingSource(fetch FetchFunc) *CachingSource {
	return &CachingSource{fetch: fetch}
}

// Token returns the cached bearer string or fetches a new one.
func (s *CachingSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.AccessToken != "" && time.Until(s.token.Expiry) > time.Minute {
		return s.token.AccessToken, nil
	}
	token, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	return token.AccessToken, nil
}
