package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/ifbsync/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	jwtBearerGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionTTL   = 10 * time.Minute
)

// assertionSource is an [oauth2.TokenSource] that trades a signed JWT assertion for an access token.
type assertionSource struct {
	ctx      context.Context
	client   *http.Client
	tokenURL string
	key      string
	secret   string
	now      func() time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Token requests a new access token.
func (s *assertionSource) Token() (*oauth2.Token, error) {
	assertion, err := signAssertion(s.key, s.secret, s.tokenURL, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	form := url.Values{"grant_type": {jwtBearerGrant}, "assertion": {assertion}}
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: token endpoint returned status %d: %s", shared.ErrAuthFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: failed to decode token response: %v", shared.ErrAuthFailed, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response has no access_token", shared.ErrAuthFailed)
	}

	token := &oauth2.Token{AccessToken: tr.AccessToken, TokenType: tr.TokenType}
	if tr.ExpiresIn > 0 {
		token.Expiry = s.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return token, nil
}

// signAssertion builds an HS256 JWT with the client key as issuer and the token URL as audience.
func signAssertion(key, secret, audience string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": key,
		"aud": audience,
		"iat": now.Unix(),
		"exp": now.Add(assertionTTL).Unix(),
	})
	return token.SignedString([]byte(secret))
}
