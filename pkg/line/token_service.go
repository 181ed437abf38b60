package line

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	lineTokenURL = "https://api.line.me/oauth2/v2.1/token"

	// the platform caps the signed assertion at 30 minutes and issued
	// tokens at 30 days
	assertionLifetime   = 30 * time.Minute
	issuedTokenLifetime = 24 * time.Hour
	refreshMargin       = 5 * time.Minute
)

type (
	// TokenProvider supplies the channel access token sent with every
	// messaging API call.
	TokenProvider interface {
		AccessToken(ctx context.Context) (string, error)
	}

	staticTokenProvider struct {
		token string
	}

	channelAssertionClaims struct {
		TokenExp int64 `json:"token_exp"`
		jwt.RegisteredClaims
	}

	channelTokenService struct {
		channelID  string
		keyID      string
		privateKey *rsa.PrivateKey
		tokenURL   string

		mu        sync.Mutex
		token     string
		expiresAt time.Time
	}
)

// NewStaticTokenProvider serves one long-lived token taken from config.
func NewStaticTokenProvider(token string) TokenProvider {
	return &staticTokenProvider{token: token}
}

func (p *staticTokenProvider) AccessToken(context.Context) (string, error) {
	return p.token, nil
}

// NewChannelTokenService issues short-lived channel access tokens with
// a signed JWT assertion and caches them until shortly before expiry.
func NewChannelTokenService(channelID, keyID, privateKeyPEM string) (TokenProvider, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse channel private key: %w", err)
	}
	return &channelTokenService{
		channelID:  channelID,
		keyID:      keyID,
		privateKey: privateKey,
		tokenURL:   lineTokenURL,
	}, nil
}

func (s *channelTokenService) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expiresAt.Add(-refreshMargin)) {
		return s.token, nil
	}

	assertion, err := s.signAssertion()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_assertion_type", "urn:ietf:params:oauth:client-assertion-type:jwt-bearer")
	form.Set("client_assertion", assertion)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequestWithContext(ctx, "POST", s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("issue channel token: %s - %s", resp.Status, string(bodyBytes))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("issue channel token: empty access_token")
	}

	s.token = tokenResp.AccessToken
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)

	return s.token, nil
}

func (s *channelTokenService) signAssertion() (string, error) {
	now := time.Now()
	claims := channelAssertionClaims{
		TokenExp: int64(issuedTokenLifetime.Seconds()),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.channelID,
			Subject:   s.channelID,
			Audience:  jwt.ClaimStrings{"https://api.line.me/"},
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = s.keyID

	return token.SignedString(s.privateKey)
}
