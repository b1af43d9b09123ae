package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// OneAPIAudience is the audience every OneAPI token is requested for.
	OneAPIAudience = "https://api.zscaler.com"

	clientAssertionType = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"
	assertionLifetime   = 5 * time.Minute
)

// OneAPITokenURL returns the Zidentity token endpoint for a vanity domain.
// Any cloud other than production is appended to the login host.
func OneAPITokenURL(vanityDomain, cloud string) string {
	cloud = strings.ToLower(strings.TrimSpace(cloud))
	if cloud == "" || cloud == "production" {
		return fmt.Sprintf("https://%s.zslogin.net/oauth2/v1/token", vanityDomain)
	}
	return fmt.Sprintf("https://%s.zslogin%s.net/oauth2/v1/token", vanityDomain, cloud)
}

// ParsePrivateKey decodes a PEM encoded RSA private key.
func ParsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemData)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// OAuth2Provider obtains OneAPI bearer tokens with the OAuth2
// client-credentials grant, authenticating either with a client secret or
// with a private-key JWT assertion.
type OAuth2Provider struct {
	ClientID     string
	ClientSecret string
	PrivateKey   *rsa.PrivateKey
	TokenURL     string
	Audience     string
	HTTPClient   *http.Client
	Clock        func() time.Time
}

// Name implements Provider.
func (p *OAuth2Provider) Name() string {
	return "oneapi"
}

// Login implements Provider.
func (p *OAuth2Provider) Login(ctx context.Context) (*Session, error) {
	now := p.now()

	audience := p.Audience
	if audience == "" {
		audience = OneAPIAudience
	}
	params := url.Values{"audience": {audience}}

	cfg := clientcredentials.Config{
		ClientID:       p.ClientID,
		ClientSecret:   p.ClientSecret,
		TokenURL:       p.TokenURL,
		EndpointParams: params,
		AuthStyle:      oauth2.AuthStyleInParams,
	}

	if p.PrivateKey != nil {
		assertion, err := p.assertion(now)
		if err != nil {
			return nil, err
		}
		params.Set("client_assertion_type", clientAssertionType)
		params.Set("client_assertion", assertion)
		cfg.ClientSecret = ""
	}

	if p.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.HTTPClient)
	}

	tok, err := cfg.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &LoginError{
				Provider:   p.Name(),
				StatusCode: retrieveErr.Response.StatusCode,
				Message:    excerpt(retrieveErr.Body),
			}
		}
		return nil, fmt.Errorf("%s token request: %w", p.Name(), err)
	}

	return &Session{
		Token:     tok.AccessToken,
		IssuedAt:  now,
		ExpiresAt: tok.Expiry,
	}, nil
}

// assertion builds the signed client_assertion JWT.
func (p *OAuth2Provider) assertion(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    p.ClientID,
		Subject:   p.ClientID,
		Audience:  jwt.ClaimStrings{p.TokenURL},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(assertionLifetime)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("sign client assertion: %w", err)
	}
	return signed, nil
}

// Apply implements Provider.
func (p *OAuth2Provider) Apply(req *http.Request, s *Session) {
	if s == nil || s.Token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
}

// Logout implements Provider. OneAPI tokens are not revocable by the client.
func (p *OAuth2Provider) Logout(context.Context, *Session) error {
	return nil
}

func (p *OAuth2Provider) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}
