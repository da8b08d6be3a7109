package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// ServiceAccount is the subset of a Google service-account key file used for
// FCM delivery.
type ServiceAccount struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// ParseServiceAccount decodes a service-account JSON document. Literal "\n"
// sequences in the private key (common when the key travels through an env
// var) are turned into newlines. Missing key material is ErrCredential.
func ParseServiceAccount(raw []byte) (ServiceAccount, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ServiceAccount{}, fmt.Errorf("%w: service account is not configured", ErrCredential)
	}

	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return ServiceAccount{}, fmt.Errorf("%w: decode service account: %w", ErrCredential, err)
	}
	sa.PrivateKey = strings.ReplaceAll(sa.PrivateKey, `\n`, "\n")

	if strings.TrimSpace(sa.PrivateKey) == "" {
		return ServiceAccount{}, fmt.Errorf("%w: private_key is missing", ErrCredential)
	}
	if sa.ClientEmail == "" {
		return ServiceAccount{}, fmt.Errorf("%w: client_email is missing", ErrCredential)
	}
	return sa, nil
}

// ServiceAccountCredentials exchanges a service-account key for short-lived
// access tokens. Tokens are reused until shortly before expiry.
//
// Construction never fails: invalid key material is remembered and returned
// from Token, so an instance with no subscribers to notify never trips over it.
type ServiceAccountCredentials struct {
	account ServiceAccount
	err     error
	source  oauth2.TokenSource
}

// NewServiceAccountCredentials builds a credential provider from raw
// service-account JSON. httpClient is used for the token exchange; nil means
// http.DefaultClient.
func NewServiceAccountCredentials(raw []byte, httpClient *http.Client) *ServiceAccountCredentials {
	sa, err := ParseServiceAccount(raw)
	if err != nil {
		return &ServiceAccountCredentials{err: err}
	}

	tokenURL := sa.TokenURI
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}
	cfg := &jwt.Config{
		Email:      sa.ClientEmail,
		PrivateKey: []byte(sa.PrivateKey),
		Scopes:     []string{cloudPlatformScope},
		TokenURL:   tokenURL,
	}

	ctx := context.Background()
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}
	return &ServiceAccountCredentials{
		account: sa,
		source:  oauth2.ReuseTokenSource(nil, cfg.TokenSource(ctx)),
	}
}

// ProjectID is the Firebase project the key belongs to.
func (c *ServiceAccountCredentials) ProjectID() string {
	return c.account.ProjectID
}

// Err reports a configuration problem detected at construction.
func (c *ServiceAccountCredentials) Err() error {
	return c.err
}

// Token returns a bearer token scoped for push delivery.
func (c *ServiceAccountCredentials) Token(ctx context.Context) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCredential, err)
	}
	tok, err := c.source.Token()
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %w", ErrCredential, err)
	}
	return tok.AccessToken, nil
}
