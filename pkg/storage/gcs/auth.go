package gcs

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/bakery-quotes/pkg/config"
)

const (
	googleTokenURL   = "https://oauth2.googleapis.com/token"
	metadataTokenURL = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"
	readWriteScope   = "https://www.googleapis.com/auth/devstorage.read_write"
	jwtBearerGrant   = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	refreshMargin    = time.Minute
	assertionTTL     = time.Hour
)

type accessToken struct {
	value  string
	expiry time.Time
}

func (t accessToken) usable(now time.Time) bool {
	return t.value != "" && t.expiry.Sub(now) > refreshMargin
}

type tokenFetcher func(ctx context.Context) (accessToken, error)

// tokenCache hands out the current token and refreshes it shortly before it
// expires. Concurrent callers share one refresh.
type tokenCache struct {
	mu      sync.Mutex
	current accessToken
	fetch   tokenFetcher
	now     func() time.Time
}

func newTokenCache(fetch tokenFetcher) *tokenCache {
	return &tokenCache{fetch: fetch, now: time.Now}
}

func (c *tokenCache) get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current.usable(c.now()) {
		return c.current.value, nil
	}
	tok, err := c.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("gcs access token: %w", err)
	}
	c.current = tok
	return tok.value, nil
}

// tokenResponse is the shape shared by the OAuth token endpoint and the
// metadata server.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (r tokenResponse) token(now time.Time) (accessToken, error) {
	if r.AccessToken == "" {
		return accessToken{}, errors.New("token response carried no access_token")
	}
	return accessToken{value: r.AccessToken, expiry: now.Add(time.Duration(r.ExpiresIn) * time.Second)}, nil
}

// serviceAccount is the subset of a service account key file used to mint
// tokens.
type serviceAccount struct {
	email    string
	key      *rsa.PrivateKey
	tokenURL string
}

func parseServiceAccount(raw []byte) (serviceAccount, error) {
	var file struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
		TokenURI    string `json:"token_uri"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return serviceAccount{}, fmt.Errorf("parse service account credentials: %w", err)
	}
	if file.ClientEmail == "" || file.PrivateKey == "" {
		return serviceAccount{}, errors.New("service account credentials need client_email and private_key")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(file.PrivateKey))
	if err != nil {
		return serviceAccount{}, fmt.Errorf("service account private key: %w", err)
	}
	sa := serviceAccount{email: file.ClientEmail, key: key, tokenURL: file.TokenURI}
	if sa.tokenURL == "" {
		sa.tokenURL = googleTokenURL
	}
	return sa, nil
}

type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// assertion signs the JWT-bearer grant for the storage scope.
func (sa serviceAccount) assertion(now time.Time) (string, error) {
	claims := assertionClaims{
		Scope: readWriteScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sa.email,
			Audience:  jwt.ClaimStrings{sa.tokenURL},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assertionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(sa.key)
}

func (sa serviceAccount) fetcher(api *resty.Client) tokenFetcher {
	return func(ctx context.Context) (accessToken, error) {
		now := time.Now()
		signed, err := sa.assertion(now)
		if err != nil {
			return accessToken{}, err
		}
		var out tokenResponse
		resp, err := api.R().
			SetContext(ctx).
			SetFormData(map[string]string{"grant_type": jwtBearerGrant, "assertion": signed}).
			SetResult(&out).
			Post(sa.tokenURL)
		if err != nil {
			return accessToken{}, err
		}
		if resp.StatusCode() != http.StatusOK {
			return accessToken{}, fmt.Errorf("token endpoint returned %s", resp.Status())
		}
		return out.token(now)
	}
}

func metadataFetcher(api *resty.Client) tokenFetcher {
	return func(ctx context.Context) (accessToken, error) {
		now := time.Now()
		var out tokenResponse
		resp, err := api.R().
			SetContext(ctx).
			SetHeader("Metadata-Flavor", "Google").
			SetResult(&out).
			Get(metadataTokenURL)
		if err != nil {
			return accessToken{}, err
		}
		if resp.StatusCode() != http.StatusOK {
			return accessToken{}, fmt.Errorf("metadata server returned %s", resp.Status())
		}
		return out.token(now)
	}
}

// fetcherFor picks inline credentials, then a key file, then the metadata
// server.
func fetcherFor(gcp config.GCPConfig, api *resty.Client) (tokenFetcher, error) {
	var raw []byte
	switch {
	case gcp.CredentialsJSON != "":
		raw = []byte(gcp.CredentialsJSON)
	case gcp.ApplicationCredentials != "":
		b, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		raw = b
	default:
		return metadataFetcher(api), nil
	}
	sa, err := parseServiceAccount(raw)
	if err != nil {
		return nil, err
	}
	return sa.fetcher(api), nil
}
