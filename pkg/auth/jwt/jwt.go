// Package jwt provides a JWT/OIDC authenticator that validates bearer
// tokens against a JWKS (JSON Web Key Set) endpoint.
//
// It supports RSA-signed JWTs with configurable issuer and audience, and
// maps claims to the principal's name, roles, and properties. When the
// JWKS endpoint cannot be reached the authenticator reports a
// *auth.ServiceFailureError rather than rejecting the token.
package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/rhuss/lakegate/pkg/auth"
	"github.com/rhuss/lakegate/pkg/debug"
)

// Config holds the JWT authenticator configuration.
type Config struct {
	// Issuer is the expected JWT issuer (iss claim). If empty, issuer is not validated.
	Issuer string

	// Audience is the expected JWT audience (aud claim). If empty, audience is not validated.
	Audience string

	// JWKSURL is the URL to fetch the JSON Web Key Set for signature verification.
	JWKSURL string

	// UserClaim is the claim used as the principal name. Default: "sub".
	UserClaim string

	// RolesClaim is the claim holding the principal's roles. Default: "roles".
	// The value can be a space-separated string or a JSON array.
	RolesClaim string

	// PropertyClaims lists string claims copied into the principal's properties.
	PropertyClaims []string

	// CacheTTL controls how long JWKS keys are cached. Default: 1 hour.
	CacheTTL time.Duration

	// MinRefreshInterval is the minimum time between two JWKS fetches
	// triggered by an unknown kid. Tokens with an unknown kid inside this
	// window are rejected without a fetch. Default: 30s. Negative disables
	// the limit.
	MinRefreshInterval time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	// If nil, a client with a 10s timeout is used.
	HTTPClient *http.Client
}

func (c *Config) applyDefaults() {
	if c.UserClaim == "" {
		c.UserClaim = "sub"
	}
	if c.RolesClaim == "" {
		c.RolesClaim = "roles"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Hour
	}
	if c.MinRefreshInterval == 0 {
		c.MinRefreshInterval = 30 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
}

// Authenticator validates JWT bearer tokens against a JWKS endpoint.
type Authenticator struct {
	config    Config
	jwksCache *jwksCache
}

// Ensure Authenticator implements auth.Authenticator at compile time.
var _ auth.Authenticator = (*Authenticator)(nil)

// New creates a JWT authenticator with the given configuration.
func New(cfg Config) *Authenticator {
	cfg.applyDefaults()
	return &Authenticator{
		config: cfg,
		jwksCache: &jwksCache{
			keys:    make(map[string]*rsa.PublicKey),
			ttl:        cfg.CacheTTL,
			minRefresh: cfg.MinRefreshInterval,
			jwksURL:    cfg.JWKSURL,
			client:     cfg.HTTPClient,
		},
	}
}

// Authenticate validates cred.Token as a JWT.
//
// It abstains for tokens that are not shaped like a JWT, returns a
// *auth.ServiceFailureError when the signing keys cannot be fetched, and
// an error for any token that fails validation.
func (a *Authenticator) Authenticate(ctx context.Context, cred auth.Credential) (*auth.Principal, error) {
	if strings.Count(cred.Token, ".") != 2 {
		return nil, auth.ErrAbstain
	}

	var unavailable error
	token, err := jwtlib.Parse(cred.Token, func(token *jwtlib.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("token missing kid header")
		}

		key, fetchErr := a.jwksCache.getKey(ctx, kid)
		if fetchErr != nil {
			var ue *unavailableError
			if errors.As(fetchErr, &ue) {
				unavailable = fetchErr
			}
			return nil, fmt.Errorf("fetching JWKS key for kid %q: %w", kid, fetchErr)
		}
		return key, nil
	}, a.parserOptions()...)

	if unavailable != nil {
		return nil, &auth.ServiceFailureError{Message: "identity provider keys unavailable", Err: unavailable}
	}
	if err != nil {
		debug.Log("auth", "JWT validation failed", "error", err)
		return nil, fmt.Errorf("invalid JWT: %w", err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid JWT claims")
	}

	name := claimString(claims, a.config.UserClaim)
	if name == "" {
		return nil, fmt.Errorf("JWT missing %q claim", a.config.UserClaim)
	}

	principal := &auth.Principal{
		Name:  name,
		Roles: extractList(claims, a.config.RolesClaim),
	}
	for _, c := range a.config.PropertyClaims {
		if v := claimString(claims, c); v != "" {
			if principal.Properties == nil {
				principal.Properties = make(map[string]string, len(a.config.PropertyClaims))
			}
			principal.Properties[c] = v
		}
	}

	return principal, nil
}

func (a *Authenticator) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwtlib.WithExpirationRequired(),
	}
	if a.config.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(a.config.Issuer))
	}
	if a.config.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(a.config.Audience))
	}
	return opts
}

// claimString returns a string claim, or "" if missing or not a string.
func claimString(claims jwtlib.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// extractList reads a claim that is either a space-separated string or
// a JSON array of strings.
func extractList(claims jwtlib.MapClaims, key string) []string {
	switch v := claims[key].(type) {
	case string:
		if parts := strings.Fields(v); len(parts) > 0 {
			return parts
		}
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// unavailableError marks a JWKS endpoint that could not be consulted.
type unavailableError struct{ err error }

func (e *unavailableError) Error() string { return e.err.Error() }
func (e *unavailableError) Unwrap() error { return e.err }

// jwksCache caches RSA public keys fetched from a JWKS endpoint.
// It is safe for concurrent use. Fetches run outside the lock and
// concurrent refreshes share a single request.
type jwksCache struct {
	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey // kid -> public key
	fetchedAt  time.Time
	ttl        time.Duration
	minRefresh time.Duration
	jwksURL    string
	client     *http.Client

	group singleflight.Group
}

// getKey returns the RSA public key for kid, refreshing the set when the
// cache expired or kid is unknown. An unknown kid only triggers a refresh
// once per minRefresh window.
func (c *jwksCache) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fetchedAt := c.fetchedAt
	c.mu.RUnlock()

	fresh := !fetchedAt.IsZero() && time.Since(fetchedAt) < c.ttl
	if ok && fresh {
		return key, nil
	}
	if !ok && fresh && c.minRefresh > 0 && time.Since(fetchedAt) < c.minRefresh {
		debug.Log("auth", "unknown kid within refresh interval, not refetching", "kid", kid)
		return nil, fmt.Errorf("key %q not found in JWKS", kid)
	}

	// The fetch is shared by all waiting callers, so it must not be bound
	// to the cancellation of whichever caller started it.
	_, err, _ := c.group.Do("jwks", func() (interface{}, error) {
		return nil, c.refresh(context.WithoutCancel(ctx), fetchedAt)
	})
	if err != nil {
		return nil, &unavailableError{err: err}
	}

	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("key %q not found in JWKS", kid)
	}
	return key, nil
}

// refresh fetches the key set unless another caller already replaced the
// set observed at seen.
func (c *jwksCache) refresh(ctx context.Context, seen time.Time) error {
	c.mu.RLock()
	current := c.fetchedAt
	c.mu.RUnlock()
	if current.After(seen) {
		return nil
	}

	keys, err := c.fetchJWKS(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.keys = keys
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	debug.Log("auth", "JWKS cache refreshed", "keys", len(keys), "url", c.jwksURL)
	return nil
}

// fetchJWKS downloads and parses the key set.
func (c *jwksCache) fetchJWKS(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating JWKS request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading JWKS response: %w", err)
	}

	var jwks jwksDocument
	if err := json.Unmarshal(body, &jwks); err != nil {
		return nil, fmt.Errorf("parsing JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, jwk := range jwks.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pubKey, err := parseRSAPublicKey(jwk)
		if err != nil {
			slog.Warn("skipping JWKS key", "kid", jwk.Kid, "error", err)
			continue
		}
		keys[jwk.Kid] = pubKey
	}
	return keys, nil
}

type jwksDocument struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"` // base64url modulus
	E   string `json:"e"` // base64url exponent
}

func parseRSAPublicKey(jwk jwkKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() {
		return nil, fmt.Errorf("RSA exponent too large")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
