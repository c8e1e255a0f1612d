package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCertsTTL = time.Hour
	// minRefreshInterval bounds how often an unknown kid can force a refetch
	// while the cached key set is still fresh.
	minRefreshInterval = time.Minute
	certsFetchTimeout  = 10 * time.Second
)

// ErrUnknownKey is returned when an ID token names a key id absent from the
// provider's published key set.
var ErrUnknownKey = errors.New("unknown signing key")

// GoogleConfig configures ID token verification.
type GoogleConfig struct {
	ClientID string
	CertsURL string
	Issuers  []string
}

type googleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type jsonWebKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// GoogleVerifier verifies Google-issued ID tokens against the published
// RSA key set, caching keys for the lifetime the provider advertises.
type GoogleVerifier struct {
	cfg  GoogleConfig
	http *http.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
	fetchedAt time.Time

	group singleflight.Group
	now   func() time.Time
}

// NewGoogleVerifier creates a verifier. A nil client uses a client with a 10s timeout.
func NewGoogleVerifier(cfg GoogleConfig, client *http.Client) *GoogleVerifier {
	if client == nil {
		client = &http.Client{Timeout: certsFetchTimeout}
	}
	return &GoogleVerifier{
		cfg:  cfg,
		http: client,
		now:  time.Now,
	}
}

// Verify checks the token signature, audience, issuer and expiry and returns
// the identity it carries.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*GoogleIdentity, error) {
	var claims googleClaims
	_, err := jwt.ParseWithClaims(rawToken, &claims,
		func(t *jwt.Token) (any, error) {
			kid, _ := t.Header["kid"].(string)
			return v.key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.cfg.ClientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	if !slices.Contains(v.cfg.Issuers, claims.Issuer) {
		return nil, fmt.Errorf("verify id token: unexpected issuer %q", claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, errors.New("verify id token: missing subject")
	}

	return &GoogleIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		Picture:       claims.Picture,
	}, nil
}

// key returns the public key for kid, refreshing the key set when it is
// stale or does not contain kid.
func (v *GoogleVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	now := v.now()
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := now.Before(v.expiresAt)
	recent := now.Sub(v.fetchedAt) < minRefreshInterval
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}
	if fresh && recent {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
	}

	// The fetch is shared by every waiting caller, so it must not die with
	// whichever request happened to start it.
	if _, err, _ := v.group.Do("certs", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), certsFetchTimeout)
		defer cancel()
		return nil, v.refresh(fetchCtx)
	}); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
}

func (v *GoogleVerifier) refresh(ctx context.Context) error {
	v.mu.Lock()
	v.fetchedAt = v.now()
	v.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.CertsURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create certs request: %w", err)
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch certs: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch certs: unexpected status %d", resp.StatusCode)
	}

	var set struct {
		Keys []jsonWebKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("decode certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.Kty != "RSA" {
			continue
		}
		pub, err := rsaPublicKey(jwk)
		if err != nil {
			return fmt.Errorf("decode key %q: %w", jwk.Kid, err)
		}
		keys[jwk.Kid] = pub
	}

	v.mu.Lock()
	v.keys = keys
	v.expiresAt = v.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	v.mu.Unlock()

	return nil
}

// rsaPublicKey builds an RSA key from the base64url modulus and exponent of a JWK.
func rsaPublicKey(jwk jsonWebKey) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}

	exponent := new(big.Int).SetBytes(e)
	if !exponent.IsInt64() || exponent.Int64() < 3 {
		return nil, errors.New("invalid exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(n),
		E: int(exponent.Int64()),
	}, nil
}

// maxAge extracts max-age from a Cache-Control header.
func maxAge(header string) time.Duration {
	for _, directive := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultCertsTTL
}
