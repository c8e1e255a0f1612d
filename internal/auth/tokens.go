package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	"github.com/shelfnotes/shelfnotes-server/internal/id"
)

const (
	tokenIssuer   = "shelfnotes-server"
	tokenAudience = "shelfnotes-client"

	// SessionDuration is how long a session token stays valid.
	SessionDuration = 24 * time.Hour
)

var (
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidToken is returned for tokens that fail parsing or signature checks.
	ErrInvalidToken = errors.New("invalid token")
)

// TokenService handles PASETO session token generation and verification.
type TokenService struct {
	secretKey paseto.V4AsymmetricSecretKey
	publicKey paseto.V4AsymmetricPublicKey
	duration  time.Duration
	now       func() time.Time
}

// NewTokenService creates a token service signing with key.
func NewTokenService(key paseto.V4AsymmetricSecretKey, duration time.Duration) *TokenService {
	if duration <= 0 {
		duration = SessionDuration
	}
	return &TokenService{
		secretKey: key,
		publicKey: key.Public(),
		duration:  duration,
		now:       time.Now,
	}
}

// GenerateSessionToken creates a signed v4.public session token for the user.
// It returns the token and its expiry.
func (s *TokenService) GenerateSessionToken(user *domain.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.duration)

	token := paseto.NewToken()

	token.SetIssuer(tokenIssuer)
	token.SetSubject(user.ID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expiresAt)

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	token.SetString("user_id", user.ID)
	token.SetString("username", user.Username)
	token.SetString("email", user.Email)
	if err := token.Set("is_admin", user.IsAdmin); err != nil {
		return "", time.Time{}, fmt.Errorf("set admin claim: %w", err)
	}

	return token.V4Sign(s.secretKey, nil), expiresAt, nil
}

// VerifySessionToken verifies a session token and returns its claims.
// Expired tokens yield ErrTokenExpired; every other failure yields ErrInvalidToken.
func (s *TokenService) VerifySessionToken(tokenString string) (*SessionClaims, error) {
	// Expiry is checked below so it can be told apart from other failures.
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	token, err := parser.ParseV4Public(s.publicKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	var claims SessionClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("%w: parse claims: %w", ErrInvalidToken, err)
	}
	if claims.UserID == "" || claims.Expiration.IsZero() {
		return nil, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}

	now := s.now()
	if now.After(claims.Expiration) {
		return nil, ErrTokenExpired
	}
	if !claims.NotBefore.IsZero() && now.Before(claims.NotBefore.Add(-time.Minute)) {
		return nil, fmt.Errorf("%w: not yet valid", ErrInvalidToken)
	}

	return &claims, nil
}

// PublicKeyHex returns the hex encoded verification key.
func (s *TokenService) PublicKeyHex() string {
	return s.publicKey.ExportHex()
}

// SessionDuration returns the configured session lifetime.
func (s *TokenService) SessionDuration() time.Duration {
	return s.duration
}
