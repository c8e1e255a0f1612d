package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/shelfnotes/shelfnotes-server/internal/auth"
	"github.com/shelfnotes/shelfnotes-server/internal/config"
	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	domainerrors "github.com/shelfnotes/shelfnotes-server/internal/errors"
	"github.com/shelfnotes/shelfnotes-server/internal/id"
	"github.com/shelfnotes/shelfnotes-server/internal/normalize"
	"github.com/shelfnotes/shelfnotes-server/internal/store"
	"github.com/shelfnotes/shelfnotes-server/internal/validation"
)

// Client-visible authentication messages.
const (
	msgTokenRequired      = "Token is required"
	msgAuthFailed         = "Authentication failed. Please try again."
	msgAuthRequired       = "Authentication required. Please login."
	msgSessionExpired     = "Your session has expired. Please login again."
	msgInvalidToken       = "Invalid authentication token"
	msgEmailAlreadyLinked = "An account with this email already exists"
)

// AuthService signs users in with a provider ID token and validates the
// session tokens it issues.
type AuthService struct {
	store    store.Store
	verifier IdentityVerifier
	tokens   *auth.TokenService
	cfg      config.AuthConfig
	validate *validation.Validator
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store store.Store,
	verifier IdentityVerifier,
	tokens *auth.TokenService,
	cfg config.AuthConfig,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuthService{
		store:    store,
		verifier: verifier,
		tokens:   tokens,
		cfg:      cfg,
		validate: validation.New(),
		logger:   logger,
	}
}

// LoginRequest carries the provider ID token.
type LoginRequest struct {
	Token string `json:"token" validate:"notblank"`
}

// LoginResult is a signed session token and the signed-in user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// LoginWithGoogle verifies a Google ID token, creates or refreshes the
// matching user and issues a session token.
func (s *AuthService) LoginWithGoogle(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := s.validate.Check(req, msgTokenRequired); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "AuthService.LoginWithGoogle")
	defer span.End()

	identity, err := s.verifier.Verify(ctx, req.Token)
	if err != nil {
		s.logger.WarnContext(ctx, "identity token rejected", "error", err)
		return nil, fail(span, domainerrors.InvalidToken(msgAuthFailed).WithCause(err))
	}
	if strings.TrimSpace(identity.Email) == "" {
		s.logger.WarnContext(ctx, "identity token has no email", "subject", identity.Subject)
		return nil, fail(span, domainerrors.InvalidToken(msgAuthFailed))
	}

	profile := domain.Profile{
		GoogleID:   identity.Subject,
		Username:   displayName(identity),
		Email:      strings.TrimSpace(identity.Email),
		ProfilePic: identity.Picture,
	}
	isAdmin := s.cfg.IsAdminEmail(profile.Email)

	user, err := s.upsertUser(ctx, profile, isAdmin)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	token, expiresAt, err := s.tokens.GenerateSessionToken(user)
	if err != nil {
		return nil, internal(ctx, s.logger, "Authentication failed", err)
	}

	s.logger.InfoContext(ctx, "user signed in", "user_id", user.ID, "is_admin", user.IsAdmin)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// upsertUser creates the user for profile, or overwrites the stored profile
// when it changed. It performs at most one write.
func (s *AuthService) upsertUser(ctx context.Context, profile domain.Profile, isAdmin bool) (*domain.User, error) {
	user, err := s.store.GetUserByGoogleID(ctx, profile.GoogleID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		user = &domain.User{Record: domain.Record{ID: id.MustGenerate(id.PrefixUser)}, IsAdmin: isAdmin}
		user.Apply(profile)
		user.InitTimestamps()

		err = s.store.CreateUser(ctx, user)
		if err == nil {
			s.logger.InfoContext(ctx, "user created", "user_id", user.ID)
			return user, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, internal(ctx, s.logger, "Error creating user", err)
		}

		// Either a concurrent first login for the same subject won, or the
		// email belongs to a different account.
		user, err = s.store.GetUserByGoogleID(ctx, profile.GoogleID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Conflict(msgEmailAlreadyLinked)
		}
		if err != nil {
			return nil, internal(ctx, s.logger, "Error creating user", err)
		}
	case err != nil:
		return nil, internal(ctx, s.logger, "Error loading user", err)
	}

	changed := user.Apply(profile)
	if user.IsAdmin != isAdmin {
		user.IsAdmin = isAdmin
		changed = true
	}
	if !changed {
		return user, nil
	}

	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict(msgEmailAlreadyLinked)
		}
		return nil, internal(ctx, s.logger, "Error updating user", err)
	}
	return user, nil
}

// Authenticate validates a session token and reloads its user, so a token
// outliving its account is rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domainerrors.Unauthorized(msgAuthRequired)
	}

	claims, err := s.tokens.VerifySessionToken(token)
	if errors.Is(err, auth.ErrTokenExpired) {
		return nil, domainerrors.TokenExpired(msgSessionExpired)
	}
	if err != nil {
		return nil, domainerrors.InvalidToken(msgInvalidToken).WithCause(err)
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.InvalidToken(msgInvalidToken)
	}
	if err != nil {
		return nil, internal(ctx, s.logger, "Error loading user", err)
	}
	return user, nil
}

// CallerFor returns the request identity of user.
func CallerFor(user *domain.User) Caller {
	return Caller{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
	}
}

// GetUser returns the stored user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("User not found")
	}
	if err != nil {
		return nil, internal(ctx, s.logger, "Error loading user", err)
	}
	return user, nil
}

// displayName picks the provider name, falling back to the local part of the email.
func displayName(identity *auth.GoogleIdentity) string {
	if name := normalize.Text(identity.Name); name != "" {
		return name
	}
	local, _, _ := strings.Cut(strings.TrimSpace(identity.Email), "@")
	return local
}
