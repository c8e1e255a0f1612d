package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfnotes/shelfnotes-server/internal/domain"
	"github.com/shelfnotes/shelfnotes-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "loginWithGoogle",
		Method:      http.MethodPost,
		Path:        "/api/auth/google",
		Summary:     "Sign in with Google",
		Description: "Verifies a Google ID token, creates or refreshes the user and returns a 24 hour session token",
		Tags:        []string{"Authentication"},
		Middlewares: huma.Middlewares{s.rateLimit(s.limits.auth)},
	}, s.handleGoogleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/auth/me",
		Summary:     "Get current user",
		Description: "Returns the profile of the signed-in user",
		Tags:        []string{"Authentication"},
		Security:    bearerSecurity,
		Middlewares: huma.Middlewares{s.requireAuth},
	}, s.handleGetCurrentUser)
}

// === DTOs ===

// GoogleLoginRequest is the request body for Google sign-in.
type GoogleLoginRequest struct {
	_     struct{} `json:"-" additionalProperties:"true"`
	Token string   `json:"token,omitempty" doc:"Google ID token"`
}

// GoogleLoginInput wraps the login request for Huma.
type GoogleLoginInput struct {
	Body GoogleLoginRequest
}

// SessionUser is the user summary returned with a session token.
type SessionUser struct {
	ID         string `json:"id" doc:"User ID"`
	Username   string `json:"username" doc:"Display name"`
	ProfilePic string `json:"profilePic,omitempty" doc:"Profile picture URL"`
}

// LoginResponse contains the session token and user summary.
type LoginResponse struct {
	Token     string      `json:"token" doc:"PASETO v4.public session token"`
	ExpiresAt time.Time   `json:"expiresAt" doc:"Session expiry"`
	User      SessionUser `json:"user" doc:"Signed-in user"`
}

// LoginOutput wraps the login response for Huma.
type LoginOutput struct {
	Body LoginResponse
}

// CurrentUserInput carries the session token.
type CurrentUserInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
}

// UserResponse is the full profile of the signed-in user.
type UserResponse struct {
	ID         string    `json:"id" doc:"User ID"`
	Username   string    `json:"username" doc:"Display name"`
	Email      string    `json:"email" doc:"Email address"`
	ProfilePic string    `json:"profilePic,omitempty" doc:"Profile picture URL"`
	IsAdmin    bool      `json:"isAdmin" doc:"Whether the user may manage any review"`
	CreatedAt  time.Time `json:"createdAt" doc:"First sign-in"`
	UpdatedAt  time.Time `json:"updatedAt" doc:"Last profile change"`
}

// UserOutput wraps the user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// === Handlers ===

func (s *Server) handleGoogleLogin(ctx context.Context, input *GoogleLoginInput) (*LoginOutput, error) {
	result, err := s.services.Auth.LoginWithGoogle(ctx, service.LoginRequest{Token: input.Body.Token})
	if err != nil {
		return nil, err
	}

	return &LoginOutput{
		Body: LoginResponse{
			Token:     result.Token,
			ExpiresAt: result.ExpiresAt,
			User: SessionUser{
				ID:         result.User.ID,
				Username:   result.User.Username,
				ProfilePic: result.User.ProfilePic,
			},
		},
	}, nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *CurrentUserInput) (*UserOutput, error) {
	caller, err := GetCaller(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Auth.GetUser(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: userResponse(user)}, nil
}

func userResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		ProfilePic: u.ProfilePic,
		IsAdmin:    u.IsAdmin,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
