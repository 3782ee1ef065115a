package auth

import (
	"context"
	"errors"
	"time"

	"github.com/bryanwahyu/scamguard/internal/application"
	"github.com/bryanwahyu/scamguard/internal/domain/users"
	"github.com/bryanwahyu/scamguard/internal/session"
)

// Service implements the sign-in use-cases: verify an identity token, create
// the user on first sign-in, and mint a session token.
type Service struct {
	Users    users.Repository
	Google   users.Verifier
	Apple    users.Verifier
	Sessions *session.Manager
	Clock    application.Clock
}

// Result is what a sign-in returns to the transport layer.
type Result struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        UserInfo `json:"user"`
}

type UserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// SignInGoogle verifies a Google ID token and signs the user in.
func (s *Service) SignInGoogle(ctx context.Context, idToken string) (*Result, error) {
	ident, err := s.Google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	u, err := s.findOrCreate(ctx, ident, users.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	return s.result(u)
}

// SignInApple verifies an Apple ID token and signs the user in. Apple only
// sends profile data on the first sign-in, so userData fills the gaps the
// token claims leave.
func (s *Service) SignInApple(ctx context.Context, idToken string, userData map[string]any) (*Result, error) {
	ident, err := s.Apple.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if ident.Email == "" {
		if email, ok := userData["email"].(string); ok {
			ident.Email = email
		}
	}
	if ident.Name == "" {
		if full, ok := userData["fullName"].(map[string]any); ok {
			if given, ok := full["givenName"].(string); ok {
				ident.Name = given
			}
		}
	}
	if ident.Name == "" {
		ident.Name = "User"
	}
	u, err := s.findOrCreate(ctx, ident, users.ProviderApple)
	if err != nil {
		return nil, err
	}
	return s.result(u)
}

// CurrentUser resolves a bearer session token to the stored user.
func (s *Service) CurrentUser(ctx context.Context, token string) (*users.User, error) {
	sub, err := s.Sessions.Verify(token)
	if err != nil {
		return nil, err
	}
	return s.Users.Find(ctx, sub)
}

func (s *Service) result(u *users.User) (*Result, error) {
	token, err := s.Sessions.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Result{
		AccessToken: token,
		TokenType:   "bearer",
		User:        UserInfo{Email: u.Email, Name: u.Name, Picture: u.Picture},
	}, nil
}

// findOrCreate reads the user, creating it on first sign-in. The
// read-then-write pair is not atomic: when two first sign-ins race, one
// Create fails with a duplicate key and we re-read the winner's row.
func (s *Service) findOrCreate(ctx context.Context, ident *users.Identity, provider users.Provider) (*users.User, error) {
	u, err := s.Users.Find(ctx, ident.SubjectID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	if s.Clock != nil {
		now = s.Clock.Now()
	}
	nu := &users.User{
		ID:        ident.SubjectID,
		Email:     ident.Email,
		Name:      ident.Name,
		Picture:   ident.Picture,
		Provider:  provider,
		CreatedAt: now,
	}
	if err := s.Users.Create(ctx, nu); err != nil {
		if errors.Is(err, users.ErrAlreadyExists) {
			return s.Users.Find(ctx, ident.SubjectID)
		}
		return nil, err
	}
	return nu, nil
}
