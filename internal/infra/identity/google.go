package identity

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/api/idtoken"

	"github.com/bryanwahyu/scamguard/internal/domain/users"
)

// GoogleVerifier validates Google ID tokens against Google's published keys.
// Audience may be empty when no client id is configured; the token is then
// accepted for any audience.
type GoogleVerifier struct {
	Audience string
}

func NewGoogleVerifier(audience string) *GoogleVerifier {
	return &GoogleVerifier{Audience: audience}
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (*users.Identity, error) {
	payload, err := idtoken.Validate(ctx, token, g.Audience)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", users.ErrUpstream, err)
		}
		return nil, fmt.Errorf("%w: %v", users.ErrInvalidExternalToken, err)
	}

	ident := &users.Identity{SubjectID: payload.Subject}
	if v, ok := payload.Claims["email"].(string); ok {
		ident.Email = v
	}
	if v, ok := payload.Claims["name"].(string); ok {
		ident.Name = v
	}
	if v, ok := payload.Claims["picture"].(string); ok {
		ident.Picture = v
	}
	return ident, nil
}
