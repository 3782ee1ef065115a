package users

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	Find(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
}

// Verifier port for an external identity provider. Returns the verified
// claims for an ID token or fails.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}
