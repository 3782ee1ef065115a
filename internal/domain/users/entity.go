package users

import "time"

// Provider enum
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// User keyed by the subject id the identity provider assigned.
// Created on first sign-in, never mutated afterwards.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Picture   string    `json:"picture,omitempty"`
	Provider  Provider  `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity holds the verified claims an identity provider returned for a
// bearer credential.
type Identity struct {
	SubjectID string
	Email     string
	Name      string
	Picture   string
}
