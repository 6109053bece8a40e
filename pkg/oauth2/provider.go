package oauth2

import (
	"context"
)

// Provider runs one social login flow.
type Provider interface {
	Name() string
	AuthURL(state, nonce string) string
	// Exchange trades the callback code for the caller's identity.
	Exchange(ctx context.Context, code, nonce string) (*Identity, error)
}

// Identity is what a provider asserts about the signed-in person.
type Identity struct {
	Provider      string `json:"provider"`
	Subject       string `json:"subject"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	GivenName     string `json:"givenName"`
	FamilyName    string `json:"familyName"`
	Login         string `json:"login"`
}
