package oauth2

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"flightbooker/cfg"

	"github.com/jonboulle/clockwork"
)

var ErrProviderNotFound = errors.New("provider not found")

const stateTTL = 10 * time.Minute

// Manager holds the configured providers and the pending authorization states.
type Manager struct {
	providers map[string]Provider
	states    *StateStore
}

// NewManager registers every provider that has credentials configured.
func NewManager(ctx context.Context, google, github cfg.OAuth2ProviderConfig, clock clockwork.Clock) (*Manager, error) {
	mgr := &Manager{
		providers: make(map[string]Provider),
		states:    NewStateStore(clock),
	}

	if google.Enabled() {
		p, err := NewGoogleOIDCProvider(ctx, google.ClientID, google.ClientSecret, google.RedirectURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google provider: %w", err)
		}
		mgr.Register(p)
	}
	if github.Enabled() {
		mgr.Register(NewGitHubOAuth2Provider(github.ClientID, github.ClientSecret, github.RedirectURL))
	}
	return mgr, nil
}

func (m *Manager) Register(p Provider) {
	m.providers[p.Name()] = p
}

// Providers lists the registered provider names.
func (m *Manager) Providers() []string {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AuthURL starts a login with the named provider.
func (m *Manager) AuthURL(name string) (string, error) {
	p, ok := m.providers[name]
	if !ok {
		return "", ErrProviderNotFound
	}

	state, err := randomString(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := randomString(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	m.states.Save(state, nonce, stateTTL)

	return p.AuthURL(state, nonce), nil
}

// Complete validates the callback state and resolves the caller's identity.
func (m *Manager) Complete(ctx context.Context, name, code, state string) (*Identity, error) {
	p, ok := m.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}

	nonce, err := m.states.Take(state)
	if err != nil {
		return nil, fmt.Errorf("invalid state: %w", err)
	}

	identity, err := p.Exchange(ctx, code, nonce)
	if err != nil {
		return nil, fmt.Errorf("%s callback failed: %w", name, err)
	}
	return identity, nil
}

func (m *Manager) Close() {
	m.states.Close()
}
