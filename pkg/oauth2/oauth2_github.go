package oauth2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	githubUserURL      = "https://api.github.com/user"
	githubUserEmailURL = "https://api.github.com/user/emails"
)

// GitHubOAuth2Provider signs users in with GitHub. GitHub has no OIDC, so the
// nonce is unused and the identity comes from the REST API.
type GitHubOAuth2Provider struct {
	config *oauth2.Config
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func NewGitHubOAuth2Provider(clientID, clientSecret, redirectURL string) *GitHubOAuth2Provider {
	return &GitHubOAuth2Provider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
	}
}

func (gh *GitHubOAuth2Provider) Name() string {
	return "github"
}

func (gh *GitHubOAuth2Provider) AuthURL(state, _ string) string {
	return gh.config.AuthCodeURL(state)
}

func (gh *GitHubOAuth2Provider) Exchange(ctx context.Context, code, _ string) (*Identity, error) {
	token, err := gh.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	client := gh.config.Client(ctx, token)

	var user githubUser
	if err := getJSON(ctx, client, githubUserURL, &user); err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	// The profile email is public but unverified; prefer the verified primary one.
	var emails []githubEmail
	if err := getJSON(ctx, client, githubUserEmailURL, &emails); err != nil {
		return nil, fmt.Errorf("failed to get emails: %w", err)
	}
	email, verified := primaryEmail(emails)
	if email == "" {
		email = user.Email
	}
	if email == "" {
		return nil, errors.New("no email on github account")
	}

	given, family := splitName(user.Name)
	return &Identity{
		Provider:      gh.Name(),
		Subject:       strconv.FormatInt(user.ID, 10),
		Email:         email,
		EmailVerified: verified,
		GivenName:     given,
		FamilyName:    family,
		Login:         user.Login,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s answered status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func primaryEmail(emails []githubEmail) (string, bool) {
	for _, e := range emails {
		if e.Primary {
			return e.Email, e.Verified
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, emails[0].Verified
	}
	return "", false
}

func splitName(name string) (string, string) {
	given, family, _ := strings.Cut(strings.TrimSpace(name), " ")
	return given, strings.TrimSpace(family)
}
