package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"flightbooker/internal/apperr"
	"flightbooker/internal/notification"
	"flightbooker/pkg/logger"
	"flightbooker/pkg/oauth2"
	"flightbooker/pkg/session"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	invalidCredentials = "Invalid email or password."
	mustVerify         = "You must verify your email before signing in."
	passwordRule       = "The password must be at least 6 characters long and contain at least one uppercase letter, one lowercase letter, and one number."
	phoneRule          = "The correct format for a phone number starts with a + sign and the country prefix followed by 9 digits (e.g. +359876220321)."
)

type ConfirmationNotifier interface {
	ConfirmEmail(n notification.EmailConfirmation)
}

type RegisterRequest struct {
	FirstName   string `json:"firstName" binding:"required,max=50"`
	LastName    string `json:"lastName" binding:"required,max=50"`
	Username    string `json:"username" binding:"required,max=50"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	PhoneNumber string `json:"phoneNumber" binding:"required"`
}

type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type ConfirmEmailRequest struct {
	UserID            string `json:"userId" binding:"required"`
	ConfirmationToken string `json:"confirmationToken" binding:"required"`
}

type ResendRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// SignedIn is a freshly created session.
type SignedIn struct {
	UserID     string
	Role       Role
	SessionID  string
	TTL        time.Duration
	RememberMe bool
}

type ServiceConfig struct {
	SessionTTL time.Duration
	// PublicURL prefixes the confirmation link sent by email.
	PublicURL string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type Service struct {
	repo     Repository
	tokens   *ConfirmationTokens
	sessions session.Store
	notifier ConfirmationNotifier
	config   ServiceConfig
	newID    func() string
	logger   logger.Client
}

func NewService(repo Repository, tokens *ConfirmationTokens, sessions session.Store, notifier ConfirmationNotifier,
	config ServiceConfig, l logger.Client) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		sessions: sessions,
		notifier: notifier,
		config:   config,
		newID:    uuid.NewString,
		logger:   l,
	}
}

func validatePassword(p string) *apperr.Error {
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if len([]rune(p)) < 6 || !upper || !lower || !digit {
		return apperr.Validation("password", passwordRule)
	}
	return nil
}

func validatePhone(p string) *apperr.Error {
	digits, ok := strings.CutPrefix(p, "+")
	if !ok || len(digits) != 12 || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return apperr.Validation("phoneNumber", phoneRule)
	}
	return nil
}

// Register creates an unconfirmed User account and mails the confirmation link.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var errs []*apperr.Error
	if err := validatePassword(req.Password); err != nil {
		errs = append(errs, err)
	}
	if err := validatePhone(req.PhoneNumber); err != nil {
		errs = append(errs, err)
	}
	if err := apperr.Fields(errs...); err != nil {
		return "", err
	}

	if _, err := s.repo.ByEmail(ctx, req.Email); err == nil {
		return "", apperr.Validation("email", "An account with that email already exists.")
	} else if !errors.Is(err, ErrAccountNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	account := Account{
		ID:           s.newID(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Username:     req.Username,
		PhoneNumber:  req.PhoneNumber,
		PasswordHash: string(hash),
		Role:         RoleUser,
	}
	switch err := s.repo.Create(ctx, account); {
	case errors.Is(err, ErrDuplicateEmail):
		return "", apperr.Validation("email", "An account with that email already exists.")
	case errors.Is(err, ErrDuplicateUser):
		return "", apperr.Validation("username", "An account with that username already exists.")
	case err != nil:
		return "", err
	}

	s.logger.Info("user_registered", logger.Field{Key: "user_id", Value: account.ID})
	s.sendConfirmation(&account)
	return account.ID, nil
}

func (s *Service) sendConfirmation(a *Account) {
	token, err := s.tokens.Issue(a.ID)
	if err != nil {
		s.logger.Error("confirmation_token_failed", logger.Field{Key: "user_id", Value: a.ID}, logger.Err(err))
		return
	}
	link := s.config.PublicURL + "/confirm-email?" + url.Values{"userId": {a.ID}, "token": {token}}.Encode()
	s.notifier.ConfirmEmail(notification.EmailConfirmation{
		ToAddress: a.Email,
		ToName:    a.Username,
		UserID:    a.ID,
		Token:     token,
		Link:      link,
	})
}

// Login checks the password and opens a session. An unconfirmed account gets
// a new confirmation email instead.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*SignedIn, error) {
	account, err := s.repo.ByEmail(ctx, req.Email)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, apperr.Validation("email", invalidCredentials)
	}
	if err != nil {
		return nil, err
	}
	if account.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperr.Validation("email", invalidCredentials)
	}

	return s.signIn(ctx, account, "", req.RememberMe)
}

func (s *Service) signIn(ctx context.Context, account *Account, provider string, rememberMe bool) (*SignedIn, error) {
	if !account.EmailConfirmed {
		s.sendConfirmation(account)
		return nil, apperr.Validation("email", mustVerify).WithEntries(map[string]any{"userId": account.ID})
	}

	sess, err := s.sessions.Create(ctx, account.ID, provider, s.config.SessionTTL)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user_signed_in",
		logger.Field{Key: "user_id", Value: account.ID},
		logger.Field{Key: "provider", Value: provider},
	)
	return &SignedIn{
		UserID:     account.ID,
		Role:       account.Role,
		SessionID:  sess.ID,
		TTL:        s.config.SessionTTL,
		RememberMe: rememberMe,
	}, nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// ConfirmEmail succeeds without looking at the token once the email is confirmed.
func (s *Service) ConfirmEmail(ctx context.Context, req ConfirmEmailRequest) error {
	account, err := s.repo.ByID(ctx, req.UserID)
	if errors.Is(err, ErrAccountNotFound) {
		return apperr.Validation(apperr.GeneralField, "An error occurred. Please try logging in again.")
	}
	if err != nil {
		return err
	}
	if account.EmailConfirmed {
		return nil
	}

	if err := s.tokens.Verify(account.ID, req.ConfirmationToken); err != nil {
		s.logger.Warn("confirmation_token_rejected", logger.Field{Key: "user_id", Value: account.ID}, logger.Err(err))
		return apperr.Validation("confirmationToken", "Invalid token.")
	}
	if err := s.repo.ConfirmEmail(ctx, account.ID); err != nil {
		return err
	}
	s.logger.Info("email_confirmed", logger.Field{Key: "user_id", Value: account.ID})
	return nil
}

func (s *Service) ResendConfirmationEmail(ctx context.Context, userID string) error {
	account, err := s.repo.ByID(ctx, userID)
	if errors.Is(err, ErrAccountNotFound) {
		return apperr.State("userId", "No unconfirmed account with id %s.", userID)
	}
	if err != nil {
		return err
	}
	if account.EmailConfirmed {
		return apperr.State("userId", "The email of this account is already confirmed.")
	}
	s.sendConfirmation(account)
	return nil
}

// SocialLogin signs in the account owning identity's email, creating a User
// on first use. A provider-verified email counts as confirmed.
func (s *Service) SocialLogin(ctx context.Context, identity *oauth2.Identity) (*SignedIn, error) {
	account, err := s.repo.ByEmail(ctx, identity.Email)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		account, err = s.createSocial(ctx, identity)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case identity.EmailVerified && !account.EmailConfirmed:
		if err := s.repo.ConfirmEmail(ctx, account.ID); err != nil {
			return nil, err
		}
		account.EmailConfirmed = true
	}
	return s.signIn(ctx, account, identity.Provider, true)
}

func (s *Service) createSocial(ctx context.Context, identity *oauth2.Identity) (*Account, error) {
	username, err := s.freeUsername(ctx, identity)
	if err != nil {
		return nil, err
	}
	account := Account{
		ID:             s.newID(),
		FirstName:      identity.GivenName,
		LastName:       identity.FamilyName,
		Email:          identity.Email,
		Username:       username,
		Role:           RoleUser,
		EmailConfirmed: identity.EmailVerified,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("create %s account: %w", identity.Provider, err)
	}
	s.logger.Info("user_registered",
		logger.Field{Key: "user_id", Value: account.ID},
		logger.Field{Key: "provider", Value: identity.Provider},
	)
	return &account, nil
}

// freeUsername prefers the provider login, then the email's local part, and
// suffixes a random fragment when both are taken.
func (s *Service) freeUsername(ctx context.Context, identity *oauth2.Identity) (string, error) {
	base := identity.Login
	if base == "" {
		base, _, _ = strings.Cut(identity.Email, "@")
	}
	if len(base) > 40 {
		base = base[:40]
	}
	taken, err := s.repo.UsernameTaken(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	return base + "-" + s.newID()[:8], nil
}
