package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

const (
	confirmationPurpose = "email_confirmation"
	confirmationTTL     = 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid confirmation token")

type confirmationClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// ConfirmationTokens signs and checks the email confirmation links.
type ConfirmationTokens struct {
	secret []byte
	clock  clockwork.Clock
}

func NewConfirmationTokens(secret string, clock clockwork.Clock) *ConfirmationTokens {
	return &ConfirmationTokens{secret: []byte(secret), clock: clock}
}

func (t *ConfirmationTokens) Issue(userID string) (string, error) {
	now := t.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, confirmationClaims{
		Purpose: confirmationPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(confirmationTTL)),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign confirmation token: %w", err)
	}
	return signed, nil
}

// Verify accepts only an unexpired HS256 token issued for userID's confirmation.
func (t *ConfirmationTokens) Verify(userID, raw string) error {
	var claims confirmationClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.clock.Now),
		jwt.WithSubject(userID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Purpose != confirmationPurpose {
		return fmt.Errorf("%w: wrong purpose %q", ErrInvalidToken, claims.Purpose)
	}
	return nil
}
