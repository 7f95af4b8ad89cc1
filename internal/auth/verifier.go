package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var ErrMissingAccount = errors.New("credential does not reference an account")

// Verifier validates HS256 bearer credentials.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string, clock clockwork.Clock) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(clock.Now),
		),
	}
}

// Verify checks signature and time claims and returns the credential claims.
func (v *Verifier) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid credential: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid credential")
	}
	if claims.UserID <= 0 {
		return nil, ErrMissingAccount
	}
	return claims, nil
}

// Sign issues a credential for claims. Used by tests and local tooling;
// production credentials come from the web application.
func (v *Verifier) Sign(claims *Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
