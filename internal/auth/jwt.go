package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"clinicops/internal/model"
)

// Token is a signed access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Claims represents JWT payload.
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Caller converts the claims to the identity services act on.
func (c Claims) Caller() model.Caller {
	return model.Caller{ID: c.Subject, Name: c.Name, Role: c.Role}
}

func knownRole(role string) bool {
	switch role {
	case model.RoleStudent, model.RoleDirector, model.RoleAdmin:
		return true
	}
	return false
}

// Issue signs an access token for caller.
func Issue(caller model.Caller, issuer, key string, ttl time.Duration) (Token, error) {
	if caller.ID == "" || !knownRole(caller.Role) {
		return Token{}, errors.New("subject and a known role are required")
	}
	now := time.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Subject: caller.ID,
		Role:    caller.Role,
		Name:    caller.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   caller.ID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	if !knownRole(claims.Role) {
		return Claims{}, errors.New("unknown role")
	}
	return *claims, nil
}
