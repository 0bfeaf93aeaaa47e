package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type tokenType string

const (
	tokenTypeAccess            tokenType = "access"
	tokenTypeEmailVerification tokenType = "email_verification"
)

const verificationTokenTTL = 24 * time.Hour

type tokenClaims struct {
	Type tokenType `json:"type"`
	jwt.RegisteredClaims
}

// tokenService mints and checks the signed bearer tokens. Nothing is stored:
// a token is valid until it expires.
type tokenService struct {
	secret    []byte
	method    *jwt.SigningMethodHMAC
	accessTTL time.Duration
	now       func() time.Time
}

func newTokenService(cfg jwtConfig) (*tokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token signing secret must be set")
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.AccessTokenMinutes <= 0 {
		return nil, fmt.Errorf("access token lifetime must be positive, got %d minutes", cfg.AccessTokenMinutes)
	}
	return &tokenService{
		secret:    []byte(cfg.Secret),
		method:    method,
		accessTTL: time.Duration(cfg.AccessTokenMinutes) * time.Minute,
		now:       time.Now,
	}, nil
}

func (s *tokenService) issueAccessToken(subject string) (string, error) {
	return s.issue(subject, tokenTypeAccess, s.accessTTL)
}

func (s *tokenService) issueVerificationToken(subject string) (string, error) {
	return s.issue(subject, tokenTypeEmailVerification, verificationTokenTTL)
}

func (s *tokenService) issue(subject string, typ tokenType, ttl time.Duration) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
}

// decode returns the subject of tokenStr. Any problem with the token (bad
// signature, other algorithm, expiry, type mismatch, empty subject) yields an
// error wrapping errInvalidToken.
func (s *tokenService) decode(tokenStr string, expected tokenType) (string, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{s.method.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if !token.Valid {
		return "", errInvalidToken
	}
	if claims.Type != expected {
		return "", fmt.Errorf("%w: expected %s token, got %q", errInvalidToken, expected, claims.Type)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", errInvalidToken)
	}
	return claims.Subject, nil
}
