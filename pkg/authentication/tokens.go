// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
	ResetToken   TokenType = "reset"
)

var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// TokenClaims is what the service knows about a login when minting a pair.
type TokenClaims struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
	TenantID  string
}

type AccessClaims struct {
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	SessionID string    `json:"sid"`
	TenantID  string    `json:"tenantId"`
	Type      TokenType `json:"tokenType"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	SessionID string    `json:"sid"`
	TenantID  string    `json:"tenantId"`
	Type      TokenType `json:"tokenType"`
	jwt.RegisteredClaims
}

type ResetClaims struct {
	Type TokenType `json:"tokenType"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type TokenConfig struct {
	Issuer        string
	AccessSecret  []byte
	RefreshSecret []byte
	ResetSecret   []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
}

// TokenService signs each token kind with its own secret so a token of one
// kind never verifies as another.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

func (t *TokenService) RefreshTTL() time.Duration {
	return t.cfg.RefreshTTL
}

func (t *TokenService) ResetTTL() time.Duration {
	return t.cfg.ResetTTL
}

func (t *TokenService) GenerateTokens(c TokenClaims) (*TokenPair, error) {
	now := t.now()

	access := AccessClaims{
		Email:            c.Email,
		Role:             c.Role,
		SessionID:        c.SessionID,
		TenantID:         c.TenantID,
		Type:             AccessToken,
		RegisteredClaims: t.registered(c.UserID, now, t.cfg.AccessTTL),
	}

	refresh := RefreshClaims{
		SessionID:        c.SessionID,
		TenantID:         c.TenantID,
		Type:             RefreshToken,
		RegisteredClaims: t.registered(c.UserID, now, t.cfg.RefreshTTL),
	}

	accessToken, err := sign(access, t.cfg.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken, err := sign(refresh, t.cfg.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(t.cfg.AccessTTL.Seconds()),
	}, nil
}

func (t *TokenService) GenerateResetToken(userID string) (string, error) {
	claims := ResetClaims{
		Type:             ResetToken,
		RegisteredClaims: t.registered(userID, t.now(), t.cfg.ResetTTL),
	}

	token, err := sign(claims, t.cfg.ResetSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign reset token: %w", err)
	}
	return token, nil
}

func (t *TokenService) VerifyAccessToken(raw string) (*AccessClaims, error) {
	claims := new(AccessClaims)
	if err := t.parse(raw, claims, t.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if claims.Type != AccessToken {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (t *TokenService) VerifyRefreshToken(raw string) (*RefreshClaims, error) {
	claims := new(RefreshClaims)
	if err := t.parse(raw, claims, t.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.Type != RefreshToken || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (t *TokenService) VerifyResetToken(raw string) (*ResetClaims, error) {
	claims := new(ResetClaims)
	if err := t.parse(raw, claims, t.cfg.ResetSecret); err != nil {
		return nil, err
	}
	if claims.Type != ResetToken {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (t *TokenService) parse(raw string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(
		raw,
		claims,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

func (t *TokenService) registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    t.cfg.Issuer,
		Subject:   subject,
		ID:        randomID(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func randomID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// HashToken is the stored form of refresh and reset tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type TokenOption func(*TokenService)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenService) {
		t.now = now
	}
}

func NewTokenService(cfg TokenConfig, opts ...TokenOption) *TokenService {
	t := new(TokenService)
	t.cfg = cfg
	t.now = time.Now

	for _, opt := range opts {
		opt(t)
	}

	return t
}
