package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"codecampus/internal/common/cache"
	pkgerrors "codecampus/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

const revokedKeyPrefix = "gateway:revoked:"

// UserInfo is the authenticated caller identity.
type UserInfo struct {
	ID   int64
	Role string
}

// AuthService validates edge access tokens. This is the single place an
// end-user credential is checked; everything behind the gateway trusts
// the assertion minted afterwards, never the raw token.
type AuthService struct {
	jwtSecret    []byte
	jwtIssuer    string
	revoked      cache.Cache
	cacheTimeout time.Duration
}

// NewAuthService creates an auth service. The revocation cache is
// optional; without it tokens are valid until expiry.
func NewAuthService(jwtSecret, jwtIssuer string, revoked cache.Cache, cacheTimeout time.Duration) *AuthService {
	if cacheTimeout <= 0 {
		cacheTimeout = 200 * time.Millisecond
	}
	return &AuthService{
		jwtSecret:    []byte(jwtSecret),
		jwtIssuer:    jwtIssuer,
		revoked:      revoked,
		cacheTimeout: cacheTimeout,
	}
}

type tokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Authenticate verifies a raw access token and returns the caller.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (UserInfo, error) {
	if raw == "" {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, err := s.parseToken(raw)
	if err != nil {
		return UserInfo{}, err
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if s.revoked != nil {
		revoked, err := s.isRevoked(ctx, raw)
		if err != nil {
			return UserInfo{}, pkgerrors.Wrap(err, pkgerrors.ServiceUnavailable)
		}
		if revoked {
			return UserInfo{}, pkgerrors.New(pkgerrors.TokenInvalid)
		}
	}
	return UserInfo{ID: userID, Role: claims.Role}, nil
}

func (s *AuthService) parseToken(raw string) (*tokenClaims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkgerrors.New(pkgerrors.TokenExpired)
		}
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if s.jwtIssuer != "" && claims.Issuer != s.jwtIssuer {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.TokenType != "access" {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.Role == "" || claims.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return claims, nil
}

func (s *AuthService) isRevoked(ctx context.Context, raw string) (bool, error) {
	sum := sha256.Sum256([]byte(raw))
	ctxCache, cancel := context.WithTimeout(ctx, s.cacheTimeout)
	defer cancel()
	value, err := s.revoked.Get(ctxCache, revokedKeyPrefix+hex.EncodeToString(sum[:]))
	if err != nil {
		return false, err
	}
	return value != "", nil
}
