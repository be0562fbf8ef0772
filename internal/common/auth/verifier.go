package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"codejudge/internal/common/cache"
	pkgerrors "codejudge/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	accessTokenType        = "access"
	suspendedAccountPrefix = "account:suspended:"
)

// Principal is the authenticated caller.
type Principal struct {
	AccountID int64
	Role      string
}

// Config holds the HS256 verification settings.
type Config struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// TokenVerifier validates access tokens issued by the account service.
type TokenVerifier struct {
	secret []byte
	issuer string
	cache  cache.Cache
}

// NewTokenVerifier creates a verifier. A nil cache disables the suspension lookup.
func NewTokenVerifier(cfg Config, cacheClient cache.Cache) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		cache:  cacheClient,
	}
}

type tokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Authenticate parses raw and resolves the calling account.
func (v *TokenVerifier) Authenticate(ctx context.Context, raw string) (Principal, error) {
	if raw == "" {
		return Principal{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	claims, err := v.parseToken(raw)
	if err != nil {
		return Principal{}, err
	}
	accountID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || accountID <= 0 {
		return Principal{}, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if v.cache != nil {
		n, err := v.cache.Exists(ctx, SuspendedAccountKey(accountID))
		if err != nil {
			return Principal{}, pkgerrors.Wrap(err, pkgerrors.ServiceUnavailable)
		}
		if n > 0 {
			return Principal{}, pkgerrors.New(pkgerrors.AccountSuspended)
		}
	}
	role := claims.Role
	if role == "" {
		role = RoleUser
	}
	return Principal{AccountID: accountID, Role: role}, nil
}

func (v *TokenVerifier) parseToken(raw string) (*tokenClaims, error) {
	if len(v.secret) == 0 {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	parsed, err := jwt.ParseWithClaims(raw, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
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
	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	if claims.TokenType != accessTokenType || claims.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return claims, nil
}

// IssueAccessToken signs an access token. The account service owns issuance in production;
// this is used by local tooling and tests.
func IssueAccessToken(cfg Config, accountID int64, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Role:      role,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// SuspendedAccountKey is the cache key whose presence blocks an account.
func SuspendedAccountKey(accountID int64) string {
	return suspendedAccountPrefix + strconv.FormatInt(accountID, 10)
}
