// Package service contains the application services behind the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/formsync/internal/crypto"
	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/limiter"
	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/repository"
)

// AuthService defines login and token verification.
type AuthService interface {
	// Login applies rate limiting and authenticates by username or email.
	Login(ctx context.Context, login, password, ip string) (model.Tokens, model.User, error)
	// ParseToken verifies a bearer token and returns its principal.
	ParseToken(token string) (model.Principal, error)
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	log       *zap.Logger
}

// Claims is the JWT payload issued on login.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter, log *zap.Logger) *AuthServiceImpl {
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim, log: log}
}

// Login authenticates with rate limiting by (login, ip). On success the offline digest is
// re-derived from the password so on-device login keeps working after a password change.
func (s *AuthServiceImpl) Login(ctx context.Context, login, password, ip string) (model.Tokens, model.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return model.Tokens{}, model.User{}, errs.NewValidation("login and password are required")
	}
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, login, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByLogin(ctx, login)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Tokens{}, model.User{}, err
	}
	if err != nil || !pkgcrypto.VerifyPassword(password, u.PasswordHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, login, ipHash); ferr == nil && blocked {
			return model.Tokens{}, model.User{}, errs.ErrRateLimited
		}
		return model.Tokens{}, model.User{}, errs.ErrUnauthorized
	}

	if err := s.lim.Success(ctx, login, ipHash); err != nil {
		s.log.Warn("limiter reset failed", zap.String("login", login), zap.Error(err))
	}

	digest := pkgcrypto.OfflineDigest(password)
	if digest != u.OfflineDigest {
		if err := s.users.UpdateOfflineDigest(ctx, u.ID, digest); err != nil {
			return model.Tokens{}, model.User{}, fmt.Errorf("store offline digest: %w", err)
		}
		u.OfflineDigest = digest
	}

	access, exp, err := s.issueAccessToken(u)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, u.Public(), nil
}

// issueAccessToken creates a signed HS256 JWT for the user.
func (s *AuthServiceImpl) issueAccessToken(u *model.User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := Claims{
		Username: u.Username,
		Role:     u.RoleName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}

// ParseToken validates signature, algorithm and expiry.
func (s *AuthServiceImpl) ParseToken(token string) (model.Principal, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) { return s.signKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Principal{}, errs.ErrUnauthorized
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return model.Principal{}, errs.ErrUnauthorized
	}
	return model.Principal{UserID: id, Username: c.Username, Role: strings.ToUpper(c.Role)}, nil
}
