package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sentinelhive/internal/cache"
	"sentinelhive/internal/pkg/token"
	"sentinelhive/internal/repository"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrMalformedHeader   = errors.New("malformed authorization header")
	ErrUnauthorized      = errors.New("invalid or expired token")
)

// AuthService issues and validates bearer tokens. Externally every login
// failure is the same ErrInvalidCredential; the actual cause only reaches
// the internal log so user ids cannot be enumerated.
type AuthService struct {
	userRepo *repository.UserRepository
	codec    *token.Codec
	denylist cache.TokenDenylist
	logger   *zap.Logger

	now func() time.Time
}

func NewAuthService(userRepo *repository.UserRepository, codec *token.Codec, denylist cache.TokenDenylist, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		codec:    codec,
		denylist: denylist,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, userID, password string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || password == "" {
		return "", ErrInvalidInput
	}

	user, err := s.userRepo.GetByUserID(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		s.logger.Debug("login rejected: unknown user", zap.String("user_id", userID))
		return "", ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("login rejected: wrong password", zap.String("user_id", userID))
		return "", ErrInvalidCredential
	}

	tok := s.codec.Issue(user.UserID, s.now())
	s.logger.Info("token issued", zap.String("user_id", user.UserID))
	return tok, nil
}

// Authenticate resolves an Authorization header value to a user id.
func (s *AuthService) Authenticate(ctx context.Context, bearerHeader string) (string, error) {
	tok, err := stripBearer(bearerHeader)
	if err != nil {
		return "", err
	}

	userID, err := s.codec.Verify(tok, s.now())
	if err != nil {
		s.logger.Debug("token rejected", zap.Error(err))
		return "", ErrUnauthorized
	}

	_, _, sig, err := token.Split(tok)
	if err != nil {
		return "", ErrUnauthorized
	}
	revoked, err := s.denylist.IsRevoked(ctx, sig)
	if err != nil {
		return "", err
	}
	if revoked {
		s.logger.Debug("token rejected: revoked", zap.String("user_id", userID))
		return "", ErrUnauthorized
	}
	return userID, nil
}

// Logout revokes a valid token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, bearerHeader string) error {
	tok, err := stripBearer(bearerHeader)
	if err != nil {
		return err
	}

	userID, err := s.codec.Verify(tok, s.now())
	if err != nil {
		return ErrUnauthorized
	}

	_, _, sig, err := token.Split(tok)
	if err != nil {
		return ErrUnauthorized
	}
	if err := s.denylist.Revoke(ctx, sig, s.codec.TTL()); err != nil {
		return err
	}
	s.logger.Info("token revoked", zap.String("user_id", userID))
	return nil
}

// CheckToken reports whether a raw token is currently usable.
func (s *AuthService) CheckToken(ctx context.Context, tok string) bool {
	if _, err := s.codec.Verify(tok, s.now()); err != nil {
		return false
	}
	_, _, sig, err := token.Split(tok)
	if err != nil {
		return false
	}
	revoked, err := s.denylist.IsRevoked(ctx, sig)
	if err != nil {
		return false
	}
	return !revoked
}

func stripBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", ErrMalformedHeader
	}
	tok := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if tok == "" {
		return "", ErrMalformedHeader
	}
	return tok, nil
}
