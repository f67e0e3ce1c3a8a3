package account

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"tickerpulse/internal/domain"
	"tickerpulse/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user does not exist")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPasswordMismatch   = errors.New("new passwords do not match")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("cannot act on another account")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

const (
	minPasswordLen = 8
	tokenIssuer    = "ticker-pulse"
)

type Store interface {
	Create(ctx context.Context, username, passwordHash string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	Delete(ctx context.Context, userID int64) error
}

type Service struct {
	tracer trace.Tracer
	store  Store
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewService(tracer trace.Tracer, store Store, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		tracer: tracer,
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "account.register")
	defer span.End()

	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return domain.User{}, fmt.Errorf("%w: username must be 3-32 letters, digits, '.', '_' or '-'", domain.ErrInvalidInput)
	}
	if err := validatePassword(password); err != nil {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.Create(ctx, username, string(hash))
	if err != nil {
		return domain.User{}, err
	}
	span.SetAttributes(attribute.Int64("user_id", user.ID))
	logger.Info("account registered", zap.String("username", username))
	return user, nil
}

// Login verifies the password and returns a signed session token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "account.login")
	defer span.End()

	user, err := s.authenticate(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return "", err
	}
	return s.IssueToken(user.Username)
}

func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword, confirm string) error {
	ctx, span := s.tracer.Start(ctx, "account.change-password")
	defer span.End()

	user, err := s.authenticate(ctx, username, oldPassword)
	if err != nil {
		return err
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdatePassword(ctx, user.ID, string(hash))
}

// Delete removes username's account. sessionUser must be the same
// account and the password must verify.
func (s *Service) Delete(ctx context.Context, sessionUser, username, password string) error {
	ctx, span := s.tracer.Start(ctx, "account.delete")
	defer span.End()

	username = strings.TrimSpace(username)
	if sessionUser == "" || username != sessionUser {
		return ErrForbidden
	}
	user, err := s.authenticate(ctx, username, password)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, user.ID); err != nil {
		return err
	}
	logger.Info("account deleted", zap.String("username", username))
	return nil
}

func (s *Service) IssueToken(username string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken returns the username a valid token was issued for.
func (s *Service) ParseToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (s *Service) authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, err := s.store.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return domain.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}
	if len(password) > 72 {
		return fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrInvalidInput)
	}
	return nil
}
