// Package auth — вход администратора кассы и проверка токенов.
// Одна учётная запись из конфигурации, пароль хранится bcrypt-хэшем,
// сессия — HS256 JWT.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

const (
	defaultTokenTTL = 12 * time.Hour
	issuer          = "cafepos"
)

// Config — учётные данные и параметры токена.
type Config struct {
	Username     string
	PasswordHash string
	Secret       []byte
	TokenTTL     time.Duration
}

// Token — выданный токен и момент его истечения.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Service проверяет пароль и выпускает токены.
type Service struct {
	cfg    Config
	logger *log.Entry
	now    func() time.Time
}

// NewService проверяет конфигурацию и создаёт Service.
func NewService(cfg Config, logger *log.Entry) (*Service, error) {
	if strings.TrimSpace(cfg.Username) == "" {
		return nil, errors.New("auth: username is required")
	}
	if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
		return nil, fmt.Errorf("auth: invalid password hash: %w", err)
	}
	if len(cfg.Secret) < 16 {
		return nil, errors.New("auth: token secret must be at least 16 bytes")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if logger == nil {
		logger = log.New().WithField("component", "auth")
	}
	return &Service{cfg: cfg, logger: logger, now: time.Now}, nil
}

// Login сверяет логин и пароль и выдаёт токен.
func (s *Service) Login(_ context.Context, username, password string) (Token, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.Username)) == 1
	// bcrypt выполняется и при неверном логине, чтобы время ответа не выдавало его.
	passErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password))
	if !userOK || passErr != nil {
		s.logger.WithField("username", username).Warn("login rejected")
		return Token{}, domain.ErrInvalidCredentials
	}

	now := s.now().UTC()
	expires := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   s.cfg.Username,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	s.logger.WithField("username", username).Info("login succeeded")
	return Token{Value: signed, ExpiresAt: expires}, nil
}

// Verify проверяет подпись и срок действия токена и возвращает subject.
func (s *Service) Verify(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.cfg.Secret, nil
	})
	if err != nil || !token.Valid {
		return "", domain.ErrUnauthenticated
	}
	if !claims.VerifyIssuer(issuer, true) || claims.Subject != s.cfg.Username {
		return "", domain.ErrUnauthenticated
	}
	return claims.Subject, nil
}

// HashPassword возвращает bcrypt-хэш пароля для конфигурации.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

type subjectKey struct{}

// WithSubject кладёт имя пользователя в контекст запроса.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFromContext возвращает имя пользователя, проверенное интерсептором.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey{}).(string)
	return subject, ok && subject != ""
}
