// Package auth реализует регистрацию, вход и проверку bearer-токенов.
// Токены непрозрачные: uuid-сессии с TTL, хранящиеся в репозитории.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
)

const (
	defaultAccessTTL  = 30 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenPair — выданные access- и refresh-токены.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Service описывает операции аутентификации.
type Service interface {
	// Register создаёт аккаунт. Email обязан быть свободен и среди
	// пользователей, и среди клиентов.
	Register(email, password string) (domain.User, error)
	Login(email, password string) (TokenPair, error)
	// Refresh ротирует пару токенов по действующему refresh-токену.
	Refresh(refreshToken string) (TokenPair, error)
	// Authenticate проверяет access-токен и возвращает его владельца.
	Authenticate(token string) (domain.User, error)
	Logout(token string) error
}

type service struct {
	users      domain.UserRepository
	clients    domain.ClientRepository
	sessions   domain.SessionRepository
	logger     *log.Entry
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option настраивает сервис аутентификации.
type Option func(*service)

// WithAccessTTL задаёт срок жизни access-токена.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL задаёт срок жизни refresh-токена.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// New создаёт сервис аутентификации.
func New(users domain.UserRepository, clients domain.ClientRepository, sessions domain.SessionRepository, logger *log.Entry, options ...Option) Service {
	if logger == nil {
		logger = log.New().WithField("component", "auth")
	}
	s := &service{
		users:      users,
		clients:    clients,
		sessions:   sessions,
		logger:     logger,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *service) Register(email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if !domain.ValidEmail(email) {
		return domain.User{}, domain.ErrEmailInvalid
	}
	if password == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	// Email проверяется и среди клиентов: адрес, занятый клиентской
	// записью, не должен регистрироваться заново.
	if _, err := s.users.GetByEmail(email); err == nil {
		return domain.User{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}
	if _, err := s.clients.GetByEmail(email); err == nil {
		return domain.User{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrClientNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.users.Create(domain.User{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	})
	if err != nil {
		return domain.User{}, err
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return user, nil
}

func (s *service) Login(email, password string) (TokenPair, error) {
	user, err := s.users.GetByEmail(strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return TokenPair{}, domain.ErrInvalidCredentials
		}
		return TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, domain.ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return TokenPair{}, err
	}

	s.logger.WithField("user_id", user.ID).Info("user logged in")
	return pair, nil
}

// Refresh ротирует токены: старый refresh-токен гасится, выдаётся новая пара.
func (s *service) Refresh(refreshToken string) (TokenPair, error) {
	session, err := s.sessions.Get(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if session.Kind != domain.SessionKindRefresh {
		return TokenPair{}, domain.ErrSessionNotFound
	}
	if session.Expired(s.now()) {
		_ = s.sessions.Delete(refreshToken)
		return TokenPair{}, domain.ErrSessionExpired
	}

	if err := s.sessions.Delete(refreshToken); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return TokenPair{}, err
	}

	return s.issuePair(session.UserID)
}

func (s *service) Authenticate(token string) (domain.User, error) {
	session, err := s.sessions.Get(token)
	if err != nil {
		return domain.User{}, err
	}
	if session.Kind != domain.SessionKindAccess {
		return domain.User{}, domain.ErrSessionNotFound
	}
	if session.Expired(s.now()) {
		_ = s.sessions.Delete(token)
		return domain.User{}, domain.ErrSessionExpired
	}

	return s.users.Get(session.UserID)
}

func (s *service) Logout(token string) error {
	return s.sessions.Delete(token)
}

func (s *service) issuePair(userID int64) (TokenPair, error) {
	now := s.now()

	access := domain.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Kind:      domain.SessionKindAccess,
		TTLAt:     now.Add(s.accessTTL),
		CreatedAt: now,
	}
	if _, err := s.sessions.Create(access); err != nil {
		return TokenPair{}, err
	}

	refresh := domain.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Kind:      domain.SessionKindRefresh,
		TTLAt:     now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if _, err := s.sessions.Create(refresh); err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access.Token,
		AccessExpiresAt:  access.TTLAt,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.TTLAt,
	}, nil
}
