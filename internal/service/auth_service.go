package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"tictactoe/internal/domain"
	"tictactoe/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

const minPasswordLen = 6

// AuthService registers accounts and issues session tokens.
type AuthService struct {
	users domain.UserRepository
	cost  int
}

func NewAuthService(users domain.UserRepository) *AuthService {
	return &AuthService{users: users, cost: bcrypt.DefaultCost}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if !usernameRe.MatchString(username) {
		return nil, domain.NewRuleError(domain.ErrInvalidArgument, "username must be 3-32 letters, digits or underscores")
	}
	if len(password) < minPasswordLen {
		return nil, domain.NewRuleError(domain.ErrInvalidArgument, "password is too short")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, err
	}

	u := &domain.User{Username: username, PasswordHash: string(hash)}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	logger.WithContext(ctx).Info("user registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Login checks credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := GenerateJWT(u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Player resolves a user id to the seat identity used by the engine.
func (s *AuthService) Player(ctx context.Context, userID int64) (domain.Player, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.Player{}, err
	}
	return domain.Player{ID: u.ID, Name: u.Username}, nil
}
