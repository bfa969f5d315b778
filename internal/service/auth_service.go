package service

import (
	"context"
	"strings"
	"time"

	"github.com/cozee/docchat/internal/model"
	appErr "github.com/cozee/docchat/internal/pkg/errors"
	"github.com/cozee/docchat/internal/pkg/jwt"
	"github.com/cozee/docchat/internal/pkg/password"
)

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type AuthService struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
}

func NewAuthService(users UserStore, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{users: users, secret: secret, ttl: ttl}
}

func (s *AuthService) Register(ctx context.Context, email, plain string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") || len(plain) < 8 {
		return "", appErr.ErrInvalid
	}
	hash, err := password.Hash(plain)
	if err != nil {
		return "", err
	}
	user := &model.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: hash,
		Ctime:        time.Now().UnixMilli(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", err
	}
	return jwt.GenerateToken(user.ID, user.Email, s.secret, s.ttl)
}

func (s *AuthService) Login(ctx context.Context, email, plain string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if appErr.IsNotFound(err) {
			return "", appErr.ErrUnauthorized
		}
		return "", err
	}
	if err := password.Compare(user.PasswordHash, plain); err != nil {
		return "", appErr.ErrUnauthorized
	}
	return jwt.GenerateToken(user.ID, user.Email, s.secret, s.ttl)
}
