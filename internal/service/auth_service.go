package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/pairlink/internal/model"
	"github.com/d60-Lab/pairlink/internal/repository"
	"github.com/d60-Lab/pairlink/pkg/jwtauth"
)

var (
	ErrUserExists         = errors.New("username or email already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (token string, err error)
}

type authService struct {
	userRepo  repository.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{userRepo: userRepo, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

func (s *authService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{Username: username, Email: email, Password: string(hash)}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return u, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return jwtauth.Sign(s.jwtSecret, u.ID, s.tokenTTL)
}
