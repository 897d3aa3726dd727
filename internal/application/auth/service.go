package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sports-playlist/internal/domain"
	"github.com/sports-playlist/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error)
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
}

type tokenSigner interface {
	Sign(u *domain.User) (string, error)
}

type service struct {
	repo       userStore
	signer     tokenSigner
	bcryptCost int
}

type ServiceDeps struct {
	UserRepo    userStore
	JWTProvider tokenSigner
	BcryptCost  int // defaults to bcrypt.DefaultCost
}

func NewService(deps ServiceDeps) Service {
	cost := deps.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &service{repo: deps.UserRepo, signer: deps.JWTProvider, bcryptCost: cost}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.AuthResponse, error) {
	if err := s.ensureFree(ctx, s.repo.GetByUsername, req.Username, "username already exists"); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, s.repo.GetByEmail, req.Email, "email already exists"); err != nil {
		return nil, err
	}
	u, err := NewUser(req.Username, req.Email, req.Password, domain.RoleUser, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	return s.respond(u)
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.AuthResponse, error) {
	u, err := s.repo.GetByUsername(ctx, req.Username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid username or password: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid username or password: %w", domain.ErrUnauthorized)
	}
	return s.respond(u)
}

// NewUser builds a user with a fresh id and a bcrypt hash of password.
func NewUser(username, email, password, role string, cost int) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &domain.User{
		UserID:       id.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (s *service) ensureFree(ctx context.Context, lookup func(context.Context, string) (*domain.User, error), value, conflictMsg string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return fmt.Errorf("%s: %w", conflictMsg, domain.ErrConflict)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *service) respond(u *domain.User) (*domain.AuthResponse, error) {
	token, err := s.signer.Sign(u)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &domain.AuthResponse{
		UserID:   u.UserID,
		Username: u.Username,
		Email:    u.Email,
		Token:    token,
	}, nil
}
