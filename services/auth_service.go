package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "marketplace-service/errors"
	"marketplace-service/logger"
	"marketplace-service/models"
	"marketplace-service/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*AuthResult, error)
	Me(ctx context.Context, actor models.Actor) (*models.User, error)
}

type authService struct {
	users  repository.UserRepository
	tokens *TokenService
	cost   int
}

func NewAuthService(users repository.UserRepository, tokens *TokenService) AuthService {
	return &authService{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*AuthResult, error) {
	req.Name = trimmed(req.Name)
	req.Email = strings.ToLower(trimmed(req.Email))
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.Conflict("Email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = models.RoleBuyer
	}
	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		Phone:        trimmed(req.Phone),
		Company:      trimmed(req.Company),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("Email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.FromContext(ctx).Info("User registered", zap.String("user_id", user.ID.Hex()), zap.String("role", role))
	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*AuthResult, error) {
	req.Email = strings.ToLower(trimmed(req.Email))
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthorized("Invalid email or password")
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("Account is disabled")
	}
	return s.issue(user)
}

func (s *authService) Me(ctx context.Context, actor models.Actor) (*models.User, error) {
	userID, err := actorID(actor)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid session")
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) issue(user *models.User) (*AuthResult, error) {
	token, expires, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expires}, nil
}
