// Package auth registers users, checks passwords and issues the JWTs that
// authenticate REST calls and live connections.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"live-app/internal/apperrors"
	"live-app/internal/config"
	"live-app/internal/database"
	"live-app/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the token payload. user_id is also what live connections use
// as the participant id.
type Claims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

type Service struct {
	users database.UserRepository
	jwt   config.JWTConfig
	now   func() time.Time
}

func NewService(users database.UserRepository, cfg *config.Config) *Service {
	return &Service{users: users, jwt: cfg.JWT, now: time.Now}
}

func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := models.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err)
	}

	user, err := s.users.CreateUser(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", req.Email, err)
	}
	return s.session(user)
}

// Login never tells the caller whether the email or the password was wrong.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	case err != nil:
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}
	return s.session(user)
}

func (s *Service) session(user *models.User) (*models.LoginResponse, error) {
	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	out := *user
	out.PasswordHash = ""
	return &models.LoginResponse{Token: token, User: out}, nil
}

// ParseToken verifies the signature and expiry of an HS256 token.
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.jwt.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: token carries no user", apperrors.ErrUnauthorized)
	}
	return claims, nil
}

// GetUserFromToken resolves a token to a user that still exists.
func (s *Service) GetUserFromToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: user %d no longer exists", apperrors.ErrUnauthorized, claims.UserID)
	}
	return user, err
}

func (s *Service) generateToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwt.ExpiresIn)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwt.Secret)
}
