package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tbarimtBack/internal/models"
	"tbarimtBack/utils"
)

const (
	accessTokenTTL  = 20 * time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
)

type SessionStore interface {
	CreateUser(ctx context.Context, u models.User) (int, error)
	GetUserByID(ctx context.Context, id int) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	SaveSession(ctx context.Context, s models.Session) error
	DeleteSessions(ctx context.Context, userID int) error
	UpdateFCMToken(ctx context.Context, userID int, token string) error
}

type UserService struct {
	Users  SessionStore
	Tokens *utils.Manager
}

func (s *UserService) SignUp(ctx context.Context, req models.SignUpRequest) (models.AuthResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		return models.AuthResponse{}, models.ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return models.AuthResponse{}, err
	}

	u := models.User{
		Name:     req.Name,
		Email:    email,
		Phone:    req.Phone,
		Password: string(hashed),
		Role:     "user",
	}
	id, err := s.Users.CreateUser(ctx, u)
	if err != nil {
		return models.AuthResponse{}, err
	}
	u.ID = id
	u.CreatedAt = time.Now()
	return s.issueTokens(ctx, u)
}

func (s *UserService) SignIn(ctx context.Context, req models.SignInRequest) (models.AuthResponse, error) {
	u, err := s.Users.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.AuthResponse{}, models.ErrInvalidCredentials
		}
		return models.AuthResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return models.AuthResponse{}, models.ErrInvalidCredentials
	}
	return s.issueTokens(ctx, u)
}

func (s *UserService) LogOut(ctx context.Context, userID int) error {
	return s.Users.DeleteSessions(ctx, userID)
}

func (s *UserService) SaveFCMToken(ctx context.Context, userID int, token string) error {
	return s.Users.UpdateFCMToken(ctx, userID, token)
}

func (s *UserService) issueTokens(ctx context.Context, u models.User) (models.AuthResponse, error) {
	access, err := s.Tokens.NewAccessToken(u.ID, u.Role, accessTokenTTL)
	if err != nil {
		return models.AuthResponse{}, err
	}
	refresh, err := s.Tokens.NewRefreshToken()
	if err != nil {
		return models.AuthResponse{}, err
	}
	err = s.Users.SaveSession(ctx, models.Session{
		UserID:       u.ID,
		Role:         u.Role,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(refreshTokenTTL),
	})
	if err != nil {
		return models.AuthResponse{}, err
	}

	u.Password = ""
	return models.AuthResponse{User: u, AccessToken: access, RefreshToken: refresh}, nil
}
