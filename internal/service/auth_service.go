package service

import (
	"context"
	"errors"
	"strings"

	"campusfeed/internal/auth"
	"campusfeed/internal/middleware"
	"campusfeed/internal/models"
	"campusfeed/internal/observability"
	"campusfeed/internal/repository"
	"campusfeed/internal/security"
	"campusfeed/internal/validation"
)

// TokenIssuer signs and rotates session tokens.
type TokenIssuer interface {
	Issue(id auth.Identity) (*auth.Pair, error)
	Refresh(refreshToken string) (*auth.Pair, *auth.Claims, error)
}

// AuthService handles account registration and session issuance.
type AuthService struct {
	userRepo repository.UserRepository
	hasher   *security.PasswordHasher
	tokens   TokenIssuer
	avatar   func() string
}

type RegisterInput struct {
	Username string
	Password string
	Nickname string
}

// Session is a logged-in user with a fresh token pair.
type Session struct {
	User   *models.PublicUser
	Tokens *auth.Pair
}

func NewAuthService(userRepo repository.UserRepository, hasher *security.PasswordHasher, tokens TokenIssuer) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		avatar:   security.RandomAvatar,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, error) {
	username := strings.TrimSpace(in.Username)
	nickname := strings.TrimSpace(in.Nickname)

	if username == "" || in.Password == "" || nickname == "" {
		return nil, models.NewValidationError("username, password and nickname are required")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateNickname(nickname); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	username = security.Escape(username)
	taken, err := s.userRepo.UsernameTaken(ctx, username, 0)
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}
	if taken {
		observability.AuthEvents.WithLabelValues("register", "username_taken").Inc()
		return nil, usernameTaken()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Password: hash,
		Nickname: security.Escape(nickname),
		Avatar:   s.avatar(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			observability.AuthEvents.WithLabelValues("register", "username_taken").Inc()
			return nil, usernameTaken()
		}
		return nil, models.NewDatabaseError(err)
	}

	observability.AuthEvents.WithLabelValues("register", "success").Inc()
	middleware.Logger.InfoContext(ctx, "user registered", "registered_user_id", user.ID)
	return user.Public(), nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.NewValidationError("username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, security.Escape(username))
	if errors.Is(err, repository.ErrNotFound) {
		observability.AuthEvents.WithLabelValues("login", "user_not_found").Inc()
		return nil, models.NewBusinessError(models.CodeUserNotFound, "user does not exist")
	}
	if err != nil {
		return nil, models.NewDatabaseError(err)
	}

	if err := s.hasher.Verify(user.Password, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			observability.AuthEvents.WithLabelValues("login", "wrong_password").Inc()
			return nil, models.NewBusinessError(models.CodeWrongPassword, "wrong password")
		}
		return nil, models.NewInternalError(err)
	}

	pair, err := s.tokens.Issue(identityOf(user))
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	observability.AuthEvents.WithLabelValues("login", "success").Inc()
	return &Session{User: user.Public(), Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair over the same identity.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.Pair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, models.NewValidationError("refresh token is required")
	}

	pair, _, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		observability.AuthEvents.WithLabelValues("refresh", "rejected").Inc()
		middleware.Logger.DebugContext(ctx, "refresh rejected", "error", err)
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, models.NewUnauthorizedError("refresh token expired")
		}
		return nil, models.NewUnauthorizedError("invalid refresh token")
	}

	observability.AuthEvents.WithLabelValues("refresh", "success").Inc()
	return pair, nil
}

func identityOf(u *models.User) auth.Identity {
	return auth.Identity{
		UserID:     u.ID,
		Username:   u.Username,
		Nickname:   u.Nickname,
		Avatar:     u.Avatar,
		CreateTime: u.CreatedAt,
	}
}

func usernameTaken() error {
	return models.NewBusinessError(models.CodeUsernameTaken, "username already exists")
}
