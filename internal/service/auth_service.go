package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type authUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
}

type accessLogger interface {
	LogAccess(ctx context.Context, entry *models.AccessLogEntry) (*models.AccessLogEntry, error)
}

type accountLockChecker interface {
	AccountLocked(ctx context.Context, userID string) bool
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret   string
	Expiry   time.Duration
	Issuer   string
	Audience []string
}

// AuthService authenticates users and issues access tokens. Every
// attempt, successful or not, lands in the access log so the
// suspicious-activity detector sees the full history.
type AuthService struct {
	repo      authUserStore
	access    accessLogger
	locks     accountLockChecker
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs the service.
func NewAuthService(repo authUserStore, access accessLogger, locks accountLockChecker, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Expiry <= 0 {
		config.Expiry = 24 * time.Hour
	}
	return &AuthService{repo: repo, access: access, locks: locks, validator: validate, logger: logger, config: config}
}

// Login authenticates a user and returns an issued token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordAttempt(ctx, req, req.Email, models.ActorKindEmployee, false, "unknown email")
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	kind := actorKindFor(user.Role)

	if !user.Active {
		s.recordAttempt(ctx, req, user.ID, kind, false, "account inactive")
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	if s.locks != nil && s.locks.AccountLocked(ctx, user.ID) {
		s.recordAttempt(ctx, req, user.ID, kind, false, "account temporarily locked")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account temporarily locked")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordAttempt(ctx, req, user.ID, kind, false, "wrong password")
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}
	s.recordAttempt(ctx, req, user.ID, kind, true, "")

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.Expiry.Seconds()),
		IssuedAt:    time.Now().UTC(),
		User: models.UserInfo{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
	}, nil
}

// Logout records the session end in the access log.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims, ip, userAgent string) {
	if s.access == nil || claims == nil {
		return
	}
	if _, err := s.access.LogAccess(ctx, &models.AccessLogEntry{
		UserID:    claims.UserID,
		UserType:  actorKindFor(claims.Role),
		Action:    models.AccessActionLogout,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   true,
	}); err != nil {
		s.logger.Warn("failed to record logout", zap.Error(err))
	}
}

// ValidateToken parses and validates an access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.config.Issuer,
			Audience:  s.config.Audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.Expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *AuthService) recordAttempt(ctx context.Context, req models.LoginRequest, userID string, kind models.ActorKind, success bool, reason string) {
	if s.access == nil {
		return
	}
	entry := &models.AccessLogEntry{
		UserID:    userID,
		UserType:  kind,
		Action:    models.AccessActionLogin,
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
		Success:   success,
	}
	if req.Location != "" {
		entry.Location = &req.Location
	}
	if !success {
		entry.FailureReason = &reason
	}
	if _, err := s.access.LogAccess(ctx, entry); err != nil {
		s.logger.Warn("failed to record login attempt", zap.Error(err))
	}
}

func actorKindFor(role models.UserRole) models.ActorKind {
	if role == models.RoleClient {
		return models.ActorKindClient
	}
	return models.ActorKindEmployee
}
