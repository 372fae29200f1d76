package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type userStoreStub struct {
	user      *models.User
	lastLogin *time.Time
}

func (s *userStoreStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	copy := *s.user
	return &copy, nil
}

func (s *userStoreStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	copy := *s.user
	return &copy, nil
}

func (s *userStoreStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.lastLogin = &ts
	return nil
}

type accessLoggerStub struct {
	entries []*models.AccessLogEntry
}

func (a *accessLoggerStub) LogAccess(ctx context.Context, entry *models.AccessLogEntry) (*models.AccessLogEntry, error) {
	a.entries = append(a.entries, entry)
	return entry, nil
}

type lockCheckerStub struct {
	locked bool
}

func (l *lockCheckerStub) AccountLocked(ctx context.Context, userID string) bool {
	return l.locked
}

func activeUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "tech@interalpha.com.br",
		PasswordHash: string(hash),
		FullName:     "Carlos Lima",
		Role:         models.RoleTechnician,
		Active:       true,
	}
}

func loginRequest(password string) models.LoginRequest {
	return models.LoginRequest{
		Email:     "tech@interalpha.com.br",
		Password:  password,
		IP:        "10.0.0.1",
		UserAgent: "test-agent",
	}
}

func TestLoginIssuesValidToken(t *testing.T) {
	store := &userStoreStub{user: activeUser(t, "s3cret!pass")}
	access := &accessLoggerStub{}
	svc := NewAuthService(store, access, nil, nil, nil, AuthConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "interalpha-api"})

	resp, err := svc.Login(context.Background(), loginRequest("s3cret!pass"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	require.NotNil(t, store.lastLogin)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleTechnician, claims.Role)

	require.Len(t, access.entries, 1)
	assert.True(t, access.entries[0].Success)
	assert.Equal(t, models.AccessActionLogin, access.entries[0].Action)
}

func TestLoginWrongPasswordLogsFailedAttempt(t *testing.T) {
	store := &userStoreStub{user: activeUser(t, "s3cret!pass")}
	access := &accessLoggerStub{}
	svc := NewAuthService(store, access, nil, nil, nil, AuthConfig{Secret: "test-secret"})

	_, err := svc.Login(context.Background(), loginRequest("wrong"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)

	require.Len(t, access.entries, 1)
	assert.False(t, access.entries[0].Success)
	require.NotNil(t, access.entries[0].FailureReason)
	assert.Equal(t, "wrong password", *access.entries[0].FailureReason)
}

func TestLoginUnknownEmailDoesNotRevealAccounts(t *testing.T) {
	store := &userStoreStub{}
	access := &accessLoggerStub{}
	svc := NewAuthService(store, access, nil, nil, nil, AuthConfig{Secret: "test-secret"})

	_, err := svc.Login(context.Background(), loginRequest("whatever1"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
	require.Len(t, access.entries, 1)
	assert.False(t, access.entries[0].Success)
}

func TestLoginInactiveAccountIsRejected(t *testing.T) {
	user := activeUser(t, "s3cret!pass")
	user.Active = false
	store := &userStoreStub{user: user}
	svc := NewAuthService(store, nil, nil, nil, nil, AuthConfig{Secret: "test-secret"})

	_, err := svc.Login(context.Background(), loginRequest("s3cret!pass"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestLoginLockedAccountIsRejectedBeforePasswordCheck(t *testing.T) {
	store := &userStoreStub{user: activeUser(t, "s3cret!pass")}
	access := &accessLoggerStub{}
	svc := NewAuthService(store, access, &lockCheckerStub{locked: true}, nil, nil, AuthConfig{Secret: "test-secret"})

	_, err := svc.Login(context.Background(), loginRequest("s3cret!pass"))
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	require.Len(t, access.entries, 1)
	require.NotNil(t, access.entries[0].FailureReason)
	assert.Equal(t, "account temporarily locked", *access.entries[0].FailureReason)
}

func TestLoginMalformedPayloadIsRejected(t *testing.T) {
	store := &userStoreStub{}
	svc := NewAuthService(store, nil, nil, nil, nil, AuthConfig{Secret: "test-secret"})

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "x"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	store := &userStoreStub{user: activeUser(t, "s3cret!pass")}
	issuer := NewAuthService(store, nil, nil, nil, nil, AuthConfig{Secret: "one-secret"})
	verifier := NewAuthService(store, nil, nil, nil, nil, AuthConfig{Secret: "other-secret"})

	resp, err := issuer.Login(context.Background(), loginRequest("s3cret!pass"))
	require.NoError(t, err)

	_, err = verifier.ValidateToken(resp.AccessToken)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestLogoutRecordsAccessEntry(t *testing.T) {
	access := &accessLoggerStub{}
	svc := NewAuthService(&userStoreStub{}, access, nil, nil, nil, AuthConfig{Secret: "test-secret"})

	svc.Logout(context.Background(), &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin}, "10.0.0.1", "test-agent")

	require.Len(t, access.entries, 1)
	assert.Equal(t, models.AccessActionLogout, access.entries[0].Action)
	assert.True(t, access.entries[0].Success)
}
