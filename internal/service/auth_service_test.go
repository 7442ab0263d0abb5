package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetworks/motorpool-api/internal/models"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

type authRepoStub struct {
	userByEmail      *models.User
	userByID         *models.User
	refreshTokens    map[string]*models.RefreshToken
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
	revokedAll       bool
}

func (m *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *authRepoStub) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail != nil {
		return m.userByEmail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *authRepoStub) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *authRepoStub) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	if m.userByEmail != nil && m.userByEmail.ID == id {
		m.userByEmail.PasswordHash = passwordHash
	}
	return nil
}

func (m *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	m.revokedAll = true
	return nil
}

func (m *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "motorpool-api",
	}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	password, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &authRepoStub{userByEmail: &models.User{ID: 2, Email: "dana@fleetworks.dev", PasswordHash: string(password), Active: true, Role: models.RoleApprover}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "dana@fleetworks.dev", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.True(t, repo.lastLoginUpdated)
	assert.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &authRepoStub{userByEmail: &models.User{ID: 2, Email: "dana@fleetworks.dev", PasswordHash: string(password), Active: true}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "dana@fleetworks.dev", Password: "nope"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceLoginInactive(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &authRepoStub{userByEmail: &models.User{ID: 2, Email: "dana@fleetworks.dev", PasswordHash: string(password), Active: false}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "dana@fleetworks.dev", Password: "password"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInactiveAccount))
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	user := &models.User{ID: 2, Email: "dana@fleetworks.dev", PasswordHash: "hash", Active: true, Role: models.RoleApprover}
	repo := &authRepoStub{userByID: user, refreshTokens: map[string]*models.RefreshToken{
		"old-token": {ID: "rt-1", UserID: user.ID, Token: "old-token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "old-token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["old-token"].Revoked)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	user := &models.User{ID: 2, Active: true}
	repo := &authRepoStub{userByID: user, refreshTokens: map[string]*models.RefreshToken{
		"stale": {ID: "rt-1", UserID: user.ID, Token: "stale", ExpiresAt: time.Now().Add(-time.Minute)},
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}

func TestAuthServiceLogoutForeignToken(t *testing.T) {
	repo := &authRepoStub{refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt-1", UserID: 2, Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.Logout(context.Background(), "token", 99, models.LoginRequest{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("oldpass"), bcrypt.DefaultCost)
	repo := &authRepoStub{userByEmail: &models.User{ID: 2, PasswordHash: string(oldHash), Active: true}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), 2, models.ChangePasswordRequest{OldPassword: "oldpass", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NotEqual(t, string(oldHash), repo.userByEmail.PasswordHash)
	assert.True(t, repo.revokedAll)
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService(&authRepoStub{}, validator.New(), zap.NewNop(), testAuthConfig())
	departmentID := int64(5)
	user := &models.User{ID: 2, Email: "dana@fleetworks.dev", Role: models.RoleApprover, DepartmentID: &departmentID}
	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleApprover, claims.Role)
	require.NotNil(t, claims.DepartmentID)
	assert.Equal(t, departmentID, *claims.DepartmentID)

	_, err = svc.ValidateToken(token + "tampered")
	require.Error(t, err)
}
