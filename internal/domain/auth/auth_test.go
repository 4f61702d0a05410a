package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrpay/internal/platform/logger"
)

type fakeStore struct {
	user      User
	err       error
	lastLogin string
}

func (f *fakeStore) FindActiveUserByEmail(_ context.Context, email string) (User, error) {
	if f.err != nil {
		return User{}, f.err
	}
	if email != f.user.Email {
		return User{}, ErrInvalidCredentials
	}
	return f.user, nil
}

func (f *fakeStore) UpdateLastLogin(_ context.Context, userID string) error {
	f.lastLogin = userID
	return nil
}

func TestTokenRoundTrip(t *testing.T) {
	now := time.Now()
	token, err := GenerateToken("secret", Claims{UserID: "u1", CompanyID: "c1", RoleName: RoleViewer}, now, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "c1", claims.CompanyID)
	assert.Equal(t, RoleViewer, claims.RoleName)

	_, err = ParseToken("other", token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateToken("secret", Claims{UserID: "u1"}, time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("secret", token)
	assert.Error(t, err)
}

func TestLogin(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	store := &fakeStore{user: User{ID: "u1", CompanyID: "c1", Email: "admin@example.com", PasswordHash: hash, Role: RoleAdmin}}
	svc := NewService(store, "jwt-secret", logger.Discard())

	res, err := svc.Login(context.Background(), "admin@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, RoleAdmin, res.Role)
	assert.Equal(t, "u1", store.lastLogin)

	claims, err := ParseToken("jwt-secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, "c1", claims.CompanyID)

	_, err = svc.Login(context.Background(), "admin@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = svc.Login(context.Background(), "nobody@example.com", "s3cret!")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestStaticPermissions(t *testing.T) {
	perms := StaticPermissions{}
	cases := []struct {
		role string
		perm string
		want bool
	}{
		{RoleAdmin, PermCompaniesWrite, true},
		{RolePayrollManager, PermPayslipsTransition, true},
		{RolePayrollManager, PermCompaniesWrite, false},
		{RoleViewer, PermPayslipsRead, true},
		{RoleViewer, PermPayslipsWrite, false},
		{"intruder", PermPayslipsRead, false},
	}
	for _, tc := range cases {
		got, err := perms.HasPermission(context.Background(), tc.role, tc.perm)
		require.NoError(t, err)
		if got != tc.want {
			t.Fatalf("%s/%s: expected %v, got %v", tc.role, tc.perm, tc.want, got)
		}
	}
}
