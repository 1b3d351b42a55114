package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T, now time.Time) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)
	svc.timeFunc = func() time.Time { return now }
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Parallel()

	_, err := NewTokenService("")
	assert.ErrorIs(t, err, ErrWeakSecret)

	_, err = NewTokenService(strings.Repeat("a", MinSecretLength-1))
	assert.ErrorIs(t, err, ErrWeakSecret)

	svc, err := NewTokenService(testSecret)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestIssueAndValidateToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)

	token, err := svc.IssueToken(ctx, "ops", time.Hour)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.IssuedAt.Equal(now))
	assert.True(t, claims.ExpiresAt.Equal(now.Add(time.Hour)))

	_, err = svc.IssueToken(ctx, "", time.Hour)
	assert.Error(t, err)
}

func TestIssueTokenWithoutExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := newTestService(t, now).IssueToken(ctx, "ops", 0)
	require.NoError(t, err)

	later := newTestService(t, now.Add(365*24*time.Hour))
	claims, err := later.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, claims.ExpiresAt.IsZero())
}

func TestValidateTokenErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, now)

	valid, err := svc.IssueToken(ctx, "ops", time.Hour)
	require.NoError(t, err)

	other, err := NewTokenService(strings.Repeat("z", MinSecretLength))
	require.NoError(t, err)
	other.timeFunc = svc.timeFunc
	foreign, err := other.IssueToken(ctx, "ops", time.Hour)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "ops", ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	testCases := []struct {
		name    string
		token   string
		at      time.Time
		wantErr error
	}{
		{name: "malformed", token: "not.a.token", at: now, wantErr: ErrInvalidToken},
		{name: "empty", token: "", at: now, wantErr: ErrInvalidToken},
		{name: "wrong secret", token: foreign, at: now, wantErr: ErrInvalidToken},
		{name: "unsigned", token: noneToken, at: now, wantErr: ErrInvalidToken},
		{name: "missing subject", token: noSubject, at: now, wantErr: ErrInvalidToken},
		{name: "expired", token: valid, at: now.Add(time.Hour + 3*time.Minute), wantErr: ErrExpiredToken},
		{name: "expired within leeway", token: valid, at: now.Add(time.Hour + time.Minute)},
		{name: "issued in the future", token: valid, at: now.Add(-5 * time.Minute), wantErr: ErrTokenNotYetValid},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			claims, err := newTestService(t, tc.at).ValidateToken(ctx, tc.token)
			if tc.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "ops", claims.Subject)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, claims)
		})
	}
}
