package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bibliotech/bibliotech/pkg/errcodes"
	"github.com/bibliotech/bibliotech/pkg/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db, testSecret)
	user := createUser(t, db, "Ana", "ana@example.com", "correct horse")

	got, err := svc.Authenticate(ctx, "ana", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	got, err = svc.Authenticate(ctx, "ANA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "ana", "wrong")
	var e *errcodes.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusUnauthorized, e.HTTPCode)

	_, err = db.NewUpdate().Model((*models.User)(nil)).Set("is_active = ?", false).Where("id = ?", user.ID).Exec(ctx)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "ana", "correct horse")
	require.Error(t, err)
}

func TestToken_RoundTrip(t *testing.T) {
	t.Parallel()
	svc := NewService(nil, testSecret)

	token, err := svc.GenerateToken(&models.User{ID: 42, Username: "ana"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "ana", claims.Username)

	_, err = NewService(nil, "another-secret").ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_RejectsExpired(t *testing.T) {
	t.Parallel()
	svc := NewService(nil, testSecret)

	past := time.Now().Add(-time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(past),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
}

func TestValidateToken_RejectsOtherIssuer(t *testing.T) {
	t.Parallel()
	svc := NewService(nil, testSecret)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.ValidateToken(signed)
	require.Error(t, err)
}

func TestAuthenticate_UpgradesTemporaryHash(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db, testSecret)

	hash, err := HashTemporaryPassword("temporary")
	require.NoError(t, err)
	user := &models.User{CreatedAt: time.Now(), UpdatedAt: time.Now(), Username: "socio", PasswordHash: hash, IsActive: true}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)
	require.True(t, needsRehash(hash))

	_, err = svc.Authenticate(ctx, "socio", "temporary")
	require.NoError(t, err)

	stored := &models.User{}
	require.NoError(t, db.NewSelect().Model(stored).Where("u.id = ?", user.ID).Scan(ctx))
	assert.False(t, needsRehash(stored.PasswordHash))
	assert.True(t, CheckPassword("temporary", stored.PasswordHash))
}
