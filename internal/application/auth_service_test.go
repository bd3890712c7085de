package application

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enxergar/outreach/internal/domain/entity"
	"github.com/enxergar/outreach/pkg/helpers"
)

func newAuth(t *testing.T) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	hash, err := helpers.HashPassword("s3cret!")
	require.NoError(t, err)
	orgs := &memOrganizers{byID: map[string]*entity.Organizer{
		"o1": {ID: "o1", Email: "admin@example.org", Name: "Admin", PasswordHash: hash, Role: entity.RoleAdmin, Status: entity.OrganizerActive},
		"o2": {ID: "o2", Email: "off@example.org", PasswordHash: hash, Role: entity.RoleAdmin, Status: entity.OrganizerInactive},
	}}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jwt := helpers.NewJWTManager("access", "refresh", time.Minute, time.Hour)
	return NewAuthService(orgs, jwt, rdb, nil), mr
}

func TestLogin(t *testing.T) {
	svc, mr := newAuth(t)
	ctx := context.Background()

	o, pair, err := svc.Login(ctx, " Admin@Example.org ", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
	assert.NotEmpty(t, pair.AccessToken)

	claims, err := svc.JWT.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleAdmin, claims.Role)
	assert.Equal(t, claims.SessionID, mr.HGet(SessionKey("o1"), "sid"))
	assert.True(t, svc.SessionValid(ctx, "o1", claims.SessionID))
	assert.True(t, mr.TTL(SessionKey("o1")) > 0)
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newAuth(t)
	ctx := context.Background()

	_, _, err := svc.Login(ctx, "admin@example.org", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@example.org", "s3cret!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "off@example.org", "s3cret!")
	assert.ErrorIs(t, err, ErrOrganizerInactive)
}

func TestRefreshRotatesSession(t *testing.T) {
	svc, _ := newAuth(t)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "admin@example.org", "s3cret!")
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogout(t *testing.T) {
	svc, mr := newAuth(t)
	ctx := context.Background()

	_, pair, err := svc.Login(ctx, "admin@example.org", "s3cret!")
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, "o1"))
	assert.False(t, mr.Exists(SessionKey("o1")))

	claims, err := svc.JWT.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.False(t, svc.SessionValid(ctx, "o1", claims.SessionID))
}

func TestProfile(t *testing.T) {
	svc, _ := newAuth(t)
	o, err := svc.Profile(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, "Admin", o.Name)
	_, err = svc.Profile(context.Background(), "zz")
	assert.ErrorIs(t, err, ErrOrganizerNotFound)
}
