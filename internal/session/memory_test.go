package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/University-Of-Livingstonia/ems/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:        7,
		Username:  "alice",
		Email:     "alice@x.edu",
		FirstName: "Alice",
		LastName:  "Banda",
		Role:      domain.RoleUser,
		Status:    domain.StatusActive,
	}
}

func TestNewSnapshotsUser(t *testing.T) {
	sess := New(testUser(), time.Hour)

	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, int64(7), sess.UserID)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, domain.RoleUser, sess.Role)
	assert.False(t, sess.Expired())
	assert.Equal(t, "Alice Banda", sess.FullName())

	other := New(testUser(), time.Hour)
	assert.NotEqual(t, sess.Token, other.Token, "tokens must be unique per session")
}

func TestFullNameFallsBackToUsername(t *testing.T) {
	u := testUser()
	u.FirstName = ""
	u.LastName = ""
	sess := New(u, time.Hour)
	assert.Equal(t, "alice", sess.FullName())
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess := New(testUser(), time.Hour)
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.UserID, got.UserID)

	got, err = store.Get(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreDropsExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess := New(testUser(), -time.Minute)
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, got, "expired sessions read as not logged in")
}

func TestMemoryStoreDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess := New(testUser(), time.Hour)
	require.NoError(t, store.Create(ctx, sess))
	require.NoError(t, store.Delete(ctx, sess.Token))
	require.NoError(t, store.Delete(ctx, sess.Token))

	got, err := store.Get(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStorePurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	live := New(testUser(), time.Hour)
	dead := New(testUser(), -time.Minute)
	require.NoError(t, store.Create(ctx, live))
	require.NoError(t, store.Create(ctx, dead))

	dropped, err := store.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dropped)

	got, err := store.Get(ctx, live.Token)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
