package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_GetOrCreateDefaults(t *testing.T) {
	store := NewMemoryStorage()

	acc, err := store.GetOrCreate(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.UserId)
	assert.Equal(t, StartingCredits, acc.Credits)
	assert.False(t, acc.AvatarEnabled)
	assert.Empty(t, acc.AvatarImages)
	assert.False(t, acc.CreatedAt.IsZero())

	// Second call returns the same account, not a fresh one
	require.NoError(t, store.SetCredits(1, 3))
	again, err := store.GetOrCreate(1)
	require.NoError(t, err)
	assert.Equal(t, 3, again.Credits)
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	store := NewMemoryStorage()

	_, err := store.GetOrCreate(1)
	require.NoError(t, err)
	require.NoError(t, store.SetAvatarImages(1, []string{"file-1"}))

	acc, err := store.GetOrCreate(1)
	require.NoError(t, err)
	acc.Credits = 9999
	acc.AvatarImages[0] = "mutated"

	fresh, err := store.GetOrCreate(1)
	require.NoError(t, err)
	assert.Equal(t, StartingCredits, fresh.Credits)
	assert.Equal(t, []string{"file-1"}, fresh.AvatarImages)
}

func TestMemoryStorage_WritesNeedExistingAccount(t *testing.T) {
	store := NewMemoryStorage()

	assert.Error(t, store.SetCredits(404, 10))
	assert.Error(t, store.SetAvatarImages(404, []string{"file"}))
	assert.Error(t, store.SetAvatarEnabled(404, true))

	_, err := store.GetCredits(404)
	assert.Error(t, err)

	// Reading avatar images of an unknown user is not an error
	images, err := store.GetAvatarImages(404)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestMemoryStorage_AvatarRoundTrip(t *testing.T) {
	store := NewMemoryStorage()

	_, err := store.GetOrCreate(1)
	require.NoError(t, err)

	require.NoError(t, store.SetAvatarImages(1, []string{"a", "b"}))
	require.NoError(t, store.SetAvatarEnabled(1, true))

	acc, err := store.GetOrCreate(1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, acc.AvatarImages)
	assert.True(t, acc.AvatarEnabled)
}
