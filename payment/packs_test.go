package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackById(t *testing.T) {
	pack, ok := PackById("pack_125")
	require.True(t, ok)
	assert.Equal(t, 125, pack.Credits)
	assert.Equal(t, int64(1000), pack.AmountCents)

	_, ok = PackById("pack_999")
	assert.False(t, ok)
}

func TestPacks_AreSane(t *testing.T) {
	seen := make(map[string]bool)
	for _, pack := range Packs {
		assert.False(t, seen[pack.Id], "duplicate pack id %s", pack.Id)
		seen[pack.Id] = true
		assert.Positive(t, pack.Credits)
		assert.Positive(t, pack.AmountCents)
		assert.NotEmpty(t, pack.Name)
	}
}
