package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcfw/consentchain/pkg/chain"
	storageIface "github.com/tcfw/consentchain/pkg/storage"
)

func TestPebbleStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	s, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	h := chain.NewHasher([]byte("test-secret"))
	c := chain.NewChain(h)
	c.NewBlock(12345, "")

	require.NoError(t, storageIface.SaveChain(ctx, s, c))

	loaded, err := storageIface.LoadChain(ctx, s, h, c.ID(), chain.DefaultDifficulty)
	require.NoError(t, err)

	assert.Equal(t, c.ID(), loaded.ID())
	require.Equal(t, c.Len(), loaded.Len())
	for i, b := range c.Blocks() {
		assert.Equal(t, h.SumBlock(b), h.SumBlock(loaded.Blocks()[i]))
	}
}

func TestPebbleStoreNotFound(t *testing.T) {
	ctx := context.Background()

	s, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetChain(ctx, uuid.New())
	assert.ErrorIs(t, err, storageIface.ErrNotFound)

	_, err = s.GetBlock(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, storageIface.ErrNotFound)

	assert.False(t, s.HasBlock(ctx, uuid.New(), uuid.New()))
}

func TestPebbleStoreBloomSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewPebbleStore(dir)
	require.NoError(t, err)

	h := chain.NewHasher([]byte("test-secret"))
	c := chain.NewChain(h)

	require.NoError(t, storageIface.SaveChain(ctx, s, c))
	require.NoError(t, s.Close())

	reopened, err := NewPebbleStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	assert.True(t, reopened.HasBlock(ctx, c.ID(), c.LastBlock().ID))

	ids, err := reopened.Chains(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID()}, ids)
}

func TestOpenURI(t *testing.T) {
	s, err := Open("mem://")
	require.NoError(t, err)
	assert.IsType(t, &storageIface.MemStore{}, s)

	s, err = Open("pebble://" + t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &PebbleStore{}, s)
	s.Close()

	_, err = Open("bolt://nope")
	assert.Error(t, err)
}
