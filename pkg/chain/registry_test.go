package chain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiChainPut(t *testing.T) {
	m := NewMultiChain()
	c := testChain(t, 1)

	require.NoError(t, m.Put(c.ID(), c))
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestMultiChainRejectsNilChain(t *testing.T) {
	m := NewMultiChain()

	assert.ErrorIs(t, m.Put(uuid.New(), nil), ErrInvalidChain)
}

func TestMultiChainRejectsMalformedID(t *testing.T) {
	m := NewMultiChain()
	c := testChain(t, 1)

	assert.ErrorIs(t, m.Put(uuid.Nil, c), ErrInvalidReference)
	assert.ErrorIs(t, m.PutRef("not-a-uuid", c), ErrInvalidReference)
}

func TestMultiChainPutRefCoerces(t *testing.T) {
	m := NewMultiChain()
	c := testChain(t, 1)

	require.NoError(t, m.PutRef(c.ID().String(), c))

	got, err := m.GetRef(c.ID().String())
	require.NoError(t, err)
	assert.Same(t, c, got)
}

func TestMultiChainGetMissing(t *testing.T) {
	m := NewMultiChain()

	_, err := m.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.GetRef("also-not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestMultiChainIDsOrdered(t *testing.T) {
	m := NewMultiChain()

	for i := 0; i < 5; i++ {
		c := testChain(t, 1)
		require.NoError(t, m.Put(c.ID(), c))
	}

	ids := m.IDs()
	require.Len(t, ids, 5)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1].String(), ids[i].String())
	}

	chains := m.All()
	require.Len(t, chains, 5)
	for i, id := range ids {
		assert.Equal(t, id, chains[i].ID())
	}
}
