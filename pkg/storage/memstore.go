package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tcfw/consentchain/pkg/chain"
)

var (
	_ Store = (*MemStore)(nil)
)

// MemStore keeps chains and blocks in memory, msgpack-encoded so reads
// hand back copies rather than aliases of stored state. Used by tests
// and ephemeral nodes.
type MemStore struct {
	mu     sync.RWMutex
	chains map[uuid.UUID][]byte
	blocks map[blockKey][]byte
}

type blockKey struct {
	chain uuid.UUID
	block uuid.UUID
}

func NewMemStore() *MemStore {
	return &MemStore{
		chains: make(map[uuid.UUID][]byte),
		blocks: make(map[blockKey][]byte),
	}
}

func (m *MemStore) PutChain(_ context.Context, rec ChainRecord) error {
	d, err := msgpack.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshaling chain record")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.chains[rec.ID] = d
	return nil
}

func (m *MemStore) GetChain(_ context.Context, id uuid.UUID) (*ChainRecord, error) {
	m.mu.RLock()
	d, ok := m.chains[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	rec := &ChainRecord{}
	if err := msgpack.Unmarshal(d, rec); err != nil {
		return nil, errors.Wrap(err, "unmarshaling chain record")
	}

	return rec, nil
}

func (m *MemStore) Chains(_ context.Context) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(m.chains))
	for id := range m.chains {
		ids = append(ids, id)
	}

	return ids, nil
}

func (m *MemStore) PutBlock(_ context.Context, chainID uuid.UUID, b *chain.Block) error {
	d, err := msgpack.Marshal(b)
	if err != nil {
		return errors.Wrap(err, "marshaling block")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[blockKey{chainID, b.ID}] = d
	return nil
}

func (m *MemStore) GetBlock(_ context.Context, chainID, blockID uuid.UUID) (*chain.Block, error) {
	m.mu.RLock()
	d, ok := m.blocks[blockKey{chainID, blockID}]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	b := &chain.Block{}
	if err := msgpack.Unmarshal(d, b); err != nil {
		return nil, errors.Wrap(err, "unmarshaling block")
	}

	return b, nil
}

func (m *MemStore) HasBlock(_ context.Context, chainID, blockID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blocks[blockKey{chainID, blockID}]
	return ok
}

func (m *MemStore) Close() error {
	return nil
}
