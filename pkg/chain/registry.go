package chain

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MultiChain maps chain identifiers to chains. It carries its own lock,
// decoupled from the per-chain mutexes, so registry lookups never
// serialize unrelated chains' operations.
type MultiChain struct {
	mu     sync.RWMutex
	chains map[uuid.UUID]*Chain
}

func NewMultiChain() *MultiChain {
	return &MultiChain{
		chains: make(map[uuid.UUID]*Chain),
	}
}

// Put registers a chain under its id. Nil chains are rejected.
func (m *MultiChain) Put(id uuid.UUID, c *Chain) error {
	if c == nil {
		return errors.Wrap(ErrInvalidChain, "registering chain")
	}
	if id == uuid.Nil {
		return errors.Wrap(ErrInvalidReference, "registering chain")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.chains[id] = c
	return nil
}

// PutRef registers a chain under a string identifier, coercing it into
// a well-formed id first.
func (m *MultiChain) PutRef(ref string, c *Chain) error {
	id, err := uuid.Parse(ref)
	if err != nil {
		return errors.Wrapf(ErrInvalidReference, "chain id [%s]", ref)
	}
	return m.Put(id, c)
}

func (m *MultiChain) Get(id uuid.UUID) (*Chain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.chains[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "chain [%s]", id)
	}

	return c, nil
}

// GetRef resolves a chain by its string identifier.
func (m *MultiChain) GetRef(ref string) (*Chain, error) {
	id, err := uuid.Parse(ref)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidReference, "chain id [%s]", ref)
	}
	return m.Get(id)
}

func (m *MultiChain) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.chains)
}

// IDs returns every registered chain id in a stable order.
func (m *MultiChain) IDs() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(m.chains))
	for id := range m.chains {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	return ids
}

// All returns every registered chain, ordered by id.
func (m *MultiChain) All() []*Chain {
	ids := m.IDs()

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Chain, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.chains[id])
	}

	return out
}
