package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tcfw/consentchain/pkg/chain"
)

// ChainRecord is the storage-friendly shape of a chain: its identity,
// last structural change and ordered block id references. Block bodies
// are stored separately by id.
type ChainRecord struct {
	ID      uuid.UUID   `msgpack:"i"`
	Updated time.Time   `msgpack:"u"`
	Blocks  []uuid.UUID `msgpack:"b"`
}

// Store persists chains and their blocks.
type Store interface {
	PutChain(context.Context, ChainRecord) error
	GetChain(context.Context, uuid.UUID) (*ChainRecord, error)
	Chains(context.Context) ([]uuid.UUID, error)

	PutBlock(context.Context, uuid.UUID, *chain.Block) error
	GetBlock(context.Context, uuid.UUID, uuid.UUID) (*chain.Block, error)
	HasBlock(context.Context, uuid.UUID, uuid.UUID) bool

	Close() error
}

// SaveChain writes a chain's record and every block body. Blocks are
// immutable once sealed, so bodies already present are skipped.
func SaveChain(ctx context.Context, s Store, c *chain.Chain) error {
	blocks := c.Blocks()

	rec := ChainRecord{
		ID:      c.ID(),
		Updated: c.Updated(),
		Blocks:  make([]uuid.UUID, 0, len(blocks)),
	}

	for _, b := range blocks {
		rec.Blocks = append(rec.Blocks, b.ID)

		if s.HasBlock(ctx, c.ID(), b.ID) {
			continue
		}
		if err := s.PutBlock(ctx, c.ID(), b); err != nil {
			return errors.Wrapf(err, "storing block [%s]", b.ID)
		}
	}

	if err := s.PutChain(ctx, rec); err != nil {
		return errors.Wrapf(err, "storing chain [%s]", c.ID())
	}

	return nil
}

// LoadChain reassembles a persisted chain, reading the block bodies the
// record references in order.
func LoadChain(ctx context.Context, s Store, h *chain.Hasher, id uuid.UUID, difficulty int) (*chain.Chain, error) {
	rec, err := s.GetChain(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "loading chain [%s]", id)
	}

	blocks := make([]*chain.Block, 0, len(rec.Blocks))
	for _, bid := range rec.Blocks {
		b, err := s.GetBlock(ctx, id, bid)
		if err != nil {
			return nil, errors.Wrapf(err, "loading block [%s]", bid)
		}
		blocks = append(blocks, b)
	}

	return chain.NewChain(h,
		chain.WithID(rec.ID),
		chain.WithBlocks(blocks),
		chain.WithUpdated(rec.Updated),
		chain.WithDifficulty(difficulty),
	), nil
}
