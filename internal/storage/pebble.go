package storage

import (
	"bytes"
	"context"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tcfw/consentchain/internal/utils/logging"
	"github.com/tcfw/consentchain/pkg/chain"
	storageIface "github.com/tcfw/consentchain/pkg/storage"
)

const (
	cacheSize = 1 << 20 * 100

	tableSep byte = ':'

	bloomEstimate = 1 << 20
	bloomFPRate   = 0.01
)

type tableKeyType byte

const (
	chainTPrefix tableKeyType = iota + 1
	blockTPrefix
)

var (
	_ storageIface.Store = (*PebbleStore)(nil)
)

// PebbleStore persists chain records and block bodies in a single
// pebble keyspace split by prefix-byte tables. A bloom filter over
// block keys answers most existence checks without touching the LSM.
type PebbleStore struct {
	db    *pebble.DB
	known *bloom.BloomFilter
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	c := pebble.NewCache(cacheSize)
	tc := pebble.NewTableCache(c, 16, 100)
	defer tc.Unref()
	defer c.Unref()

	db, err := pebble.Open(path, &pebble.Options{Cache: c, TableCache: tc})
	if err != nil {
		return nil, errors.Wrap(err, "opening block store")
	}

	s := &PebbleStore{
		db:    db,
		known: bloom.NewWithEstimates(bloomEstimate, bloomFPRate),
	}

	if err := s.warmBloom(); err != nil {
		s.db.Close()
		return nil, errors.Wrap(err, "warming block filter")
	}

	return s, nil
}

// warmBloom seeds the existence filter with every stored block key.
func (s *PebbleStore) warmBloom() error {
	lower := []byte{byte(blockTPrefix), tableSep}
	upper := []byte{byte(blockTPrefix), tableSep + 1}

	iter := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		s.known.Add(iter.Key())
		n++
	}

	if n > 0 {
		logging.WithField("blocks", n).Debug("seeded block existence filter")
	}

	return iter.Error()
}

func chainKey(id uuid.UUID) []byte {
	k := make([]byte, 0, 2+len(id))
	k = append(k, byte(chainTPrefix), tableSep)
	return append(k, id[:]...)
}

func blockKey(chainID, blockID uuid.UUID) []byte {
	k := make([]byte, 0, 3+len(chainID)+len(blockID))
	k = append(k, byte(blockTPrefix), tableSep)
	k = append(k, chainID[:]...)
	k = append(k, tableSep)
	return append(k, blockID[:]...)
}

func (s *PebbleStore) put(key []byte, obj interface{}) error {
	d, err := msgpack.Marshal(obj)
	if err != nil {
		return errors.Wrap(err, "marshaling object")
	}

	return s.db.Set(key, d, pebble.Sync)
}

func (s *PebbleStore) get(key []byte, obj interface{}) error {
	d, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return storageIface.ErrNotFound
		}
		return errors.Wrap(err, "reading object")
	}
	defer closer.Close()

	return msgpack.Unmarshal(d, obj)
}

func (s *PebbleStore) PutChain(_ context.Context, rec storageIface.ChainRecord) error {
	return s.put(chainKey(rec.ID), rec)
}

func (s *PebbleStore) GetChain(_ context.Context, id uuid.UUID) (*storageIface.ChainRecord, error) {
	rec := &storageIface.ChainRecord{}
	if err := s.get(chainKey(id), rec); err != nil {
		return nil, err
	}

	return rec, nil
}

func (s *PebbleStore) Chains(_ context.Context) ([]uuid.UUID, error) {
	lower := []byte{byte(chainTPrefix), tableSep}
	upper := []byte{byte(chainTPrefix), tableSep + 1}

	iter := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	defer iter.Close()

	var ids []uuid.UUID
	for iter.First(); iter.Valid(); iter.Next() {
		raw := bytes.TrimPrefix(iter.Key(), lower)

		id, err := uuid.FromBytes(raw)
		if err != nil {
			return nil, errors.Wrap(err, "parsing stored chain id")
		}
		ids = append(ids, id)
	}

	return ids, iter.Error()
}

func (s *PebbleStore) PutBlock(_ context.Context, chainID uuid.UUID, b *chain.Block) error {
	k := blockKey(chainID, b.ID)

	if err := s.put(k, b); err != nil {
		return err
	}

	s.known.Add(k)
	return nil
}

func (s *PebbleStore) GetBlock(_ context.Context, chainID, blockID uuid.UUID) (*chain.Block, error) {
	b := &chain.Block{}
	if err := s.get(blockKey(chainID, blockID), b); err != nil {
		return nil, err
	}

	return b, nil
}

func (s *PebbleStore) HasBlock(_ context.Context, chainID, blockID uuid.UUID) bool {
	k := blockKey(chainID, blockID)

	if !s.known.Test(k) {
		return false
	}

	// the filter can report false positives
	_, closer, err := s.db.Get(k)
	if err != nil {
		return false
	}
	closer.Close()

	return true
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
