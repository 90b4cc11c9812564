package chain

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tcfw/consentchain/internal/utils/logging"
)

const DefaultDifficulty = 4

// Chain is one logical ledger: an ordered block list plus the pending
// entries waiting to be sealed.
//
// All mutable state (blocks, pending queues, the projection cache) is
// guarded by a single per-chain mutex. The proof-of-work search never
// runs under it; peer I/O happens before it is taken.
type Chain struct {
	id         uuid.UUID
	difficulty int
	hasher     *Hasher
	zeroPrefix string

	mu              sync.RWMutex
	updated         time.Time
	blocks          []*Block
	pendingTx       []Transaction
	pendingConsents []Consent
	proj            projection
}

type Option func(*Chain)

// WithID sets the chain identifier instead of generating one.
func WithID(id uuid.UUID) Option {
	return func(c *Chain) { c.id = id }
}

// WithBlocks loads a pre-existing block list as is, typically from
// storage. No genesis block is synthesized when at least one block is
// supplied.
func WithBlocks(blocks []*Block) Option {
	return func(c *Chain) { c.blocks = blocks }
}

// WithUpdated restores the last structural change timestamp.
func WithUpdated(t time.Time) Option {
	return func(c *Chain) { c.updated = t }
}

// WithDifficulty sets the leading-zero hex digit count required of
// proofs on this chain.
func WithDifficulty(d int) Option {
	return func(c *Chain) { c.difficulty = d }
}

// WithoutGenesis defers genesis creation, for chains bootstrapped from
// a peer through conflict resolution.
func WithoutGenesis() Option {
	return func(c *Chain) { c.blocks = []*Block{} }
}

func NewChain(h *Hasher, opts ...Option) *Chain {
	c := &Chain{
		id:         uuid.New(),
		difficulty: DefaultDifficulty,
		hasher:     h,
		updated:    time.Now().UTC(),
	}

	deferred := false
	for _, opt := range opts {
		opt(c)
		if c.blocks != nil {
			deferred = true
		}
	}

	c.zeroPrefix = zeroPrefix(c.difficulty)

	if !deferred && len(c.blocks) == 0 {
		c.sealBlock(GenesisProof, GenesisPreviousHash)
	}

	return c
}

func (c *Chain) ID() uuid.UUID {
	return c.id
}

func (c *Chain) Difficulty() int {
	return c.difficulty
}

func (c *Chain) Updated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.updated
}

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.blocks)
}

// LastBlock returns the chain tip, or nil when genesis was deferred and
// nothing has been adopted yet.
func (c *Chain) LastBlock() *Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.blocks) == 0 {
		return nil
	}

	return c.blocks[len(c.blocks)-1]
}

// Blocks returns the ordered block list. The slice is a copy; the
// blocks themselves are shared and must not be mutated.
func (c *Chain) Blocks() []*Block {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Hash digests a block with this chain's keyed engine.
func (c *Chain) Hash(b *Block) string {
	return c.hasher.SumBlock(b)
}

// NewTransaction queues a transaction for the next sealed block and
// returns the index that block will hold.
func (c *Chain) NewTransaction(sender, recipient string, amount int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pendingTx = append(c.pendingTx, Transaction{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
	})

	return uint64(len(c.blocks))
}

// NewConsent queues a consent change for the next sealed block and
// returns the index that block will hold. The change is tagged as
// changed up front; the projection assigns the final tag.
func (c *Chain) NewConsent(action ConsentAction, granted bool, expire *time.Time) (uint64, error) {
	if _, err := ParseAction(string(action)); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pendingConsents = append(c.pendingConsents, NewConsent(action, granted, expire))

	return uint64(len(c.blocks)), nil
}

// NewBlock seals every pending transaction and consent into a new block
// at the current tip, clears both queues and appends it. An empty
// previousHash links against the current tip's digest.
func (c *Chain) NewBlock(proof uint64, previousHash string) *Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sealBlock(proof, previousHash)
}

// sealBlock requires c.mu held (or a chain not yet shared).
func (c *Chain) sealBlock(proof uint64, previousHash string) *Block {
	if previousHash == "" && len(c.blocks) > 0 {
		previousHash = c.hasher.SumBlock(c.blocks[len(c.blocks)-1])
	}

	b := &Block{
		ID:           uuid.New(),
		Index:        uint64(len(c.blocks)),
		Proof:        proof,
		PreviousHash: previousHash,
		Created:      time.Now().UTC(),
		Transactions: c.pendingTx,
		Consents:     c.pendingConsents,
	}
	if b.Transactions == nil {
		b.Transactions = []Transaction{}
	}
	if b.Consents == nil {
		b.Consents = []Consent{}
	}

	c.pendingTx = nil
	c.pendingConsents = nil
	c.blocks = append(c.blocks, b)
	c.updated = time.Now().UTC()

	return b
}

// ValidateBlocks walks a candidate block list and checks the hash
// linkage and proof of every block against its predecessor. Single or
// empty candidates are trivially valid. The candidate may be another
// node's untrusted data; nothing is mutated.
func (c *Chain) ValidateBlocks(blocks []*Block) bool {
	for i := 1; i < len(blocks); i++ {
		lastHash := c.hasher.SumBlock(blocks[i-1])

		if blocks[i].PreviousHash != lastHash {
			logging.WithFields(logging.Fields{
				"chain": c.id,
				"index": blocks[i].Index,
			}).Debug("hash link mismatch")
			return false
		}

		if !c.ValidProof(blocks[i-1].Proof, blocks[i].Proof, lastHash) {
			logging.WithFields(logging.Fields{
				"chain": c.id,
				"index": blocks[i].Index,
			}).Debug("invalid proof")
			return false
		}
	}

	return true
}

// ReplaceBlocks swaps the whole block list for one adopted from a peer.
// The projection cache keys off block identity, so it is dropped rather
// than patched.
func (c *Chain) ReplaceBlocks(blocks []*Block) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.blocks = blocks
	c.proj = projection{}
	c.updated = time.Now().UTC()
}

// View is the stable external representation of a chain. Blocks holds
// either full block bodies or id references.
type View struct {
	ID      uuid.UUID   `json:"id"`
	Updated time.Time   `json:"updated"`
	Blocks  interface{} `json:"blocks"`
}

func (c *Chain) View(detail bool) View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v := View{
		ID:      c.id,
		Updated: c.updated,
	}

	if detail {
		blocks := make([]*Block, len(c.blocks))
		copy(blocks, c.blocks)
		v.Blocks = blocks
		return v
	}

	ids := make([]uuid.UUID, 0, len(c.blocks))
	for _, b := range c.blocks {
		ids = append(ids, b.ID)
	}
	v.Blocks = ids

	return v
}

// Block finds a sealed block by id.
func (c *Chain) Block(id uuid.UUID) (*Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, b := range c.blocks {
		if b.ID == id {
			return b, nil
		}
	}

	return nil, ErrNotFound
}

// BlockAt finds a sealed block by position.
func (c *Chain) BlockAt(index uint64) (*Block, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if index >= uint64(len(c.blocks)) {
		return nil, ErrNotFound
	}

	return c.blocks[index], nil
}
