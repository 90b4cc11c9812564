package chain

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// GenesisPreviousHash is the sentinel linked by the first block of
	// every chain.
	GenesisPreviousHash = "1"

	// GenesisProof is the fixed proof carried by genesis blocks; it is
	// never checked against the work predicate.
	GenesisProof uint64 = 100
)

// canonicalTimeFormat fixes the timestamp encoding used inside block
// digests. Digest stability across nodes depends on it never changing.
const canonicalTimeFormat = "2006-01-02T15:04:05.999999999Z07:00"

type Transaction struct {
	Sender    string `json:"sender" msgpack:"s"`
	Recipient string `json:"recipient" msgpack:"r"`
	Amount    int64  `json:"amount" msgpack:"a"`
}

// Block is a sealed unit of the ledger. Once returned by the sealer it
// is treated as immutable; mutating a sealed block breaks the hash
// linkage of every later block.
type Block struct {
	ID           uuid.UUID     `json:"id" msgpack:"i"`
	Index        uint64        `json:"index" msgpack:"x"`
	Proof        uint64        `json:"proof" msgpack:"p"`
	PreviousHash string        `json:"previous_hash" msgpack:"h"`
	Created      time.Time     `json:"created" msgpack:"t"`
	Transactions []Transaction `json:"transactions" msgpack:"tx"`
	Consents     []Consent     `json:"consents" msgpack:"c"`
}

// sortedConsents returns the block's consent changes ordered by
// creation time.
func (b *Block) sortedConsents() []Consent {
	out := make([]Consent, len(b.Consents))
	copy(out, b.Consents)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// canonical returns the serialized form fed to the digest: sorted-key
// JSON with fixed timestamp formatting and string ids. Maps are used so
// encoding/json orders the keys deterministically.
func (b *Block) canonical() []byte {
	txs := make([]map[string]interface{}, 0, len(b.Transactions))
	for _, t := range b.Transactions {
		txs = append(txs, map[string]interface{}{
			"sender":    t.Sender,
			"recipient": t.Recipient,
			"amount":    t.Amount,
		})
	}

	consents := make([]map[string]interface{}, 0, len(b.Consents))
	for _, c := range b.Consents {
		consents = append(consents, c.canonical())
	}

	d, err := json.Marshal(map[string]interface{}{
		"id":            b.ID.String(),
		"index":         b.Index,
		"proof":         b.Proof,
		"previous_hash": b.PreviousHash,
		"created":       b.Created.UTC().Format(canonicalTimeFormat),
		"transactions":  txs,
		"consents":      consents,
	})
	if err != nil {
		// map of plain values, cannot fail
		panic(err)
	}

	return d
}
