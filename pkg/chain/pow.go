package chain

import (
	"context"
	"fmt"
	"strings"
)

func zeroPrefix(difficulty int) string {
	return strings.Repeat("0", difficulty)
}

// ProveWork brute-forces a proof p' such that ValidProof holds against
// the given tip block. The search is CPU-bound and unbounded; it runs
// without the chain lock so concurrent reads and other chains are never
// blocked. Cancelling the context aborts the search.
func (c *Chain) ProveWork(ctx context.Context, last *Block) (uint64, error) {
	if last == nil {
		return 0, ErrEmptyChain
	}

	lastHash := c.hasher.SumBlock(last)

	var proof uint64
	for !c.ValidProof(last.Proof, proof, lastHash) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}
		proof++
	}

	return proof, nil
}

// ValidProof reports whether the digest of the concatenated previous
// proof, candidate proof and previous block hash carries the chain's
// required count of leading zero hex digits.
func (c *Chain) ValidProof(lastProof, proof uint64, lastHash string) bool {
	guess := fmt.Sprintf("%d%d%s", lastProof, proof, lastHash)
	return strings.HasPrefix(c.hasher.Sum([]byte(guess)), c.zeroPrefix)
}
