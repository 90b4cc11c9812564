package chain

import (
	"context"

	"github.com/pkg/errors"

	"github.com/tcfw/consentchain/internal/utils/logging"
)

// ResolveConflicts reconciles this chain against its peers by adopting
// the longest independently valid block list any of them serves.
//
// Unreachable peers are skipped and excluded from the returned peer
// list; reachable peers are included whether or not they produced a
// usable candidate. Replacement needs a candidate strictly longer than
// the local chain; equal lengths never replace. All peer I/O completes
// before the chain lock is taken to apply the winner.
func (c *Chain) ResolveConflicts(ctx context.Context, peers []*Peer) (bool, []*Peer) {
	validated := make([]*Peer, 0, len(peers))

	maxLength := c.Len()
	var newBlocks []*Block

	for _, peer := range peers {
		pb, err := peer.FetchBlocks(ctx, c.id)
		if errors.Is(err, ErrPeerUnreachable) {
			logging.WithField("url", peer.URL()).Warn("node is unresponsive, skipping it")
			continue
		}

		validated = append(validated, peer)

		if err != nil {
			logging.WithError(err).WithField("url", peer.URL()).Debug("no candidate from node")
			continue
		}

		if pb.Length > maxLength && c.ValidateBlocks(pb.Blocks) {
			maxLength = pb.Length
			newBlocks = pb.Blocks
		}
	}

	if newBlocks != nil {
		c.ReplaceBlocks(newBlocks)
		logging.WithFields(logging.Fields{
			"chain":  c.id,
			"length": maxLength,
		}).Info("chain replaced by longer valid peer chain")
		return true, validated
	}

	return false, validated
}

// Verify cheaply checks whether this chain is still in line with its
// peers by comparing only the block at the shared tail position,
// without revalidating whole sequences. It returns nil when no peer
// reported this chain, false as soon as one peer diverges from the
// local tail, and true when every examined peer matched.
func (c *Chain) Verify(ctx context.Context, peers []*Peer) *bool {
	local := c.Blocks()
	if len(local) == 0 {
		return nil
	}

	examined := false

	for _, peer := range peers {
		pb, err := peer.FetchBlocks(ctx, c.id)
		if err != nil {
			logging.WithError(err).WithField("url", peer.URL()).Debug("skipping node for tail check")
			continue
		}
		if len(pb.Blocks) == 0 {
			continue
		}

		pos := len(local)
		if len(pb.Blocks) < pos {
			pos = len(pb.Blocks)
		}
		pos--

		examined = true

		if c.hasher.SumBlock(local[pos]) != c.hasher.SumBlock(pb.Blocks[pos]) {
			out := false
			return &out
		}
	}

	if !examined {
		return nil
	}

	out := true
	return &out
}
