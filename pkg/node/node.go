package node

import (
	"context"

	"github.com/google/uuid"

	"github.com/tcfw/consentchain/pkg/chain"
)

// Node is the surface the API layer works against: the local identity,
// the chain registry, the peer set and persistence of chain mutations.
type Node interface {
	ID() uuid.UUID

	Chains() *chain.MultiChain
	CreateChain(context.Context) (*chain.Chain, error)
	PersistChain(context.Context, *chain.Chain) error

	Peers() []*chain.Peer
	AddPeers(context.Context, []string) ([]*chain.Peer, error)
}
