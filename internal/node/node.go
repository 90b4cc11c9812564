package node

import (
	"context"
	"net/url"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tcfw/consentchain/internal/api"
	"github.com/tcfw/consentchain/internal/config"
	"github.com/tcfw/consentchain/internal/utils/logging"
	"github.com/tcfw/consentchain/pkg/chain"
	"github.com/tcfw/consentchain/pkg/storage"
)

// Node wires the pieces of a running chain host together: the keyed
// hash engine, the chain registry, the peer set, persistence and the
// HTTP API.
type Node struct {
	cfg    *config.Config
	id     uuid.UUID
	hasher *chain.Hasher
	chains *chain.MultiChain
	store  storage.Store
	api    *api.Server

	peersMu sync.RWMutex
	peers   []*chain.Peer
}

func NewNode(ctx context.Context, opts ...NodeOption) (*Node, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}

	n := &Node{
		cfg:    cfg,
		id:     cfg.NodeID,
		hasher: chain.NewHasher([]byte(cfg.Secret)),
		chains: chain.NewMultiChain(),
	}

	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}

	if n.store == nil {
		return nil, errors.New("no storage configured")
	}

	if err := n.loadChains(ctx); err != nil {
		return nil, errors.Wrap(err, "loading chains")
	}

	if _, err := n.AddPeers(ctx, cfg.Peers); err != nil {
		return nil, errors.Wrap(err, "registering peers")
	}

	n.api = api.NewServer(n)

	return n, nil
}

func (n *Node) ID() uuid.UUID {
	return n.id
}

func (n *Node) Chains() *chain.MultiChain {
	return n.chains
}

func (n *Node) loadChains(ctx context.Context) error {
	ids, err := n.store.Chains(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		c, err := storage.LoadChain(ctx, n.store, n.hasher, id, n.cfg.Difficulty)
		if err != nil {
			return err
		}
		if err := n.chains.Put(c.ID(), c); err != nil {
			return err
		}
	}

	logging.WithField("chains", len(ids)).Info("chains loaded")

	return nil
}

// CreateChain starts a fresh chain with its genesis block, persists it
// and registers it.
func (n *Node) CreateChain(ctx context.Context) (*chain.Chain, error) {
	c := chain.NewChain(n.hasher, chain.WithDifficulty(n.cfg.Difficulty))

	if err := storage.SaveChain(ctx, n.store, c); err != nil {
		return nil, err
	}
	if err := n.chains.Put(c.ID(), c); err != nil {
		return nil, err
	}

	logging.WithField("chain", c.ID()).Info("new chain")

	return c, nil
}

func (n *Node) PersistChain(ctx context.Context, c *chain.Chain) error {
	return storage.SaveChain(ctx, n.store, c)
}

func (n *Node) Peers() []*chain.Peer {
	n.peersMu.RLock()
	defer n.peersMu.RUnlock()

	out := make([]*chain.Peer, len(n.peers))
	copy(out, n.peers)
	return out
}

// AddPeers registers peer locations, skipping duplicates and rejecting
// the node's own endpoint. The peer list stays ordered by URL.
func (n *Node) AddPeers(ctx context.Context, locations []string) ([]*chain.Peer, error) {
	added := make([]*chain.Peer, 0, len(locations))

	n.peersMu.Lock()
	defer n.peersMu.Unlock()

	for _, location := range locations {
		p, err := chain.NewPeer(location)
		if err != nil {
			return nil, err
		}

		if n.isSelf(p.URL()) {
			return nil, errors.Wrapf(chain.ErrInvalidReference,
				"cannot use own endpoint [%s] as peer", p.URL())
		}

		exists := false
		for _, known := range n.peers {
			if known.URL() == p.URL() {
				exists = true
				break
			}
		}
		if exists {
			continue
		}

		n.peers = append(n.peers, p)
		added = append(added, p)
	}

	sort.Slice(n.peers, func(i, j int) bool {
		return n.peers[i].URL() < n.peers[j].URL()
	})

	// resolve lazily in the background, failures retry on demand
	for _, p := range added {
		go p.SyncID(ctx) //nolint:errcheck
	}

	return added, nil
}

func (n *Node) isSelf(peerURL string) bool {
	u, err := url.Parse(peerURL)
	if err != nil {
		return false
	}

	self, err := url.Parse("http://" + n.cfg.Listen)
	if err != nil {
		return false
	}

	return u.Host == self.Host
}

func (n *Node) ListenAndServe() error {
	return n.api.Start(n.cfg.Listen)
}

func (n *Node) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := n.api.Shutdown(ctx); err != nil {
		logging.WithError(err).Warn("shutting down api")
	}

	return n.store.Close()
}
