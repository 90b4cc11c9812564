package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"

	"github.com/tcfw/consentchain/internal/utils/logging"
)

const peerTimeout = 2 * time.Second

// Peer is a remote node hosting its own copies of one or more chains.
// Its id is the remote's self-reported identifier, resolved lazily by
// querying the peer root; resolution failures are retried on demand and
// never cached as permanent.
type Peer struct {
	url    string
	client *http.Client

	mu       sync.Mutex
	id       uuid.UUID
	boff     *backoff.Backoff
	nextSync time.Time
}

type PeerOption func(*Peer)

// WithHTTPClient overrides the peer HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) PeerOption {
	return func(p *Peer) { p.client = c }
}

func NewPeer(location string, opts ...PeerOption) (*Peer, error) {
	u, err := normalizeLocation(location)
	if err != nil {
		return nil, err
	}

	p := &Peer{
		url:    u,
		client: &http.Client{Timeout: peerTimeout},
		boff: &backoff.Backoff{
			Min:    time.Second,
			Max:    30 * time.Second,
			Jitter: true,
		},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// normalizeLocation coerces a peer location into a URL with an explicit
// scheme. Bare host:port locations default to http.
func normalizeLocation(location string) (string, error) {
	location = strings.TrimSpace(strings.TrimSuffix(location, "/"))
	if location == "" {
		return "", errors.Wrapf(ErrInvalidReference, "invalid node location: [%s]", location)
	}

	if u, err := url.Parse(location); err == nil && u.Host != "" &&
		(u.Scheme == "http" || u.Scheme == "https") {
		return u.Scheme + "://" + u.Host, nil
	}

	return "http://" + location, nil
}

func (p *Peer) URL() string {
	return p.url
}

// ID returns the peer's self-reported node id, attempting an identity
// sync when it is still unresolved and the retry backoff allows one.
func (p *Peer) ID(ctx context.Context) (uuid.UUID, bool) {
	p.mu.Lock()
	id := p.id
	due := time.Now().After(p.nextSync)
	p.mu.Unlock()

	if id != uuid.Nil {
		return id, true
	}
	if !due {
		return uuid.Nil, false
	}

	if err := p.SyncID(ctx); err != nil {
		return uuid.Nil, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id, p.id != uuid.Nil
}

// SyncID queries the peer root for its identity. Unreachable peers are
// routine; the failure is logged, the next attempt is pushed out by the
// backoff and the error reported for callers that care.
func (p *Peer) SyncID(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return errors.Wrap(err, "building identity request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.deferSync()
		logging.WithField("url", p.url).Warn("node id not yet resolved")
		return errors.Wrapf(ErrPeerUnreachable, "syncing id of [%s]", p.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.deferSync()
		return errors.Wrapf(ErrPeerResponse, "identity status %d from [%s]", resp.StatusCode, p.url)
	}

	var body struct {
		Node uuid.UUID `json:"node"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		p.deferSync()
		return errors.Wrap(err, "decoding peer identity")
	}

	p.mu.Lock()
	p.id = body.Node
	p.boff.Reset()
	p.nextSync = time.Time{}
	p.mu.Unlock()

	return nil
}

func (p *Peer) deferSync() {
	p.mu.Lock()
	p.nextSync = time.Now().Add(p.boff.Duration())
	p.mu.Unlock()
}

// PeerBlocks is a peer's reported block list for one chain.
type PeerBlocks struct {
	Blocks []*Block `json:"blocks"`
	Length int      `json:"length"`
}

// FetchBlocks requests the peer's block list for a chain. Network
// failures wrap ErrPeerUnreachable; a reachable peer answering with a
// non-200 wraps ErrPeerResponse.
func (p *Peer) FetchBlocks(ctx context.Context, chainID uuid.UUID) (*PeerBlocks, error) {
	target := fmt.Sprintf("%s/chains/%s/blocks", p.url, chainID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building blocks request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrPeerUnreachable, "fetching blocks from [%s]", p.url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrPeerResponse, "blocks status %d from [%s]", resp.StatusCode, p.url)
	}

	pb := &PeerBlocks{}
	if err := json.NewDecoder(resp.Body).Decode(pb); err != nil {
		return nil, errors.Wrap(err, "decoding peer blocks")
	}

	return pb, nil
}

// PeerView is the stable external representation of a peer.
type PeerView struct {
	ID       *uuid.UUID `json:"id"`
	URL      string     `json:"url"`
	Resolved bool       `json:"resolved"`
}

func (p *Peer) View(ctx context.Context) PeerView {
	v := PeerView{URL: p.url}
	if id, ok := p.ID(ctx); ok {
		v.ID = &id
		v.Resolved = true
	}
	return v
}
