package chain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tcfw/consentchain/internal/utils/logging"
)

// projection is the memoized cumulative consent state, folded forward
// over the block history. It is guarded by the chain mutex; lastID
// being the current tip id means both history and resolved are current.
type projection struct {
	history  []string
	resolved map[ConsentAction]Consent
	lastID   uuid.UUID
}

// History returns the ordered, human-readable log of every consent
// change across the chain's block history.
func (c *Chain) History() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := c.fold()
	out := make([]string, len(history))
	copy(out, history)
	return out
}

// Latest returns one resolved consent per known action. Actions without
// any recorded decision default to not granted; grants past their
// expiry are reported revoked.
func (c *Chain) Latest() []Consent {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fold()

	now := time.Now().UTC()
	out := make([]Consent, 0, len(KnownActions()))

	for _, consent := range c.proj.resolved {
		if consent.Granted && consent.Expired(now) {
			consent.Granted = false
			consent.Type = ConsentExpired
		}
		out = append(out, consent)
	}

	for _, action := range KnownActions() {
		if _, ok := c.proj.resolved[action]; ok {
			continue
		}
		// deterministic zero-value defaults keep repeated reads
		// byte-identical until the tip moves
		out = append(out, Consent{
			Action:  action,
			Granted: false,
			Type:    ConsentCreated,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.Before(out[j].Created)
		}
		return out[i].Action < out[j].Action
	})

	return out
}

// fold advances the cache from the block after lastID through the tip.
// Blocks already folded are never rescanned; a whole-chain replacement
// resets the cache so the fold restarts from genesis. Requires c.mu
// held for writing.
func (c *Chain) fold() []string {
	if len(c.blocks) == 0 {
		return c.proj.history
	}

	tip := c.blocks[len(c.blocks)-1]
	if c.proj.lastID != uuid.Nil && c.proj.lastID == tip.ID {
		logging.WithField("chain", c.id).Debug("using precomputed consent change history")
		return c.proj.history
	}

	logging.WithField("chain", c.id).Debug("computing consent change history")

	if c.proj.resolved == nil {
		c.proj.resolved = make(map[ConsentAction]Consent)
	}

	start := 0
	seeded := false
	if c.proj.lastID != uuid.Nil {
		for i, b := range c.blocks {
			if b.ID == c.proj.lastID {
				start = i + 1
				seeded = true
				break
			}
		}
		if !seeded {
			// cached block no longer part of the chain; restart
			c.proj = projection{resolved: make(map[ConsentAction]Consent)}
			start = 0
		}
	}

	for _, b := range c.blocks[start:] {
		if !seeded {
			// the first block ever processed creates the initial consents
			for _, consent := range b.sortedConsents() {
				consent.Type = ConsentCreated
				c.proj.resolved[consent.Action] = consent
				c.proj.history = append(c.proj.history, fmt.Sprintf("[created] => %s", consent))
			}
			if len(c.proj.history) == 0 {
				c.proj.history = append(c.proj.history, "[initial] => (no consents)")
			}
			seeded = true
			continue
		}

		for _, consent := range b.sortedConsents() {
			prev, ok := c.proj.resolved[consent.Action]
			if !ok || !prev.Same(consent) {
				consent.Type = ConsentChanged
				c.proj.resolved[consent.Action] = consent
				c.proj.history = append(c.proj.history, fmt.Sprintf("[updated] => %s", consent))
			} else {
				c.proj.history = append(c.proj.history, "[updated] =>> block without consents change")
			}
		}
	}

	c.proj.lastID = tip.ID

	return c.proj.history
}
