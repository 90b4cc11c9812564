package chain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConsentAction names a data-access decision a subject can grant or
// revoke.
type ConsentAction string

const (
	ActionFirstNameRead  ConsentAction = "first-name-read"
	ActionFirstNameWrite ConsentAction = "first-name-write"
	ActionLastNameRead   ConsentAction = "last-name-read"
	ActionLastNameWrite  ConsentAction = "last-name-write"
	ActionEmailRead      ConsentAction = "email-read"
	ActionEmailWrite     ConsentAction = "email-write"
)

// KnownActions returns every action the ledger tracks, in a stable
// order. Actions without any recorded consent resolve to not granted.
func KnownActions() []ConsentAction {
	return []ConsentAction{
		ActionFirstNameRead,
		ActionFirstNameWrite,
		ActionLastNameRead,
		ActionLastNameWrite,
		ActionEmailRead,
		ActionEmailWrite,
	}
}

func ParseAction(s string) (ConsentAction, error) {
	a := ConsentAction(s)
	for _, known := range KnownActions() {
		if a == known {
			return a, nil
		}
	}
	return "", ErrUnknownAction
}

// ConsentType tags how a resolved consent came to be. It is derived
// during projection and never part of the sealed block content.
type ConsentType string

const (
	ConsentCreated ConsentType = "created"
	ConsentChanged ConsentType = "changed"
	ConsentExpired ConsentType = "expired"
)

// Consent records a single granted-or-revoked decision. Blocks carry
// only the changes they introduce, never the cumulative state.
type Consent struct {
	ID      uuid.UUID     `json:"id" msgpack:"i"`
	Action  ConsentAction `json:"action" msgpack:"a"`
	Granted bool          `json:"consent" msgpack:"g"`
	Expire  *time.Time    `json:"expire" msgpack:"e"`
	Type    ConsentType   `json:"type,omitempty" msgpack:"-"`
	Created time.Time     `json:"created" msgpack:"t"`
}

func NewConsent(action ConsentAction, granted bool, expire *time.Time) Consent {
	return Consent{
		ID:      uuid.New(),
		Action:  action,
		Granted: granted,
		Expire:  expire,
		Type:    ConsentChanged,
		Created: time.Now().UTC(),
	}
}

// Expired reports whether a granted consent has lapsed at the given
// time. Consents without an expiry never lapse unless superseded.
func (c Consent) Expired(at time.Time) bool {
	return c.Expire != nil && c.Expire.Before(at)
}

// Same reports whether two consents express the same decision. Record
// identity (id, creation time) is excluded so a re-granted identical
// decision reads as no change.
func (c Consent) Same(o Consent) bool {
	if c.Action != o.Action || c.Granted != o.Granted {
		return false
	}
	if (c.Expire == nil) != (o.Expire == nil) {
		return false
	}
	return c.Expire == nil || c.Expire.Equal(*o.Expire)
}

func (c Consent) String() string {
	granted := 0
	if c.Granted {
		granted = 1
	}
	expire := "forever"
	if c.Expire != nil {
		expire = fmt.Sprintf("until [%s]", c.Expire.UTC().Format(canonicalTimeFormat))
	}
	return fmt.Sprintf("%s [%d] from [%s] %s",
		c.Action, granted, c.Created.UTC().Format(canonicalTimeFormat), expire)
}

// canonical returns the digest form of the consent. The derived type
// tag is excluded so projection never changes a sealed block's digest.
func (c Consent) canonical() map[string]interface{} {
	var expire interface{}
	if c.Expire != nil {
		expire = c.Expire.UTC().Format(canonicalTimeFormat)
	}
	return map[string]interface{}{
		"id":      c.ID.String(),
		"action":  string(c.Action),
		"consent": c.Granted,
		"expire":  expire,
		"created": c.Created.UTC().Format(canonicalTimeFormat),
	}
}
