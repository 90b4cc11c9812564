package storage

import (
	"strings"

	"github.com/pkg/errors"

	storageIface "github.com/tcfw/consentchain/pkg/storage"
)

// Open builds a store from a URI. Supported forms are "mem://" for an
// ephemeral store, "pebble:///path" or a bare absolute path for the
// on-disk store.
func Open(uri string) (storageIface.Store, error) {
	switch {
	case uri == "mem://":
		return storageIface.NewMemStore(), nil
	case strings.HasPrefix(uri, "pebble://"):
		return NewPebbleStore(strings.TrimPrefix(uri, "pebble://"))
	case strings.HasPrefix(uri, "/"):
		return NewPebbleStore(uri)
	default:
		return nil, errors.Errorf("unknown storage uri: [%s]", uri)
	}
}
