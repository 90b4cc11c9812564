package node

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/tcfw/consentchain/internal/config"
	"github.com/tcfw/consentchain/internal/storage"
	storageIface "github.com/tcfw/consentchain/pkg/storage"
)

const stopTimeout = 10 * time.Second

type NodeOption func(*Node) error

func WithStorage(s storageIface.Store) NodeOption {
	return func(n *Node) error {
		n.store = s
		return nil
	}
}

// WithDefaultOptions opens the store named by the configuration.
func WithDefaultOptions() NodeOption {
	return func(n *Node) error {
		s, err := storage.Open(viper.GetString(config.Cfg_storage_uri))
		if err != nil {
			return errors.Wrap(err, "initing storage")
		}
		n.store = s

		return nil
	}
}
