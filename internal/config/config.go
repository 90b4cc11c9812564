package config

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/tcfw/consentchain/internal/utils/logging"
)

const (
	Cfg_node_id          = "node.id"
	Cfg_api_listen       = "api.listen"
	Cfg_chain_secret     = "chain.secret"
	Cfg_chain_difficulty = "chain.difficulty"
	Cfg_storage_uri      = "storage.uri"
	Cfg_peers            = "peers"
	Cfg_verbose          = "verbose"
)

var (
	defaults = map[string]interface{}{
		Cfg_api_listen:       ":5000",
		Cfg_chain_difficulty: 4,
		Cfg_storage_uri:      "mem://",
		Cfg_verbose:          false,
	}
)

func init() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
}

type Config struct {
	NodeID     uuid.UUID
	Listen     string
	Secret     string
	Difficulty int
	StorageURI string
	Peers      []string
	Verbose    bool
}

// GetConfig reads and validates the node configuration. A missing or
// malformed secret or difficulty is fatal here rather than surfacing
// later per request.
func GetConfig() (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetConfigName("consentchain")
	viper.AddConfigPath("/etc/consentchain/")
	viper.AddConfigPath("$HOME/.consentchain")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("CONSENTCHAIN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logging.Warn("no config found")
		} else {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	c := &Config{
		Listen:     viper.GetString(Cfg_api_listen),
		Secret:     viper.GetString(Cfg_chain_secret),
		Difficulty: viper.GetInt(Cfg_chain_difficulty),
		StorageURI: viper.GetString(Cfg_storage_uri),
		Peers:      viper.GetStringSlice(Cfg_peers),
		Verbose:    viper.GetBool(Cfg_verbose),
	}

	if c.Secret == "" {
		return nil, errors.New("chain secret must be configured")
	}
	if c.Difficulty < 1 || c.Difficulty > 16 {
		return nil, errors.Errorf("chain difficulty out of range: %d", c.Difficulty)
	}

	if id := viper.GetString(Cfg_node_id); id != "" {
		nid, err := uuid.Parse(id)
		if err != nil {
			return nil, errors.Wrap(err, "parsing node id")
		}
		c.NodeID = nid
	} else {
		c.NodeID = uuid.New()
	}

	if c.Verbose {
		logging.SetLevel(logrus.DebugLevel)
		logging.WithField("level", "debug").Debug("setting log level")
	}

	return c, nil
}
