package cli

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tcfw/consentchain/internal/config"
	"github.com/tcfw/consentchain/internal/storage"
	"github.com/tcfw/consentchain/pkg/chain"
	storageIface "github.com/tcfw/consentchain/pkg/storage"
)

// initCmd creates a new chain with its genesis block in the configured
// store and prints the chain id, without starting the node.
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "create a new chain with a genesis block",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.GetConfig()
			if err != nil {
				return errors.Wrap(err, "loading config")
			}

			s, err := storage.Open(viper.GetString(config.Cfg_storage_uri))
			if err != nil {
				return errors.Wrap(err, "initing storage")
			}
			defer s.Close()

			c := chain.NewChain(
				chain.NewHasher([]byte(cfg.Secret)),
				chain.WithDifficulty(cfg.Difficulty),
			)

			if err := storageIface.SaveChain(context.Background(), s, c); err != nil {
				return errors.Wrap(err, "storing chain")
			}

			fmt.Fprintln(cmd.OutOrStdout(), c.ID())

			return nil
		},
	}
}
