// Package commands provides the commands of the pantos-client command line.
//
// Every command loads the client library from the configuration file given by the persistent
// --config flag and runs one library operation:
//
//	cmds := commands.New(lggr, nil)
//	root := cmds.Root()
//	err := root.ExecuteContext(ctx)
//
// Dependencies can be replaced for testing:
//
//	cmds := commands.New(lggr, &commands.Deps{
//	    LibraryLoader: func(string, ...client.Option) (commands.Library, error) { return fake, nil },
//	})
package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/client"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/pkg/logger"
)

// DefaultTimeout bounds the runtime of a single command.
const DefaultTimeout = 5 * time.Minute

// Commands provides a factory for creating the CLI commands with shared dependencies.
type Commands struct {
	lggr logger.Logger
	deps Deps
}

// New creates a new Commands factory. deps may be nil.
func New(lggr logger.Logger, deps *Deps) *Commands {
	c := &Commands{lggr: lggr}
	if deps != nil {
		c.deps = *deps
	}
	c.deps.applyDefaults()

	return c
}

// Root creates the pantos-client root command with all subcommands.
func (c *Commands) Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pantos-client",
		Short:         "Transfer and deploy Pantos tokens across blockchains",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", config.DefaultFileName, "Path of the client library configuration file")
	cmd.PersistentFlags().Bool("mainnet", false, "Use the protocol version configured for mainnet instead of testnet")
	cmd.PersistentFlags().Duration("timeout", DefaultTimeout, "Maximum runtime of the command")

	cmd.AddCommand(
		c.newBalanceCmd(),
		c.newBidsCmd(),
		c.newTransferCmd(),
		c.newStatusCmd(),
		c.newDeployCmd(),
		c.newAddressCmd(),
	)

	return cmd
}

// run loads the library and calls fn with a context bounded by the --timeout flag.
func (c *Commands) run(cmd *cobra.Command, fn func(ctx context.Context, lib Library) error) error {
	configPath, _ := cmd.Flags().GetString("config")
	mainnet, _ := cmd.Flags().GetBool("mainnet")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	opts := []client.Option{client.WithLogger(c.lggr)}
	if mainnet {
		opts = append(opts, client.WithMainnet())
	}
	lib, err := c.deps.LibraryLoader(configPath, opts...)
	if err != nil {
		return fmt.Errorf("failed to load client library: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	return fn(ctx, lib)
}

// privateKey decrypts the keystore file at path with the password from the password reader.
func (c *Commands) privateKey(ctx context.Context, lib Library, blockchain chain.Blockchain, path string) (chain.PrivateKey, error) {
	keystore, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read keystore: %w", err)
	}
	password, err := c.deps.PasswordReader()
	if err != nil {
		return "", err
	}

	return lib.DecryptPrivateKey(ctx, blockchain, string(keystore), password)
}

func parseBlockchains(names []string) ([]chain.Blockchain, error) {
	blockchains := make([]chain.Blockchain, 0, len(names))
	for _, name := range names {
		b, err := chain.ParseBlockchain(name)
		if err != nil {
			return nil, err
		}
		blockchains = append(blockchains, b)
	}

	return blockchains, nil
}
