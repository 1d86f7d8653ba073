package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pantos-io/client-library/chain"
)

func (c *Commands) newAddressCmd() *cobra.Command {
	var (
		blockchain string
		keystore   string
	)

	cmd := &cobra.Command{
		Use:   "address",
		Short: "Decrypt a keystore and print the address of its account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := chain.ParseBlockchain(blockchain)
			if err != nil {
				return err
			}

			return c.run(cmd, func(ctx context.Context, lib Library) error {
				key, err := c.privateKey(ctx, lib, b, keystore)
				if err != nil {
					return err
				}
				address, err := lib.ResolveAccount(ctx, b, chain.AccountFromPrivateKey(key))
				if err != nil {
					return err
				}
				cmd.Printf("Address: %s\n", address)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&blockchain, "blockchain", "b", "", "Blockchain of the account (required)")
	cmd.Flags().StringVarP(&keystore, "keystore", "k", "", "Path of the keystore file (required)")
	_ = cmd.MarkFlagRequired("blockchain")
	_ = cmd.MarkFlagRequired("keystore")

	return cmd
}
