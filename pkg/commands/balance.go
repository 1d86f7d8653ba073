package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/tokens"
)

func (c *Commands) newBalanceCmd() *cobra.Command {
	var (
		blockchain string
		token      string
		subunit    bool
	)

	cmd := &cobra.Command{
		Use:   "balance ADDRESS",
		Short: "Print the token balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := chain.ParseBlockchain(blockchain)
			if err != nil {
				return err
			}

			return c.run(cmd, func(ctx context.Context, lib Library) error {
				balance, err := lib.RetrieveTokenBalance(ctx, tokens.BalanceRequest{
					Blockchain: b,
					Account:    chain.AccountFromAddress(chain.Address(args[0])),
					Token:      chain.TokenBySymbol(token),
					InMainUnit: !subunit,
				})
				if err != nil {
					return fmt.Errorf("failed to retrieve token balance: %w", err)
				}
				cmd.Printf("Token balance: %s\n", balance)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&blockchain, "blockchain", "b", "", "Blockchain of the account (required)")
	cmd.Flags().StringVarP(&token, "token", "t", config.FeeTokenSymbol, "Symbol of the token")
	cmd.Flags().BoolVar(&subunit, "subunit", false, "Print the balance in the token's subunit")
	_ = cmd.MarkFlagRequired("blockchain")

	return cmd
}
