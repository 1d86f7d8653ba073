package commands

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/config"
	"github.com/pantos-io/client-library/internal/pointer"
	"github.com/pantos-io/client-library/transfers"
)

func (c *Commands) newTransferCmd() *cobra.Command {
	var (
		source           string
		destination      string
		keystore         string
		recipient        string
		token            string
		amount           string
		subunit          bool
		validUntilBuffer time.Duration
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer tokens to a recipient on the same or another blockchain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := chain.ParseBlockchain(source)
			if err != nil {
				return err
			}
			dst, err := chain.ParseBlockchain(destination)
			if err != nil {
				return err
			}
			value, err := parseAmount(amount, subunit)
			if err != nil {
				return err
			}
			req := transfers.TransferRequest{
				SourceBlockchain:      src,
				DestinationBlockchain: dst,
				RecipientAddress:      chain.Address(recipient),
				SourceToken:           chain.TokenBySymbol(token),
				Amount:                value,
			}
			if cmd.Flags().Changed("valid-until-buffer") {
				req.ValidUntilBuffer = pointer.To(validUntilBuffer)
			}

			return c.run(cmd, func(ctx context.Context, lib Library) error {
				key, err := c.privateKey(ctx, lib, src, keystore)
				if err != nil {
					return err
				}
				req.SenderPrivateKey = key

				info, err := lib.TransferTokens(ctx, req)
				if err != nil {
					return err
				}
				cmd.Printf("Service node: %s\nTask ID: %s\n", info.ServiceNode, info.TaskID)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Source blockchain (required)")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Destination blockchain (required)")
	cmd.Flags().StringVarP(&keystore, "keystore", "k", "", "Path of the sender's keystore file on the source blockchain (required)")
	cmd.Flags().StringVarP(&recipient, "recipient", "r", "", "Recipient address on the destination blockchain (required)")
	cmd.Flags().StringVarP(&token, "token", "t", config.FeeTokenSymbol, "Symbol of the token")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount to transfer in the token's main unit (required)")
	cmd.Flags().BoolVar(&subunit, "subunit", false, "Interpret the amount in the token's subunit")
	cmd.Flags().DurationVar(&validUntilBuffer, "valid-until-buffer", transfers.DefaultValidUntilBuffer,
		"Time added to the bid's execution time before the transfer expires")
	for _, name := range []string{"source", "destination", "keystore", "recipient", "amount"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func parseAmount(s string, subunit bool) (chain.Amount, error) {
	if subunit {
		value, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return chain.Amount{}, fmt.Errorf("invalid subunit amount %q", s)
		}

		return chain.SubunitAmount(value), nil
	}
	value, err := decimal.NewFromString(s)
	if err != nil {
		return chain.Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	return chain.MainUnitAmount(value), nil
}
