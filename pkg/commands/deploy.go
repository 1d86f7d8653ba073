package commands

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/spf13/cobra"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/deployments"
	"github.com/pantos-io/client-library/internal/pointer"
)

func (c *Commands) newDeployCmd() *cobra.Command {
	var (
		req              deployments.DeploymentRequest
		supply           string
		blockchains      []string
		payment          string
		keystore         string
		validUntilBuffer time.Duration
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a Pantos compatible token through the token creator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if req.DeploymentBlockchains, err = parseBlockchains(blockchains); err != nil {
				return err
			}
			if req.PaymentBlockchain, err = chain.ParseBlockchain(payment); err != nil {
				return err
			}
			var ok bool
			if req.TokenSupply, ok = new(big.Int).SetString(supply, 10); !ok || req.TokenSupply.Sign() < 0 {
				return fmt.Errorf("invalid token supply %q", supply)
			}
			if cmd.Flags().Changed("valid-until-buffer") {
				req.ValidUntilBuffer = pointer.To(validUntilBuffer)
			}

			return c.run(cmd, func(ctx context.Context, lib Library) error {
				key, err := c.privateKey(ctx, lib, req.PaymentBlockchain, keystore)
				if err != nil {
					return err
				}
				req.PayerPrivateKey = key

				taskID, err := lib.DeployToken(ctx, req)
				if err != nil {
					return err
				}
				cmd.Printf("Task ID: %s\n", taskID)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.TokenName, "name", "", "Name of the token (required)")
	cmd.Flags().StringVar(&req.TokenSymbol, "symbol", "", "Symbol of the token (required)")
	cmd.Flags().Uint8Var(&req.TokenDecimals, "decimals", 18, "Number of decimals of the token")
	cmd.Flags().BoolVar(&req.TokenPausable, "pausable", false, "Make the token pausable")
	cmd.Flags().BoolVar(&req.TokenBurnable, "burnable", false, "Make the token burnable")
	cmd.Flags().StringVar(&supply, "supply", "", "Supply of the token in its subunit (required)")
	cmd.Flags().StringSliceVar(&blockchains, "blockchains", nil, "Blockchains to deploy the token on (required)")
	cmd.Flags().StringVarP(&payment, "payment-blockchain", "p", "", "Blockchain the deployment fee is paid on (required)")
	cmd.Flags().StringVarP(&keystore, "keystore", "k", "", "Path of the payer's keystore file on the payment blockchain (required)")
	cmd.Flags().DurationVar(&validUntilBuffer, "valid-until-buffer", deployments.DefaultValidUntilBuffer,
		"Time added to the bid's execution time before the fee payment expires")
	for _, name := range []string{"name", "symbol", "supply", "blockchains", "payment-blockchain", "keystore"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
