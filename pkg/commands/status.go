package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pantos-io/client-library/chain"
	"github.com/pantos-io/client-library/transfers"
)

func (c *Commands) newStatusCmd() *cobra.Command {
	var (
		source         string
		serviceNode    string
		taskID         string
		blocksToSearch uint64
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of a token transfer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := chain.ParseBlockchain(source)
			if err != nil {
				return err
			}
			id, err := uuid.Parse(taskID)
			if err != nil {
				return fmt.Errorf("invalid task ID %q: %w", taskID, err)
			}

			return c.run(cmd, func(ctx context.Context, lib Library) error {
				status, err := lib.GetTokenTransferStatus(ctx, transfers.StatusRequest{
					SourceBlockchain: src,
					ServiceNode:      chain.Address(serviceNode),
					TaskID:           id,
					BlocksToSearch:   blocksToSearch,
				})
				if err != nil {
					return err
				}
				printStatus(cmd, status)

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Source blockchain of the transfer (required)")
	cmd.Flags().StringVarP(&serviceNode, "service-node", "n", "", "Address of the service node handling the transfer (required)")
	cmd.Flags().StringVar(&taskID, "task-id", "", "Task ID returned by the service node (required)")
	cmd.Flags().Uint64Var(&blocksToSearch, "blocks-to-search", 0, "Number of recent destination blocks to search; 0 searches all blocks")
	for _, name := range []string{"source", "service-node", "task-id"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func printStatus(cmd *cobra.Command, status *transfers.TokenTransferStatus) {
	cmd.Printf("Destination blockchain: %s\n", status.DestinationBlockchain.Name())
	cmd.Printf("Source status: %s\n", status.SourceStatus)
	cmd.Printf("Destination status: %s\n", status.DestinationStatus)
	cmd.Printf("Sender: %s\nRecipient: %s\n", status.SenderAddress, status.RecipientAddress)
	cmd.Printf("Source token: %s\nDestination token: %s\n", status.SourceTokenAddress, status.DestinationTokenAddress)
	cmd.Printf("Amount: %s\n", status.Amount)
	if status.SourceTransactionID != "" {
		cmd.Printf("Source transaction: %s\nSource transfer ID: %s\n", status.SourceTransactionID, status.SourceTransferID)
	}
	if status.DestinationStatus != transfers.DestinationStatusUnknown {
		cmd.Printf("Destination transaction: %s\nDestination transfer ID: %s\n",
			status.DestinationTransactionID, status.DestinationTransferID)
		cmd.Printf("Validator nonce: %s\n", status.ValidatorNonce)
		for i, signer := range status.SignerAddresses {
			cmd.Printf("Signer %d: %s\n", i, signer)
		}
	}
}
