package commands

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/pantos-io/client-library/chain"
)

func (c *Commands) newBidsCmd() *cobra.Command {
	var (
		source      string
		destination string
		subunit     bool
	)

	cmd := &cobra.Command{
		Use:   "bids",
		Short: "Print the service node bids for transfers between two blockchains",
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

			return c.run(cmd, func(ctx context.Context, lib Library) error {
				bids, err := lib.RetrieveServiceNodeBids(ctx, src, dst, !subunit)
				if err != nil {
					return fmt.Errorf("failed to retrieve service node bids: %w", err)
				}
				for _, node := range slices.Sorted(maps.Keys(bids)) {
					for _, bid := range bids[node] {
						cmd.Printf("%s fee=%s execution_time=%d valid_until=%d\n",
							node, bid.Fee, bid.ExecutionTime, bid.ValidUntil)
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Source blockchain (required)")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Destination blockchain (required)")
	cmd.Flags().BoolVar(&subunit, "subunit", false, "Print fees in the pan token's subunit")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("destination")

	return cmd
}
