package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rudmsa/frameacc/internal/accumulator"
	"github.com/rudmsa/frameacc/internal/feature"
	"github.com/rudmsa/frameacc/internal/featurestream"
)

var statsCmd = &cobra.Command{
	Use:   "stats <features-file>",
	Short: "Print mean, covariance and deviation of a feature file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dim, _ := cmd.Flags().GetInt("dim")
		precision, _ := cmd.Flags().GetInt32("precision")
		compensated, _ := cmd.Flags().GetBool("compensated")
		statePath, _ := cmd.Flags().GetString("state")

		var opts []accumulator.Option
		if compensated {
			opts = append(opts, accumulator.WithCompensatedSum())
		}
		acc := accumulator.NewGaussianDiag(dim, opts...)

		stream := featurestream.NewFileStream(args[0], 0)
		if err := accumulateStream(cmd.Context(), stream, acc); err != nil {
			return err
		}

		if statePath != "" {
			data, err := accumulator.MarshalState(acc)
			if err != nil {
				return err
			}
			if err := os.WriteFile(statePath, data, 0o644); err != nil {
				return fmt.Errorf("write state [%s]: %w", statePath, err)
			}
		}
		return printStats(cmd.OutOrStdout(), args[0], acc, precision)
	},
}

func init() {
	statsCmd.Flags().Int("dim", 0, "expected dimension, 0 takes it from the first frame")
	statsCmd.Flags().Int32("precision", 3, "decimals printed")
	statsCmd.Flags().Bool("compensated", false, "use compensated summation")
	statsCmd.Flags().String("state", "", "write the accumulator state to this file")
}

// accumulateStream feeds every record of stream into acc. The stream is
// cancelled on return, so an early error does not leave its producer blocked.
func accumulateStream(ctx context.Context, stream featurestream.FeatureStreamSubscriber, acc accumulator.Accumulator) error {
	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	recCh, errCh := stream.SubscribeFeatureStream(ctx)
	for rec := range recCh {
		v, err := feature.ParseVector(rec.Values)
		if err != nil {
			return fmt.Errorf("line record #%d: %w", rec.Seq, err)
		}
		if err := acc.Accumulate(v); err != nil {
			return fmt.Errorf("line record #%d: %w", rec.Seq, err)
		}
	}
	return <-errCh
}
