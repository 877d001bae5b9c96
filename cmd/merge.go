package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rudmsa/frameacc/internal/accumulator"
	"github.com/rudmsa/frameacc/internal/segmenter"
)

const singleStateSource = "all"

var mergeCmd = &cobra.Command{
	Use:   "merge <state-file>...",
	Short: "Merge cluster states written by independent runs",
	Long: `Merge cluster states written by independent runs.

Each file holds the per-source states saved through report.state_path (or a
single state written by "stats --state", merged under the source "all"). The
runs must have seen disjoint frames: a frame counted by two runs is counted
twice.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		precision, _ := cmd.Flags().GetInt32("precision")

		merged := map[string]accumulator.Accumulator{}
		for _, path := range args {
			states, err := readAnyStates(path)
			if err != nil {
				return err
			}
			for source, st := range states {
				acc, err := accumulator.FromState(st)
				if err != nil {
					return fmt.Errorf("%s [%s]: %w", path, source, err)
				}
				if prev, ok := merged[source]; ok {
					if err := prev.Merge(acc); err != nil {
						return fmt.Errorf("%s [%s]: %w", path, source, err)
					}
					continue
				}
				merged[source] = acc
			}
		}

		sources := make([]string, 0, len(merged))
		for source := range merged {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		for _, source := range sources {
			if err := printStats(cmd.OutOrStdout(), source, merged[source], precision); err != nil {
				return fmt.Errorf("%s: %w", source, err)
			}
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().Int32("precision", 3, "decimals printed")
}

func readAnyStates(path string) (map[string]accumulator.State, error) {
	states, err := segmenter.ReadStates(path)
	if err == nil {
		return states, nil
	}
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, readErr
	}
	st, stErr := accumulator.UnmarshalState(data)
	if stErr != nil {
		return nil, err
	}
	return map[string]accumulator.State{singleStateSource: st}, nil
}
