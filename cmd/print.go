package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rudmsa/frameacc/internal/accumulator"
	"github.com/rudmsa/frameacc/internal/feature"
)

func printStats(w io.Writer, name string, acc accumulator.Accumulator, precision int32) error {
	fmt.Fprintf(w, "%s: count=%d dim=%d\n", name, acc.Count(), acc.Dimension())

	mean, err := acc.MeanVect()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  mean %s\n", strings.Join(feature.FormatVector(mean, precision), " "))

	diag, ok := acc.(accumulator.Diagonal)
	if !ok {
		return nil
	}
	cov, err := diag.CovVect()
	if err != nil {
		return err
	}
	std, err := diag.StdVect()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  cov  %s\n", strings.Join(feature.FormatVector(cov, precision), " "))
	fmt.Fprintf(w, "  std  %s\n", strings.Join(feature.FormatVector(std, precision), " "))
	return nil
}
