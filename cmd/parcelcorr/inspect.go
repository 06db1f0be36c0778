package main

import (
	"fmt"

	"github.com/spf13/cobra"

	parcelcorr "github.com/hupe1980/parcelcorr"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot>",
	Short: "Print a snapshot's store and result summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	st, res, err := parcelcorr.LoadSnapshot(args[0])
	if err != nil {
		return err
	}

	s := parcelcorr.Summarize(st, res)
	fmt.Printf("Contrasts: %d\n", s.Contrasts)
	fmt.Printf("Parcels:   %d\n", s.Parcels)
	fmt.Printf("Records:   %d\n", s.Records)
	fmt.Printf("Subjects:  %d\n", s.Subjects)

	if res == nil {
		fmt.Println("Results:   none (store-only snapshot)")
		return nil
	}

	fmt.Printf("Threshold: %g\n", res.Threshold)
	fmt.Printf("Classified %d parcel keys:\n", s.Classified)
	fmt.Printf("  canonical:         %d\n", s.Canonical)
	fmt.Printf("  indiv_fingerprint: %d\n", s.Fingerprint)
	fmt.Printf("  variable:          %d\n", s.Variable)
	fmt.Printf("Mean within-subject similarity:  %.6f\n", s.MeanWithin)
	fmt.Printf("Mean between-subject similarity: %.6f\n", s.MeanBetween)
	return nil
}
