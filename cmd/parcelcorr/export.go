package main

import (
	"fmt"

	"github.com/spf13/cobra"

	parcelcorr "github.com/hupe1980/parcelcorr"
	"github.com/hupe1980/parcelcorr/report"
)

var (
	exportOutputDir string
	exportTopN      int
)

var exportCmd = &cobra.Command{
	Use:   "export <snapshot>",
	Short: "Re-export CSV reports from a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOutputDir, "output-dir", ".", "Directory for the CSV reports")
	exportCmd.Flags().IntVar(&exportTopN, "top-n", report.DefaultTopN, "Rows per ranking file")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := bindConfig(cmd); err != nil {
		return err
	}

	_, res, err := parcelcorr.LoadSnapshot(args[0])
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("snapshot %s holds no results; run the analysis first", args[0])
	}

	files, err := report.ExportCSV(exportOutputDir, res, func(o *report.Options) {
		o.TopN = exportTopN
	})
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d reports to %s\n", len(files), exportOutputDir)
	return nil
}
