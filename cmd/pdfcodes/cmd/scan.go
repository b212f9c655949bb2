package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pdfcodes/internal/batch"
	"github.com/MeKo-Tech/pdfcodes/internal/config"
	"github.com/MeKo-Tech/pdfcodes/internal/pipeline"
)

// scanCmd runs the extraction pipeline over local files.
var scanCmd = &cobra.Command{
	Use:   "scan [files|dirs...]",
	Short: "Find barcodes and QR codes in local PDFs and images",
	Long: `Scan PDF documents and images for barcodes and QR codes.

Directories are searched for .pdf and supported image files; only the first
pages of each PDF are rendered (extraction.max_pages). Files that fail are
reported in the output and do not stop the scan.

Supported inputs: PDF, PNG, JPEG, GIF, BMP, TIFF, WEBP

Examples:
  pdfcodes scan invoice.pdf
  pdfcodes scan scans/ --recursive --include '*.pdf'
  pdfcodes scan labels/ --mode barcodes --format yaml --output codes.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScanCommand,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("mode", "m", "all", "which codes to report: all, barcodes or qr")
	scanCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	scanCmd.Flags().StringSlice("include", nil, "only scan files whose name matches one of these globs")
	scanCmd.Flags().StringSlice("exclude", nil, "skip files whose name matches one of these globs")
	scanCmd.Flags().StringP("format", "f", "json", "output format: json, yaml or text")
	scanCmd.Flags().StringP("output", "o", "", "write results to this file instead of stdout")
	scanCmd.Flags().IntP("workers", "w", 0, "files scanned in parallel (0 = GOMAXPROCS)")
	scanCmd.Flags().Bool("stats", false, "print scan statistics after the results")
	scanCmd.Flags().BoolP("quiet", "q", false, "suppress informational output")
}

// scanConfig maps configuration and flags to batch.Config.
func scanConfig(cmd *cobra.Command, cfg *config.Config) (*batch.Config, error) {
	modeName, _ := cmd.Flags().GetString("mode")
	mode, err := pipeline.ParseMode(modeName)
	if err != nil {
		return nil, err
	}

	formatName, _ := cmd.Flags().GetString("format")
	format, err := batch.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}

	bc := &batch.Config{
		Mode:    mode,
		Workers: cfg.Extraction.Workers,
		Format:  format,
	}
	if cmd.Flags().Changed("workers") {
		bc.Workers, _ = cmd.Flags().GetInt("workers")
	}
	bc.Recursive, _ = cmd.Flags().GetBool("recursive")
	bc.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	bc.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")
	bc.OutputFile, _ = cmd.Flags().GetString("output")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	return bc, nil
}

func runScanCommand(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	bc, err := scanConfig(cmd, cfg)
	if err != nil {
		return err
	}

	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return err
	}
	extractor := pipeline.NewExtractor(pc)

	result, err := batch.ProcessBatch(cmd.Context(), extractor, args, bc)
	if err != nil {
		return err
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return err
	}

	if showStats, _ := cmd.Flags().GetBool("stats"); showStats && !bc.Quiet {
		result.PrintStats(cmd.OutOrStdout())
	}

	if s := result.Stats(); s.Processed == 0 {
		return fmt.Errorf("all %d files failed", s.Failed)
	}
	return nil
}
