package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/pdfcodes/internal/pdf"
	"github.com/MeKo-Tech/pdfcodes/internal/utils"
)

var mergeCmd = &cobra.Command{
	Use:   "merge -o out.pdf [files...]",
	Short: "Merge PDFs, and optionally images, into one document",
	Long: `Concatenate PDF files in the given order. Image arguments are converted
to one page each and appended after all PDFs, like the merge-all endpoint.

Examples:
  pdfcodes merge -o combined.pdf a.pdf b.pdf
  pdfcodes merge -o bundle.pdf report.pdf scan1.jpg scan2.png --page-format LETTER`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		format, err := pageFormatFlag(cmd)
		if err != nil {
			return err
		}

		var pdfs, images []string
		for _, arg := range args {
			switch {
			case utils.IsPDF(arg):
				pdfs = append(pdfs, arg)
			case utils.IsSupportedImage(arg):
				images = append(images, arg)
			default:
				return fmt.Errorf("unsupported input %s", arg)
			}
		}

		if len(images) == 0 {
			err = pdf.Merge(pdfs, out)
		} else {
			err = pdf.MergeAll(pdfs, images, out, format)
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d inputs)\n", out, len(args))
		return nil
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert -o out.pdf [images...]",
	Short: "Convert images into a PDF, one page per image",
	Long: `Place each image on its own page, scaled to fit inside a 20pt margin
while keeping its aspect ratio.

Examples:
  pdfcodes convert -o scans.pdf page1.jpg page2.jpg
  pdfcodes convert -o photo.pdf --page-format A5 photo.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		format, err := pageFormatFlag(cmd)
		if err != nil {
			return err
		}
		for _, arg := range args {
			if !utils.IsSupportedImage(arg) {
				return fmt.Errorf("unsupported image %s", arg)
			}
		}
		if err := pdf.ImagesToPDF(args, out, format); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d pages, %s)\n", out, len(args), format)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{mergeCmd, convertCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringP("output", "o", "", "output PDF file")
		c.Flags().String("page-format", "", "page format for images: A4, A3, A5 or LETTER (default from config)")
		_ = c.MarkFlagRequired("output")
	}
}

// pageFormatFlag resolves --page-format, falling back to convert.page_format.
func pageFormatFlag(cmd *cobra.Command) (pdf.PageFormat, error) {
	name, _ := cmd.Flags().GetString("page-format")
	if name == "" {
		cfg, err := GetConfig()
		if err != nil {
			return "", err
		}
		name = cfg.Convert.PageFormat
	}
	return pdf.ParsePageFormat(name)
}
