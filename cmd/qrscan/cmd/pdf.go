package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrscan/internal/batch"
	"github.com/MeKo-Tech/qrscan/internal/pdf"
)

// pdfCmd represents the pdf command.
var pdfCmd = &cobra.Command{
	Use:   "pdf [files...]",
	Short: "Scan the images embedded in PDF documents",
	Long: `Extract the images embedded in PDF pages and scan each of them.

Examples:
  qrscan pdf invoice.pdf
  qrscan pdf report.pdf --pages 1-3,7 --format json
  qrscan pdf locked.pdf --password secret`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPDF,
}

func runPDF(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	format := cfg.Output.Format
	if cmd.Flags().Changed("format") {
		format, _ = cmd.Flags().GetString("format")
	}
	outputFile := cfg.Output.File
	if cmd.Flags().Changed("output") {
		outputFile, _ = cmd.Flags().GetString("output")
	}
	pages, _ := cmd.Flags().GetString("pages")
	workers := cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}

	var creds *pdf.Credentials
	user, _ := cmd.Flags().GetString("password")
	owner, _ := cmd.Flags().GetString("owner-password")
	if user != "" || owner != "" {
		creds = &pdf.Credentials{UserPassword: user, OwnerPassword: owner}
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	pool, err := a.pool(ctx, workers)
	if err != nil {
		return err
	}
	defer pool.Close()

	proc := pdf.NewProcessor(pool)
	docs := make([]*pdf.DocumentResult, 0, len(args))
	var files []batch.FileResult
	for _, file := range args {
		doc, err := proc.ProcessFile(ctx, file, pages, creds)
		if err != nil {
			if pdf.IsPasswordError(err) {
				return fmt.Errorf("%s: %w (use --password)", file, pdf.ErrPassword)
			}
			return fmt.Errorf("%s: %w", file, err)
		}
		docs = append(docs, doc)
		for _, p := range doc.Pages {
			for _, img := range p.Images {
				files = append(files, batch.FileResult{
					File:       file + "#page=" + strconv.Itoa(p.PageNumber) + "&image=" + strconv.Itoa(img.ImageIndex),
					Detections: img.Detections,
					Error:      img.Error,
				})
			}
		}
	}

	var out string
	if format == "json" {
		bts, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return err
		}
		out = string(bts) + "\n"
	} else if out, err = batch.Format(files, format); err != nil {
		return err
	}
	return writeOutput(cmd, out, outputFile)
}

func init() {
	rootCmd.AddCommand(pdfCmd)
	pdfCmd.Flags().StringP("format", "f", "text", "output format (text, json, yaml, csv)")
	pdfCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	pdfCmd.Flags().String("pages", "", "page range, e.g. 1-3,5 (default: all pages)")
	pdfCmd.Flags().String("password", "", "user password for encrypted PDFs")
	pdfCmd.Flags().String("owner-password", "", "owner password for encrypted PDFs")
	pdfCmd.Flags().IntP("workers", "w", 4, "number of parallel scanners")
}
