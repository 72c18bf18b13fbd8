package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
	"github.com/drummonds/resumefeedback/feedback"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func convertCmd(renderer *string) *cobra.Command {
	var out string
	var scale float64
	var quality float64
	var retries int
	var text bool

	cmd := &cobra.Command{
		Use:   "convert <pdf>",
		Short: "Convert page 1 of a PDF into a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := pdfrenderer.OpenFile(args[0])
			if err != nil {
				return err
			}
			converter, blobs, err := newConverter(*renderer)
			if err != nil {
				return err
			}
			defer converter.Reset()

			result := converter.Convert(cmd.Context(), file, pdfrenderer.Options{
				Scale:      scale,
				Quality:    quality,
				MaxRetries: retries,
			})
			if !result.OK() {
				return errors.New(result.Error)
			}
			defer blobs.Revoke(result.ImageURL)

			if out == "" {
				out = filepath.Join(filepath.Dir(args[0]), result.File.Name)
			}
			if err := os.WriteFile(out, result.File.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) -> %s (%s)\n",
				args[0], humanize.IBytes(uint64(file.Size)),
				out, humanize.IBytes(uint64(len(result.File.Data))))

			if text {
				data, err := file.ReadAll()
				if err != nil {
					return err
				}
				extracted, err := feedback.ExtractText(data)
				if err != nil {
					return fmt.Errorf("text extraction failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(extracted))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PNG path (default: <name>.png next to the PDF)")
	cmd.Flags().Float64Var(&scale, "scale", pdfrenderer.DefaultScale, "resolution multiplier over the page's point size")
	cmd.Flags().Float64Var(&quality, "quality", pdfrenderer.DefaultQuality, "PNG quality 0..1, higher compresses harder")
	cmd.Flags().IntVar(&retries, "retries", pdfrenderer.DefaultMaxRetries, "total conversion attempts")
	cmd.Flags().BoolVar(&text, "text", false, "also print the PDF's extracted text")
	return cmd
}
