package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/drummonds/resumefeedback/engine/pdfrenderer"
	"github.com/drummonds/resumefeedback/feedback"
	"github.com/spf13/cobra"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

func main() {
	var renderer string
	var verbose bool

	root := &cobra.Command{
		Use:   "pdf2png",
		Short: "Render the first page of a PDF to PNG",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			pdfrenderer.Logger = Logger
			feedback.Logger = Logger
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&renderer, "renderer", pdfrenderer.RendererPDFium, "rendering engine: pdfium|fitz")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log renderer activity to stderr")

	root.AddCommand(convertCmd(&renderer))
	root.AddCommand(serveCmd(&renderer))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newConverter builds a converter over the named engine with URLs that are
// only meaningful inside this process
func newConverter(renderer string) (*pdfrenderer.Converter, *pdfrenderer.BlobStore, error) {
	load, err := pdfrenderer.NewLoadFunc(renderer)
	if err != nil {
		return nil, nil, err
	}
	blobs := pdfrenderer.NewBlobStore("blob:")
	return pdfrenderer.NewConverter(pdfrenderer.NewLoader(load), blobs), blobs, nil
}
