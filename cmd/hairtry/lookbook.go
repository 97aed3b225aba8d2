package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manash/hairtry/internal/batch"
	"github.com/manash/hairtry/internal/image"
)

var (
	flagOutputDir   string
	flagParallel    int
	flagStopOnError bool
	flagDelayMs     int
)

func newLookbookCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookbook --photo FILE STYLES_FILE",
		Short: "Try a list of hairstyles on one photo",
		Long: `Try every look in STYLES_FILE on one photo and save each result.

STYLES_FILE is a text, JSON or YAML file. Text files hold one look per
line: a catalog style id or ref:<image path>, optionally followed by a
model name. Lines starting with # are comments.

  # summer.txt
  short-bob
  pixie-cut gemini-3-pro-image-preview
  ref:refs/celebrity.jpg

JSON and YAML files hold a list of {style, reference, model} entries.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookbook(cmd.Context(), app, args[0])
		},
	}

	cmd.Flags().StringVarP(&flagPhoto, "photo", "p", "", "photo of the person")
	cmd.Flags().StringVarP(&flagOutputDir, "output-dir", "d", "", "directory for results (defaults to HAIRTRY_OUTPUT_DIR)")
	cmd.Flags().IntVar(&flagParallel, "parallel", 1, "number of looks to render at once")
	cmd.Flags().BoolVar(&flagStopOnError, "stop-on-error", false, "stop at the first failed look")
	cmd.Flags().IntVar(&flagDelayMs, "delay", 0, "delay between looks in milliseconds (sequential only)")
	cmd.MarkFlagRequired("photo")

	return cmd
}

func runLookbook(ctx context.Context, app *App, stylesFile string) error {
	if flagParallel < 1 {
		return fmt.Errorf("--parallel must be at least 1, got %d", flagParallel)
	}
	if flagDelayMs < 0 {
		return fmt.Errorf("--delay cannot be negative")
	}

	items, err := batch.ParseFile(stylesFile)
	if err != nil {
		return err
	}

	photo, err := image.ReadFile(flagPhoto)
	if err != nil {
		return fmt.Errorf("failed to load photo: %w", err)
	}

	rt, err := app.setup()
	if err != nil {
		return err
	}
	gen, err := app.newGenerator(ctx, rt)
	if err != nil {
		return err
	}

	outputDir := flagOutputDir
	if outputDir == "" {
		outputDir = rt.cfg.OutputDir
	}

	fmt.Fprintf(app.Out, "Lookbook: %d look(s) with %s\n", len(items), rt.cfg.EffectiveModel())

	proc := batch.NewProcessor(gen, rt.catalog, app.Registry, app.NewSaver(), app.Out, app.Err, rt.log)
	results, err := proc.Process(ctx, photo, items, &batch.Options{
		OutputDir:    outputDir,
		DefaultModel: rt.cfg.EffectiveModel(),
		Parallel:     flagParallel,
		StopOnError:  flagStopOnError,
		DelayMs:      flagDelayMs,
	})
	proc.PrintSummary(results)
	return err
}
