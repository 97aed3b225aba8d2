package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/manash/hairtry/internal/image"
	"github.com/manash/hairtry/internal/security"
	"github.com/manash/hairtry/internal/workflow"
	"github.com/manash/hairtry/pkg/models"
)

var (
	flagPhoto  string
	flagStyle  string
	flagRef    string
	flagOutput string
	flagShow   bool
)

func newTryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "try",
		Short: "Render a photo with one hairstyle and save the result",
		Long: `Render a photo with a catalog hairstyle (--style) or the hairstyle shown
in a reference image (--ref), and save the result.

Examples:
  hairtry try --photo me.jpg --style short-bob
  hairtry try --photo me.jpg --ref celebrity.jpg -o celebrity-look.png
  hairtry try -m gpt-image-1 --photo me.jpg --style undercut --show`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTry(cmd.Context(), app)
		},
	}

	cmd.Flags().StringVarP(&flagPhoto, "photo", "p", "", "photo of the person (png, jpeg, webp, gif)")
	cmd.Flags().StringVarP(&flagStyle, "style", "s", "", "catalog style id (see 'hairtry styles')")
	cmd.Flags().StringVarP(&flagRef, "ref", "r", "", "reference image showing the hairstyle to copy")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output filename (defaults to a timestamped name in HAIRTRY_OUTPUT_DIR)")
	cmd.Flags().BoolVar(&flagShow, "show", false, "display the result in the terminal (kitty graphics protocol)")
	cmd.MarkFlagRequired("photo")
	cmd.MarkFlagsOneRequired("style", "ref")
	cmd.MarkFlagsMutuallyExclusive("style", "ref")

	return cmd
}

func runTry(ctx context.Context, app *App) error {
	rt, err := app.setup()
	if err != nil {
		return err
	}
	ctrl, err := app.newController(ctx, rt)
	if err != nil {
		return err
	}

	if err := ctrl.LoadPhotoFile(flagPhoto); err != nil {
		return fmt.Errorf("failed to load photo: %w", err)
	}

	var style models.Style
	if flagRef != "" {
		style, err = ctrl.UploadCustomStyleFile(flagRef)
		if err != nil {
			return fmt.Errorf("failed to load reference: %w", err)
		}
	} else if style, err = ctrl.SelectStyle(flagStyle); err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Trying %s with %s...\n", style.Name(), ctrl.Model())

	state, err := ctrl.Generate(ctx)
	if err != nil {
		rt.log.Debug().Err(err).Msg("try failed")
		return sessionError(state, err)
	}

	path, err := saveResult(ctx, app, rt.cfg.OutputDir, state)
	if err != nil {
		return err
	}

	item, _ := state.History.At(1)
	fmt.Fprintf(app.Out, "Saved: %s (%s)\n", path, refSize(state.Result))
	if item.Cost > 0 {
		fmt.Fprintf(app.Out, "Cost: $%.4f\n", item.Cost)
	}

	if flagShow {
		if d := app.newDisplayer(rt); d == nil {
			fmt.Fprintln(app.Err, "Warning: this terminal cannot display images")
		} else if err := d.Show(ctx, state.Result); err != nil {
			fmt.Fprintf(app.Err, "Warning: failed to display image: %v\n", err)
		}
	}

	fmt.Fprintln(app.Out, "Done!")
	return nil
}

// sessionError prefers the message the session recorded over the raw cause.
func sessionError(state workflow.State, err error) error {
	if state.Err != nil {
		return state.Err
	}
	return err
}

func saveResult(ctx context.Context, app *App, outputDir string, state workflow.State) (string, error) {
	saver := app.NewSaver()
	if flagOutput == "" {
		return saver.SaveInDir(ctx, state.Result, outputDir, state.Selected.Name())
	}

	dest := flagOutput
	if err := security.ValidateSavePath(dest, true); err != nil {
		return "", fmt.Errorf("invalid output path: %w", err)
	}
	if filepath.Ext(dest) == "" {
		if enc, err := image.Decode(state.Result); err == nil {
			dest += "." + enc.Extension()
		}
	}
	return saver.Save(ctx, state.Result, dest)
}

func refSize(ref string) string {
	enc, err := image.Decode(ref)
	if err != nil {
		return "unknown size"
	}
	data, err := enc.Bytes()
	if err != nil {
		return "unknown size"
	}
	return humanize.Bytes(uint64(len(data)))
}
