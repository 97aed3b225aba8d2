package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manash/hairtry/pkg/models"
)

var (
	flagGender  string
	flagPrompts bool
)

func newStylesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "styles",
		Short: "List catalog hairstyles",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runStyles(app)
		},
	}

	cmd.Flags().StringVarP(&flagGender, "gender", "g", string(models.FilterAll), "show styles for all, female or male")
	cmd.Flags().BoolVar(&flagPrompts, "prompts", false, "include the edit instruction of each style")

	return cmd
}

func runStyles(app *App) error {
	filter, err := models.ParseGenderFilter(flagGender)
	if err != nil {
		return err
	}

	rt, err := app.setup()
	if err != nil {
		return err
	}

	styles := rt.catalog.Filter(filter)
	if len(styles) == 0 {
		fmt.Fprintln(app.Out, "No styles match.")
		return nil
	}

	for _, h := range styles {
		fmt.Fprintf(app.Out, "%-16s %-16s %s\n", h.ID, h.Name, h.Gender)
		if flagPrompts {
			fmt.Fprintf(app.Out, "  %s\n", h.Prompt)
		}
	}
	return nil
}
