package repl

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/manash/hairtry/internal/camera"
	"github.com/manash/hairtry/internal/cost"
	"github.com/manash/hairtry/internal/image"
	"github.com/manash/hairtry/internal/security"
	"github.com/manash/hairtry/internal/workflow"
	"github.com/manash/hairtry/pkg/models"
)

var (
	errNoCamera = errors.New("no camera configured")
	errNoResult = errors.New("no generated image yet - use 'try' first")
)

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func allCommands() []Command {
	return []Command{
		&PhotoCommand{},
		&CameraCommand{},
		&StylesCommand{},
		&FilterCommand{},
		&SelectCommand{},
		&CustomCommand{},
		&PreviewCommand{},
		&TryCommand{},
		&AgainCommand{},
		&HistoryCommand{},
		&PickCommand{},
		&ClearCommand{},
		&ResetCommand{},
		&ShowCommand{},
		&SaveCommand{},
		&ModelCommand{},
		&CostCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}
}

func (r *REPL) registerCommands() {
	for _, cmd := range allCommands() {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// sessionError returns the message the session recorded for a failed
// action, which never includes raw service errors.
func (r *REPL) sessionError(err error) error {
	if s := r.ctrl.State(); s.Err != nil {
		return s.Err
	}
	return err
}

func refSize(ref string) string {
	data, _, err := image.DecodeBytes(ref)
	if err != nil {
		return "?"
	}
	return humanize.Bytes(uint64(len(data)))
}

// PhotoCommand loads the photo to restyle
type PhotoCommand struct{}

func (c *PhotoCommand) Name() string        { return "photo" }
func (c *PhotoCommand) Aliases() []string   { return []string{"p", "load"} }
func (c *PhotoCommand) Description() string { return "Load the photo to restyle from a file" }
func (c *PhotoCommand) Usage() string       { return "photo <file>" }

func (c *PhotoCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	if err := r.ctrl.LoadPhotoFile(args[0]); err != nil {
		if !workflow.IsFormatError(err) {
			return err
		}
		return r.sessionError(err)
	}

	s := r.ctrl.State()
	fmt.Fprintf(r.out, "Photo loaded: %s (%s)\n", filepath.Base(args[0]), refSize(s.Original))
	r.show(ctx, s.Original, true)
	return nil
}

// CameraCommand captures the photo from the camera
type CameraCommand struct{}

func (c *CameraCommand) Name() string        { return "camera" }
func (c *CameraCommand) Aliases() []string   { return []string{"cam", "snap"} }
func (c *CameraCommand) Description() string { return "Capture the photo from the camera" }
func (c *CameraCommand) Usage() string       { return "camera" }

func (c *CameraCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	if r.camera == nil {
		return errNoCamera
	}

	fmt.Fprintln(r.out, "Capturing...")
	if err := r.ctrl.CapturePhoto(ctx, r.camera); err != nil {
		if errors.Is(err, camera.ErrAccess) {
			return r.sessionError(err)
		}
		return fmt.Errorf("capture failed: %w", err)
	}

	s := r.ctrl.State()
	fmt.Fprintf(r.out, "Photo captured (%s)\n", refSize(s.Original))
	r.show(ctx, s.Original, true)
	return nil
}

// StylesCommand lists the styles visible under the current filter
type StylesCommand struct{}

func (c *StylesCommand) Name() string        { return "styles" }
func (c *StylesCommand) Aliases() []string   { return []string{"ls", "list"} }
func (c *StylesCommand) Description() string { return "List hairstyles visible under the current filter" }
func (c *StylesCommand) Usage() string       { return "styles" }

func (c *StylesCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	printStyles(r)
	return nil
}

func printStyles(r *REPL) {
	s := r.ctrl.State()
	styles := r.ctrl.DisplayedStyles()

	fmt.Fprintf(r.out, "Styles (%s):\n", s.Filter)
	if len(styles) == 0 {
		fmt.Fprintln(r.out, "  (none)")
		return
	}

	for i, st := range styles {
		marker := "  "
		if s.Selected != nil && s.Selected.ID() == st.ID() {
			marker = "> "
		}
		fmt.Fprintf(r.out, "%s[%2d] %-16s %-16s %s\n", marker, i+1, st.ID(), st.Name(), st.Hairstyle.Gender)
	}
}

// FilterCommand changes the gender filter
type FilterCommand struct{}

func (c *FilterCommand) Name() string        { return "filter" }
func (c *FilterCommand) Aliases() []string   { return []string{"f"} }
func (c *FilterCommand) Description() string { return "Filter styles by gender (all, female, male)" }
func (c *FilterCommand) Usage() string       { return "filter <all|female|male>" }

func (c *FilterCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Current filter: %s\n", r.ctrl.State().Filter)
		return nil
	}

	f, err := models.ParseGenderFilter(args[0])
	if err != nil {
		return err
	}

	before := r.ctrl.State().Selected
	s := r.ctrl.SetFilter(f)
	if before != nil && s.Selected == nil {
		fmt.Fprintf(r.out, "Selection cleared: %s is hidden by the %s filter\n", before.Name(), f)
	}
	printStyles(r)
	return nil
}

// resolveStyle maps a list number or id to a style id.
func resolveStyle(r *REPL, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}
	styles := r.ctrl.DisplayedStyles()
	if n < 1 || n > len(styles) {
		return "", fmt.Errorf("no style at position %d (1-%d)", n, len(styles))
	}
	return styles[n-1].ID(), nil
}

// SelectCommand selects a hairstyle
type SelectCommand struct{}

func (c *SelectCommand) Name() string        { return "select" }
func (c *SelectCommand) Aliases() []string   { return []string{"sel", "use"} }
func (c *SelectCommand) Description() string { return "Select a hairstyle by list number or id" }
func (c *SelectCommand) Usage() string       { return "select <number|id>" }

func (c *SelectCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	id, err := resolveStyle(r, args[0])
	if err != nil {
		return err
	}

	style, err := r.ctrl.SelectStyle(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Selected: %s\n", style.Name())
	return nil
}

// CustomCommand uploads a reference image as a custom style
type CustomCommand struct{}

func (c *CustomCommand) Name() string        { return "custom" }
func (c *CustomCommand) Aliases() []string   { return []string{"ref", "upload"} }
func (c *CustomCommand) Description() string { return "Use a reference photo of a hairstyle as the style" }
func (c *CustomCommand) Usage() string       { return "custom <file>" }

func (c *CustomCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	style, err := r.ctrl.UploadCustomStyleFile(args[0])
	if err != nil {
		if !workflow.IsFormatError(err) {
			return err
		}
		return r.sessionError(err)
	}

	fmt.Fprintf(r.out, "Selected: %s (%s)\n", style.Name(), refSize(style.ReferenceImage()))
	r.show(ctx, style.ReferenceImage(), true)
	return nil
}

// PreviewCommand shows a style's preview image
type PreviewCommand struct{}

func (c *PreviewCommand) Name() string        { return "preview" }
func (c *PreviewCommand) Aliases() []string   { return []string{"pv"} }
func (c *PreviewCommand) Description() string { return "Show a style's preview image" }
func (c *PreviewCommand) Usage() string       { return "preview <number|id>" }

func (c *PreviewCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	if r.displayer == nil {
		return fmt.Errorf("this terminal cannot display images")
	}

	id, err := resolveStyle(r, args[0])
	if err != nil {
		return err
	}

	var style models.Style
	if custom := r.ctrl.State().Custom; custom != nil && custom.ID() == id {
		style = *custom
	} else {
		h, err := r.ctrl.Catalog().Get(id)
		if err != nil {
			return err
		}
		style = models.CatalogStyle(h)
	}

	fmt.Fprintf(r.out, "%s\n", style.Name())
	return r.displayer.Thumbnail(ctx, style.Hairstyle.PreviewImage)
}

// TryCommand applies the selected style to the photo
type TryCommand struct{}

func (c *TryCommand) Name() string        { return "try" }
func (c *TryCommand) Aliases() []string   { return []string{"generate", "gen", "go"} }
func (c *TryCommand) Description() string { return "Apply the selected hairstyle to the photo" }
func (c *TryCommand) Usage() string       { return "try" }

func (c *TryCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	return generate(ctx, r, r.ctrl.Generate)
}

// AgainCommand regenerates with the current photo and style
type AgainCommand struct{}

func (c *AgainCommand) Name() string        { return "again" }
func (c *AgainCommand) Aliases() []string   { return []string{"regen", "retry"} }
func (c *AgainCommand) Description() string { return "Generate again with the same photo and style" }
func (c *AgainCommand) Usage() string       { return "again" }

func (c *AgainCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	return generate(ctx, r, r.ctrl.Regenerate)
}

func generate(ctx context.Context, r *REPL, run func(context.Context) (workflow.State, error)) error {
	if s := r.ctrl.State(); s.Selected != nil && s.HasPhoto() {
		fmt.Fprintf(r.out, "Trying %s with %s...\n", s.Selected.Name(), r.ctrl.Model())
	}

	s, err := run(ctx)
	if err != nil {
		if s.Err != nil {
			return s.Err
		}
		return err
	}

	if s.History.Len() == 0 {
		fmt.Fprintln(r.out, "Session was reset; result discarded")
		return nil
	}
	r.show(ctx, s.Result, false)

	latest, _ := s.History.At(1)
	fmt.Fprintf(r.out, "Done: %s (%s, %s)\n", latest.Style.Name(), latest.Model, refSize(latest.GeneratedImage))
	if latest.Cost > 0 {
		fmt.Fprintf(r.out, "Cost: $%.4f\n", latest.Cost)
	}
	return nil
}

// HistoryCommand lists past generations
type HistoryCommand struct{}

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Aliases() []string   { return []string{"h", "hist"} }
func (c *HistoryCommand) Description() string { return "List this session's generations, newest first" }
func (c *HistoryCommand) Usage() string       { return "history" }

func (c *HistoryCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	s := r.ctrl.State()
	items := s.History.Items()

	if len(items) == 0 {
		fmt.Fprintln(r.out, "No history yet")
		return nil
	}

	for i, item := range items {
		marker := "  "
		if item.GeneratedImage == s.Result {
			marker = "> "
		}
		fmt.Fprintf(r.out, "%s[%d] %s  %-16s %s\n",
			marker,
			i+1,
			humanize.Time(item.CreatedAt),
			truncate(item.Style.Name(), 16),
			item.Model)
	}

	return nil
}

// PickCommand shows a past generation again
type PickCommand struct{}

func (c *PickCommand) Name() string        { return "pick" }
func (c *PickCommand) Aliases() []string   { return []string{"back"} }
func (c *PickCommand) Description() string { return "Show a past result and reselect its style" }
func (c *PickCommand) Usage() string       { return "pick <number>" }

func (c *PickCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	pos, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	s, err := r.ctrl.SelectHistoryAt(pos)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Showing [%d] %s\n", pos, s.Selected.Name())
	r.show(ctx, s.Result, false)
	return nil
}

// ClearCommand empties the history
type ClearCommand struct{}

func (c *ClearCommand) Name() string        { return "clear" }
func (c *ClearCommand) Aliases() []string   { return nil }
func (c *ClearCommand) Description() string { return "Clear the history, keeping the current result" }
func (c *ClearCommand) Usage() string       { return "clear" }

func (c *ClearCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.ctrl.ClearHistory()
	fmt.Fprintln(r.out, "History cleared")
	return nil
}

// ResetCommand starts over
type ResetCommand struct{}

func (c *ResetCommand) Name() string        { return "reset" }
func (c *ResetCommand) Aliases() []string   { return []string{"new"} }
func (c *ResetCommand) Description() string { return "Start over: forget the photo, style, result and history" }
func (c *ResetCommand) Usage() string       { return "reset" }

func (c *ResetCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.ctrl.Reset()
	fmt.Fprintln(r.out, "Session reset")
	return nil
}

// ShowCommand displays the photo, result or reference
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"display", "view"} }
func (c *ShowCommand) Description() string { return "Display the result, the photo or the style reference" }
func (c *ShowCommand) Usage() string       { return "show [result|photo|ref]" }

func (c *ShowCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if r.displayer == nil {
		return fmt.Errorf("this terminal cannot display images")
	}

	s := r.ctrl.State()
	what := "result"
	if len(args) > 0 {
		what = strings.ToLower(args[0])
	}

	var ref string
	switch what {
	case "result":
		if !s.HasResult() {
			return errNoResult
		}
		ref = s.Result
	case "photo", "original":
		if !s.HasPhoto() {
			return fmt.Errorf("no photo loaded")
		}
		ref = s.Original
	case "ref", "reference":
		if s.Selected == nil || s.Selected.ReferenceImage() == "" {
			return fmt.Errorf("the selected style has no reference image")
		}
		ref = s.Selected.ReferenceImage()
	default:
		return fmt.Errorf("usage: %s", c.Usage())
	}

	return r.displayer.Show(ctx, ref)
}

// SaveCommand writes the current result to a file
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return []string{"s"} }
func (c *SaveCommand) Description() string { return "Save the current result to a file" }
func (c *SaveCommand) Usage() string       { return "save [filename]" }

func (c *SaveCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	s := r.ctrl.State()
	if !s.HasResult() {
		return errNoResult
	}

	var (
		path string
		err  error
	)
	if len(args) > 0 {
		dest := args[0]
		if err := security.ValidateSavePath(dest, true); err != nil {
			return fmt.Errorf("invalid save path: %w", err)
		}
		if filepath.Ext(dest) == "" {
			if enc, err := image.Decode(s.Result); err == nil {
				dest += "." + enc.Extension()
			}
		}
		path, err = r.saver.Save(ctx, s.Result, dest)
	} else {
		label := "hairstyle"
		if s.Selected != nil {
			label = s.Selected.Name()
		}
		path, err = r.saver.SaveInDir(ctx, s.Result, r.outputDir, label)
	}
	if err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}

	fmt.Fprintf(r.out, "Saved: %s (%s)\n", path, refSize(s.Result))
	return nil
}

// ModelCommand gets or sets the editing model
type ModelCommand struct{}

func (c *ModelCommand) Name() string        { return "model" }
func (c *ModelCommand) Aliases() []string   { return []string{"m"} }
func (c *ModelCommand) Description() string { return "Get or set the image editing model" }
func (c *ModelCommand) Usage() string       { return "model [name]" }

func (c *ModelCommand) Execute(_ context.Context, r *REPL, args []string) error {
	if len(args) == 0 {
		fmt.Fprintf(r.out, "Current model: %s\n", r.ctrl.Model())
		fmt.Fprintln(r.out, "\nAvailable models:")
		for _, name := range r.registry.List() {
			cap, _ := r.registry.Get(name)
			fmt.Fprintf(r.out, "  - %s (%s) %s\n", name, cap.Provider, cap.Description)
		}
		return nil
	}

	modelName := args[0]
	if _, ok := r.registry.Get(modelName); !ok {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	r.ctrl.SetModel(modelName)
	fmt.Fprintf(r.out, "Model set to: %s\n", modelName)
	return nil
}

// CostCommand summarizes the session's spend
type CostCommand struct{}

func (c *CostCommand) Name() string        { return "cost" }
func (c *CostCommand) Aliases() []string   { return []string{"$"} }
func (c *CostCommand) Description() string { return "Show the estimated cost of this session" }
func (c *CostCommand) Usage() string       { return "cost" }

func (c *CostCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	s := r.ctrl.State()
	if s.History.Len() == 0 {
		fmt.Fprintln(r.out, "No costs recorded yet.")
	} else {
		fmt.Fprintf(r.out, "Session cost: $%.4f (%d image(s))\n", s.History.TotalCost(), s.History.Len())
	}

	model := r.ctrl.Model()
	if cap, ok := r.registry.Get(model); ok {
		if info := cost.NewCalculator().Calculate(cap.Provider, model, "", 1); info != nil && info.Total > 0 {
			fmt.Fprintf(r.out, "Next try with %s: about $%.4f\n", model, info.Total)
		}
	}
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range allCommands() {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-24s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "  %24sUsage: %s\n", "", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
