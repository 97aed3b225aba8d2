package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manash/hairtry/internal/camera"
	"github.com/manash/hairtry/internal/display"
	"github.com/manash/hairtry/internal/image"
	"github.com/manash/hairtry/internal/workflow"
	"github.com/manash/hairtry/pkg/models"
)

type REPL struct {
	in        io.Reader
	out       io.Writer
	err       io.Writer
	ctrl      *workflow.Controller
	registry  *models.ModelRegistry
	camera    camera.Device
	displayer *display.Displayer
	saver     *image.Saver
	outputDir string
	commands  map[string]Command
	running   bool
}

// Config wires a REPL. Camera and Displayer are optional: without a
// camera the camera command fails, without a displayer nothing is drawn.
type Config struct {
	In         io.Reader
	Out        io.Writer
	Err        io.Writer
	Controller *workflow.Controller
	Registry   *models.ModelRegistry
	Camera     camera.Device
	Displayer  *display.Displayer
	Saver      *image.Saver
	OutputDir  string
}

func New(cfg *Config) *REPL {
	saver := cfg.Saver
	if saver == nil {
		saver = image.NewSaver()
	}
	r := &REPL{
		in:        cfg.In,
		out:       cfg.Out,
		err:       cfg.Err,
		ctrl:      cfg.Controller,
		registry:  cfg.Registry,
		camera:    cfg.Camera,
		displayer: cfg.Displayer,
		saver:     saver,
		outputDir: cfg.OutputDir,
		commands:  make(map[string]Command),
	}
	r.registerCommands()
	return r
}

func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	scanner := bufio.NewScanner(r.in)
	for r.running {
		r.printPrompt()
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if err := r.execute(ctx, line); err != nil {
			fmt.Fprintf(r.err, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func (r *REPL) execute(ctx context.Context, line string) error {
	parts := parseCommand(line)
	if len(parts) == 0 {
		return nil
	}

	cmdName := strings.ToLower(parts[0])
	args := parts[1:]

	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmdName)
	}

	return cmd.Execute(ctx, r, args)
}

func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "hairtry interactive mode")
	fmt.Fprintln(r.out, "Load a photo with 'photo <file>', pick a style with 'styles' and 'select', then 'try'.")
	fmt.Fprintln(r.out, "Type 'help' for available commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

func (r *REPL) printPrompt() {
	model := r.ctrl.Model()
	s := r.ctrl.State()
	if s.Selected != nil {
		fmt.Fprintf(r.out, "hairtry [%s] (%s)> ", model, s.Selected.Name())
	} else {
		fmt.Fprintf(r.out, "hairtry [%s]> ", model)
	}
}

// show draws ref when a displayer is configured. Display problems are
// reported as warnings and never fail the command.
func (r *REPL) show(ctx context.Context, ref string, thumbnail bool) {
	if r.displayer == nil || ref == "" {
		return
	}
	var err error
	if thumbnail {
		err = r.displayer.Thumbnail(ctx, ref)
	} else {
		err = r.displayer.Show(ctx, ref)
	}
	if err != nil {
		fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
	}
}

func parseCommand(line string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := rune(0)

	for _, ch := range line {
		switch {
		case ch == '"' || ch == '\'':
			if inQuotes && ch == quoteChar {
				inQuotes = false
				quoteChar = 0
			} else if !inQuotes {
				inQuotes = true
				quoteChar = ch
			} else {
				current.WriteRune(ch)
			}
		case ch == ' ' && !inQuotes:
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(ch)
		}
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}
