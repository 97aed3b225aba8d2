package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/manash/hairtry/internal/keys"
	"github.com/manash/hairtry/pkg/models"
)

var flagReveal bool

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage stored API keys",
		Long: `Manage the API keys hairtry stores in your config directory.

Keys are resolved in this order: --api-key, the stored key, then the
environment (GEMINI_API_KEY or GOOGLE_API_KEY, OPENAI_API_KEY).`,
	}

	set := &cobra.Command{
		Use:   "set <provider> [key]",
		Short: "Store a key; reads it from stdin when omitted",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysSet(app, args)
		},
	}

	get := &cobra.Command{
		Use:   "get <provider>",
		Short: "Show the stored key, masked",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysGet(app, args[0])
		},
	}
	get.Flags().BoolVar(&flagReveal, "reveal", false, "print the key unmasked")

	del := &cobra.Command{
		Use:     "delete <provider>",
		Aliases: []string{"rm"},
		Short:   "Remove a stored key",
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKeysDelete(app, args[0])
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List providers with a stored or environment key",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runKeysList(app)
		},
	}

	cmd.AddCommand(set, get, del, list)
	return cmd
}

func parseProvider(s string) (models.ProviderType, error) {
	p := models.ProviderType(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w %q: must be one of %v", keys.ErrUnknownProvider, s, models.ValidProviders())
	}
	return p, nil
}

func runKeysSet(app *App, args []string) error {
	p, err := parseProvider(args[0])
	if err != nil {
		return err
	}
	store, err := app.NewKeyStore(app.GetEnv)
	if err != nil {
		return err
	}

	var key string
	if len(args) == 2 {
		key = args[1]
	} else {
		if key, err = readKey(app.In, app.Err, p); err != nil {
			return err
		}
	}

	if err := store.Set(p, key); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Stored %s key in %s\n", p, store.Path())
	return nil
}

// readKey prompts without echo on a terminal and reads one line otherwise.
func readKey(in io.Reader, prompt io.Writer, p models.ProviderType) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(prompt, "Enter %s API key: ", p)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runKeysGet(app *App, name string) error {
	p, err := parseProvider(name)
	if err != nil {
		return err
	}
	store, err := app.NewKeyStore(app.GetEnv)
	if err != nil {
		return err
	}

	key, err := store.Get(p)
	if err != nil {
		return err
	}
	if key == "" {
		return fmt.Errorf("%w for %s", keys.ErrKeyNotFound, p)
	}

	if flagReveal {
		fmt.Fprintln(app.Out, key)
	} else {
		fmt.Fprintln(app.Out, keys.MaskKey(key))
	}
	return nil
}

func runKeysDelete(app *App, name string) error {
	p, err := parseProvider(name)
	if err != nil {
		return err
	}
	store, err := app.NewKeyStore(app.GetEnv)
	if err != nil {
		return err
	}

	if err := store.Delete(p); err != nil {
		return err
	}
	fmt.Fprintf(app.Out, "Deleted %s key\n", p)
	return nil
}

func runKeysList(app *App) error {
	rt, err := app.setup()
	if err != nil {
		return err
	}
	if rt.store == nil {
		return errors.New("key store unavailable")
	}
	stored, err := rt.store.List()
	if err != nil {
		return err
	}

	found := false
	for _, p := range models.ValidProviders() {
		var sources []string
		if slices.Contains(stored, string(p)) {
			sources = append(sources, "stored")
		}
		if rt.cfg.APIKey(p) != "" {
			sources = append(sources, "environment")
		}
		if len(sources) == 0 {
			continue
		}
		found = true
		fmt.Fprintf(app.Out, "%-8s %s\n", p, strings.Join(sources, ", "))
	}

	if !found {
		fmt.Fprintln(app.Out, "No keys configured. Run 'hairtry keys set <provider>'.")
	}
	return nil
}
