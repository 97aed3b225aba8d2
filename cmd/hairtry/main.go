package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/manash/hairtry/internal/camera"
	"github.com/manash/hairtry/internal/catalog"
	"github.com/manash/hairtry/internal/config"
	"github.com/manash/hairtry/internal/display"
	"github.com/manash/hairtry/internal/image"
	"github.com/manash/hairtry/internal/keys"
	"github.com/manash/hairtry/internal/logging"
	"github.com/manash/hairtry/internal/provider"
	"github.com/manash/hairtry/internal/provider/gemini"
	"github.com/manash/hairtry/internal/provider/openai"
	"github.com/manash/hairtry/internal/repl"
	"github.com/manash/hairtry/internal/security"
	"github.com/manash/hairtry/internal/workflow"
	"github.com/manash/hairtry/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagModel    string
	flagAPIKey   string
	flagLogLevel string
	flagEnvFile  string
)

type App struct {
	In          io.Reader
	Out         io.Writer
	Err         io.Writer
	Registry    *models.ModelRegistry
	GetEnv      func(string) string
	NewProvider func(ctx context.Context, providerType models.ProviderType, cfg *provider.Config, registry *models.ModelRegistry) (provider.Provider, error)
	NewCamera   func(cfg *config.Config, log zerolog.Logger) camera.Device
	NewSaver    func() *image.Saver
	NewKeyStore func(getenv func(string) string) (*keys.Store, error)
	// CanDisplay reports whether images can be drawn inline on out.
	CanDisplay func(out io.Writer) bool
}

func DefaultApp() *App {
	return &App{
		In:          os.Stdin,
		Out:         os.Stdout,
		Err:         os.Stderr,
		Registry:    models.DefaultRegistry(),
		GetEnv:      os.Getenv,
		NewProvider: newProvider,
		NewCamera: func(cfg *config.Config, log zerolog.Logger) camera.Device {
			return camera.NewFFmpeg(cfg.FFmpegPath, cfg.CameraDevice, log)
		},
		NewSaver:    image.NewSaver,
		NewKeyStore: keys.NewStore,
		CanDisplay:  display.Supported,
	}
}

func newProvider(ctx context.Context, providerType models.ProviderType, cfg *provider.Config, registry *models.ModelRegistry) (provider.Provider, error) {
	switch providerType {
	case models.ProviderGemini:
		return gemini.New(ctx, cfg, registry)
	case models.ProviderOpenAI:
		return openai.New(cfg, registry)
	}
	return nil, fmt.Errorf("%w: %s", provider.ErrProviderNotFound, providerType)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hairtry",
		Short: "Try hairstyles on a photo using AI image editing",
		Long: `hairtry renders you with a new hairstyle using an AI image-editing service.

Start without arguments for the interactive session: load a photo or take
one with the camera, pick a style from the catalog or upload a reference
image, then try it on.

Supported providers:
  - Google Gemini (gemini-2.5-flash-image, gemini-3-pro-image-preview)
  - OpenAI (gpt-image-1)

Examples:
  hairtry
  hairtry try --photo me.jpg --style pixie-cut -o pixie.png
  hairtry try --photo me.jpg --ref celebrity.jpg
  hairtry lookbook --photo me.jpg summer.txt
  hairtry serve --addr 127.0.0.1:8080`,
		Args:          cobra.NoArgs,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.Context(), app)
		},
	}
	cmd.SetIn(app.In)
	cmd.SetOut(app.Out)
	cmd.SetErr(app.Err)

	cmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "model to use (defaults to HAIRTRY_MODEL or the provider default)")
	cmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "API key for the selected provider")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "file of KEY=VALUE settings to load")

	cmd.AddCommand(
		newTryCmd(app),
		newStylesCmd(app),
		newLookbookCmd(app),
		newServeCmd(app),
		newKeysCmd(app),
	)

	return cmd
}

// deps is what every command needs once flags and environment are read.
type deps struct {
	cfg     *config.Config
	log     zerolog.Logger
	catalog *catalog.Catalog
	store   *keys.Store
}

func (app *App) setup() (*deps, error) {
	if flagEnvFile != "" {
		if err := config.LoadDotEnv(flagEnvFile); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(app.GetEnv)
	if err != nil {
		return nil, err
	}

	if flagModel != "" {
		caps, ok := app.Registry.Get(flagModel)
		if !ok {
			return nil, fmt.Errorf("unknown model %q: available models: %v", flagModel, app.Registry.List())
		}
		cfg.Model = flagModel
		cfg.Provider = caps.Provider
	}
	if flagLogLevel != "" {
		if !logging.ValidLevel(flagLogLevel) {
			return nil, fmt.Errorf("%w: log level %q", config.ErrInvalid, flagLogLevel)
		}
		cfg.LogLevel = flagLogLevel
	}

	log := logging.New(app.Err, cfg.LogLevel, cfg.IsDevelopment())

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		if cat, err = catalog.Load(cfg.CatalogPath); err != nil {
			return nil, err
		}
	}
	if cat, err = cat.WithPreviewBase(cfg.PreviewBaseURL); err != nil {
		return nil, err
	}

	store, err := app.NewKeyStore(app.GetEnv)
	if err != nil {
		log.Warn().Err(err).Msg("key store unavailable")
		store = nil
	}

	return &deps{cfg: cfg, log: log, catalog: cat, store: store}, nil
}

// newGenerator registers every provider with a resolvable key. Only the
// configured provider is required; the others enable switching models.
func (app *App) newGenerator(ctx context.Context, rt *deps) (*provider.Factory, error) {
	factory := provider.NewFactory(app.Registry)

	for _, p := range models.ValidProviders() {
		explicit := ""
		if p == rt.cfg.Provider {
			explicit = flagAPIKey
		}

		key, source, err := keys.Resolve(explicit, p, rt.store, app.GetEnv)
		if err != nil {
			if p == rt.cfg.Provider {
				return nil, err
			}
			continue
		}

		pcfg := &provider.Config{
			APIKey:     key,
			TimeoutSec: rt.cfg.TimeoutSec,
			Verbose:    rt.log.GetLevel() <= zerolog.DebugLevel,
			Logger:     rt.log,
		}
		prov, err := app.NewProvider(ctx, p, pcfg, app.Registry)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s provider: %w", p, err)
		}
		factory.Configure(p, pcfg)
		factory.Register(prov)
		rt.log.Debug().Str("provider", string(p)).Str("key_source", source).Msg("provider configured")
	}

	return factory, nil
}

func (app *App) newController(ctx context.Context, rt *deps) (*workflow.Controller, error) {
	gen, err := app.newGenerator(ctx, rt)
	if err != nil {
		return nil, err
	}
	return workflow.New(gen, rt.catalog, rt.cfg.EffectiveModel(),
		workflow.WithHistoryLimit(rt.cfg.HistoryLimit),
		workflow.WithLogger(rt.log),
	), nil
}

// newDisplayer returns nil when the terminal cannot draw images.
func (app *App) newDisplayer(rt *deps) *display.Displayer {
	if app.CanDisplay == nil || !app.CanDisplay(app.Out) {
		return nil
	}
	var opts []display.Option
	if rt.cfg.PreviewBaseURL != "" {
		v, err := security.ForBaseURL(rt.cfg.PreviewBaseURL)
		if err != nil {
			rt.log.Warn().Err(err).Msg("ignoring preview base URL")
		} else {
			opts = append(opts, display.WithURLValidator(v))
		}
	}
	return display.New(app.Out, opts...)
}

func runREPL(ctx context.Context, app *App) error {
	rt, err := app.setup()
	if err != nil {
		return err
	}
	ctrl, err := app.newController(ctx, rt)
	if err != nil {
		return err
	}

	r := repl.New(&repl.Config{
		In:         app.In,
		Out:        app.Out,
		Err:        app.Err,
		Controller: ctrl,
		Registry:   app.Registry,
		Camera:     app.NewCamera(rt.cfg, rt.log),
		Displayer:  app.newDisplayer(rt),
		Saver:      app.NewSaver(),
		OutputDir:  rt.cfg.OutputDir,
	})

	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		fmt.Fprintln(app.Out)
		return nil
	}
}
