package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nafisa/promptpix/internal/display"
	"github.com/nafisa/promptpix/internal/export"
	"github.com/nafisa/promptpix/internal/generate"
	"github.com/nafisa/promptpix/internal/history"
	"github.com/nafisa/promptpix/internal/keys"
	"github.com/nafisa/promptpix/internal/provider"
	"github.com/nafisa/promptpix/internal/provider/gemini"
	"github.com/nafisa/promptpix/internal/repl"
	"github.com/nafisa/promptpix/internal/storage"
	"github.com/nafisa/promptpix/pkg/models"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagAspect  string
	flagOutput  string
	flagModel   string
	flagBaseURL string
	flagAPIKey  string
	flagTimeout int
	flagShow    bool
	flagVerbose bool
)

type App struct {
	Out          io.Writer
	Err          io.Writer
	GetEnv       func(string) string
	NewProvider  func(cfg *provider.Config) (provider.Provider, error)
	NewStorage   func() (storage.Storage, error)
	NewDisplayer func(out io.Writer) *display.Displayer
	NewExporter  func() *export.Exporter
}

func DefaultApp() *App {
	return &App{
		Out:    os.Stdout,
		Err:    os.Stderr,
		GetEnv: os.Getenv,
		NewProvider: func(cfg *provider.Config) (provider.Provider, error) {
			return gemini.New(cfg)
		},
		NewStorage: func() (storage.Storage, error) {
			return storage.NewSQLite()
		},
		NewDisplayer: display.New,
		NewExporter:  export.NewExporter,
	}
}

func main() {
	// A .env in the working directory is optional.
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := DefaultApp()
	rootCmd := newRootCmd(app)
	return rootCmd.Execute()
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promptpix [prompt]",
		Short: "Generate images from natural-language prompts",
		Long: `promptpix turns a natural-language prompt into an image using the
Gemini image generation API and keeps a browsable history of past
generations.

Examples:
  promptpix "a sunset over mountains"
  promptpix -a 16:9 -o sunset.png "panoramic cityscape at dusk"
  promptpix repl`,
		Args:    cobra.ExactArgs(1),
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, app)
		},
	}

	cmd.Flags().StringVarP(&flagAspect, "aspect", "a", "1:1", "aspect ratio (1:1, 16:9, 9:16, 4:3)")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output filename")
	cmd.Flags().StringVarP(&flagModel, "model", "m", "", "model to use")
	cmd.Flags().StringVar(&flagBaseURL, "base-url", "", "API base URL override")
	cmd.Flags().StringVar(&flagAPIKey, "api-key", "", "API key (defaults to stored key or GEMINI_API_KEY)")
	cmd.Flags().IntVar(&flagTimeout, "timeout", 0, "request timeout in seconds")
	cmd.Flags().BoolVarP(&flagShow, "show", "S", false, "display the image in the terminal (kitty protocol)")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log API requests and responses")

	cmd.AddCommand(newReplCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newKeysCmd(app))

	return cmd
}

func providerConfig(apiKey string) *provider.Config {
	return &provider.Config{
		APIKey:     apiKey,
		BaseURL:    flagBaseURL,
		Model:      flagModel,
		TimeoutSec: flagTimeout,
		Verbose:    flagVerbose,
	}
}

// openHistory opens the blob store and loads persisted history from it.
// The caller owns the returned storage and must close it.
func openHistory(app *App) (storage.Storage, *history.Store, error) {
	st, err := app.NewStorage()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open history store: %w", err)
	}

	hist := history.NewStore(st)
	if err := hist.Load(); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to load history: %w", err)
	}
	return st, hist, nil
}

func runGenerate(_ *cobra.Command, args []string, app *App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prompt := args[0]

	apiKey, _, err := keys.GetAPIKey(flagAPIKey, "gemini", "GEMINI_API_KEY")
	if err != nil {
		return err
	}

	ratio := models.AspectRatio(flagAspect)
	if !ratio.IsValid() {
		return fmt.Errorf("invalid aspect ratio %q: must be one of %v", flagAspect, models.ValidAspectRatios())
	}

	prov, err := app.NewProvider(providerConfig(apiKey))
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	st, hist, err := openHistory(app)
	if err != nil {
		return err
	}
	defer st.Close()

	controller := generate.NewController(prov, hist)

	fmt.Fprintf(app.Out, "Generating (%s)...\n", ratio)

	img, err := controller.Submit(ctx, prompt, ratio)
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	if flagShow {
		displayer := app.NewDisplayer(app.Out)
		if err := displayer.Display(img); err != nil {
			fmt.Fprintf(app.Err, "Warning: failed to display: %v\n", err)
		}
	}

	path, err := app.NewExporter().Export(img, flagOutput)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.Out, "Saved: %s (%s)\n", path, humanize.Bytes(uint64(len(img.ImageData))))
	fmt.Fprintln(app.Out, "Done!")
	return nil
}

func newReplCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start interactive mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(app)
		},
	}
}

func runRepl(app *App) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	apiKey, source, err := keys.GetAPIKey(flagAPIKey, "gemini", "GEMINI_API_KEY")
	if err != nil {
		return err
	}

	prov, err := app.NewProvider(providerConfig(apiKey))
	if err != nil {
		return fmt.Errorf("failed to create provider: %w", err)
	}

	st, hist, err := openHistory(app)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Fprintf(app.Out, "Using API key from %s\n", source)

	r := repl.New(&repl.Config{
		In:         os.Stdin,
		Out:        app.Out,
		Err:        app.Err,
		Controller: generate.NewController(prov, hist),
		History:    hist,
		Displayer:  app.NewDisplayer(app.Out),
		Exporter:   app.NewExporter(),
	})
	return r.Run(ctx)
}

func newHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List past generations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(app)
		},
	}
}

func runHistory(app *App) error {
	st, hist, err := openHistory(app)
	if err != nil {
		return err
	}
	defer st.Close()

	all := hist.All()
	if len(all) == 0 {
		fmt.Fprintln(app.Out, "No generations yet.")
		return nil
	}

	for i, img := range all {
		fmt.Fprintf(app.Out, "%2d. %-50s %s  %s  %s\n",
			i+1, img.Prompt, img.AspectRatio,
			humanize.Bytes(uint64(len(img.ImageData))), humanize.Time(img.CreatedAt))
	}
	return nil
}
