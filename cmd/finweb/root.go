package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hyperifyio/finweb/internal/app"
)

// options holds flag values. Only flags the user changed are applied on top
// of the layered configuration.
type options struct {
	configPath string
	envFiles   []string
	verbose    bool
	outDir     string

	query         string
	language      string
	pageSize      int
	feedURL       string
	savedSearch   string
	fetchTimeout  time.Duration
	maxConcurrent int
	userAgent     string

	forward    bool
	backend    backendValue
	model      string
	llmBaseURL string
	promptFile string
	pdf        bool
}

func newOptions() *options {
	return &options{backend: backendValue(app.BackendOllama)}
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "finweb",
		Short:         "Search financial news, scrape every article and forward the text to a model",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to a YAML, JSON or TOML config file")
	pf.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading the environment")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose console output")
	pf.StringVar(&opts.outDir, "out", "", "Directory for the JSON artifacts")

	bindPipelineFlags(root.Flags(), opts)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the search, scrape and forward pipeline (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts)
		},
	}
	bindPipelineFlags(runCmd.Flags(), opts)

	scrapeCmd := &cobra.Command{
		Use:   "scrape [url...]",
		Short: "Fetch the given URLs (or one per stdin line) and print their visible text as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, opts, args)
		},
	}
	sf := scrapeCmd.Flags()
	sf.DurationVar(&opts.fetchTimeout, "timeout", 0, "Per-page fetch timeout")
	sf.IntVar(&opts.maxConcurrent, "max-concurrent", 0, "Maximum parallel fetches (0 = unbounded)")
	sf.StringVar(&opts.userAgent, "user-agent", "", "User-Agent header for page fetches")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "finweb %s (commit %s, built %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		},
	}

	root.AddCommand(runCmd, scrapeCmd, versionCmd)
	return root
}

func bindPipelineFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVarP(&opts.query, "query", "q", "", "Search term")
	fs.StringVar(&opts.language, "lang", "", "Article language (ISO-639-1)")
	fs.IntVar(&opts.pageSize, "page-size", 0, "Articles per search page (1-100)")
	fs.StringVar(&opts.feedURL, "feed", "", "Read article links from an RSS/Atom feed instead of the news API")
	fs.StringVar(&opts.savedSearch, "saved", "", "Replay a saved news API response instead of searching")
	fs.DurationVar(&opts.fetchTimeout, "timeout", 0, "Per-page fetch timeout")
	fs.IntVar(&opts.maxConcurrent, "max-concurrent", 0, "Maximum parallel fetches (0 = unbounded)")
	fs.StringVar(&opts.userAgent, "user-agent", "", "User-Agent header for page fetches")
	fs.BoolVar(&opts.forward, "forward", false, "Forward every article to the inference backend")
	fs.Var(&opts.backend, "backend", "Inference backend: ollama or openai")
	fs.StringVar(&opts.model, "model", "", "Model name")
	fs.StringVar(&opts.llmBaseURL, "llm-base", "", "Inference backend base URL")
	fs.StringVar(&opts.promptFile, "prompt-file", "", "File holding the prompt template ({{.Article}} marks the text)")
	fs.BoolVar(&opts.pdf, "pdf", false, "Also write the articles as a PDF")
}

// loadConfig layers defaults, dotenv files, the config file, the environment
// and finally the flags that were set explicitly.
func loadConfig(cmd *cobra.Command, opts *options) (app.Config, error) {
	cfg := app.DefaultConfig()
	if err := app.LoadEnvFiles(opts.envFiles...); err != nil {
		return cfg, fmt.Errorf("load env file: %w", err)
	}
	if opts.configPath != "" {
		fc, err := app.LoadConfigFile(opts.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return cfg, err
		}
	}
	app.ApplyEnvOverrides(&cfg)

	changed := cmd.Flags().Changed
	if changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if changed("out") {
		cfg.OutDir = opts.outDir
	}
	if changed("query") {
		cfg.Query = opts.query
	}
	if changed("lang") {
		cfg.Language = opts.language
	}
	if changed("page-size") {
		cfg.PageSize = opts.pageSize
	}
	if changed("feed") {
		cfg.FeedURL = opts.feedURL
	}
	if changed("saved") {
		cfg.SavedSearch = opts.savedSearch
	}
	if changed("timeout") {
		cfg.FetchTimeout = opts.fetchTimeout
	}
	if changed("max-concurrent") {
		cfg.FetchMaxConcurrent = opts.maxConcurrent
	}
	if changed("user-agent") {
		cfg.UserAgent = opts.userAgent
	}
	if changed("forward") {
		cfg.Forward = opts.forward
	}
	if changed("backend") {
		cfg.LLMBackend = opts.backend.String()
	}
	if changed("model") {
		cfg.LLMModel = opts.model
	}
	if changed("llm-base") {
		cfg.LLMBaseURL = opts.llmBaseURL
	}
	if changed("prompt-file") {
		b, err := os.ReadFile(opts.promptFile)
		if err != nil {
			return cfg, fmt.Errorf("read prompt file: %w", err)
		}
		cfg.PromptTemplate = string(b)
	}
	if changed("pdf") {
		cfg.EnablePDF = opts.pdf
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if err := app.ValidateConfig(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

func runScrape(cmd *cobra.Command, opts *options, args []string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	urls := args
	if len(urls) == 0 {
		urls, err = readLines(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read urls: %w", err)
		}
	}
	log.Debug().Int("urls", len(urls)).Msg("scraping")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	// Only the fetch settings matter here; forwarding stays off.
	cfg.Forward = false
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	texts := a.Scrape(ctx, urls)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(texts)
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}
