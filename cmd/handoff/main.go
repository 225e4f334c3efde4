package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yourorg/handoff/internal/config"
	"github.com/yourorg/handoff/internal/directive"
	"github.com/yourorg/handoff/internal/generator"
	"github.com/yourorg/handoff/internal/logging"
	"github.com/yourorg/handoff/internal/render"
	"github.com/yourorg/handoff/internal/store"
	"github.com/yourorg/handoff/pkg/types"
)

const defaultConfigContent = `llm:
  base_url: "https://api.openai.com/v1"
  model: "gpt-4o"
  # api_key takes precedence over the variable named by api_key_env.
  # Set the key to DEBUG to skip generation entirely.
  api_key: ""
  api_key_env: "OPENAI_API_KEY"
  # user works with every model; some reasoning models reject system.
  instruction_role: "user"
  lang: "go"
  language: "en"
  # Seconds per completion request; 0 keeps the transport defaults.
  timeout_seconds: 0

cache:
  # file, sqlite or redis. Relative paths are resolved from the module root.
  backend: "file"
  dir: ".handoff/gpt_responses"
  sqlite_path: ".handoff/handoff.db"
  redis_addr: "127.0.0.1:6379"
  redis_password: ""
  redis_db: 0
  redis_prefix: "handoff:"
  content_only_keys: false

log:
  level: "info"
  format: "text"
`

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globalFlags struct {
	cfgPath string
	verbose bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	opts := &generateOptions{}

	root := &cobra.Command{
		Use:   "handoff",
		Short: "Generate Go code for a source file with a language model",
		Long: "handoff sends a Go source file to an OpenAI-compatible chat completions API and writes the\n" +
			"Go code in the reply next to it. Responses are cached by content, so repeated runs are offline.\n\n" +
			"Add `//go:generate handoff` to a file; without a subcommand handoff behaves like `handoff generate`.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, g, opts)
		},
	}

	root.PersistentFlags().StringVar(&g.cfgPath, "config", "", "config file path (default ~/.handoff/config.yaml)")
	root.PersistentFlags().BoolVar(&g.verbose, "verbose", false, "enable debug logging")
	addGenerateFlags(root.Flags(), opts)

	root.AddCommand(newInitCmd())
	root.AddCommand(newGenerateCmd(g))
	root.AddCommand(newCacheCmd(g))
	root.AddCommand(newKeyCmd(g))

	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create ~/.handoff/config.yaml with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			baseDir := filepath.Join(home, ".handoff")
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return err
			}

			cfgFile := filepath.Join(baseDir, "config.yaml")
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "set OPENAI_API_KEY or llm.api_key in", cfgFile)
			return nil
		},
	}
}

type generateOptions struct {
	source              string
	out                 string
	model               string
	seed                uint64
	maxCompletionTokens uint64
	prompt              string
	dryRun              bool
}

func addGenerateFlags(fs *pflag.FlagSet, o *generateOptions) {
	fs.StringVar(&o.source, "source", "", "Go source file (default $GOFILE)")
	fs.StringVar(&o.out, "out", "", "output file (default <source>_handoff.go)")
	fs.StringVar(&o.model, "model", "", "model, overriding directives and config")
	fs.Uint64Var(&o.seed, "seed", 0, "seed, overriding directives and the content-derived default")
	fs.Uint64Var(&o.maxCompletionTokens, "max-completion-tokens", 0, "upper bound on generated tokens")
	fs.StringVar(&o.prompt, "prompt", "", "additional instructions, overriding directives")
	fs.BoolVar(&o.dryRun, "dry-run", false, "show the request instead of sending it")
}

// overrides returns the options given explicitly on the command line.
func (o *generateOptions) overrides(fs *pflag.FlagSet) (directive.Options, error) {
	var out directive.Options
	out.Model = o.model
	out.Prompt = o.prompt
	if fs.Changed("seed") {
		if o.seed > directive.MaxSeed {
			return out, fmt.Errorf("--seed %d exceeds %d", o.seed, directive.MaxSeed)
		}
		seed := o.seed
		out.Seed = &seed
	}
	if fs.Changed("max-completion-tokens") {
		n := o.maxCompletionTokens
		out.MaxCompletionTokens = &n
	}
	return out, nil
}

func (o *generateOptions) sourcePath() string {
	if o.source != "" {
		return o.source
	}
	return os.Getenv("GOFILE")
}

func newGenerateCmd(g *globalFlags) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate code for a source file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, g, opts)
		},
	}
	addGenerateFlags(cmd.Flags(), opts)
	return cmd
}

func runGenerate(cmd *cobra.Command, g *globalFlags, opts *generateOptions) error {
	cfg, logger, err := setup(cmd, g)
	if err != nil {
		return err
	}
	overrides, err := opts.overrides(cmd.Flags())
	if err != nil {
		return err
	}
	cache, err := store.Open(cfg.Cache)
	if err != nil {
		return err
	}
	defer cache.Close()
	gen, err := newGenerator(cfg, cache, logger)
	if err != nil {
		return err
	}

	source := opts.sourcePath()
	if opts.dryRun {
		return dryRun(cmd, gen, source, overrides)
	}

	res, err := gen.Run(cmd.Context(), source, overrides)
	if err != nil {
		return err
	}
	switch res.Outcome {
	case generator.OutcomeUnavailable, generator.OutcomeDisabled:
		logger.Info("nothing generated", "source", source, "outcome", res.Outcome.String())
		return nil
	}

	pkg := res.Source.Package
	if pkg == "" {
		pkg = os.Getenv("GOPACKAGE")
	}
	out := opts.out
	if out == "" {
		out = render.OutputPath(source)
	}
	data, valid := render.GoFile(pkg, res.Payload)
	if err := render.Write(out, data); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	if !valid {
		logger.Warn("response is not valid Go; the written file fails the build",
			"out", out, "cache", res.Location)
		return nil
	}
	logger.Info("generated", "source", source, "out", out, "outcome", res.Outcome.String(), "cache", res.Location)
	return nil
}

func dryRun(cmd *cobra.Command, gen *generator.Generator, source string, overrides directive.Options) error {
	src, err := directive.LoadSource(source)
	if err != nil {
		return err
	}
	effective := src.Options.Merge(overrides)
	plan, err := gen.Plan(cmd.Context(), src.Content, effective)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "source:", source)
	fmt.Fprintln(w, "options:", effective.String())
	fmt.Fprintln(w, "model:", plan.Request.Model)
	fmt.Fprintln(w, "seed:", generator.BoundSeed(plan.Request.Seed))
	fmt.Fprintln(w, "cache:", plan.Location)
	fmt.Fprintln(w, "cached:", plan.Cached)
	fmt.Fprintln(w, "estimated prompt tokens:", generator.EstimatePromptTokens(plan.Request.Messages))
	for _, m := range plan.Request.Messages {
		fmt.Fprintf(w, "\n--- %s ---\n%s\n", m.Role, m.Content)
	}
	return nil
}

func newCacheCmd(g *globalFlags) *cobra.Command {
	var source string
	cmd := &cobra.Command{Use: "cache", Short: "Inspect cached responses"}
	cmd.PersistentFlags().StringVar(&source, "source", "", "Go source file (default $GOFILE)")

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print where the response for a source file is cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSourceEntry(cmd, g, source, func(cache store.Cache, material string) error {
				loc, err := cache.Locate(material)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), loc)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the cached response for a source file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSourceEntry(cmd, g, source, func(cache store.Cache, material string) error {
				body, ok, err := cache.Load(cmd.Context(), material)
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("no cached response")
				}
				fmt.Fprint(cmd.OutOrStdout(), body)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd, g)
			if err != nil {
				return err
			}
			cache, err := store.Open(cfg.Cache)
			if err != nil {
				return err
			}
			defer cache.Close()
			lister, ok := cache.(store.Lister)
			if !ok {
				return fmt.Errorf("cache backend %s cannot list entries", cfg.Cache.Backend)
			}
			entries, err := lister.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", e.UpdatedAt.Format(time.RFC3339), e.Size, e.Location)
			}
			return nil
		},
	})
	return cmd
}

func newKeyCmd(g *globalFlags) *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Print the cache key derived for a source file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSourceEntry(cmd, g, source, func(cache store.Cache, material string) error {
				key := store.Key(material)
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", key, store.EntryName(key))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Go source file (default $GOFILE)")
	return cmd
}

// withSourceEntry opens the cache and resolves the key material for source.
func withSourceEntry(cmd *cobra.Command, g *globalFlags, source string, fn func(store.Cache, string) error) error {
	if source == "" {
		source = os.Getenv("GOFILE")
	}
	cfg, logger, err := setup(cmd, g)
	if err != nil {
		return err
	}
	src, err := directive.LoadSource(source)
	if err != nil {
		return err
	}
	cache, err := store.Open(cfg.Cache)
	if err != nil {
		return err
	}
	defer cache.Close()
	gen, err := newGenerator(cfg, cache, logger)
	if err != nil {
		return err
	}
	return fn(cache, gen.KeyMaterial(src.Content, src.Options))
}

// setup loads .env files and config and builds the run logger.
func setup(cmd *cobra.Command, g *globalFlags) (*config.Config, *slog.Logger, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	loadDotEnv(wd)

	cfg, err := config.Load(g.cfgPath)
	if err != nil {
		return nil, nil, err
	}
	cfg.ResolvePaths(wd)
	if g.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()).With("run", uuid.NewString())
	return cfg, logger, nil
}

// loadDotEnv reads .env from the working directory and the module root.
// Variables already set in the environment win.
func loadDotEnv(wd string) {
	var files []string
	seen := map[string]bool{}
	for _, dir := range []string{wd, config.FindModuleRoot(wd)} {
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		p := filepath.Join(dir, ".env")
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	if len(files) > 0 {
		_ = godotenv.Load(files...)
	}
}

func newGenerator(cfg *config.Config, cache store.Cache, logger *slog.Logger) (*generator.Generator, error) {
	role, err := types.ParseRole(cfg.LLM.InstructionRole)
	if err != nil {
		return nil, fmt.Errorf("llm.instruction_role: %w", err)
	}
	credName := cfg.LLM.APIKeyEnv
	if cfg.LLM.APIKey != "" {
		credName = "llm.api_key"
	}
	return generator.New(generator.Config{
		BaseURL:         cfg.LLM.BaseURL,
		DefaultModel:    cfg.LLM.Model,
		Credential:      cfg.LLM.Credential,
		CredentialName:  credName,
		InstructionRole: role,
		Lang:            cfg.LLM.Lang,
		Language:        cfg.LLM.Language,
		ContentOnlyKeys: cfg.Cache.ContentOnlyKeys,
	}, cache, logger, generator.WithHTTPClient(&http.Client{
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})), nil
}
