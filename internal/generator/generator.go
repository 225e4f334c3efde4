package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/yourorg/handoff/internal/config"
	"github.com/yourorg/handoff/internal/directive"
	"github.com/yourorg/handoff/internal/store"
	"github.com/yourorg/handoff/pkg/types"
)

// DisabledCredential in place of an API key turns generation into a no-op.
const DisabledCredential = "DEBUG"

// Outcome is how a run ended when it did not fail.
type Outcome int

const (
	// OutcomeUnavailable means the source could not be read; nothing was done.
	OutcomeUnavailable Outcome = iota
	// OutcomeDisabled means the credential was DisabledCredential.
	OutcomeDisabled
	OutcomeCacheHit
	OutcomeFresh
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeDisabled:
		return "disabled"
	case OutcomeCacheHit:
		return "cache hit"
	case OutcomeFresh:
		return "fresh"
	default:
		return "outcome(" + strconv.Itoa(int(o)) + ")"
	}
}

// Config is everything the pipeline needs from its environment.
type Config struct {
	BaseURL      string
	DefaultModel string
	// Credential yields the API key; ok is false when none is configured.
	Credential func() (key string, ok bool)
	// CredentialName names the credential in error messages.
	CredentialName  string
	InstructionRole types.Role
	// Lang is the fence tag code blocks are extracted by.
	Lang string
	// Language selects the instruction text, "en" or "ja".
	Language string
	// ContentOnlyKeys derives cache keys from the source content alone,
	// ignoring options.
	ContentOnlyKeys bool
}

// Result describes a run that did not fail.
type Result struct {
	Outcome Outcome
	// Source is set by Run when the source was readable.
	Source   *directive.Source
	Location string
	Model    string
	// Raw is the response text as cached.
	Raw     string
	Payload string
}

// Generator runs the cache-and-dispatch pipeline.
type Generator struct {
	cfg        Config
	cache      store.Cache
	completer  Completer
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithCompleter replaces the HTTP client used for completions.
func WithCompleter(c Completer) Option {
	return func(g *Generator) { g.completer = c }
}

// WithHTTPClient sets the transport of the default completer.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Generator) { g.httpClient = c }
}

func New(cfg Config, cache store.Cache, logger *slog.Logger, opts ...Option) *Generator {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = config.DefaultModel
	}
	if cfg.InstructionRole == "" {
		cfg.InstructionRole = types.RoleUser
	}
	if cfg.Lang == "" {
		cfg.Lang = "go"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.CredentialName == "" {
		cfg.CredentialName = "api key"
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{cfg: cfg, cache: cache, logger: logger}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Run loads the source at path and generates for it. Options in overrides
// take precedence over the file's directives.
func (g *Generator) Run(ctx context.Context, path string, overrides directive.Options) (*Result, error) {
	src, err := directive.LoadSource(path)
	if errors.Is(err, directive.ErrUnavailable) {
		g.logger.Debug("source unavailable, nothing to do", "path", path, "err", err)
		return &Result{Outcome: OutcomeUnavailable}, nil
	}
	if err != nil {
		return nil, err
	}
	res, err := g.Generate(ctx, src.Content, src.Options.Merge(overrides))
	if res != nil {
		res.Source = src
	}
	return res, err
}

// Generate runs the pipeline for content. The cache is consulted before any
// credential or network access; a fresh reply is cached raw, before extraction.
func (g *Generator) Generate(ctx context.Context, content string, opts directive.Options) (*Result, error) {
	model := opts.Model
	if model == "" {
		model = g.cfg.DefaultModel
	}
	material := g.KeyMaterial(content, opts)
	loc, err := g.cache.Locate(material)
	if err != nil {
		return nil, fmt.Errorf("locate cache entry: %w", err)
	}
	res := &Result{Location: loc, Model: model}
	log := g.logger.With("location", loc, "model", model)

	body, ok, err := g.cache.Load(ctx, material)
	if err != nil {
		return nil, fmt.Errorf("load cache entry: %w", err)
	}
	if ok {
		log.Info("using cached response")
		res.Outcome = OutcomeCacheHit
		res.Raw = body
		res.Payload = Payload(body, g.cfg.Lang)
		return res, nil
	}

	var apiKey string
	if g.cfg.Credential != nil {
		apiKey, ok = g.cfg.Credential()
	}
	if !ok || apiKey == "" {
		return nil, &GenerationError{Kind: KindMissingCredential, Err: fmt.Errorf("%s is not set", g.cfg.CredentialName)}
	}
	if apiKey == DisabledCredential {
		log.Info("generation disabled by credential sentinel")
		res.Outcome = OutcomeDisabled
		return res, nil
	}

	req := g.request(content, opts, model)

	diagnosticWritten := false
	sink := func(diag string) error {
		if err := g.cache.Store(ctx, material, diag); err != nil {
			return err
		}
		diagnosticWritten = true
		return nil
	}

	log.Info("requesting completion", "seed", BoundSeed(req.Seed))
	msg, err := g.completerFor(apiKey).Complete(ctx, req, sink)
	if err != nil {
		var ge *GenerationError
		if errors.As(err, &ge) && diagnosticWritten {
			ge.Diagnostic = loc
		}
		return nil, err
	}

	if err := g.cache.Store(ctx, material, msg.Content); err != nil {
		return nil, fmt.Errorf("store response: %w", err)
	}
	res.Outcome = OutcomeFresh
	res.Raw = msg.Content
	res.Payload = Payload(msg.Content, g.cfg.Lang)
	log.Info("cached fresh response", "bytes", len(msg.Content))
	return res, nil
}

// Plan is what Generate would do for a given input.
type Plan struct {
	Location string
	Cached   bool
	Request  types.GenerationRequest
}

// Plan resolves the cache entry and request for content without calling the
// service or writing to the cache.
func (g *Generator) Plan(ctx context.Context, content string, opts directive.Options) (*Plan, error) {
	model := opts.Model
	if model == "" {
		model = g.cfg.DefaultModel
	}
	material := g.KeyMaterial(content, opts)
	loc, err := g.cache.Locate(material)
	if err != nil {
		return nil, fmt.Errorf("locate cache entry: %w", err)
	}
	_, ok, err := g.cache.Load(ctx, material)
	if err != nil {
		return nil, fmt.Errorf("load cache entry: %w", err)
	}
	return &Plan{Location: loc, Cached: ok, Request: g.request(content, opts, model)}, nil
}

func (g *Generator) request(content string, opts directive.Options, model string) types.GenerationRequest {
	seed := store.Key(content)
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	return types.GenerationRequest{
		Model:               model,
		Messages:            BuildMessages(g.cfg.InstructionRole, BuildInstruction(g.cfg.Language, g.cfg.Lang, opts.Prompt), content),
		Seed:                seed,
		MaxCompletionTokens: opts.MaxCompletionTokens,
	}
}

// KeyMaterial is the text hashed to address the cache entry for content
// generated with opts. Options at their defaults leave content unchanged.
func (g *Generator) KeyMaterial(content string, opts directive.Options) string {
	if g.cfg.ContentOnlyKeys {
		return content
	}
	var parts []string
	if opts.Model != "" && opts.Model != config.DefaultModel {
		parts = append(parts, "model="+strconv.Quote(opts.Model))
	} else if opts.Model == "" && g.cfg.DefaultModel != config.DefaultModel {
		parts = append(parts, "model="+strconv.Quote(g.cfg.DefaultModel))
	}
	if opts.Seed != nil {
		parts = append(parts, "seed="+strconv.FormatUint(*opts.Seed, 10))
	}
	if opts.MaxCompletionTokens != nil {
		parts = append(parts, "max_completion_tokens="+strconv.FormatUint(*opts.MaxCompletionTokens, 10))
	}
	if opts.Prompt != "" {
		parts = append(parts, "prompt="+strconv.Quote(opts.Prompt))
	}
	if g.cfg.InstructionRole != types.RoleUser {
		parts = append(parts, "instruction_role="+string(g.cfg.InstructionRole))
	}
	if g.cfg.Language != "en" {
		parts = append(parts, "language="+g.cfg.Language)
	}
	if len(parts) == 0 {
		return content
	}
	return content + "\x00" + strings.Join(parts, ";")
}

func (g *Generator) completerFor(apiKey string) Completer {
	if g.completer != nil {
		return g.completer
	}
	return &Client{BaseURL: g.cfg.BaseURL, APIKey: apiKey, HTTPClient: g.httpClient, Logger: g.logger}
}
