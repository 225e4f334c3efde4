package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultConfigRelPath = ".handoff/config.yaml"

// DefaultModel is used when neither config nor directives name a model.
const DefaultModel = "gpt-4o"

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// APIKey takes precedence over APIKeyEnv when set.
	APIKey          string `yaml:"api_key"`
	APIKeyEnv       string `yaml:"api_key_env"`
	InstructionRole string `yaml:"instruction_role"`
	Lang            string `yaml:"lang"`
	Language        string `yaml:"language"`
	// TimeoutSeconds bounds one completion request. Zero leaves the
	// transport defaults in place.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type CacheConfig struct {
	Backend         string `yaml:"backend"`
	Dir             string `yaml:"dir"`
	SQLitePath      string `yaml:"sqlite_path"`
	RedisAddr       string `yaml:"redis_addr"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisPrefix     string `yaml:"redis_prefix"`
	ContentOnlyKeys bool   `yaml:"content_only_keys"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	LLM   LLMConfig   `yaml:"llm"`
	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`
}

// Load loads YAML config, then applies env overrides.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	explicit := configPath != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		configPath = filepath.Join(home, defaultConfigRelPath)
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if explicit || !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.SetDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

func (c *Config) SetDefaults() {
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.LLM.InstructionRole == "" {
		c.LLM.InstructionRole = "user"
	}
	if c.LLM.Lang == "" {
		c.LLM.Lang = "go"
	}
	if c.LLM.Language == "" {
		c.LLM.Language = "en"
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendFile
	}
	if c.Cache.Dir == "" {
		c.Cache.Dir = filepath.Join(".handoff", "gpt_responses")
	}
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = filepath.Join(".handoff", "handoff.db")
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "127.0.0.1:6379"
	}
	if c.Cache.RedisPrefix == "" {
		c.Cache.RedisPrefix = "handoff:"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url cannot be empty")
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model cannot be empty")
	}
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("llm.timeout_seconds must not be negative")
	}
	switch c.LLM.InstructionRole {
	case "system", "user":
	default:
		return fmt.Errorf("llm.instruction_role must be system or user, got %q", c.LLM.InstructionRole)
	}
	switch c.LLM.Language {
	case "en", "ja":
	default:
		return fmt.Errorf("llm.language must be en or ja, got %q", c.LLM.Language)
	}
	switch c.Cache.Backend {
	case BackendFile:
		if strings.TrimSpace(c.Cache.Dir) == "" {
			return errors.New("cache.dir cannot be empty")
		}
		if err := ensureWritableDir(c.Cache.Dir); err != nil {
			return fmt.Errorf("cache.dir not writable: %w", err)
		}
	case BackendSQLite:
		if strings.TrimSpace(c.Cache.SQLitePath) == "" {
			return errors.New("cache.sqlite_path cannot be empty")
		}
	case BackendRedis:
		if strings.TrimSpace(c.Cache.RedisAddr) == "" {
			return errors.New("cache.redis_addr cannot be empty")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Credential returns the API key from config or, failing that, from the
// configured environment variable.
func (c LLMConfig) Credential() (string, bool) {
	if c.APIKey != "" {
		return c.APIKey, true
	}
	if c.APIKeyEnv == "" {
		return "", false
	}
	return os.LookupEnv(c.APIKeyEnv)
}

// ResolvePaths anchors relative cache paths at the module root containing
// dir, or at dir itself when no go.mod is found above it.
func (c *Config) ResolvePaths(dir string) {
	root := FindModuleRoot(dir)
	if root == "" {
		root = dir
	}
	if !filepath.IsAbs(c.Cache.Dir) {
		c.Cache.Dir = filepath.Join(root, c.Cache.Dir)
	}
	if !filepath.IsAbs(c.Cache.SQLitePath) {
		c.Cache.SQLitePath = filepath.Join(root, c.Cache.SQLitePath)
	}
}

// FindModuleRoot walks up from dir looking for go.mod.
func FindModuleRoot(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		if fi, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !fi.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func applyEnvOverrides(c *Config) {
	setString(&c.LLM.BaseURL, "HANDOFF_LLM_BASE_URL")
	setString(&c.LLM.Model, "HANDOFF_LLM_MODEL")
	setString(&c.LLM.APIKeyEnv, "HANDOFF_LLM_API_KEY_ENV")
	setString(&c.LLM.InstructionRole, "HANDOFF_LLM_INSTRUCTION_ROLE")
	setString(&c.LLM.Language, "HANDOFF_LLM_LANGUAGE")
	setInt(&c.LLM.TimeoutSeconds, "HANDOFF_LLM_TIMEOUT_SECONDS")
	setString(&c.Cache.Backend, "HANDOFF_CACHE_BACKEND")
	setString(&c.Cache.Dir, "HANDOFF_CACHE_DIR")
	setString(&c.Cache.SQLitePath, "HANDOFF_CACHE_SQLITE_PATH")
	setString(&c.Cache.RedisAddr, "HANDOFF_CACHE_REDIS_ADDR")
	setString(&c.Cache.RedisPassword, "HANDOFF_CACHE_REDIS_PASSWORD")
	setInt(&c.Cache.RedisDB, "HANDOFF_CACHE_REDIS_DB")
	setBool(&c.Cache.ContentOnlyKeys, "HANDOFF_CACHE_CONTENT_ONLY_KEYS")
	setString(&c.Log.Level, "HANDOFF_LOG_LEVEL")
	setString(&c.Log.Format, "HANDOFF_LOG_FORMAT")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
