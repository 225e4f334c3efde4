package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetDefaults(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	if c.LLM.Model != "gpt-4o" {
		t.Fatalf("expected gpt-4o, got %s", c.LLM.Model)
	}
	if c.LLM.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected base url %s", c.LLM.BaseURL)
	}
	if c.LLM.APIKeyEnv != "OPENAI_API_KEY" {
		t.Fatalf("expected OPENAI_API_KEY, got %s", c.LLM.APIKeyEnv)
	}
	if c.LLM.InstructionRole != "user" {
		t.Fatalf("expected user instruction role")
	}
	if c.Cache.Backend != BackendFile {
		t.Fatalf("expected file backend")
	}
	if c.Log.Level != "info" {
		t.Fatalf("expected info level")
	}
	if c.LLM.TimeoutSeconds != 0 {
		t.Fatalf("expected no timeout by default, got %d", c.LLM.TimeoutSeconds)
	}
}

func TestLoadFromYAML(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("llm:\n  model: gpt-4.1\n  instruction_role: system\ncache:\n  backend: sqlite\n  sqlite_path: /tmp/h.db\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Model != "gpt-4.1" {
		t.Fatalf("unexpected model %s", cfg.LLM.Model)
	}
	if cfg.LLM.InstructionRole != "system" {
		t.Fatalf("unexpected role %s", cfg.LLM.InstructionRole)
	}
	if cfg.Cache.Backend != BackendSQLite || cfg.Cache.SQLitePath != "/tmp/h.db" {
		t.Fatalf("unexpected cache config %+v", cfg.Cache)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HANDOFF_LLM_BASE_URL", "http://localhost:8080/v1")
	t.Setenv("HANDOFF_CACHE_BACKEND", "redis")
	t.Setenv("HANDOFF_CACHE_REDIS_DB", "3")
	t.Setenv("HANDOFF_LLM_TIMEOUT_SECONDS", "30")
	t.Setenv("HANDOFF_CACHE_CONTENT_ONLY_KEYS", "true")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.BaseURL != "http://localhost:8080/v1" {
		t.Fatalf("unexpected base url %s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.TimeoutSeconds != 30 {
		t.Fatalf("unexpected timeout %d", cfg.LLM.TimeoutSeconds)
	}
	if cfg.Cache.Backend != BackendRedis || cfg.Cache.RedisDB != 3 || !cfg.Cache.ContentOnlyKeys {
		t.Fatalf("unexpected cache config %+v", cfg.Cache)
	}
}

func TestValidate(t *testing.T) {
	c := &Config{}
	c.SetDefaults()
	c.Cache.Dir = t.TempDir()
	if err := c.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	c.LLM.InstructionRole = "assistant"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected instruction_role validation error")
	}
	c.LLM.InstructionRole = "user"
	c.Cache.Backend = "memcached"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected backend validation error")
	}
}

func TestCredential(t *testing.T) {
	t.Setenv("HANDOFF_TEST_KEY", "sk-env")
	c := LLMConfig{APIKeyEnv: "HANDOFF_TEST_KEY"}
	if v, ok := c.Credential(); !ok || v != "sk-env" {
		t.Fatalf("expected env credential, got %q %v", v, ok)
	}
	c.APIKey = "sk-file"
	if v, _ := c.Credential(); v != "sk-file" {
		t.Fatalf("expected config credential to win, got %q", v)
	}
	c = LLMConfig{APIKeyEnv: "HANDOFF_TEST_UNSET_KEY"}
	if _, ok := c.Credential(); ok {
		t.Fatalf("expected missing credential")
	}
}

func TestResolvePaths(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	pkgDir := filepath.Join(root, "internal", "fib")
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	c := &Config{}
	c.SetDefaults()
	c.ResolvePaths(pkgDir)
	if want := filepath.Join(root, ".handoff", "gpt_responses"); c.Cache.Dir != want {
		t.Fatalf("expected %s, got %s", want, c.Cache.Dir)
	}
	if want := filepath.Join(root, ".handoff", "handoff.db"); c.Cache.SQLitePath != want {
		t.Fatalf("expected %s, got %s", want, c.Cache.SQLitePath)
	}
}
