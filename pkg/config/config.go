// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads Nabd settings from defaults, YAML files, the
// environment and command line overrides, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of Nabd environment variables.
const EnvPrefix = "NABD_"

type Config struct {
	Log           LogConfig           `koanf:"log"`
	Telemetry     TelemetryConfig     `koanf:"telemetry"`
	LLM           LLMConfig           `koanf:"llm"`
	Skills        SkillsConfig        `koanf:"skills"`
	Handlers      HandlersConfig      `koanf:"handlers"`
	Planner       PlannerConfig       `koanf:"planner"`
	RAG           RAGConfig           `koanf:"rag"`
	Traces        TracesConfig        `koanf:"traces"`
	Conversations ConversationsConfig `koanf:"conversations"`
	Server        ServerConfig        `koanf:"server"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	Exporter     string `koanf:"exporter"` // stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

type LLMConfig struct {
	Provider      string        `koanf:"provider"` // openai, ollama
	Model         string        `koanf:"model"`
	BaseURL       string        `koanf:"base_url"`
	APIKey        string        `koanf:"api_key"`
	Timeout       time.Duration `koanf:"timeout"`
	MaxToolRounds int           `koanf:"max_tool_rounds"`
}

// Configured reports whether a model credential is present. Ollama needs none.
func (c LLMConfig) Configured() bool {
	if c.Provider == "ollama" {
		return strings.TrimSpace(c.BaseURL) != ""
	}
	return strings.TrimSpace(c.APIKey) != ""
}

type SkillsConfig struct {
	Dir   string        `koanf:"dir"`
	TTL   time.Duration `koanf:"ttl"`
	Watch bool          `koanf:"watch"`
}

type HandlersConfig struct {
	Timeout       time.Duration `koanf:"timeout"`
	IPStackAPIKey string        `koanf:"ipstack_api_key"`
	NewsAPIKey    string        `koanf:"news_api_key"`
	UserAgent     string        `koanf:"user_agent"`

	BreakerThreshold int           `koanf:"breaker_threshold"`
	BreakerCooldown  time.Duration `koanf:"breaker_cooldown"`
}

type PlannerConfig struct {
	DefaultLocation  string `koanf:"default_location"`
	DefaultTimezone  string `koanf:"default_timezone"`
	DefaultCountry   string `koanf:"default_country"`
	DefaultNewsTopic string `koanf:"default_news_topic"`
}

type RAGConfig struct {
	StorePath  string  `koanf:"store_path"`
	Backend    string  `koanf:"backend"` // memory, qdrant
	QdrantAddr string  `koanf:"qdrant_addr"`
	Collection string  `koanf:"collection"`
	TopK       int     `koanf:"top_k"`
	MinScore   float64 `koanf:"min_score"`
	// Embedder is hash (local bag-of-words) or ollama.
	Embedder       string `koanf:"embedder"`
	OllamaURL      string `koanf:"ollama_url"`
	EmbeddingModel string `koanf:"embedding_model"`
}

type TracesConfig struct {
	PerConversation int    `koanf:"per_conversation"`
	Global          int    `koanf:"global"`
	SQLitePath      string `koanf:"sqlite_path"`
}

type ConversationsConfig struct {
	Backend string `koanf:"backend"` // memory, file
	Path    string `koanf:"path"`
}

type ServerConfig struct {
	Addr          string `koanf:"addr"`
	DebugToken    string `koanf:"debug_token"`
	SecureCookies bool   `koanf:"secure_cookies"`
}

// legacyEnv maps the historical variable names to config keys.
var legacyEnv = map[string]string{
	"NVIDIA_API_KEY":  "llm.api_key",
	"AI_ENDPOINT":     "llm.base_url",
	"AI_MODEL":        "llm.model",
	"NEWS_API_KEY":    "handlers.news_api_key",
	"IPSTACK_API_KEY": "handlers.ipstack_api_key",
	"RAG_STORE_PATH":  "rag.store_path",
}

func setDefaults(k *koanf.Koanf) {
	k.Set("log.level", "info")
	k.Set("log.format", "text")

	k.Set("telemetry.enabled", false)
	k.Set("telemetry.exporter", "stdout")

	k.Set("llm.provider", "openai")
	k.Set("llm.model", "meta/llama-3.1-70b-instruct")
	k.Set("llm.base_url", "https://integrate.api.nvidia.com/v1")
	k.Set("llm.timeout", "60s")
	k.Set("llm.max_tool_rounds", 2)

	k.Set("skills.dir", "skills")
	k.Set("skills.ttl", "4s")
	k.Set("skills.watch", false)

	k.Set("handlers.timeout", "9s")
	k.Set("handlers.user_agent", "nabd/1.0")
	k.Set("handlers.breaker_threshold", 5)
	k.Set("handlers.breaker_cooldown", "30s")

	k.Set("planner.default_location", "الرياض")
	k.Set("planner.default_timezone", "Asia/Riyadh")
	k.Set("planner.default_country", "المملكة العربية السعودية")
	k.Set("planner.default_news_topic", "الذكاء الاصطناعي")

	k.Set("rag.store_path", filepath.Join("data", "rag-documents.json"))
	k.Set("rag.backend", "memory")
	k.Set("rag.qdrant_addr", "localhost:6334")
	k.Set("rag.collection", "nabd_knowledge")
	k.Set("rag.top_k", 3)
	k.Set("rag.min_score", 0.08)
	k.Set("rag.embedder", "hash")
	k.Set("rag.ollama_url", "http://localhost:11434")
	k.Set("rag.embedding_model", "nomic-embed-text")

	k.Set("traces.per_conversation", 30)
	k.Set("traces.global", 80)

	k.Set("conversations.backend", "memory")
	k.Set("conversations.path", filepath.Join("data", "conversations"))

	k.Set("server.addr", ":5000")
	k.Set("server.secure_cookies", false)
}

// Load reads the configuration from an optional YAML file and the environment.
func Load(path string) (*Config, error) {
	return load(path, "", nil)
}

// LoadWithProfile loads the base file and then merges <name>.<profile><ext>
// from the same directory when it exists.
func LoadWithProfile(path, profile string) (*Config, error) {
	return load(path, profile, nil)
}

// LoadWithCLI parses --config and --set flags and loads the configuration.
// --set overrides take precedence over everything else.
func LoadWithCLI(args []string) (*Config, error) {
	path, overrides, err := parseCLIOverrides(args)
	if err != nil {
		return nil, err
	}
	return load(path, "", overrides)
}

func load(path, profile string, overrides map[string]string) (*Config, error) {
	k := koanf.New(".")
	setDefaults(k)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		if profile != "" {
			profilePath := profileFile(path, profile)
			if _, err := os.Stat(profilePath); err == nil {
				if err := k.Load(file.Provider(profilePath), yaml.Parser()); err != nil {
					return nil, fmt.Errorf("load profile %s: %w", profilePath, err)
				}
			}
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", legacyEnvKey), nil); err != nil {
		return nil, err
	}

	// NABD_SKILLS_DIR -> skills.dir, NABD_LLM_API_KEY -> llm.api_key
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, err
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("apply --set %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func legacyEnvKey(name, value string) (string, interface{}) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	if name == "NODE_ENV" {
		return "server.secure_cookies", value == "production"
	}
	key, ok := legacyEnv[name]
	if !ok {
		return "", nil
	}
	return key, value
}

func profileFile(path, profile string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(filepath.Base(path), ext)
	return filepath.Join(filepath.Dir(path), base+"."+profile+ext)
}

func parseCLIOverrides(args []string) (string, map[string]string, error) {
	var path string
	overrides := make(map[string]string)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var value string
		switch {
		case arg == "--config" || arg == "--set":
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("missing value for %s", arg)
			}
			value = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			arg, value = "--config", strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--set="):
			arg, value = "--set", strings.TrimPrefix(arg, "--set=")
		default:
			continue
		}

		if arg == "--config" {
			path = value
			continue
		}
		key, val, ok := strings.Cut(value, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return "", nil, fmt.Errorf("invalid --set value %q, expected key=value", value)
		}
		overrides[key] = val
	}
	return path, overrides, nil
}

// Validate rejects unknown enum values and unusable capacities.
func (c *Config) Validate() error {
	checks := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"log.format", c.Log.Format, []string{"text", "json"}},
		{"telemetry.exporter", c.Telemetry.Exporter, []string{"stdout", "otlp"}},
		{"llm.provider", c.LLM.Provider, []string{"openai", "ollama"}},
		{"rag.backend", c.RAG.Backend, []string{"memory", "qdrant"}},
		{"rag.embedder", c.RAG.Embedder, []string{"hash", "ollama"}},
		{"conversations.backend", c.Conversations.Backend, []string{"memory", "file"}},
	}
	for _, check := range checks {
		if !contains(check.allowed, check.value) {
			return fmt.Errorf("invalid %s %q (allowed: %s)", check.name, check.value, strings.Join(check.allowed, ", "))
		}
	}
	if c.Traces.PerConversation <= 0 || c.Traces.Global <= 0 {
		return fmt.Errorf("trace capacities must be positive")
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive")
	}
	if c.Skills.TTL < 0 || c.Handlers.Timeout <= 0 {
		return fmt.Errorf("skills.ttl must not be negative and handlers.timeout must be positive")
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
