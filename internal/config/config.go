package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

const (
	PolicyContinue = "continue"
	PolicyAbort    = "abort"
)

type Config struct {
	LogConfig logger.LogConfig `json:"log_config"`
	Index     IndexConfig      `json:"index"`
	LLM       LLMConfig        `json:"llm"`
	Embedding EmbeddingConfig  `json:"embedding"`
	Agent     AgentConfig      `json:"agent"`
	Database  DatabaseConfig   `json:"database"`
	Server    ServerConfig     `json:"server"`
	Jobs      JobsConfig       `json:"jobs"`
}

type IndexConfig struct {
	Store FileStoreConfig `json:"store"`
	Key   string          `json:"key"`
	Watch bool            `json:"watch"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

// LLMConfig names the primary generator and the ones tried after it fails.
type LLMConfig struct {
	ProviderConfig
	Fallbacks []ProviderConfig `json:"fallbacks"`
}

type EmbeddingConfig struct {
	ProviderConfig
	CacheSize       int   `json:"cache_size"`
	CacheTTLSeconds int64 `json:"cache_ttl_seconds"`
	DBCache         bool  `json:"db_cache"`
}

type AgentConfig struct {
	K                  int      `json:"k"`
	SnippetLen         int      `json:"snippet_len"`
	HistoryTurns       int      `json:"history_turns"`
	DefaultConfidence  *float64 `json:"default_confidence"`
	FallbackConfidence *float64 `json:"fallback_confidence"`
	OnRetrievalError   string   `json:"on_retrieval_error"`
	OnGenerationError  string   `json:"on_generation_error"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

func (c DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != "" || strings.TrimSpace(c.Host) != ""
}

type ServerConfig struct {
	Port               int      `json:"port"`
	JWTSecret          string   `json:"jwt_secret"`
	JWTTTLHours        int      `json:"jwt_ttl_hours"`
	CORSOrigins        []string `json:"cors_origins"`
	RateLimitMS        int      `json:"rate_limit_ms"`
	SessionIdleMinutes int      `json:"session_idle_minutes"`
}

type JobsConfig struct {
	SessionSweepSpec          string `json:"session_sweep_spec"`
	EmbeddingCacheCleanupSpec string `json:"embedding_cache_cleanup_spec"`
	EmbeddingCacheMaxAgeDays  int    `json:"embedding_cache_max_age_days"`
	QALogCleanupSpec          string `json:"qa_log_cleanup_spec"`
	QALogMaxAgeDays           int    `json:"qa_log_max_age_days"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	if err := applyDefaults(cfg); err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := decodeYAML(data, &cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	default:
		if err := json.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decodeYAML routes yaml documents through the json tags so both formats share one schema.
func decodeYAML(data []byte, cfg *Config) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(js, cfg)
}

func applyDefaults(cfg *Config) error {
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Index.Store.Type == "" {
		cfg.Index.Store.Type = "local"
	}
	if cfg.Index.Store.Data == nil && cfg.Index.Store.Type == "local" {
		cfg.Index.Store.Data = map[string]interface{}{"dir": "output"}
	}
	if cfg.Index.Key == "" {
		cfg.Index.Key = "mag7_index.json"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4.1-mini"
	}
	for i, fb := range cfg.LLM.Fallbacks {
		if fb.Provider == "" || fb.Model == "" {
			return fmt.Errorf("llm.fallbacks[%d] needs provider and model", i)
		}
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}
	if cfg.Embedding.CacheTTLSeconds == 0 {
		cfg.Embedding.CacheTTLSeconds = 3600
	}
	if err := applyAgentDefaults(&cfg.Agent); err != nil {
		return err
	}
	if cfg.Server.JWTTTLHours == 0 {
		cfg.Server.JWTTTLHours = 72
	}
	if cfg.Server.SessionIdleMinutes == 0 {
		cfg.Server.SessionIdleMinutes = 120
	}
	if cfg.Jobs.SessionSweepSpec == "" {
		cfg.Jobs.SessionSweepSpec = "*/5 * * * *"
	}
	if cfg.Jobs.EmbeddingCacheCleanupSpec == "" {
		cfg.Jobs.EmbeddingCacheCleanupSpec = "30 3 * * *"
	}
	if cfg.Jobs.EmbeddingCacheMaxAgeDays == 0 {
		cfg.Jobs.EmbeddingCacheMaxAgeDays = 30
	}
	if cfg.Jobs.QALogCleanupSpec == "" {
		cfg.Jobs.QALogCleanupSpec = "0 4 * * *"
	}
	if cfg.Jobs.QALogMaxAgeDays == 0 {
		cfg.Jobs.QALogMaxAgeDays = 90
	}
	return nil
}

func applyAgentDefaults(a *AgentConfig) error {
	if a.K == 0 {
		a.K = 5
	}
	if a.K < 0 {
		return fmt.Errorf("agent.k must be positive")
	}
	if a.SnippetLen == 0 {
		a.SnippetLen = 500
	}
	if a.SnippetLen < 0 {
		return fmt.Errorf("agent.snippet_len must be positive")
	}
	if a.HistoryTurns == 0 {
		a.HistoryTurns = 6
	}
	if a.HistoryTurns < 0 {
		return fmt.Errorf("agent.history_turns must be positive")
	}
	if a.DefaultConfidence == nil {
		v := 0.85
		a.DefaultConfidence = &v
	}
	if a.FallbackConfidence == nil {
		v := 0.7
		a.FallbackConfidence = &v
	}
	if *a.DefaultConfidence < 0 || *a.DefaultConfidence > 1 {
		return fmt.Errorf("agent.default_confidence must be within [0, 1]")
	}
	if *a.FallbackConfidence < 0 || *a.FallbackConfidence > 1 {
		return fmt.Errorf("agent.fallback_confidence must be within [0, 1]")
	}
	var err error
	if a.OnRetrievalError, err = normalizePolicy("agent.on_retrieval_error", a.OnRetrievalError); err != nil {
		return err
	}
	if a.OnGenerationError, err = normalizePolicy("agent.on_generation_error", a.OnGenerationError); err != nil {
		return err
	}
	return nil
}

func normalizePolicy(name, value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "":
		return PolicyContinue, nil
	case PolicyContinue, PolicyAbort:
		return value, nil
	default:
		return "", fmt.Errorf("%s must be %s or %s", name, PolicyContinue, PolicyAbort)
	}
}

// ValidateServer checks the settings only the http api needs.
func (c *Config) ValidateServer() error {
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("server.jwt_secret is required")
	}
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	return nil
}
