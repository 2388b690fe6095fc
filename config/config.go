package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the assistant.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Index   IndexConfig   `yaml:"index"`
	Docs    DocsConfig    `yaml:"docs"`
	Storage StorageConfig `yaml:"storage"`
	LLM     LLMConfig     `yaml:"llm"`
	RAG     RAGConfig     `yaml:"rag"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// IndexConfig holds the full-text index configuration.
type IndexConfig struct {
	DBPath string `yaml:"db_path"`
}

// DocsConfig holds the local document corpus configuration.
type DocsConfig struct {
	Dir      string   `yaml:"dir"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
	Watch    bool     `yaml:"watch"`
}

// StorageConfig holds the S3-compatible object storage configuration. When
// disabled, documents are loaded from the local docs directory only.
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// LLMConfig holds the generation backend configuration.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// RAGConfig holds the pipeline tuning parameters.
type RAGConfig struct {
	TopK                int `yaml:"top_k"`
	ChunkSize           int `yaml:"chunk_size"`
	ChunkOverlap        int `yaml:"chunk_overlap"`
	MaxContextLength    int `yaml:"max_context_length"`
	CacheMaxSize        int `yaml:"cache_max_size"`
	SearchCacheTTLMin   int `yaml:"search_cache_ttl_minutes"`
	QueryCacheTTLMin    int `yaml:"query_cache_ttl_minutes"`
	MaxRetries          int `yaml:"max_retries"`
	RetryDelaySeconds   int `yaml:"retry_delay_seconds"`
	TimeoutSeconds      int `yaml:"timeout_seconds"`
	GenerateTimeoutSecs int `yaml:"generate_timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Index: IndexConfig{
			DBPath: "",
		},
		Docs: DocsConfig{
			Dir:      "docs",
			Includes: []string{"**/*.txt", "**/*.md"},
			Excludes: []string{"**/.*/**"},
			Watch:    true,
		},
		Storage: StorageConfig{
			Enabled:      false,
			Endpoint:     "s3.amazonaws.com",
			Bucket:       "urpaq-documents",
			AccessKeyEnv: "URPAQ_S3_ACCESS_KEY",
			SecretKeyEnv: "URPAQ_S3_SECRET_KEY",
			UseSSL:       true,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.llm7.io/v1",
			APIKeyEnv:   "LLM7_API_KEY",
			Model:       "bidara",
			Temperature: 0.7,
			MaxTokens:   500,
		},
		RAG: RAGConfig{
			TopK:                5,
			ChunkSize:           500,
			ChunkOverlap:        100,
			MaxContextLength:    4000,
			CacheMaxSize:        1000,
			SearchCacheTTLMin:   30,
			QueryCacheTTLMin:    60,
			MaxRetries:          2,
			RetryDelaySeconds:   1,
			TimeoutSeconds:      30,
			GenerateTimeoutSecs: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for urpaq.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "urpaq.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".urpaq", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the index database, honoring an explicit
// override from the config.
func (c *Config) IndexDBPath(dir string) string {
	if c.Index.DBPath != "" {
		return c.Index.DBPath
	}
	return filepath.Join(dir, ".urpaq", "index.db")
}

// EnsureStateDir ensures the .urpaq directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".urpaq"), 0755)
}
