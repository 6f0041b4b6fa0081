package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hrprag/internal/domain"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "HRP_"

// Config holds all configuration for hrprag.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ChunkingConfig bounds the chunks produced at ingest time.
type ChunkingConfig struct {
	MaxTokens     int    `yaml:"max_tokens" validate:"gt=0"`
	OverlapTokens int    `yaml:"overlap_tokens" validate:"gte=0,ltfield=MaxTokens"`
	Tokenizer     string `yaml:"tokenizer" validate:"required"` // "cl100k_base", a model name, or "word"
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider" validate:"oneof=hash openai deepseek jina ollama"`
	Model     string        `yaml:"model" validate:"required"`
	APIKeyEnv string        `yaml:"api_key_env"` // Environment variable holding the API key
	BaseURL   string        `yaml:"base_url" validate:"omitempty,url"`
	Dimension int           `yaml:"dimension" validate:"gte=0"` // 0 keeps the model's native size
	BatchSize int           `yaml:"batch_size" validate:"gt=0"`
	Timeout   time.Duration `yaml:"timeout"`
}

// StoreConfig selects and locates the vector store.
type StoreConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=bolt postgres memory"`
	Path        string `yaml:"path"` // bolt file; empty means <dir>/.hrprag/index.db
	PostgresDSN string `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	Table       string `yaml:"table" validate:"required"`
}

// RetrieveConfig holds query-time limits and caching.
type RetrieveConfig struct {
	DefaultLimit int           `yaml:"default_limit" validate:"gt=0"`
	MaxLimit     int           `yaml:"max_limit" validate:"gtefield=DefaultLimit"`
	CacheSize    int           `yaml:"cache_size" validate:"gte=0"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// IngestConfig holds ingestion configuration.
type IngestConfig struct {
	BatchSize   int      `yaml:"batch_size" validate:"gt=0"`
	Workers     int      `yaml:"workers" validate:"gt=0"`
	Includes    []string `yaml:"includes"`
	Excludes    []string `yaml:"excludes"`
	ECFRBaseURL string   `yaml:"ecfr_base_url" validate:"url"`
	DoclingURL  string   `yaml:"docling_url" validate:"omitempty,url"`
}

// ServerConfig holds HTTP transport configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			MaxTokens:     512,
			OverlapTokens: 50,
			Tokenizer:     "cl100k_base",
		},
		Embedding: EmbeddingConfig{
			Provider:  "hash",
			Model:     "hash-384",
			APIKeyEnv: "OPENAI_API_KEY",
			BatchSize: 50,
			Timeout:   60 * time.Second,
		},
		Store: StoreConfig{
			Backend: "bolt",
			Table:   "regulation_chunks",
		},
		Retrieve: RetrieveConfig{
			DefaultLimit: 10,
			MaxLimit:     50,
			CacheSize:    100,
			CacheTTL:     5 * time.Minute,
		},
		Ingest: IngestConfig{
			BatchSize:   50,
			Workers:     4,
			Includes:    []string{"**/*.xml", "**/*.md", "**/*.pdf"},
			Excludes:    []string{"**/.git/**", "**/.hrprag/**"},
			ECFRBaseURL: "https://www.ecfr.gov/api/versioner/v1",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, then applies HRP_* overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrConfig, path, err)
			}
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromDir looks for hrprag.yaml, then .hrprag/config.yaml.
func LoadFromDir(dir string) (*Config, error) {
	for _, path := range []string{
		filepath.Join(dir, "hrprag.yaml"),
		filepath.Join(dir, DataDirName, "config.yaml"),
	} {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return Load("")
}

// LoadDotEnv loads KEY=VALUE pairs from a .env file into the process
// environment without overriding variables that are already set.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides fields from HRP_* environment variables.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not an integer", domain.ErrConfig, EnvPrefix, key, v)
		}
		*dst = n
		return nil
	}

	str("EMBEDDING_PROVIDER", &c.Embedding.Provider)
	str("EMBEDDING_MODEL", &c.Embedding.Model)
	str("EMBEDDING_BASE_URL", &c.Embedding.BaseURL)
	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_PATH", &c.Store.Path)
	str("POSTGRES_DSN", &c.Store.PostgresDSN)
	str("SERVER_ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Logging.Level)
	str("TOKENIZER", &c.Chunking.Tokenizer)
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	for key, dst := range map[string]*int{
		"EMBEDDING_DIMENSION": &c.Embedding.Dimension,
		"MAX_TOKENS":          &c.Chunking.MaxTokens,
		"OVERLAP_TOKENS":      &c.Chunking.OverlapTokens,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks field constraints. Every violation is reported.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("%s failed on '%s' tag", e.Namespace(), e.Tag()))
	}
	sort.Strings(msgs)
	return fmt.Errorf("%w: %s", domain.ErrConfig, strings.Join(msgs, "; "))
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DataDirName is the per-project state directory.
const DataDirName = ".hrprag"

// IndexDBPath returns the bolt file location, honouring store.path.
func (c *Config) IndexDBPath(dir string) string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(dir, DataDirName, "index.db")
}

// EnsureDataDir ensures the directory holding path exists.
func EnsureDataDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
