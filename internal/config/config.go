// In file: internal/config/config.go

// Package config loads the assistant's settings: defaults first, then an
// optional config.yaml, then environment variables (and a local .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dileep-u-k/tempusvestis/internal/knowledge"
	"github.com/dileep-u-k/tempusvestis/internal/llm"
	"github.com/dileep-u-k/tempusvestis/internal/weather"
)

// DefaultPath is read when no path is given and CONFIG_PATH is unset.
const DefaultPath = "config.yaml"

type ModelConfig struct {
	Chat          string  `yaml:"chat"`
	Temperature   float32 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max_tokens"`
	Embedding     string  `yaml:"embedding"`
	OpenAIBaseURL string  `yaml:"openai_base_url"`
	MaxIterations int     `yaml:"max_iterations"`
}

type RetrievalConfig struct {
	K             int    `yaml:"k"`
	Store         string `yaml:"store"`
	SQLitePath    string `yaml:"sqlite_path"`
	PineconeHost  string `yaml:"pinecone_host"`
	KnowledgeFile string `yaml:"knowledge_file"`
}

type WeatherConfig struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	RateLimit float64       `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the complete application configuration. API keys are only
// read from the environment.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Weather   WeatherConfig   `yaml:"weather"`
	Log       LogConfig       `yaml:"log"`
	RedisAddr string          `yaml:"redis_addr"`
	Port      string          `yaml:"port"`
	// ModelCosts are USD per million tokens.
	ModelCosts map[string]llm.TokenCost `yaml:"model_costs"`

	OpenAIKey    string `yaml:"-"`
	AnthropicKey string `yaml:"-"`
	GeminiKey    string `yaml:"-"`
	PineconeKey  string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Chat:          llm.DefaultChatModel,
			Temperature:   0.7,
			Embedding:     llm.DefaultEmbeddingModel,
			MaxIterations: 10,
		},
		Retrieval: RetrievalConfig{
			K:          knowledge.DefaultK,
			Store:      knowledge.StoreSQLite,
			SQLitePath: "tempusvestis.db",
		},
		Weather: WeatherConfig{
			BaseURL:   weather.DefaultBaseURL,
			UserAgent: weather.DefaultUserAgent,
			RateLimit: 5,
			Timeout:   15 * time.Second,
		},
		Log:  LogConfig{Level: "info", Format: "console"},
		Port: "8080",
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// CONFIG_PATH and then DefaultPath are tried, and a missing default file is
// not an error.
func Load(path string) (*Config, error) {
	// Outside production, configuration may come from a local .env file.
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			zap.S().Debug("No .env file found, relying on environment variables.")
		}
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// The default file is optional.
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.Model.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&c.GeminiKey, "GEMINI_API_KEY")
	setString(&c.PineconeKey, "PINECONE_API_KEY")
	setString(&c.Model.Chat, "CHAT_MODEL")
	setString(&c.Model.Embedding, "EMBEDDING_MODEL")
	setString(&c.Weather.BaseURL, "NWS_BASE_URL")
	setString(&c.Weather.UserAgent, "NWS_USER_AGENT")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.Retrieval.Store, "VECTOR_STORE")
	setString(&c.Retrieval.SQLitePath, "SQLITE_PATH")
	setString(&c.Retrieval.PineconeHost, "PINECONE_INDEX_HOST")
	setString(&c.Retrieval.KnowledgeFile, "KNOWLEDGE_FILE")
	setString(&c.Port, "PORT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("invalid TEMPERATURE %q: %w", v, err)
		}
		c.Model.Temperature = float32(f)
	}
	if v := os.Getenv("NWS_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid NWS_RATE_LIMIT %q: %w", v, err)
		}
		c.Weather.RateLimit = f
	}
	for key, dst := range map[string]*int{
		"RETRIEVAL_K":    &c.Retrieval.K,
		"MAX_ITERATIONS": &c.Model.MaxIterations,
		"MAX_TOKENS":     &c.Model.MaxTokens,
	} {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = n
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks that the settings needed to answer queries are present.
// Errors name the missing environment variable.
func (c *Config) Validate() error {
	var errs []error
	if c.OpenAIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY must be set (used for embeddings)"))
	}
	if _, err := llm.ProviderFor(c.Model.Chat); err != nil {
		errs = append(errs, fmt.Errorf("CHAT_MODEL: %w", err))
	} else if name, value := c.chatKey(); value == "" && name != "OPENAI_API_KEY" {
		errs = append(errs, fmt.Errorf("%s must be set for chat model %s", name, c.Model.Chat))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("TEMPERATURE must be between 0 and 2, got %v", c.Model.Temperature))
	}
	if c.Retrieval.K <= 0 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_K must be positive, got %d", c.Retrieval.K))
	}
	if c.Model.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("MAX_ITERATIONS must be positive, got %d", c.Model.MaxIterations))
	}
	switch strings.ToLower(c.Retrieval.Store) {
	case knowledge.StoreSQLite:
	case knowledge.StorePinecone:
		if c.PineconeKey == "" {
			errs = append(errs, errors.New("PINECONE_API_KEY must be set when VECTOR_STORE=pinecone"))
		}
		if c.Retrieval.PineconeHost == "" {
			errs = append(errs, errors.New("PINECONE_INDEX_HOST must be set when VECTOR_STORE=pinecone"))
		}
	default:
		errs = append(errs, fmt.Errorf("VECTOR_STORE must be %s or %s, got %q", knowledge.StoreSQLite, knowledge.StorePinecone, c.Retrieval.Store))
	}
	return errors.Join(errs...)
}

// chatKey returns the environment variable and value of the key the chat
// model's provider needs.
func (c *Config) chatKey() (string, string) {
	p, _ := llm.ProviderFor(c.Model.Chat)
	switch p {
	case llm.ProviderAnthropic:
		return "ANTHROPIC_API_KEY", c.AnthropicKey
	case llm.ProviderGemini:
		return "GEMINI_API_KEY", c.GeminiKey
	default:
		return "OPENAI_API_KEY", c.OpenAIKey
	}
}

// Keys returns the provider API keys.
func (c *Config) Keys() llm.Keys {
	return llm.Keys{
		OpenAI:        c.OpenAIKey,
		OpenAIBaseURL: c.Model.OpenAIBaseURL,
		Gemini:        c.GeminiKey,
		Anthropic:     c.AnthropicKey,
	}
}

// TokenCosts converts the configured per-million prices to per-token costs.
func (c *Config) TokenCosts() map[string]llm.TokenCost {
	out := make(map[string]llm.TokenCost, len(c.ModelCosts))
	for model, cost := range c.ModelCosts {
		out[model] = llm.TokenCost{Input: cost.Input / 1_000_000, Output: cost.Output / 1_000_000}
	}
	return out
}

// StoreConfig returns the vector store settings.
func (c *Config) StoreConfig() knowledge.StoreConfig {
	return knowledge.StoreConfig{
		Kind:         c.Retrieval.Store,
		SQLitePath:   c.Retrieval.SQLitePath,
		PineconeKey:  c.PineconeKey,
		PineconeHost: c.Retrieval.PineconeHost,
	}
}

// WeatherClientConfig returns the NWS client settings.
func (c *Config) WeatherClientConfig() weather.Config {
	return weather.Config{
		BaseURL:   c.Weather.BaseURL,
		UserAgent: c.Weather.UserAgent,
		RateLimit: c.Weather.RateLimit,
		Timeout:   c.Weather.Timeout,
	}
}
