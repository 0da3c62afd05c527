package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Knowledge   KnowledgeConfig `toml:"knowledge"`
	Retrieval   RetrievalConfig `toml:"retrieval"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// KnowledgeConfig contains corpus processing and chunking configuration
type KnowledgeConfig struct {
	Dir          string `toml:"dir"`           // Directory containing knowledge-base HTML files
	ManifestFile string `toml:"manifest_file"` // Optional sources.yaml overriding per-file tags
	ChunkSize    int    `toml:"chunk_size"`    // Maximum fragment length in characters
	ChunkOverlap int    `toml:"chunk_overlap"` // Overlap between consecutive fragments
	BuildWorkers int    `toml:"build_workers"` // Concurrent embedding calls during index build
}

// RetrievalConfig contains similarity search and filtering configuration
type RetrievalConfig struct {
	TopK           int     `toml:"top_k"`           // Fragments selected before filtering
	RelevanceFloor float64 `toml:"relevance_floor"` // Minimum cosine score for language-matched results
	MinimumFloor   float64 `toml:"minimum_floor"`   // Hard floor below which nothing is returned
	TierWeight     float64 `toml:"tier_weight"`     // Score bonus for tier-matched fragments (0 = off)
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey         string  `toml:"api_key"`         // Google Gemini API key
	EmbedModel     string  `toml:"embed_model"`     // Embedding model (default: "gemini-embedding-001")
	ChatModel      string  `toml:"chat_model"`      // Chat model (default: "gemini-2.0-flash")
	EmbedDimension int     `toml:"embed_dimension"` // Embedding output dimensionality (default: 768)
	Timeout        string  `toml:"timeout"`         // Per-call timeout as duration string (default: "60s")
	RateLimit      string  `toml:"rate_limit"`      // Minimum interval between embed calls during build (default: "4s")
	Temperature    float32 `toml:"temperature"`     // Chat completion temperature (default: 0.3)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Chat model (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 1024)
	Timeout     string  `toml:"timeout"`     // Per-call timeout as duration string (default: "60s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.3)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API for embeddings and chat
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude for chat; embeddings stay on Gemini
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig selects the chat provider
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // "gemini" (default) or "claude"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here; only user-facing settings
// belong in salus.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Knowledge: KnowledgeConfig{
			Dir:          "./knowledge",
			ManifestFile: "sources.yaml",
			ChunkSize:    500,
			ChunkOverlap: 50,
			BuildWorkers: 4,
		},
		Retrieval: RetrievalConfig{
			TopK:           5,
			RelevanceFloor: 0.30,
			MinimumFloor:   0.05,
			TierWeight:     0, // Off by default; personalization by tier is an extension point
		},
		Gemini: GeminiConfig{
			APIKey:         "", // User must provide API key in config or environment
			EmbedModel:     "gemini-embedding-001",
			ChatModel:      "gemini-2.0-flash",
			EmbedDimension: 768,
			Timeout:        "60s",
			RateLimit:      "4s", // 15 RPM free tier
			Temperature:    0.3,
		},
		Claude: ClaudeConfig{
			APIKey:      "",
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   1024,
			Timeout:     "60s",
			Temperature: 0.3,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files
// override earlier ones, and environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SALUS_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if badgerPath := os.Getenv("SALUS_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("SALUS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SALUS_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if dir := os.Getenv("SALUS_KNOWLEDGE_DIR"); dir != "" {
		config.Knowledge.Dir = dir
	}
	if size := os.Getenv("SALUS_CHUNK_SIZE"); size != "" {
		if n, err := strconv.Atoi(size); err == nil {
			config.Knowledge.ChunkSize = n
		}
	}
	if overlap := os.Getenv("SALUS_CHUNK_OVERLAP"); overlap != "" {
		if n, err := strconv.Atoi(overlap); err == nil {
			config.Knowledge.ChunkOverlap = n
		}
	}

	if topK := os.Getenv("SALUS_RETRIEVAL_TOP_K"); topK != "" {
		if n, err := strconv.Atoi(topK); err == nil {
			config.Retrieval.TopK = n
		}
	}

	if key := os.Getenv("SALUS_GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("SALUS_CLAUDE_API_KEY"); key != "" {
		config.Claude.APIKey = key
	} else if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if provider := os.Getenv("SALUS_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Knowledge.ChunkSize <= 0 {
		return fmt.Errorf("knowledge.chunk_size must be positive, got %d", c.Knowledge.ChunkSize)
	}
	if c.Knowledge.ChunkOverlap < 0 || c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("knowledge.chunk_overlap must be in [0, chunk_size), got %d", c.Knowledge.ChunkOverlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.MinimumFloor > c.Retrieval.RelevanceFloor {
		return fmt.Errorf("retrieval.minimum_floor (%g) must not exceed retrieval.relevance_floor (%g)",
			c.Retrieval.MinimumFloor, c.Retrieval.RelevanceFloor)
	}
	switch c.LLM.DefaultProvider {
	case LLMProviderGemini, LLMProviderClaude:
	default:
		return fmt.Errorf("llm.default_provider must be %q or %q, got %q",
			LLMProviderGemini, LLMProviderClaude, c.LLM.DefaultProvider)
	}
	return nil
}
