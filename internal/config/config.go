// Package config loads and validates the MAGMA service's configuration:
// the store connection, external provider selection, pipeline tuning, and
// the MCP transport's network settings.
package config

import (
	"time"

	"github.com/moolen/magma/internal/merrors"
)

// StoreConfig addresses the FalkorDB-backed graph store.
type StoreConfig struct {
	Host      string `koanf:"host"`
	Port      int    `koanf:"port"`
	Password  string `koanf:"password"`
	GraphName string `koanf:"graphName"`
}

// EmbeddingsConfig selects and configures the embeddings.Provider.
type EmbeddingsConfig struct {
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	APIKey   string `koanf:"apiKey"`
}

// ProviderConfig selects and configures a classify.Classifier or
// synth.Synthesizer backend.
type ProviderConfig struct {
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	APIKey   string `koanf:"apiKey"`
}

// ExecutorTuning mirrors magma.Config.
type ExecutorTuning struct {
	SemanticTopK     int           `koanf:"semanticTopK"`
	MinSemanticScore float64       `koanf:"minSemanticScore"`
	Timeout          time.Duration `koanf:"timeout"`
}

// MergeTuning mirrors merge.Options.
type MergeTuning struct {
	MultiViewBoost  float64 `koanf:"multiViewBoost"`
	MinNodesPerView int     `koanf:"minNodesPerView"`
	MaxNodesPerView int     `koanf:"maxNodesPerView"`
}

// LinearizeTuning mirrors the context linearizer's token budget.
type LinearizeTuning struct {
	MaxTokens int `koanf:"maxTokens"`
}

// ServerConfig addresses the MCP HTTP transport.
type ServerConfig struct {
	Host                   string        `koanf:"host"`
	Port                   int           `koanf:"port"`
	Path                   string        `koanf:"path"`
	MaxRequestBytes        int64         `koanf:"maxRequestBytes"`
	SessionTimeout         time.Duration `koanf:"sessionTimeout"`
	SessionCleanupInterval time.Duration `koanf:"sessionCleanupInterval"`
	MaxSessions            int           `koanf:"maxSessions"`
}

// TracingConfig mirrors tracing.Config.
type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	TLSCAPath   string `koanf:"tlsCaPath"`
	TLSInsecure bool   `koanf:"tlsInsecure"`
}

// Config is the MAGMA service's full configuration surface.
type Config struct {
	Store         StoreConfig     `koanf:"store"`
	Embeddings    EmbeddingsConfig `koanf:"embeddings"`
	Classify      ProviderConfig  `koanf:"classify"`
	Synth         ProviderConfig  `koanf:"synth"`
	Executor      ExecutorTuning  `koanf:"executor"`
	Merge         MergeTuning     `koanf:"merge"`
	Linearize     LinearizeTuning `koanf:"linearize"`
	Server        ServerConfig    `koanf:"server"`
	Tracing       TracingConfig   `koanf:"tracing"`
	LogLevelFlags []string        `koanf:"logLevel"`
}

// Defaults returns the documented default configuration.
func Defaults() Config {
	return Config{
		Store: StoreConfig{
			Host:      "localhost",
			Port:      6379,
			GraphName: "magma",
		},
		Embeddings: EmbeddingsConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Classify: ProviderConfig{
			Provider: "anthropic",
			Model:    "claude-sonnet-4-5",
		},
		Synth: ProviderConfig{
			Provider: "anthropic",
			Model:    "claude-sonnet-4-5",
		},
		Executor: ExecutorTuning{
			SemanticTopK:     10,
			MinSemanticScore: 0.5,
			Timeout:          5 * time.Second,
		},
		Merge: MergeTuning{
			MultiViewBoost:  1.5,
			MinNodesPerView: 3,
			MaxNodesPerView: 50,
		},
		Linearize: LinearizeTuning{
			MaxTokens: 4000,
		},
		Server: ServerConfig{
			Host:                   "0.0.0.0",
			Port:                   8089,
			Path:                   "/mcp",
			MaxRequestBytes:        10 * 1024 * 1024,
			SessionTimeout:         30 * time.Minute,
			SessionCleanupInterval: 5 * time.Minute,
		},
		LogLevelFlags: []string{"info"},
	}
}

// Validate checks every tuning field against the ranges the components
// that consume them enforce, so a malformed config file fails fast at
// startup rather than inside the first request.
func (c Config) Validate() error {
	if c.Executor.SemanticTopK < 1 || c.Executor.SemanticTopK > 100 {
		return merrors.New(merrors.KindValidation, "config.validate", "executor.semanticTopK must be in [1,100]")
	}
	if c.Executor.MinSemanticScore < 0 || c.Executor.MinSemanticScore > 1 {
		return merrors.New(merrors.KindValidation, "config.validate", "executor.minSemanticScore must be in [0,1]")
	}
	if c.Executor.Timeout < 100*time.Millisecond || c.Executor.Timeout > 60*time.Second {
		return merrors.New(merrors.KindValidation, "config.validate", "executor.timeout must be in [100ms,60s]")
	}
	if c.Merge.MultiViewBoost < 1 || c.Merge.MultiViewBoost > 10 {
		return merrors.New(merrors.KindValidation, "config.validate", "merge.multiViewBoost must be in [1,10]")
	}
	if c.Merge.MinNodesPerView < 0 || c.Merge.MinNodesPerView > 100 {
		return merrors.New(merrors.KindValidation, "config.validate", "merge.minNodesPerView must be in [0,100]")
	}
	if c.Merge.MaxNodesPerView < 1 || c.Merge.MaxNodesPerView > 1000 {
		return merrors.New(merrors.KindValidation, "config.validate", "merge.maxNodesPerView must be in [1,1000]")
	}
	if c.Linearize.MaxTokens < 100 || c.Linearize.MaxTokens > 100000 {
		return merrors.New(merrors.KindValidation, "config.validate", "linearize.maxTokens must be in [100,100000]")
	}
	if c.Store.Host == "" {
		return merrors.New(merrors.KindValidation, "config.validate", "store.host must not be empty")
	}
	return nil
}
