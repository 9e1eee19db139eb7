package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is stripped from every MAGMA_-prefixed environment variable
// before it is folded into the config tree, e.g. MAGMA_STORE_HOST ->
// store.host.
const envPrefix = "MAGMA_"

// Load layers defaults, an optional YAML file, then environment
// variables, and validates the result. path may be empty, in which case
// only defaults and the environment are consulted.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := Defaults()
	if err := k.Load(confmap.Provider(structToMap(defaults), "."), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %q: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// structToMap flattens Defaults() into the dotted map shape confmap.Provider
// expects, keyed the same way the koanf tags name each field.
func structToMap(c Config) map[string]interface{} {
	return map[string]interface{}{
		"store.host":      c.Store.Host,
		"store.port":      c.Store.Port,
		"store.password":  c.Store.Password,
		"store.graphName": c.Store.GraphName,

		"embeddings.provider": c.Embeddings.Provider,
		"embeddings.model":    c.Embeddings.Model,
		"embeddings.apiKey":   c.Embeddings.APIKey,

		"classify.provider": c.Classify.Provider,
		"classify.model":    c.Classify.Model,
		"classify.apiKey":   c.Classify.APIKey,

		"synth.provider": c.Synth.Provider,
		"synth.model":    c.Synth.Model,
		"synth.apiKey":   c.Synth.APIKey,

		"executor.semanticTopK":     c.Executor.SemanticTopK,
		"executor.minSemanticScore": c.Executor.MinSemanticScore,
		"executor.timeout":          c.Executor.Timeout,

		"merge.multiViewBoost":  c.Merge.MultiViewBoost,
		"merge.minNodesPerView": c.Merge.MinNodesPerView,
		"merge.maxNodesPerView": c.Merge.MaxNodesPerView,

		"linearize.maxTokens": c.Linearize.MaxTokens,

		"server.host":                   c.Server.Host,
		"server.port":                   c.Server.Port,
		"server.path":                   c.Server.Path,
		"server.maxRequestBytes":        c.Server.MaxRequestBytes,
		"server.sessionTimeout":         c.Server.SessionTimeout,
		"server.sessionCleanupInterval": c.Server.SessionCleanupInterval,
		"server.maxSessions":            c.Server.MaxSessions,

		"tracing.enabled":     c.Tracing.Enabled,
		"tracing.endpoint":    c.Tracing.Endpoint,
		"tracing.tlsCaPath":   c.Tracing.TLSCAPath,
		"tracing.tlsInsecure": c.Tracing.TLSInsecure,

		"logLevel": c.LogLevelFlags,
	}
}
