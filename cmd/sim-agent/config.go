// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sim-agent/internal/secrets"
	"github.com/pdiddy/sim-agent/pkg/types"
)

// bindEnv registers the provider key variables people already have set,
// alongside the SIM_AGENT_ prefixed names.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("llm.api_key", "SIM_AGENT_LLM_API_KEY")
	_ = v.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("search.semantic_scholar_api_key", "SIM_AGENT_SEARCH_SEMANTIC_SCHOLAR_API_KEY", "S2_API_KEY")
	_ = v.BindEnv("search.openalex_email", "SIM_AGENT_SEARCH_OPENALEX_EMAIL", "OPENALEX_EMAIL")
}

// setDefaults registers every key of DefaultConfig with v so that
// AutomaticEnv can override keys that no config file mentions.
func setDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(types.DefaultConfig())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("decoding default config: %w", err)
	}
	setTree(v, "", tree)
	return nil
}

func setTree(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			setTree(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig builds the run configuration: defaults, then the config file
// and environment through v, then key files for anything still unset.
func loadConfig(v *viper.Viper, keys secrets.Set) (types.Config, error) {
	if err := setDefaults(v); err != nil {
		return types.Config{}, err
	}
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("parsing configuration: %w", err)
	}

	cfg.LLM.Provider = types.LLMProvider(strings.ToLower(string(cfg.LLM.Provider)))
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case types.ProviderAnthropic:
			cfg.LLM.APIKey = keys.Or(secrets.AnthropicAPIKey, v.GetString("anthropic_api_key"))
		case types.ProviderGemini:
			cfg.LLM.APIKey = keys.Or(secrets.GeminiAPIKey, v.GetString("gemini_api_key"))
		}
	}
	cfg.Search.SemanticScholarAPIKey = keys.Or(secrets.SemanticScholarAPIKey, cfg.Search.SemanticScholarAPIKey)
	cfg.Search.OpenAlexEmail = keys.Or(secrets.OpenAlexEmail, cfg.Search.OpenAlexEmail)
	return cfg, nil
}
