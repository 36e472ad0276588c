package model

import (
	"context"

	"github.com/soochol/storylens/internal/config"
	adkmodel "google.golang.org/adk/model"
)

// LLMFactory creates an adkmodel.LLM from a provider config.
type LLMFactory func(cfg config.ProviderConfig) adkmodel.LLM

var factories = map[string]LLMFactory{}

// RegisterProvider registers a factory for the given provider type string.
// Called from init() in each model implementation file.
func RegisterProvider(typeName string, factory LLMFactory) {
	factories[typeName] = factory
}

// Pinger is implemented by backends that can verify they are reachable
// before any request is routed to them.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BuildLLM looks up a registered factory for cfg.Type and calls it.
// If no factory is found but cfg.URL is set, falls back to OpenAI-compat.
// Returns (nil, false) if the type is unknown and no URL fallback is available.
func BuildLLM(cfg config.ProviderConfig) (adkmodel.LLM, bool) {
	if factory, ok := factories[cfg.Type]; ok {
		return factory(cfg), true
	}
	if cfg.URL != "" {
		name := cfg.Type
		if name == "" {
			name = "openai"
		}
		return NewOpenAILLM(cfg.APIKey,
			WithOpenAIBaseURL(cfg.URL),
			WithOpenAIName(name)), true
	}
	return nil, false
}
