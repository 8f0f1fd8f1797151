package reasoning

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ascendhq/ascend/internal/config"
	ascendErrors "github.com/ascendhq/ascend/internal/errors"
	"github.com/ascendhq/ascend/internal/logger"
	"github.com/ascendhq/ascend/internal/reasoning/contract"
	anthropicProvider "github.com/ascendhq/ascend/internal/reasoning/providers/anthropic"
	geminiProvider "github.com/ascendhq/ascend/internal/reasoning/providers/gemini"
	openaiProvider "github.com/ascendhq/ascend/internal/reasoning/providers/openai"
)

// Provider is one upstream model backend.
type Provider interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Name() string
}

// Router resolves a model name from the registry to its configured provider.
type Router struct {
	providers map[string]Provider // model name -> provider
	mu        sync.RWMutex
}

func NewRouter(cfg config.ModelsConfig) (*Router, error) {
	r := &Router{providers: make(map[string]Provider)}

	for _, entry := range cfg.Registry {
		var (
			p   Provider
			err error
		)
		switch entry.Provider {
		case "openai":
			p = openaiProvider.New(entry.APIKey, entry.BaseURL)
		case "anthropic":
			p = anthropicProvider.New(entry.APIKey)
		case "gemini":
			p, err = geminiProvider.New(entry.APIKey)
		default:
			slog.Warn("Skipping unknown provider in model registry", "provider", entry.Provider, "model", entry.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("init provider %s for model %s: %w", entry.Provider, entry.Name, err)
		}
		r.providers[entry.Name] = p
	}

	if len(r.providers) == 0 {
		return nil, fmt.Errorf("model registry is empty")
	}
	return r, nil
}

func (r *Router) Route(ctx context.Context, model string, req contract.CompletionRequest) (*contract.CompletionResponse, error) {
	r.mu.RLock()
	provider, exists := r.providers[model]
	r.mu.RUnlock()
	if !exists {
		return nil, ascendErrors.NotFound(fmt.Sprintf("model %s is not registered", model))
	}

	slog.Debug("Routing completion request",
		"model", model,
		"provider", provider.Name(),
		"session_id", logger.GetSessionID(ctx))

	req.Model = model
	resp, err := provider.Generate(ctx, req)
	if err != nil {
		return nil, ascendErrors.MapError(err)
	}
	return resp, nil
}

// Models lists the registered model names.
func (r *Router) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	return out
}
