package bootstrap

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/configs"
	"github.com/updateme/engine/internal/application/providers"
	"github.com/updateme/engine/internal/core/domain/search"
	"github.com/updateme/engine/internal/core/ports"
	"github.com/updateme/engine/internal/infrastructure/llm"
	searchinfra "github.com/updateme/engine/internal/infrastructure/search"
)

// backendConfig returns the endpoint settings for a completion provider name.
func backendConfig(cfg configs.LLMConfig, name string) (llm.Config, error) {
	c := llm.Config{Name: name, Timeout: cfg.CallTimeout}
	switch name {
	case providers.OpenAI:
		c.APIKey, c.Model, c.BaseURL = cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL
	case providers.Groq:
		c.APIKey, c.Model, c.BaseURL = cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqBaseURL
	case providers.DeepSeek:
		c.APIKey, c.Model, c.BaseURL = cfg.DeepSeekAPIKey, cfg.DeepSeekModel, cfg.DeepSeekBaseURL
	default:
		return llm.Config{}, fmt.Errorf("unknown completion provider %q", name)
	}
	return c, nil
}

// NewRegistry registers every configured provider that has an API key, in
// the configured order. shared carries everything except the backend.
func NewRegistry(cfg configs.LLMConfig, shared providers.Deps, logger *logrus.Logger) (*providers.Registry, error) {
	reg := providers.NewRegistry(cfg.DefaultProvider)
	for _, name := range cfg.Providers {
		bc, err := backendConfig(cfg, name)
		if err != nil {
			return nil, err
		}
		if bc.APIKey == "" {
			logger.WithField("provider", name).Warn("no api key configured; provider not registered")
			continue
		}
		backend, err := llm.NewBackend(bc, logger)
		if err != nil {
			return nil, err
		}
		deps := shared
		deps.Backend = backend
		p, err := providers.New(name, deps)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{"provider": name, "model": bc.Model}).Info("completion provider registered")
	}
	if len(reg.Names()) == 0 {
		logger.Warn("no completion providers registered; summaries will use cached history or static content")
	}
	return reg, nil
}

// NewSearchProvider picks the configured backend, or the first one with a
// key. It returns nil when no backend is usable.
func NewSearchProvider(cfg configs.SearchConfig, defaults *configs.SearchDefaults, logger *logrus.Logger) ports.SearchProvider {
	tavily := func() ports.SearchProvider {
		if cfg.TavilyAPIKey == "" {
			return nil
		}
		return searchinfra.NewTavily(searchinfra.Config{
			APIKey:   cfg.TavilyAPIKey,
			BaseURL:  cfg.TavilyURL,
			Timeout:  cfg.CallTimeout,
			Defaults: defaults.For(search.BackendTavily),
		}, logger)
	}
	serp := func() ports.SearchProvider {
		if cfg.SerpAPIKey == "" {
			return nil
		}
		return searchinfra.NewSerpAPI(searchinfra.Config{
			APIKey:   cfg.SerpAPIKey,
			BaseURL:  cfg.SerpAPIURL,
			Timeout:  cfg.CallTimeout,
			Defaults: defaults.For(search.BackendSerpAPI),
		}, logger)
	}

	order := []func() ports.SearchProvider{tavily, serp}
	if search.Backend(cfg.Backend) == search.BackendSerpAPI {
		order = []func() ports.SearchProvider{serp, tavily}
	}
	for _, build := range order {
		if sp := build(); sp != nil {
			if cfg.Backend != "" && string(sp.Backend()) != cfg.Backend {
				logger.WithFields(logrus.Fields{"wanted": cfg.Backend, "using": sp.Backend()}).Warn("preferred search backend has no api key")
			}
			logger.WithField("backend", sp.Backend()).Info("search backend configured")
			return sp
		}
	}
	logger.Warn("no search backend configured")
	return nil
}
