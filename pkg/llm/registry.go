package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Registry owns the process-wide active provider. Reads are concurrent;
// SetActive serializes swaps. A generation call captures its provider before
// doing any work, so a swap mid-call never mixes old and new configuration.
type Registry struct {
	mu        sync.RWMutex
	active    Provider
	activeCfg Config
	creds     Credentials

	cache      *Cache
	maxRetries int
	logger     *slog.Logger

	defaultTemperature float64
	defaultMaxTokens   int
}

func NewRegistry(creds Credentials, cache *Cache, maxRetries int, logger *slog.Logger) *Registry {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		creds:      creds,
		cache:      cache,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// SetDefaults sets the generation parameters applied when a request leaves
// them unset.
func (r *Registry) SetDefaults(temperature float64, maxTokens int) {
	r.mu.Lock()
	r.defaultTemperature = temperature
	r.defaultMaxTokens = maxTokens
	r.mu.Unlock()
}

func (r *Registry) applyDefaults(req Request) Request {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if req.Temperature == 0 {
		req.Temperature = r.defaultTemperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = r.defaultMaxTokens
	}
	return req
}

// SetActive validates the config, builds the backend and atomically replaces
// the active provider for all subsequent calls. In-flight calls on the
// previous provider complete unaffected. Returns the resolved config.
func (r *Registry) SetActive(cfg Config) (Config, error) {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	if cfg.Model == "" {
		return Config{}, fmt.Errorf("%w: unsupported provider %q", ErrProviderUnavailable, cfg.Provider)
	}

	r.mu.RLock()
	creds := r.creds
	r.mu.RUnlock()

	defCred, defBase := creds.forProvider(cfg.Provider)
	if cfg.Credential == "" {
		cfg.Credential = defCred
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defBase
	}
	if requiresCredential(cfg.Provider) && cfg.Credential == "" {
		return Config{}, fmt.Errorf("%w: no credential configured for %s", ErrProviderUnavailable, cfg.Provider)
	}

	provider, err := newProvider(cfg)
	if err != nil {
		return Config{}, err
	}

	r.mu.Lock()
	r.active = provider
	r.activeCfg = cfg
	// Remember an explicitly supplied credential so the catalogue reports the
	// provider as configured from now on.
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.Credential != "" {
			r.creds.OpenAIKey = cfg.Credential
		}
	case ProviderAnthropic:
		if cfg.Credential != "" {
			r.creds.AnthropicKey = cfg.Credential
		}
	case ProviderMistral:
		if cfg.Credential != "" {
			r.creds.MistralKey = cfg.Credential
		}
	}
	r.mu.Unlock()

	r.logger.Info("Switched LLM provider", "provider", cfg.Provider, "model", cfg.Model)
	return cfg, nil
}

// Active returns the provider captured for one call. May be nil when no
// provider has been configured yet.
func (r *Registry) Active() Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// ActiveConfig returns the resolved config of the active provider.
func (r *Registry) ActiveConfig() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeCfg
}

// ListAvailable returns the provider/model catalogue for discovery.
func (r *Registry) ListAvailable() Catalog {
	r.mu.RLock()
	creds := r.creds
	cfg := r.activeCfg
	r.mu.RUnlock()

	catalog := Catalog{ActiveProvider: cfg.Provider, ActiveModel: cfg.Model}
	for _, name := range []string{ProviderOpenAI, ProviderAnthropic, ProviderMistral, ProviderOllama, ProviderLMStudio} {
		catalog.Providers = append(catalog.Providers, ProviderInfo{
			Name:         name,
			DefaultModel: providerDefaults[name],
			Models:       providerModels[name],
			Configured:   creds.configured(name),
		})
	}
	return catalog
}

// Generate runs a completion against the active provider, consulting the
// response cache first. Transient failures are retried with linear backoff;
// exhaustion surfaces ErrUpstream.
func (r *Registry) Generate(ctx context.Context, req Request) (string, error) {
	provider := r.Active()
	if provider == nil {
		return "", fmt.Errorf("%w: no active provider", ErrProviderUnavailable)
	}
	req = r.applyDefaults(req)

	fingerprint := Fingerprint(provider.ID(), provider.Model(), req.EffectivePrompt())
	if r.cache != nil {
		if response, ok := r.cache.Get(fingerprint); ok {
			r.logger.Debug("Response cache hit", "provider", provider.ID(), "fingerprint", fingerprint)
			return response, nil
		}
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		if attempt > 1 {
			r.logger.Warn("Retrying LLM generation",
				"provider", provider.ID(), "attempt", attempt, "last_error", lastErr)
			if err := sleepCtx(ctx, time.Duration(attempt-1)*time.Second); err != nil {
				return "", err
			}
		}

		response, err := provider.Generate(ctx, req)
		if err == nil {
			if r.cache != nil {
				r.cache.Put(fingerprint, response)
			}
			return response, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("%w: provider %s failed after %d attempts: %v",
		ErrUpstream, provider.ID(), r.maxRetries, lastErr)
}

// GenerateStream runs a streaming completion against the active provider.
// Streams are not cached and not retried: a mid-stream retry would duplicate
// tokens already delivered to the consumer.
func (r *Registry) GenerateStream(ctx context.Context, req Request, emit func(token string) error) (string, error) {
	provider := r.Active()
	if provider == nil {
		return "", fmt.Errorf("%w: no active provider", ErrProviderUnavailable)
	}
	req = r.applyDefaults(req)

	full, err := provider.GenerateStream(ctx, req, emit)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return full, err
		}
		return full, fmt.Errorf("%w: provider %s stream failed: %v", ErrUpstream, provider.ID(), err)
	}
	return full, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
