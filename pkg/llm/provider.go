package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/mistral"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Config selects a provider backend and model.
type Config struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Credential string `json:"credential,omitempty"`
	BaseURL    string `json:"base_url,omitempty"`
}

// Request is a single generation call. Context snippets are prepended to the
// prompt in order; they come from the retrieval layer already ranked.
type Request struct {
	System      string
	Prompt      string
	Context     []string
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// EffectivePrompt is the prompt text the backend actually sees, with
// retrieval context prepended. It is also the unit that gets fingerprinted
// for the response cache.
func (r Request) EffectivePrompt() string {
	if len(r.Context) == 0 {
		return r.Prompt
	}
	return "Retrieved context:\n" + strings.Join(r.Context, "\n\n") + "\n\n" + r.Prompt
}

// Provider is one configured LLM backend. Implementations are safe for
// concurrent use; a call captures its provider at invocation start, so a
// registry swap never affects calls already in flight.
type Provider interface {
	ID() string
	Model() string
	Generate(ctx context.Context, req Request) (string, error)
	GenerateStream(ctx context.Context, req Request, emit func(token string) error) (string, error)
}

// chatProvider adapts a langchaingo model to the Provider interface.
// All backend variants differ only in construction; request/response
// normalization is shared here.
type chatProvider struct {
	id    string
	model string
	llm   llms.Model
}

func (p *chatProvider) ID() string    { return p.id }
func (p *chatProvider) Model() string { return p.model }

func (p *chatProvider) messages(req Request) []llms.MessageContent {
	var msgs []llms.MessageContent
	if req.System != "" {
		msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, req.EffectivePrompt()))
	return msgs
}

func (p *chatProvider) options(req Request) []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.JSONMode {
		opts = append(opts, llms.WithJSONMode())
	}
	return opts
}

func (p *chatProvider) Generate(ctx context.Context, req Request) (string, error) {
	resp, err := p.llm.GenerateContent(ctx, p.messages(req), p.options(req)...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider %s returned no choices", p.id)
	}
	return resp.Choices[0].Content, nil
}

func (p *chatProvider) GenerateStream(ctx context.Context, req Request, emit func(string) error) (string, error) {
	var full strings.Builder
	opts := append(p.options(req), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		token := string(chunk)
		if token == "" {
			return nil
		}
		full.WriteString(token)
		return emit(token)
	}))

	if _, err := p.llm.GenerateContent(ctx, p.messages(req), opts...); err != nil {
		return full.String(), err
	}
	return full.String(), nil
}

// newProvider builds the backend for a config. Selection is a pure lookup by
// provider key over a closed variant set.
func newProvider(cfg Config) (Provider, error) {
	var (
		model llms.Model
		err   error
	)

	switch cfg.Provider {
	case ProviderOpenAI:
		model, err = openai.New(
			openai.WithToken(cfg.Credential),
			openai.WithModel(cfg.Model),
		)
	case ProviderAnthropic:
		model, err = anthropic.New(
			anthropic.WithToken(cfg.Credential),
			anthropic.WithModel(cfg.Model),
		)
	case ProviderMistral:
		model, err = mistral.New(
			mistral.WithAPIKey(cfg.Credential),
			mistral.WithModel(cfg.Model),
		)
	case ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.BaseURL),
		)
	case ProviderLMStudio:
		// LM Studio speaks the OpenAI wire protocol on a local endpoint and
		// accepts any token.
		model, err = openai.New(
			openai.WithToken("lm-studio"),
			openai.WithModel(cfg.Model),
			openai.WithBaseURL(cfg.BaseURL),
		)
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrProviderUnavailable, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s client: %w", cfg.Provider, err)
	}

	return &chatProvider{id: cfg.Provider, model: cfg.Model, llm: model}, nil
}
