package llm

// Provider keys. The set is closed: adding a backend means adding a case to
// newProvider, not registering anything at runtime.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMistral   = "mistral"
	ProviderOllama    = "ollama"
	ProviderLMStudio  = "lmstudio"
)

var providerDefaults = map[string]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-sonnet-4-20250514",
	ProviderMistral:   "mistral-small-latest",
	ProviderOllama:    "llama3.1:8b",
	ProviderLMStudio:  "mistralai/devstral-small-2-2512",
}

var providerModels = map[string][]string{
	ProviderOpenAI: {
		"gpt-4o-mini", "gpt-4o", "gpt-4-turbo", "o3-mini",
	},
	ProviderAnthropic: {
		"claude-sonnet-4-20250514", "claude-3-5-sonnet-20241022",
		"claude-3-haiku-20240307", "claude-3-opus-20240229",
	},
	ProviderMistral: {
		"mistral-small-latest", "mistral-large-latest", "codestral-latest",
	},
	ProviderOllama: {
		"llama3.1:8b", "llama3.3:latest", "qwen2.5:latest", "gemma2:latest",
	},
	ProviderLMStudio: {
		"mistralai/devstral-small-2-2512", "meta-llama/llama-3.1-8b",
	},
}

// DefaultModel returns the default model id for a provider, or "" for an
// unknown provider.
func DefaultModel(provider string) string {
	return providerDefaults[provider]
}

// ProviderInfo describes one entry of the provider catalogue.
type ProviderInfo struct {
	Name         string   `json:"name"`
	DefaultModel string   `json:"default_model"`
	Models       []string `json:"models"`
	Configured   bool     `json:"configured"`
}

// Catalog is the discovery answer for callers: every known provider plus the
// currently active selection.
type Catalog struct {
	ActiveProvider string         `json:"active_provider"`
	ActiveModel    string         `json:"active_model"`
	Providers      []ProviderInfo `json:"providers"`
}

// Credentials holds the externally supplied secrets and endpoints per
// provider. Local backends (ollama, lmstudio) never need a credential.
type Credentials struct {
	OpenAIKey       string
	AnthropicKey    string
	MistralKey      string
	OllamaBaseURL   string
	LMStudioBaseURL string
}

func (c Credentials) forProvider(provider string) (credential, baseURL string) {
	switch provider {
	case ProviderOpenAI:
		return c.OpenAIKey, ""
	case ProviderAnthropic:
		return c.AnthropicKey, ""
	case ProviderMistral:
		return c.MistralKey, ""
	case ProviderOllama:
		return "", c.OllamaBaseURL
	case ProviderLMStudio:
		return "", c.LMStudioBaseURL
	}
	return "", ""
}

func (c Credentials) configured(provider string) bool {
	switch provider {
	case ProviderOpenAI:
		return c.OpenAIKey != ""
	case ProviderAnthropic:
		return c.AnthropicKey != ""
	case ProviderMistral:
		return c.MistralKey != ""
	case ProviderOllama, ProviderLMStudio:
		// Local backends are reachable or not; there is no key to check.
		return true
	}
	return false
}

func requiresCredential(provider string) bool {
	switch provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMistral:
		return true
	}
	return false
}
