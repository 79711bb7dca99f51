package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/cortexsh/cortexrun/pkg/config"
	anthropic "github.com/cortexsh/cortexrun/pkg/providers/anthropic"
	"github.com/cortexsh/cortexrun/pkg/providers/openai_sdk"
)

const defaultAnthropicAPIBase = "https://api.anthropic.com"

// providerSelection is the resolved target for a run: either Anthropic's
// Messages API or an OpenAI-compatible chat-completions endpoint. Groq,
// DeepSeek, Ollama, OpenRouter, vLLM and the rest all speak the same wire
// shape and differ only in base URL and key, so they share one client type.
type providerSelection struct {
	anthropic bool
	apiKey    string
	apiBase   string
	proxy     string
}

// providerDefaults holds the default API base URL and a config accessor for
// a standard OpenAI-compatible provider entry.
type providerDefaults struct {
	defaultBase string
	getConfig   func(cfg *config.Config) (apiKey, apiBase, proxy string)
	// hasKey returns true if the provider has credentials configured.
	// If nil, checks that getConfig returns a non-empty apiKey.
	hasKey func(cfg *config.Config) bool
}

// standardProviderRegistry maps provider names to their defaults. Every
// entry here is constructed as an OpenAI-compatible client; only Anthropic
// gets its own branch since it speaks a different wire protocol.
var standardProviderRegistry = map[string]providerDefaults{
	"groq": {
		defaultBase: "https://api.groq.com/openai/v1",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.Groq.APIKey, cfg.Providers.Groq.APIBase, cfg.Providers.Groq.Proxy
		},
	},
	"openrouter": {
		defaultBase: "https://openrouter.ai/api/v1",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.OpenRouter.APIKey, cfg.Providers.OpenRouter.APIBase, cfg.Providers.OpenRouter.Proxy
		},
	},
	"zhipu": {
		defaultBase: "https://open.bigmodel.cn/api/paas/v4",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.Zhipu.APIKey, cfg.Providers.Zhipu.APIBase, cfg.Providers.Zhipu.Proxy
		},
	},
	"gemini": {
		defaultBase: "https://generativelanguage.googleapis.com/v1beta/openai",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.APIBase, cfg.Providers.Gemini.Proxy
		},
	},
	"vllm": {
		defaultBase: "", // no default base; requires explicit config
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.VLLM.APIKey, cfg.Providers.VLLM.APIBase, cfg.Providers.VLLM.Proxy
		},
		hasKey: func(cfg *config.Config) bool {
			return cfg.Providers.VLLM.APIBase != ""
		},
	},
	"shengsuanyun": {
		defaultBase: "https://router.shengsuanyun.com/api/v1",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.ShengSuanYun.APIKey, cfg.Providers.ShengSuanYun.APIBase, cfg.Providers.ShengSuanYun.Proxy
		},
	},
	"nvidia": {
		defaultBase: "https://integrate.api.nvidia.com/v1",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.Nvidia.APIKey, cfg.Providers.Nvidia.APIBase, cfg.Providers.Nvidia.Proxy
		},
	},
	"deepseek": {
		defaultBase: "https://api.deepseek.com/v1",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.DeepSeek.APIKey, cfg.Providers.DeepSeek.APIBase, cfg.Providers.DeepSeek.Proxy
		},
	},
	"mistral": {
		defaultBase: "https://api.mistral.ai/v1",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.Mistral.APIKey, cfg.Providers.Mistral.APIBase, cfg.Providers.Mistral.Proxy
		},
	},
	"ollama": {
		defaultBase: "http://localhost:11434/v1",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.Ollama.APIKey, cfg.Providers.Ollama.APIBase, cfg.Providers.Ollama.Proxy
		},
	},
	"moonshot": {
		defaultBase: "https://api.moonshot.cn/v1",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.Moonshot.APIKey, cfg.Providers.Moonshot.APIBase, cfg.Providers.Moonshot.Proxy
		},
	},
	"cerebras": {
		defaultBase: "https://api.cerebras.ai/v1",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.Cerebras.APIKey, cfg.Providers.Cerebras.APIBase, cfg.Providers.Cerebras.Proxy
		},
	},
	"volcengine": {
		defaultBase: "https://ark.cn-beijing.volces.com/api/v3",
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.VolcEngine.APIKey, cfg.Providers.VolcEngine.APIBase, cfg.Providers.VolcEngine.Proxy
		},
	},
	"zen": {
		defaultBase: "", // no public default; zen is typically self-hosted
		getConfig: func(cfg *config.Config) (string, string, string) {
			return cfg.Providers.Zen.APIKey, cfg.Providers.Zen.APIBase, cfg.Providers.Zen.Proxy
		},
		hasKey: func(cfg *config.Config) bool {
			return cfg.Providers.Zen.APIBase != "" && cfg.Providers.Zen.APIKey != ""
		},
	},
}

// providerNameAliases maps alternative provider names to their canonical
// names in the registry.
var providerNameAliases = map[string]string{
	"glm":    "zhipu",
	"google": "gemini",
	"gpt":    "openai",
}

// applyStandardProvider applies config from a standardProviderRegistry entry to sel.
// Returns true if the provider had credentials configured.
func applyStandardProvider(cfg *config.Config, sel *providerSelection, entry providerDefaults) bool {
	apiKey, apiBase, proxy := entry.getConfig(cfg)

	hasCredentials := apiKey != ""
	if entry.hasKey != nil {
		hasCredentials = entry.hasKey(cfg)
	}
	if !hasCredentials {
		return false
	}

	sel.apiKey = apiKey
	sel.apiBase = apiBase
	sel.proxy = proxy
	if sel.apiBase == "" && entry.defaultBase != "" {
		sel.apiBase = entry.defaultBase
	}
	return true
}

// modelInferenceEntry maps a model name pattern to a provider and optional match function.
type modelInferenceEntry struct {
	matches func(lowerModel, model string, cfg *config.Config) bool
	apply   func(cfg *config.Config, sel *providerSelection) bool
}

// modelInferenceRegistry defines fallback model -> provider inference rules,
// used when agents.defaults.provider is unset and must be guessed from the
// model name and whichever credentials are actually configured. Order
// matters: first match wins.
var modelInferenceRegistry = []modelInferenceEntry{
	{
		matches: func(lm, m string, cfg *config.Config) bool {
			return (strings.Contains(lm, "kimi") || strings.Contains(lm, "moonshot") || strings.HasPrefix(m, "moonshot/")) &&
				cfg.Providers.Moonshot.APIKey != ""
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			return applyStandardProvider(cfg, sel, standardProviderRegistry["moonshot"])
		},
	},
	{
		matches: func(_, m string, _ *config.Config) bool {
			for _, prefix := range []string{"openrouter/", "anthropic/", "openai/", "meta-llama/", "deepseek/", "google/"} {
				if strings.HasPrefix(m, prefix) {
					return true
				}
			}
			return false
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			return applyStandardProvider(cfg, sel, standardProviderRegistry["openrouter"])
		},
	},
	{
		matches: func(lm, m string, cfg *config.Config) bool {
			return (strings.Contains(lm, "claude") || strings.HasPrefix(m, "anthropic/")) && cfg.Providers.Anthropic.APIKey != ""
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			sel.anthropic = true
			sel.apiKey = cfg.Providers.Anthropic.APIKey
			sel.apiBase = cfg.Providers.Anthropic.APIBase
			if sel.apiBase == "" {
				sel.apiBase = defaultAnthropicAPIBase
			}
			return true
		},
	},
	{
		matches: func(lm, m string, cfg *config.Config) bool {
			return (strings.Contains(lm, "gpt") || strings.HasPrefix(m, "openai/")) && cfg.Providers.OpenAI.APIKey != ""
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			sel.apiKey = cfg.Providers.OpenAI.APIKey
			sel.apiBase = cfg.Providers.OpenAI.APIBase
			sel.proxy = cfg.Providers.OpenAI.Proxy
			if sel.apiBase == "" {
				sel.apiBase = "https://api.openai.com/v1"
			}
			return true
		},
	},
	{
		matches: func(lm, m string, cfg *config.Config) bool {
			return (strings.Contains(lm, "gemini") || strings.HasPrefix(m, "google/")) && cfg.Providers.Gemini.APIKey != ""
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			return applyStandardProvider(cfg, sel, standardProviderRegistry["gemini"])
		},
	},
	{
		matches: func(lm, _ string, cfg *config.Config) bool {
			return (strings.Contains(lm, "glm") || strings.Contains(lm, "zhipu") || strings.Contains(lm, "zai")) && cfg.Providers.Zhipu.APIKey != ""
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			return applyStandardProvider(cfg, sel, standardProviderRegistry["zhipu"])
		},
	},
	{
		matches: func(lm, m string, cfg *config.Config) bool {
			return (strings.Contains(lm, "groq") || strings.HasPrefix(m, "groq/")) && cfg.Providers.Groq.APIKey != ""
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			return applyStandardProvider(cfg, sel, standardProviderRegistry["groq"])
		},
	},
	{
		matches: func(lm, m string, cfg *config.Config) bool {
			return (strings.Contains(lm, "nvidia") || strings.HasPrefix(m, "nvidia/")) && cfg.Providers.Nvidia.APIKey != ""
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			return applyStandardProvider(cfg, sel, standardProviderRegistry["nvidia"])
		},
	},
	{
		matches: func(lm, m string, cfg *config.Config) bool {
			return (strings.Contains(lm, "ollama") || strings.HasPrefix(m, "ollama/")) && cfg.Providers.Ollama.APIKey != ""
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			return applyStandardProvider(cfg, sel, standardProviderRegistry["ollama"])
		},
	},
	{
		matches: func(lm, m string, cfg *config.Config) bool {
			return (strings.Contains(lm, "mistral") || strings.HasPrefix(m, "mistral/")) && cfg.Providers.Mistral.APIKey != ""
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			return applyStandardProvider(cfg, sel, standardProviderRegistry["mistral"])
		},
	},
	{
		matches: func(_, m string, cfg *config.Config) bool {
			return strings.HasPrefix(m, "zen/") && cfg.Providers.Zen.APIBase != ""
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			return applyStandardProvider(cfg, sel, standardProviderRegistry["zen"])
		},
	},
	{
		matches: func(_, _ string, cfg *config.Config) bool {
			return cfg.Providers.VLLM.APIBase != ""
		},
		apply: func(cfg *config.Config, sel *providerSelection) bool {
			return applyStandardProvider(cfg, sel, standardProviderRegistry["vllm"])
		},
	},
}

// resolveProviderSelection picks an Anthropic or OpenAI-compatible target
// for the configured model: explicit agents.defaults.provider wins first,
// then model-name inference against whatever credentials are configured,
// then OpenRouter as a last resort if nothing else matched.
func resolveProviderSelection(cfg *config.Config) (providerSelection, error) {
	model := cfg.Agents.Defaults.GetModelName()
	providerName := strings.ToLower(cfg.Agents.Defaults.Provider)
	lowerModel := strings.ToLower(model)

	sel := providerSelection{}

	if providerName != "" {
		switch providerName {
		case "anthropic", "claude":
			sel.anthropic = true
			sel.apiKey = cfg.Providers.Anthropic.APIKey
			sel.apiBase = cfg.Providers.Anthropic.APIBase
			sel.proxy = cfg.Providers.Anthropic.Proxy
			if sel.apiBase == "" {
				sel.apiBase = defaultAnthropicAPIBase
			}
		case "openai":
			sel.apiKey = cfg.Providers.OpenAI.APIKey
			sel.apiBase = cfg.Providers.OpenAI.APIBase
			sel.proxy = cfg.Providers.OpenAI.Proxy
			if sel.apiBase == "" {
				sel.apiBase = "https://api.openai.com/v1"
			}
		default:
			canonicalName := providerName
			if alias, ok := providerNameAliases[providerName]; ok {
				canonicalName = alias
			}
			if canonicalName == "anthropic" {
				sel.anthropic = true
				sel.apiKey = cfg.Providers.Anthropic.APIKey
				sel.apiBase = cfg.Providers.Anthropic.APIBase
				if sel.apiBase == "" {
					sel.apiBase = defaultAnthropicAPIBase
				}
			} else if entry, ok := standardProviderRegistry[canonicalName]; ok {
				applyStandardProvider(cfg, &sel, entry)
			}
		}
	}

	// Fallback: infer provider from model name and configured keys.
	if sel.apiKey == "" && sel.apiBase == "" {
		matched := false
		for _, entry := range modelInferenceRegistry {
			if entry.matches(lowerModel, model, cfg) {
				entry.apply(cfg, &sel)
				matched = true
				break
			}
		}

		if !matched {
			if cfg.Providers.OpenRouter.APIKey != "" {
				applyStandardProvider(cfg, &sel, standardProviderRegistry["openrouter"])
			} else {
				return providerSelection{}, fmt.Errorf("no API key configured for model: %s", model)
			}
		}
	}

	if !sel.anthropic {
		if sel.apiKey == "" && !strings.HasPrefix(model, "bedrock/") {
			return providerSelection{}, fmt.Errorf("no API key configured for provider (model: %s)", model)
		}
		if sel.apiBase == "" {
			return providerSelection{}, fmt.Errorf("no API base configured for provider (model: %s)", model)
		}
	}

	return sel, nil
}

// CreateProvider builds the LLMProvider the configured model resolves to:
// Anthropic's Messages API (github.com/anthropics/anthropic-sdk-go) or an
// OpenAI-compatible chat-completions endpoint (github.com/openai/openai-go/v3),
// whichever resolveProviderSelection picked. A comma-separated api_key
// spreads calls across multiple keys via round-robin rotation.
func CreateProvider(cfg *config.Config) (LLMProvider, error) {
	sel, err := resolveProviderSelection(cfg)
	if err != nil {
		return nil, err
	}
	if sel.anthropic {
		return newAnthropicProvider(sel), nil
	}
	return newCompatProvider(sel), nil
}

func newAnthropicProvider(sel providerSelection) LLMProvider {
	keys := splitKeys(sel.apiKey)
	if len(keys) <= 1 {
		return anthropic.NewProviderWithBaseURL(sel.apiKey, sel.apiBase)
	}
	byKey := make(map[string]LLMProvider, len(keys))
	for _, k := range keys {
		byKey[k] = anthropic.NewProviderWithBaseURL(k, sel.apiBase)
	}
	return &multiKeyProvider{rotator: NewKeyRotator(keys), byKey: byKey}
}

func newCompatProvider(sel providerSelection) LLMProvider {
	keys := splitKeys(sel.apiKey)
	if len(keys) <= 1 {
		return openai_sdk.NewProvider(sel.apiKey, sel.apiBase, sel.proxy)
	}
	byKey := make(map[string]LLMProvider, len(keys))
	for _, k := range keys {
		byKey[k] = openai_sdk.NewProvider(k, sel.apiBase, sel.proxy)
	}
	return &multiKeyProvider{rotator: NewKeyRotator(keys), byKey: byKey}
}

// splitKeys turns a comma-separated api_key config value into a deduplicated
// list of individual keys, trimming surrounding whitespace.
func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// multiKeyProvider round-robins Chat calls across one client per configured
// API key (via KeyRotator), so a multi-key account spreads load and
// rate-limit exposure instead of hammering a single key.
type multiKeyProvider struct {
	rotator *KeyRotator
	byKey   map[string]LLMProvider
}

func (m *multiKeyProvider) Chat(ctx context.Context, messages []Message, tools []ToolDefinition, model string, options map[string]interface{}) (*LLMResponse, error) {
	return m.byKey[m.rotator.Next()].Chat(ctx, messages, tools, model, options)
}

func (m *multiKeyProvider) GetDefaultModel() string {
	for _, p := range m.byKey {
		return p.GetDefaultModel()
	}
	return ""
}
