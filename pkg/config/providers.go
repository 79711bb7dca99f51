package config

import (
	"fmt"
	"strings"
)

// ProviderConfig is the credential shape shared by every model provider.
// Not every field applies to every provider: WebSearch only means anything
// for OpenAI, ConnectMode only for GitHub Copilot, AuthMethod only for the
// providers that support an OAuth/CLI-token login in addition to a bare key.
type ProviderConfig struct {
	APIKey      string `json:"api_key,omitempty" label:"API Key"`
	APIBase     string `json:"api_base,omitempty" label:"API Base"`
	Proxy       string `json:"proxy,omitempty" label:"Proxy"`
	AuthMethod  string `json:"auth_method,omitempty" label:"Auth Method"`
	WebSearch   bool   `json:"web_search,omitempty" label:"Web Search"`
	ConnectMode string `json:"connect_mode,omitempty" label:"Connect Mode"`
}

// ProvidersConfig holds one ProviderConfig per supported model backend.
type ProvidersConfig struct {
	Anthropic     ProviderConfig `json:"anthropic"`
	OpenAI        ProviderConfig `json:"openai"`
	OpenRouter    ProviderConfig `json:"openrouter"`
	Groq          ProviderConfig `json:"groq"`
	Zhipu         ProviderConfig `json:"zhipu"`
	ZAI           ProviderConfig `json:"zai"`
	Gemini        ProviderConfig `json:"gemini"`
	Nvidia        ProviderConfig `json:"nvidia"`
	Moonshot      ProviderConfig `json:"moonshot"`
	VLLM          ProviderConfig `json:"vllm"`
	Zen           ProviderConfig `json:"zen"`
	ShengSuanYun  ProviderConfig `json:"shengsuanyun"`
	DeepSeek      ProviderConfig `json:"deepseek"`
	Mistral       ProviderConfig `json:"mistral"`
	Ollama        ProviderConfig `json:"ollama"`
	Cerebras      ProviderConfig `json:"cerebras"`
	VolcEngine    ProviderConfig `json:"volcengine"`
	GitHubCopilot ProviderConfig `json:"github_copilot"`
	Antigravity   ProviderConfig `json:"antigravity"`
	Qwen          ProviderConfig `json:"qwen"`
}

// ModelConfig is one entry in the model_list LiteLLM-style routing table:
// a named model resolving to a specific provider endpoint/credential pair,
// independent of the providers block above.
type ModelConfig struct {
	ModelName string `json:"model_name"`
	Model     string `json:"model"`
	APIBase   string `json:"api_base,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	// Tags label capability, e.g. ["vision", "code"], surfaced to the LLM
	// when it picks a model for a subagent task.
	Tags []string `json:"tags,omitempty"`
}

// namedProviderConfigs pairs each ProvidersConfig field with the name used
// in model_list's "protocol/model" prefix and in config files.
func namedProviderConfigs(p *ProvidersConfig) map[string]*ProviderConfig {
	return map[string]*ProviderConfig{
		"anthropic":      &p.Anthropic,
		"openai":         &p.OpenAI,
		"openrouter":     &p.OpenRouter,
		"groq":           &p.Groq,
		"zhipu":          &p.Zhipu,
		"zai":            &p.ZAI,
		"gemini":         &p.Gemini,
		"nvidia":         &p.Nvidia,
		"moonshot":       &p.Moonshot,
		"vllm":           &p.VLLM,
		"zen":            &p.Zen,
		"shengsuanyun":   &p.ShengSuanYun,
		"deepseek":       &p.DeepSeek,
		"mistral":        &p.Mistral,
		"ollama":         &p.Ollama,
		"cerebras":       &p.Cerebras,
		"volcengine":     &p.VolcEngine,
		"github_copilot": &p.GitHubCopilot,
		"antigravity":    &p.Antigravity,
		"qwen":           &p.Qwen,
	}
}

// migrateProvidersToModelList fills an empty model_list from any
// single-provider credentials set directly under providers.*, so a config
// file that only ever set providers.openai.api_key still produces a usable
// routing table.
func migrateProvidersToModelList(cfg *Config) {
	if len(cfg.ModelList) > 0 {
		return
	}

	for name, pc := range namedProviderConfigs(&cfg.Providers) {
		if pc.APIKey == "" {
			continue
		}
		cfg.ModelList = append(cfg.ModelList, ModelConfig{
			ModelName: name,
			Model:     fmt.Sprintf("%s/default", name),
			APIBase:   pc.APIBase,
			APIKey:    pc.APIKey,
		})
	}
}

// validateModelList rejects model_list entries missing their required
// "model" field; an entry with no target model can never be routed.
func validateModelList(cfg *Config) error {
	for i, m := range cfg.ModelList {
		if strings.TrimSpace(m.Model) == "" {
			name := m.ModelName
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return fmt.Errorf("config: model_list entry %q: model is required", name)
		}
	}
	return nil
}
