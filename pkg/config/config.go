package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts a single bare string
// or a JSON/YAML array of mixed scalar types, so allow_from can be written
// as "user1" or ["user1", 123, true] in a config file.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = FlexibleStringSlice{single}
		return nil
	}

	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the root of a Cortexrun runtime configuration: agent defaults,
// model-provider credentials, tool settings, and the handful of messaging
// channels whose config shape this module still parses (their bot runtimes
// live outside this module's scope).
type Config struct {
	Agents     AgentsConfig     `json:"agents" label:"Agent Defaults"`
	Providers  ProvidersConfig  `json:"providers" label:"Model Providers"`
	ModelList  []ModelConfig    `json:"model_list,omitempty" label:"Model List"`
	Channels   ChannelsConfig   `json:"channels" label:"Messaging Channels"`
	Gateway    GatewayConfig    `json:"gateway" label:"Gateway"`
	Tools      ToolsConfig      `json:"tools" label:"Tool Settings"`
	RateLimits RateLimitsConfig `json:"rate_limits" label:"Rate Limits"`
	Permission PermissionConfig `json:"permission" label:"Permissions"`
	mu         sync.RWMutex
}

type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults" label:"Defaults"`
	List     []AgentConfig `json:"list,omitempty" label:"Agents"`
}

type AgentDefaults struct {
	Workspace           string   `json:"workspace" label:"Workspace" env:"CORTEXRUN_AGENTS_DEFAULTS_WORKSPACE"`
	DataDir             string   `json:"data_dir" label:"Data Directory" env:"CORTEXRUN_AGENTS_DEFAULTS_DATA_DIR"`
	RestrictToWorkspace bool     `json:"restrict_to_workspace" label:"Restrict to Workspace" env:"CORTEXRUN_AGENTS_DEFAULTS_RESTRICT_TO_WORKSPACE"`
	Provider            string   `json:"provider" label:"Provider" env:"CORTEXRUN_AGENTS_DEFAULTS_PROVIDER"`
	Model               string   `json:"model" label:"Model" env:"CORTEXRUN_AGENTS_DEFAULTS_MODEL"`
	ModelFallbacks       []string `json:"model_fallbacks,omitempty" label:"Model Fallbacks"`
	MaxTokens           int      `json:"max_tokens" label:"Max Tokens" env:"CORTEXRUN_AGENTS_DEFAULTS_MAX_TOKENS"`
	ContextWindow       int      `json:"context_window" label:"Context Window" env:"CORTEXRUN_AGENTS_DEFAULTS_CONTEXT_WINDOW"`
	// Temperature is nil-able: nil means "use the provider's own default".
	Temperature       *float64 `json:"temperature,omitempty" label:"Temperature"`
	MaxToolIterations int      `json:"max_tool_iterations" label:"Max Tool Iterations" env:"CORTEXRUN_AGENTS_DEFAULTS_MAX_TOOL_ITERATIONS"`
}

// GetModelName returns the model this agent should resolve to, ignoring
// fallbacks; callers needing fallback behavior walk ModelFallbacks directly.
func (a AgentDefaults) GetModelName() string {
	return a.Model
}

// AgentConfig is one entry in agents.list: a named agent overriding the
// default model. Model accepts either a bare model string or an object
// with primary/fallbacks, via AgentModelConfig's custom unmarshaling.
type AgentConfig struct {
	ID    string           `json:"id"`
	Model *AgentModelConfig `json:"model,omitempty"`
}

// AgentModelConfig holds a resolved primary model plus fallbacks. It accepts
// either a JSON string ("gpt-4") or an object ({"primary":..., "fallbacks":...}).
type AgentModelConfig struct {
	Primary   string   `json:"primary"`
	Fallbacks []string `json:"fallbacks,omitempty"`
}

func (m *AgentModelConfig) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.Primary = s
		m.Fallbacks = nil
		return nil
	}

	type alias AgentModelConfig
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = AgentModelConfig(a)
	return nil
}

type RateLimitsConfig struct {
	MaxToolCallsPerMinute int `json:"max_tool_calls_per_minute" label:"Max Tool Calls Per Minute" env:"CORTEXRUN_RATE_LIMITS_MAX_TOOL_CALLS_PER_MINUTE"` // 0 = unlimited
	MaxRequestsPerMinute  int `json:"max_requests_per_minute" label:"Max Requests Per Minute" env:"CORTEXRUN_RATE_LIMITS_MAX_REQUESTS_PER_MINUTE"`       // 0 = unlimited
}

func DefaultConfig() *Config {
	return defaultConfig()
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := loadConfigFile(path, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(&cfg.Agents.Defaults); err != nil {
		return nil, err
	}

	migrateProvidersToModelList(cfg)

	if err := validateModelList(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return saveConfigLocked(path, cfg)
}

// SaveConfigLocked writes cfg to path without acquiring cfg's mutex.
// Use this when the caller manages synchronization externally.
func SaveConfigLocked(path string, cfg *Config) error {
	return saveConfigLocked(path, cfg)
}

func saveConfigLocked(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) Lock()    { c.mu.Lock() }
func (c *Config) Unlock()  { c.mu.Unlock() }
func (c *Config) RLock()   { c.mu.RLock() }
func (c *Config) RUnlock() { c.mu.RUnlock() }

// CopyFrom copies all configuration fields from src into c.
// The caller must hold c's write lock. src's mutex is not acquired.
func (c *Config) CopyFrom(src *Config) {
	c.Agents = src.Agents
	c.Providers = src.Providers
	c.ModelList = src.ModelList
	c.Channels = src.Channels
	c.Gateway = src.Gateway
	c.Tools = src.Tools
	c.RateLimits = src.RateLimits
	c.Permission = src.Permission
}

func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Agents.Defaults.Workspace)
}

func (c *Config) DataPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Agents.Defaults.DataDir)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
