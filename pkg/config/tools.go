package config

// ToolsConfig groups the configuration surface for built-in tools: web
// search backends, the shell exec sandbox, skill discovery/registries, and
// scheduled (cron) tool invocations.
type ToolsConfig struct {
	Web    WebToolsConfig             `json:"web" label:"Web Search"`
	Exec   ExecConfig                 `json:"exec" label:"Shell Exec"`
	Skills SkillsToolsConfig          `json:"skills" label:"Skills"`
	Cron   CronToolsConfig            `json:"cron" label:"Cron"`
	MCP    MCPToolsConfig             `json:"mcp" label:"MCP Servers"`
}

type BraveConfig struct {
	Enabled    bool   `json:"enabled" label:"Enabled" env:"CORTEXRUN_TOOLS_WEB_BRAVE_ENABLED"`
	APIKey     string `json:"api_key" label:"API Key" env:"CORTEXRUN_TOOLS_WEB_BRAVE_API_KEY"`
	MaxResults int    `json:"max_results" label:"Max Results" env:"CORTEXRUN_TOOLS_WEB_BRAVE_MAX_RESULTS"`
}

type DuckDuckGoConfig struct {
	Enabled    bool `json:"enabled" label:"Enabled" env:"CORTEXRUN_TOOLS_WEB_DUCKDUCKGO_ENABLED"`
	MaxResults int  `json:"max_results" label:"Max Results" env:"CORTEXRUN_TOOLS_WEB_DUCKDUCKGO_MAX_RESULTS"`
}

type PerplexityConfig struct {
	Enabled    bool   `json:"enabled" label:"Enabled" env:"CORTEXRUN_TOOLS_WEB_PERPLEXITY_ENABLED"`
	APIKey     string `json:"api_key" label:"API Key" env:"CORTEXRUN_TOOLS_WEB_PERPLEXITY_API_KEY"`
	MaxResults int    `json:"max_results" label:"Max Results" env:"CORTEXRUN_TOOLS_WEB_PERPLEXITY_MAX_RESULTS"`
}

type WebToolsConfig struct {
	Brave      BraveConfig      `json:"brave" label:"Brave Search"`
	DuckDuckGo DuckDuckGoConfig `json:"duckduckgo" label:"DuckDuckGo"`
	Perplexity PerplexityConfig `json:"perplexity" label:"Perplexity"`
}

// ExecConfig governs the shell exec tool's command-pattern guardrails.
type ExecConfig struct {
	Enabled            bool     `json:"enabled" label:"Enabled" env:"CORTEXRUN_TOOLS_EXEC_ENABLED"`
	EnableDenyPatterns bool     `json:"enable_deny_patterns" label:"Enable Deny Patterns" env:"CORTEXRUN_TOOLS_EXEC_ENABLE_DENY_PATTERNS"`
	CustomDenyPatterns []string `json:"custom_deny_patterns,omitempty" label:"Custom Deny Patterns"`
}

type ClawHubRegistryConfig struct {
	Enabled bool   `json:"enabled" label:"Enabled"`
	BaseURL string `json:"base_url" label:"Base URL"`
}

type SkillsRegistriesConfig struct {
	ClawHub ClawHubRegistryConfig `json:"clawhub" label:"ClawHub"`
}

type SearchCacheConfig struct {
	MaxSize    int `json:"max_size" label:"Max Entries"`
	TTLSeconds int `json:"ttl_seconds" label:"TTL Seconds"`
}

type SkillsToolsConfig struct {
	Registries             SkillsRegistriesConfig `json:"registries" label:"Registries"`
	MaxConcurrentSearches  int                    `json:"max_concurrent_searches" label:"Max Concurrent Searches"`
	SearchCache            SearchCacheConfig      `json:"search_cache" label:"Search Cache"`
}

type CronToolsConfig struct {
	ExecTimeoutMinutes int `json:"exec_timeout_minutes" label:"Exec Timeout Minutes"`
}

// MCPToolsConfig is the top-level MCP tool-loading switch plus the list of
// configured servers to discover tools from.
type MCPToolsConfig struct {
	Enabled bool              `json:"enabled" label:"Enabled"`
	Servers []MCPServerConfig `json:"servers,omitempty" label:"Servers"`
}

// MCPServerConfig describes one configured MCP server, reachable over
// stdio (Command/Args/Env) or HTTP/SSE (URL/Headers).
type MCPServerConfig struct {
	// Stdio transport
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	// HTTP transport
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	// Common
	Transport          string `json:"transport,omitempty"`
	Name               string `json:"name,omitempty"`
	ToolPrefix         string `json:"tool_prefix,omitempty"`
	WorkingDir         string `json:"working_dir,omitempty"`
	Description        string `json:"description,omitempty"`
	Enabled            bool   `json:"enabled"`
	IdleTimeout        int    `json:"idle_timeout,omitempty"`         // seconds, default 300
	StartupTimeoutMS   int    `json:"startup_timeout_ms,omitempty"`   // milliseconds
	CallTimeoutMS      int    `json:"call_timeout_ms,omitempty"`      // milliseconds
	TerminateTimeoutMS int    `json:"terminate_timeout_ms,omitempty"` // milliseconds
}
