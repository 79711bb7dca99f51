package config

// GatewayConfig holds the bind address settings that ResolvedHost and
// ResolvedAddr resolve. No server in this module reads it: the MCP OAuth
// loopback callback server always listens on 127.0.0.1 at
// mcp.OAuthCallbackPort.
type GatewayConfig struct {
	// Bind selects which address class ResolvedHost resolves to: "all"
	// (0.0.0.0), "local" (127.0.0.1), or "tailnet" (first private
	// tailnet-range IPv4 found on a live interface). Defaults to "local".
	Bind   string `json:"bind" label:"Bind" env:"CORTEXRUN_GATEWAY_BIND"`
	Port   int    `json:"port" label:"Port" env:"CORTEXRUN_GATEWAY_PORT"`
	APIKey string `json:"api_key,omitempty" label:"API Key" env:"CORTEXRUN_GATEWAY_API_KEY"`
}
