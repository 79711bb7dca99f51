// Cortexrun - Ultra-lightweight personal AI agent
// License: MIT
//
// Copyright (c) 2026 Cortexrun contributors

package config

func defaultConfig() *Config {
	return &Config{
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Workspace:           "~/.cortexrun/workspace",
				DataDir:             "~/.cortexrun/data",
				RestrictToWorkspace: true,
				MaxTokens:           8192,
				ContextWindow:       128000,
				MaxToolIterations:   10,
			},
		},
		Channels: ChannelsConfig{
			WhatsApp: WhatsAppConfig{
				Enabled:   false,
				BridgeURL: "ws://localhost:3001",
				AllowFrom: FlexibleStringSlice{},
			},
			Telegram: TelegramConfig{
				Enabled:   false,
				AllowFrom: FlexibleStringSlice{},
			},
			Discord: DiscordConfig{
				Enabled:   false,
				AllowFrom: FlexibleStringSlice{},
			},
			Slack: SlackConfig{
				Enabled:   false,
				AllowFrom: FlexibleStringSlice{},
			},
			LINE: LINEConfig{
				Enabled:     false,
				WebhookHost: "127.0.0.1",
				WebhookPort: 18791,
				WebhookPath: "/webhook/line",
				AllowFrom:   FlexibleStringSlice{},
			},
		},
		Gateway: GatewayConfig{
			Bind: "local",
			Port: 18790,
		},
		Tools: ToolsConfig{
			Exec: ExecConfig{
				Enabled:            false,
				EnableDenyPatterns: true,
			},
			Web: WebToolsConfig{
				Brave: BraveConfig{
					Enabled:    false,
					MaxResults: 5,
				},
				DuckDuckGo: DuckDuckGoConfig{
					Enabled:    true,
					MaxResults: 5,
				},
				Perplexity: PerplexityConfig{
					Enabled:    false,
					MaxResults: 5,
				},
			},
			Skills: SkillsToolsConfig{
				Registries: SkillsRegistriesConfig{
					ClawHub: ClawHubRegistryConfig{
						Enabled: false,
						BaseURL: "https://clawhub.dev/api",
					},
				},
				MaxConcurrentSearches: 3,
				SearchCache: SearchCacheConfig{
					MaxSize:    100,
					TTLSeconds: 3600,
				},
			},
			Cron: CronToolsConfig{
				ExecTimeoutMinutes: 5,
			},
			MCP: MCPToolsConfig{
				Enabled: true,
			},
		},
		RateLimits: RateLimitsConfig{
			MaxToolCallsPerMinute: 30,
			MaxRequestsPerMinute:  15,
		},
		Permission: defaultPermissionConfig(),
	}
}
