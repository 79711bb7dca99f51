package config

// ChannelsConfig holds the config shape for messaging-bridge channels. The
// bot runtimes that would read these fields are outside this module's
// scope; the shapes are still parsed so that a config file shared with a
// full Cortexrun install round-trips without data loss.
type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp" label:"WhatsApp"`
	Telegram TelegramConfig `json:"telegram" label:"Telegram"`
	Discord  DiscordConfig  `json:"discord" label:"Discord"`
	Slack    SlackConfig    `json:"slack" label:"Slack"`
	LINE     LINEConfig     `json:"line" label:"LINE"`
}

type WhatsAppConfig struct {
	Enabled   bool                `json:"enabled" label:"Enabled" env:"CORTEXRUN_CHANNELS_WHATSAPP_ENABLED"`
	BridgeURL string              `json:"bridge_url" label:"Bridge URL" env:"CORTEXRUN_CHANNELS_WHATSAPP_BRIDGE_URL"`
	AllowFrom FlexibleStringSlice `json:"allow_from" label:"Allow From" env:"CORTEXRUN_CHANNELS_WHATSAPP_ALLOW_FROM"`
}

type TelegramConfig struct {
	Enabled   bool                `json:"enabled" label:"Enabled" env:"CORTEXRUN_CHANNELS_TELEGRAM_ENABLED"`
	Token     string              `json:"token" label:"Token" env:"CORTEXRUN_CHANNELS_TELEGRAM_TOKEN"`
	Proxy     string              `json:"proxy" label:"Proxy" env:"CORTEXRUN_CHANNELS_TELEGRAM_PROXY"`
	AllowFrom FlexibleStringSlice `json:"allow_from" label:"Allow From" env:"CORTEXRUN_CHANNELS_TELEGRAM_ALLOW_FROM"`
}

type DiscordConfig struct {
	Enabled   bool                `json:"enabled" label:"Enabled" env:"CORTEXRUN_CHANNELS_DISCORD_ENABLED"`
	Token     string              `json:"token" label:"Token" env:"CORTEXRUN_CHANNELS_DISCORD_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" label:"Allow From" env:"CORTEXRUN_CHANNELS_DISCORD_ALLOW_FROM"`
}

type SlackConfig struct {
	Enabled   bool                `json:"enabled" label:"Enabled" env:"CORTEXRUN_CHANNELS_SLACK_ENABLED"`
	BotToken  string              `json:"bot_token" label:"Bot Token" env:"CORTEXRUN_CHANNELS_SLACK_BOT_TOKEN"`
	AppToken  string              `json:"app_token" label:"App Token" env:"CORTEXRUN_CHANNELS_SLACK_APP_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" label:"Allow From" env:"CORTEXRUN_CHANNELS_SLACK_ALLOW_FROM"`
}

type LINEConfig struct {
	Enabled            bool                `json:"enabled" label:"Enabled" env:"CORTEXRUN_CHANNELS_LINE_ENABLED"`
	ChannelSecret      string              `json:"channel_secret" label:"Channel Secret" env:"CORTEXRUN_CHANNELS_LINE_CHANNEL_SECRET"`
	ChannelAccessToken string              `json:"channel_access_token" label:"Channel Access Token" env:"CORTEXRUN_CHANNELS_LINE_CHANNEL_ACCESS_TOKEN"`
	WebhookHost        string              `json:"webhook_host" label:"Webhook Host" env:"CORTEXRUN_CHANNELS_LINE_WEBHOOK_HOST"`
	WebhookPort        int                 `json:"webhook_port" label:"Webhook Port" env:"CORTEXRUN_CHANNELS_LINE_WEBHOOK_PORT"`
	WebhookPath        string              `json:"webhook_path" label:"Webhook Path" env:"CORTEXRUN_CHANNELS_LINE_WEBHOOK_PATH"`
	AllowFrom          FlexibleStringSlice `json:"allow_from" label:"Allow From" env:"CORTEXRUN_CHANNELS_LINE_ALLOW_FROM"`
}
