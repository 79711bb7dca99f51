package config

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"
)

// loadConfigFile reads path (YAML, JSON, or TOML, detected by extension) into
// cfg. Viper only handles the format-agnostic parse; the actual population of
// cfg goes through encoding/json so that FlexibleStringSlice and
// AgentModelConfig's custom UnmarshalJSON methods run. Viper's own
// mapstructure decode path does not call json.Unmarshaler, so skipping this
// second pass would silently drop the "allow_from: user1" and
// "model: gpt-4" shorthand forms.
func loadConfigFile(path string, cfg *Config) error {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	raw, err := json.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("config: re-encode %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	return nil
}
