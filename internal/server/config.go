package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/studiotv.db")
	v.SetDefault("auth.admin_key", "")
	v.SetDefault("auth.token_ttl", "15m")

	// Module defaults
	v.SetDefault("modules.fleet.enabled", true)
	v.SetDefault("modules.campaign.enabled", true)
	v.SetDefault("modules.campaign.default_item_duration", 10)
	v.SetDefault("modules.liveness.enabled", true)
	v.SetDefault("modules.liveness.refresh_interval", "10m")
	v.SetDefault("modules.liveness.alert_log_cap", 500)
	v.SetDefault("modules.liveness.sweep_interval", "1m")
	v.SetDefault("modules.command.enabled", true)
	v.SetDefault("modules.pairing.enabled", true)
	v.SetDefault("modules.pairing.code_length", 6)
	v.SetDefault("modules.pairing.session_ttl", "10m")
	v.SetDefault("modules.player.enabled", true)
	v.SetDefault("modules.media.enabled", true)
	v.SetDefault("modules.media.upload_dir", "./data/uploads")
	v.SetDefault("modules.media.max_upload_bytes", 512<<20)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("studiotv")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/studiotv")
	}

	// Environment variable support: STV_SERVER_PORT=9090
	v.SetEnvPrefix("STV")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
