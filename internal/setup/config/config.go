package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound = errors.New("could not find bot.toml in any config path")
	ErrMissingConfig      = errors.New("missing required configuration values")
	ErrWebhookIncomplete  = errors.New("webhook.url and webhook.token must be set together")
)

// Config represents the entire application configuration. It is built once
// at startup and passed into component constructors; nothing reads the
// process environment after this point.
type Config struct {
	Debug      Debug      `koanf:"debug"`
	Discord    Discord    `koanf:"discord"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Webhook    Webhook    `koanf:"webhook"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
}

// Discord contains Discord-related configuration.
type Discord struct {
	// Bot token.
	Token string `koanf:"token"`
	// Guild the bot serves; used for membership lookups when an event does
	// not carry a guild ID (REST-fetched history during backfill).
	GuildID uint64 `koanf:"guild_id"`
	// Channel where vouch commands are accepted.
	VouchChannelID uint64 `koanf:"vouch_channel_id"`
	// Channel referenced in report embeds for feedback.
	SuggestionsChannelID uint64 `koanf:"suggestions_channel_id"`
	// Presence activity shown while the bot is online.
	Activity string `koanf:"activity"`
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"db_name"`
	// Connection pool settings.
	MaxOpenConns int `koanf:"max_open_conns"`
	MaxIdleConns int `koanf:"max_idle_conns"`
	// Connection lifetimes in minutes.
	MaxLifetime int `koanf:"max_lifetime"`
	MaxIdleTime int `koanf:"max_idle_time"`
	// Run pending migrations on startup.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// Webhook contains the optional outbound notification integration.
type Webhook struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`
}

// Enabled reports whether the webhook integration is configured.
func (w *Webhook) Enabled() bool {
	return w.URL != "" && w.Token != ""
}

// LoadConfig loads and validates the configuration from bot.toml.
// Returns the config along with the config directory that was used.
func LoadConfig() (*Config, string, error) {
	k := koanf.New(".")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get home directory: %w", err)
	}

	configPaths := []string{
		".vouchbot",
		homeDir + "/.vouchbot/config",
		"/etc/vouchbot/config",
		"/app/config",
		"config",
		".",
	}

	var usedConfigPath string

	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/bot.toml", path)
		if err := k.Load(file.Provider(configPath), toml.Parser()); err == nil {
			usedConfigPath = path
			break
		}
	}

	if usedConfigPath == "" {
		return nil, "", ErrConfigFileNotFound
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// Validate checks that every required value is present. All missing names
// are collected and reported in a single error so a misconfigured deployment
// fails fast with the complete list.
func (c *Config) Validate() error {
	var missing []string

	required := []struct {
		name string
		ok   bool
	}{
		{"discord.token", c.Discord.Token != ""},
		{"discord.guild_id", c.Discord.GuildID != 0},
		{"discord.vouch_channel_id", c.Discord.VouchChannelID != 0},
		{"discord.suggestions_channel_id", c.Discord.SuggestionsChannelID != 0},
		{"postgresql.host", c.PostgreSQL.Host != ""},
		{"postgresql.port", c.PostgreSQL.Port != 0},
		{"postgresql.user", c.PostgreSQL.User != ""},
		{"postgresql.password", c.PostgreSQL.Password != ""},
		{"postgresql.db_name", c.PostgreSQL.DBName != ""},
	}

	for _, r := range required {
		if !r.ok {
			missing = append(missing, r.name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	// Webhook integration is optional but must be configured as a pair
	if (c.Webhook.URL == "") != (c.Webhook.Token == "") {
		return ErrWebhookIncomplete
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Debug.LogLevel == "" {
		c.Debug.LogLevel = "info"
	}

	if c.Discord.Activity == "" {
		c.Discord.Activity = "Path of Hideout"
	}

	if c.PostgreSQL.MaxOpenConns == 0 {
		c.PostgreSQL.MaxOpenConns = 4
	}

	if c.PostgreSQL.MaxIdleConns == 0 {
		c.PostgreSQL.MaxIdleConns = 2
	}

	if c.PostgreSQL.MaxLifetime == 0 {
		c.PostgreSQL.MaxLifetime = 10
	}

	if c.PostgreSQL.MaxIdleTime == 0 {
		c.PostgreSQL.MaxIdleTime = 10
	}
}
