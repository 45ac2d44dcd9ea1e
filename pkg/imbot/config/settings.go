package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/randalmurphal/imbot/pkg/imbot/event"
)

// EnvPrefix prefixes every environment variable read by LoadSettings.
// Nested keys join with underscores: event.disabled is IMBOT_EVENT_DISABLED.
const EnvPrefix = "IMBOT"

// Settings errors.
var (
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidDriver    = errors.New("invalid message database driver")
)

// Settings is the runtime configuration of an imbot process.
type Settings struct {
	Event     EventSettings     `mapstructure:"event" yaml:"event"`
	Log       LogSettings       `mapstructure:"log" yaml:"log"`
	Bot       BotSettings       `mapstructure:"bot" yaml:"bot"`
	MessageDB MessageDBSettings `mapstructure:"message_db" yaml:"message_db"`
	Profiles  ProfileSettings   `mapstructure:"profiles" yaml:"profiles"`
}

// EventSettings holds the two process-wide pipeline switches.
type EventSettings struct {
	// Disabled freezes delivery without dropping registrations.
	Disabled bool `mapstructure:"disabled" yaml:"disabled"`

	// ShowVerboseEvents logs verbose events for every bot.
	ShowVerboseEvents bool `mapstructure:"show_verbose_events" yaml:"show_verbose_events"`
}

// LogSettings selects the slog handler.
type LogSettings struct {
	Level  string `mapstructure:"level" yaml:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json, otel
}

// BotSettings are the defaults for bots created by the mock environment.
type BotSettings struct {
	ID                  int64  `mapstructure:"id" yaml:"id"`
	Nick                string `mapstructure:"nick" yaml:"nick"`
	ShowVerboseEventLog bool   `mapstructure:"show_verbose_event_log" yaml:"show_verbose_event_log"`
}

// MessageDBSettings selects the message metadata store.
type MessageDBSettings struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // memory or sqlite
	Path   string `mapstructure:"path" yaml:"path"`   // sqlite only
}

// ProfileSettings bounds the user profile cache.
type ProfileSettings struct {
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
		Bot: BotSettings{
			ID:   10001,
			Nick: "Mock bot",
		},
		MessageDB: MessageDBSettings{
			Driver: "memory",
		},
		Profiles: ProfileSettings{
			CacheSize: 1024,
		},
	}
}

// LoadSettings reads settings from the optional file at path and from
// IMBOT_* environment variables. Environment wins over the file.
func LoadSettings(path string) (Settings, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// newViper registers every key with its default so AutomaticEnv can see it.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultSettings()
	v.SetDefault("event.disabled", d.Event.Disabled)
	v.SetDefault("event.show_verbose_events", d.Event.ShowVerboseEvents)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("bot.id", d.Bot.ID)
	v.SetDefault("bot.nick", d.Bot.Nick)
	v.SetDefault("bot.show_verbose_event_log", d.Bot.ShowVerboseEventLog)
	v.SetDefault("message_db.driver", d.MessageDB.Driver)
	v.SetDefault("message_db.path", d.MessageDB.Path)
	v.SetDefault("profiles.cache_size", d.Profiles.CacheSize)
	return v
}

// Validate checks enumerated values.
func (s Settings) Validate() error {
	if _, err := s.SlogLevel(); err != nil {
		return err
	}
	switch s.Log.Format {
	case "text", "json", "otel":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, s.Log.Format)
	}
	switch s.MessageDB.Driver {
	case "memory":
	case "sqlite":
		if s.MessageDB.Path == "" {
			return fmt.Errorf("%w: sqlite requires message_db.path", ErrInvalidDriver)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, s.MessageDB.Driver)
	}
	return nil
}

// SlogLevel parses Log.Level.
func (s Settings) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s.Log.Level)
	}
	return level, nil
}

// Apply sets the broadcaster's disable and verbose switches.
func (s Settings) Apply(b *event.Broadcaster) {
	b.SetDisabled(s.Event.Disabled)
	b.SetShowVerboseAlways(s.Event.ShowVerboseEvents)
}
