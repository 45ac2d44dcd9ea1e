package imbot

import (
	"log/slog"

	"github.com/randalmurphal/imbot/pkg/imbot/event"
)

// Configuration holds the per-bot settings.
type Configuration struct {
	// ShowVerboseEventLog logs Verbose events of this bot.
	ShowVerboseEventLog bool

	// Logger is the base logger. The bot adds bot_id and bot_nick.
	// Default: slog.Default()
	Logger *slog.Logger

	// Broadcaster delivers the bot's events.
	// Default: event.Default()
	Broadcaster *event.Broadcaster
}

// defaultConfiguration returns the default bot configuration.
func defaultConfiguration() Configuration {
	return Configuration{}
}

// BotOption configures a Bot.
type BotOption func(*Configuration)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) BotOption {
	return func(c *Configuration) {
		c.Logger = logger
	}
}

// WithShowVerboseEventLog enables logging of Verbose events for this bot.
// Default: false
func WithShowVerboseEventLog(show bool) BotOption {
	return func(c *Configuration) {
		c.ShowVerboseEventLog = show
	}
}

// WithBroadcaster routes the bot's events through b instead of the default
// broadcaster. Tests use it to get an isolated registry.
//
// Example:
//
//	b := event.NewBroadcaster(event.BroadcasterConfig{})
//	bot := imbot.New(10001, "Mock bot", imbot.WithBroadcaster(b))
func WithBroadcaster(b *event.Broadcaster) BotOption {
	return func(c *Configuration) {
		c.Broadcaster = b
	}
}

// WithConfiguration replaces the whole configuration.
func WithConfiguration(cfg Configuration) BotOption {
	return func(c *Configuration) {
		*c = cfg
	}
}
