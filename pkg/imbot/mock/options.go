package mock

import (
	"github.com/randalmurphal/imbot/pkg/imbot"
	"github.com/randalmurphal/imbot/pkg/imbot/mock/msgdb"
)

// defaultNick is the nickname of a mock bot created without WithNick.
const defaultNick = "Mock bot"

// defaultProfileCacheSize bounds the profile service NewBot creates.
const defaultProfileCacheSize = 1024

// botConfig holds configuration for NewBot.
type botConfig struct {
	nick     string
	botOpts  []imbot.BotOption
	db       msgdb.Database
	profiles *ProfileService
}

// defaultBotConfig returns the default mock bot configuration.
func defaultBotConfig() botConfig {
	return botConfig{nick: defaultNick}
}

// Option configures a mock Bot.
type Option func(*botConfig)

// WithNick sets the bot's nickname.
// Default: "Mock bot"
func WithNick(nick string) Option {
	return func(c *botConfig) {
		c.nick = nick
	}
}

// WithBotOptions passes options through to imbot.New.
//
// Example:
//
//	bot := mock.NewBot(10001, mock.WithBotOptions(imbot.WithShowVerboseEventLog(true)))
func WithBotOptions(opts ...imbot.BotOption) Option {
	return func(c *botConfig) {
		c.botOpts = append(c.botOpts, opts...)
	}
}

// WithMessageDatabase stores message metadata in db. The bot does not close
// a database it was given.
// Default: a new msgdb.MemoryDatabase, closed by Destroy
func WithMessageDatabase(db msgdb.Database) Option {
	return func(c *botConfig) {
		c.db = db
	}
}

// WithProfileService answers profile queries from s.
// Default: a new service holding up to 1024 profiles
func WithProfileService(s *ProfileService) Option {
	return func(c *botConfig) {
		c.profiles = s
	}
}
