package mock

import (
	"context"
	"time"

	"github.com/randalmurphal/imbot/pkg/imbot"
	"github.com/randalmurphal/imbot/pkg/imbot/event"
	"github.com/randalmurphal/imbot/pkg/imbot/mock/msgdb"
	"github.com/randalmurphal/imbot/pkg/imbot/observability"
)

// Bot is an imbot.Bot driven by test code instead of a server.
type Bot struct {
	*imbot.Bot

	db       msgdb.Database
	ownsDB   bool
	profiles *ProfileService
}

// NewBot creates a mock bot. It is offline until Login.
func NewBot(id int64, opts ...Option) *Bot {
	cfg := defaultBotConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Bot{
		Bot:      imbot.New(id, cfg.nick, cfg.botOpts...),
		db:       cfg.db,
		profiles: cfg.profiles,
	}
	if b.db == nil {
		b.db = msgdb.NewMemoryDatabase()
		b.ownsDB = true
	}
	if b.profiles == nil {
		// Only fails for a non-positive size.
		b.profiles, _ = NewProfileService(defaultProfileCacheSize)
	}
	return b
}

// MessageDatabase returns the database messages are recorded in.
func (b *Bot) MessageDatabase() msgdb.Database { return b.db }

// Profiles returns the profile service.
func (b *Bot) Profiles() *ProfileService { return b.profiles }

// QueryProfile returns the profile of an account.
func (b *Bot) QueryProfile(ctx context.Context, id int64) (Profile, error) {
	return b.profiles.Query(ctx, id)
}

// Destroy closes the bot for good. The message database is closed too
// unless it was supplied with WithMessageDatabase.
func (b *Bot) Destroy(ctx context.Context) error {
	err := b.Close(ctx, nil)
	if b.ownsDB {
		if cerr := b.db.Close(); cerr != nil {
			observability.LogStoreError(b.Logger(), "msgdb", "close", cerr)
		}
	}
	return err
}

// AddFriend adds a friend without broadcasting.
func (b *Bot) AddFriend(id int64, nick string) *imbot.Friend {
	f := imbot.NewFriend(b.Bot, id, nick)
	b.PutFriend(f)
	return f
}

// AddGroup adds a group in which the bot is the owner, without broadcasting.
func (b *Bot) AddGroup(id int64, name string) *imbot.Group {
	g := imbot.NewGroup(b.Bot, id, name, imbot.PermissionOwner)
	b.PutGroup(g)
	return g
}

// AddStranger adds a stranger without broadcasting.
func (b *Bot) AddStranger(id int64, nick string) *imbot.Stranger {
	s := imbot.NewStranger(b.Bot, id, nick)
	b.PutStranger(s)
	return s
}

// Heartbeat broadcasts a BotHeartbeatEvent.
func (b *Bot) Heartbeat(ctx context.Context, latency time.Duration) (*imbot.BotHeartbeatEvent, error) {
	return imbot.Broadcast(ctx, &imbot.BotHeartbeatEvent{BotRef: imbot.BotRef{Of: b.Bot}, Latency: latency})
}

// ReceivePacket broadcasts a PacketReceivedEvent as if the transport decoded a packet.
func (b *Bot) ReceivePacket(ctx context.Context, command string, payload []byte) (*imbot.PacketReceivedEvent, error) {
	return imbot.Broadcast(ctx, &imbot.PacketReceivedEvent{
		BotRef:  imbot.BotRef{Of: b.Bot},
		Command: command,
		Payload: payload,
	})
}

// owns reports whether a contact's bot is this bot.
func (b *Bot) owns(other *imbot.Bot) bool {
	return other == b.Bot
}

// aborts reports whether a broadcast error stops the action that broadcast.
// Listener failures do not; actions return them alongside their result.
func aborts(err error) bool {
	return err != nil && !event.IsDeliveryError(err)
}
