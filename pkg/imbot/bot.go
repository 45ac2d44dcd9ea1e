package imbot

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/imbot/pkg/imbot/event"
	"github.com/randalmurphal/imbot/pkg/imbot/observability"
	"github.com/randalmurphal/imbot/pkg/imbot/registry"
)

// instances holds every bot created by New that has not been closed.
var instances = registry.New[int64, *Bot]()

// Instances returns the open bots in creation order.
func Instances() []*Bot {
	return instances.Values()
}

// FindInstance returns the open bot with id, or nil.
func FindInstance(id int64) *Bot {
	b, _ := instances.Get(id)
	return b
}

// Bot is one logged-in account. Its events flow through its broadcaster and
// are logged to its own logger.
type Bot struct {
	id     int64
	nick   string
	cfg    Configuration
	logger *slog.Logger

	// lifecycle serializes Login and Close.
	lifecycle sync.Mutex
	online    atomic.Bool
	closed    atomic.Bool

	friends   *registry.Registry[int64, *Friend]
	groups    *registry.Registry[int64, *Group]
	strangers *registry.Registry[int64, *Stranger]
}

// Compile-time interface check.
var _ event.Scope = (*Bot)(nil)

// New creates a bot and adds it to the instance table, replacing any open
// bot with the same id.
func New(id int64, nick string, opts ...BotOption) *Bot {
	cfg := defaultConfiguration()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Broadcaster == nil {
		cfg.Broadcaster = event.Default()
	}
	base := cfg.Logger
	if base == nil {
		base = slog.Default()
	}

	b := &Bot{
		id:        id,
		nick:      nick,
		cfg:       cfg,
		logger:    observability.EnrichLogger(base, id, nick),
		friends:   registry.New[int64, *Friend](),
		groups:    registry.New[int64, *Group](),
		strangers: registry.New[int64, *Stranger](),
	}
	instances.Put(id, b)
	return b
}

// ID returns the bot's account ID.
func (b *Bot) ID() int64 { return b.id }

// Nick returns the bot's nickname.
func (b *Bot) Nick() string { return b.nick }

// Logger implements event.Scope.
func (b *Bot) Logger() *slog.Logger { return b.logger }

// ShowVerboseEventLog implements event.Scope.
func (b *Bot) ShowVerboseEventLog() bool { return b.cfg.ShowVerboseEventLog }

// Configuration returns the bot's configuration.
func (b *Bot) Configuration() Configuration { return b.cfg }

// Broadcaster returns the broadcaster the bot's events go through.
func (b *Bot) Broadcaster() *event.Broadcaster { return b.cfg.Broadcaster }

// IsOnline reports whether the bot is logged in.
func (b *Bot) IsOnline() bool { return b.online.Load() }

// IsClosed reports whether Close was called.
func (b *Bot) IsClosed() bool { return b.closed.Load() }

// EventChannel returns the events of this bot only.
//
//	bot.EventChannel().SubscribeAlways(ctx, func(ctx context.Context, e imbot.BotEvent) error {
//	    ...
//	})
func (b *Bot) EventChannel() event.Channel[BotEvent] {
	return event.FilterByType[BotEvent](b.Broadcaster().Channel()).Filter(func(e BotEvent) bool {
		return e.Bot() == b
	})
}

// Friends returns the friend list in the order friends were added.
func (b *Bot) Friends() []*Friend { return b.friends.Values() }

// Groups returns the group list in the order groups were joined.
func (b *Bot) Groups() []*Group { return b.groups.Values() }

// Strangers returns the stranger list.
func (b *Bot) Strangers() []*Stranger { return b.strangers.Values() }

// Friend returns the friend with id, or nil.
func (b *Bot) Friend(id int64) *Friend {
	f, _ := b.friends.Get(id)
	return f
}

// FriendOrFail is Friend returning ErrContactNotFound instead of nil.
func (b *Bot) FriendOrFail(id int64) (*Friend, error) {
	if f, ok := b.friends.Get(id); ok {
		return f, nil
	}
	return nil, notFound(b.id, KindFriend, id)
}

// Group returns the group with id, or nil.
func (b *Bot) Group(id int64) *Group {
	g, _ := b.groups.Get(id)
	return g
}

// GroupOrFail is Group returning ErrContactNotFound instead of nil.
func (b *Bot) GroupOrFail(id int64) (*Group, error) {
	if g, ok := b.groups.Get(id); ok {
		return g, nil
	}
	return nil, notFound(b.id, KindGroup, id)
}

// Stranger returns the stranger with id, or nil.
func (b *Bot) Stranger(id int64) *Stranger {
	s, _ := b.strangers.Get(id)
	return s
}

// PutFriend adds or replaces a friend without broadcasting.
func (b *Bot) PutFriend(f *Friend) { b.friends.Put(f.ID(), f) }

// RemoveFriend removes a friend without broadcasting.
func (b *Bot) RemoveFriend(id int64) (*Friend, bool) { return b.friends.Delete(id) }

// PutGroup adds or replaces a group without broadcasting.
func (b *Bot) PutGroup(g *Group) { b.groups.Put(g.ID(), g) }

// RemoveGroup removes a group without broadcasting.
func (b *Bot) RemoveGroup(id int64) (*Group, bool) { return b.groups.Delete(id) }

// PutStranger adds or replaces a stranger without broadcasting.
func (b *Bot) PutStranger(s *Stranger) { b.strangers.Put(s.ID(), s) }

// RemoveStranger removes a stranger without broadcasting.
func (b *Bot) RemoveStranger(id int64) (*Stranger, bool) { return b.strangers.Delete(id) }

// Login brings the bot online and broadcasts BotOnlineEvent.
// Logging in an online bot does nothing.
func (b *Bot) Login(ctx context.Context) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if b.closed.Load() {
		return ErrBotClosed
	}
	if b.online.Load() {
		return nil
	}
	b.online.Store(true)
	observability.LogBotState(b.logger, "online")

	_, err := Broadcast(ctx, &BotOnlineEvent{BotRef: BotRef{b}})
	return err
}

// Relogin broadcasts BotReloginEvent followed by BotOnlineEvent.
// cause is the error that dropped the previous session, or nil.
func (b *Bot) Relogin(ctx context.Context, cause error) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if b.closed.Load() {
		return ErrBotClosed
	}
	if _, err := Broadcast(ctx, &BotReloginEvent{BotRef: BotRef{b}, Cause: cause}); err != nil && !event.IsDeliveryError(err) {
		return err
	}
	b.online.Store(true)
	observability.LogBotState(b.logger, "online")

	_, err := Broadcast(ctx, &BotOnlineEvent{BotRef: BotRef{b}})
	return err
}

// Close takes the bot offline for good and removes it from the instance
// table. cause is nil for a requested shutdown. BotOfflineEvent is
// broadcast if the bot was online. Closing twice does nothing.
func (b *Bot) Close(ctx context.Context, cause error) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	// A newer bot with the same id stays registered.
	defer instances.DeleteIf(b.id, func(cur *Bot) bool { return cur == b })

	if !b.online.Swap(false) {
		return nil
	}
	observability.LogBotState(b.logger, "offline")

	_, err := Broadcast(ctx, &BotOfflineEvent{BotRef: BotRef{b}, Cause: cause})
	return err
}

// LogValue implements slog.LogValuer.
func (b *Bot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", b.id),
		slog.String("nick", b.nick),
	)
}

// Broadcast broadcasts e through its bot's broadcaster.
//
//	evt, err := imbot.Broadcast(ctx, &imbot.FriendAddEvent{Friend: f})
func Broadcast[E BotEvent](ctx context.Context, e E) (E, error) {
	bot := e.Bot()
	if bot == nil {
		return e, ErrNilBot
	}
	return event.Broadcast(ctx, bot.Broadcaster(), e)
}
