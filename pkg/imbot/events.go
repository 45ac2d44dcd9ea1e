package imbot

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/imbot/pkg/imbot/event"
)

// BotEvent is an event that happened on a bot. Its diagnostic line goes to
// the bot's logger.
type BotEvent interface {
	event.Event
	event.Scoped

	// Bot returns the bot the event happened on. Nil for a malformed event.
	Bot() *Bot
}

// scopeOf avoids returning a typed nil Scope.
func scopeOf(b *Bot) event.Scope {
	if b == nil {
		return nil
	}
	return b
}

// BotRef is embedded by events that belong to a bot directly rather than
// through a contact.
type BotRef struct {
	Of *Bot
}

// Bot returns the referenced bot.
func (r BotRef) Bot() *Bot { return r.Of }

// Scope implements event.Scoped.
func (r BotRef) Scope() event.Scope { return scopeOf(r.Of) }

func causeAttr(err error) slog.Attr {
	if err == nil {
		return slog.String("cause", "")
	}
	return slog.String("cause", err.Error())
}

// Bot lifecycle events.

// BotOnlineEvent is broadcast when a bot finishes logging in.
type BotOnlineEvent struct {
	event.Base
	BotRef
}

// LogValue implements slog.LogValuer.
func (e *BotOnlineEvent) LogValue() slog.Value {
	return slog.GroupValue(slog.Any("bot", e.Of))
}

// BotOfflineEvent is broadcast when a bot goes offline.
type BotOfflineEvent struct {
	event.Base
	BotRef

	// Cause is nil when the bot was closed on request.
	Cause error
}

// IsActive reports whether the bot was taken offline on request.
func (e *BotOfflineEvent) IsActive() bool { return e.Cause == nil }

// LogValue implements slog.LogValuer.
func (e *BotOfflineEvent) LogValue() slog.Value {
	return slog.GroupValue(slog.Any("bot", e.Of), causeAttr(e.Cause))
}

// BotReloginEvent is broadcast before a bot logs in again after losing its session.
type BotReloginEvent struct {
	event.Base
	BotRef

	Cause error
}

// LogValue implements slog.LogValuer.
func (e *BotReloginEvent) LogValue() slog.Value {
	return slog.GroupValue(slog.Any("bot", e.Of), causeAttr(e.Cause))
}

// BotHeartbeatEvent is broadcast on every keep-alive round trip. It is
// frequent enough that it is never logged.
type BotHeartbeatEvent struct {
	event.Base
	BotRef

	Latency time.Duration
}

// NeverLogged implements event.NeverLogged.
func (*BotHeartbeatEvent) NeverLogged() {}

// PacketReceivedEvent is broadcast for every decoded incoming packet. The
// transport logs packets itself, so the event is not logged but still counted.
type PacketReceivedEvent struct {
	event.Base
	BotRef

	Command string
	Payload []byte
}

// LogExempt implements event.LogExempt.
func (*PacketReceivedEvent) LogExempt() {}

// Friend events.

// FriendAddEvent is broadcast after a friend was added to the friend list.
type FriendAddEvent struct {
	event.Base
	Friend *Friend
}

// Bot implements BotEvent.
func (e *FriendAddEvent) Bot() *Bot { return friendBot(e.Friend) }

// Scope implements event.Scoped.
func (e *FriendAddEvent) Scope() event.Scope { return scopeOf(e.Bot()) }

// LogValue implements slog.LogValuer.
func (e *FriendAddEvent) LogValue() slog.Value {
	return slog.GroupValue(slog.Any("friend", e.Friend))
}

// FriendDeleteEvent is broadcast after a friend was removed from the friend list.
type FriendDeleteEvent struct {
	event.Base
	Friend *Friend
}

// Bot implements BotEvent.
func (e *FriendDeleteEvent) Bot() *Bot { return friendBot(e.Friend) }

// Scope implements event.Scoped.
func (e *FriendDeleteEvent) Scope() event.Scope { return scopeOf(e.Bot()) }

// LogValue implements slog.LogValuer.
func (e *FriendDeleteEvent) LogValue() slog.Value {
	return slog.GroupValue(slog.Any("friend", e.Friend))
}

func friendBot(f *Friend) *Bot {
	if f == nil {
		return nil
	}
	return f.Bot()
}

// Group events.

// BotInvitedJoinGroupRequestEvent is broadcast when someone invites the bot into a group.
type BotInvitedJoinGroupRequestEvent struct {
	event.Base
	BotRef

	RequestID   string
	InvitorID   int64
	InvitorNick string
	GroupID     int64
	GroupName   string
}

// LogValue implements slog.LogValuer.
func (e *BotInvitedJoinGroupRequestEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("request_id", e.RequestID),
		slog.Int64("invitor_id", e.InvitorID),
		slog.Int64("group_id", e.GroupID),
	)
}

// MemberJoinRequestEvent is broadcast when someone asks to join a group the
// bot administers.
type MemberJoinRequestEvent struct {
	event.Base
	BotRef

	RequestID string
	GroupID   int64
	GroupName string
	FromID    int64
	FromNick  string
	Message   string

	// InvitorID is zero when the requester was not invited.
	InvitorID int64
}

// LogValue implements slog.LogValuer.
func (e *MemberJoinRequestEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("request_id", e.RequestID),
		slog.Int64("group_id", e.GroupID),
		slog.Int64("from_id", e.FromID),
		slog.String("message", e.Message),
	)
}

// Group returns the group the request targets, or nil if the bot left it.
func (e *MemberJoinRequestEvent) Group() *Group {
	if e.Of == nil {
		return nil
	}
	return e.Of.Group(e.GroupID)
}

// memberEvent carries a member; the bot is derived from its group.
type memberEvent struct {
	Member *Member
}

// Bot implements BotEvent.
func (e memberEvent) Bot() *Bot {
	if e.Member == nil {
		return nil
	}
	return e.Member.Bot()
}

// Scope implements event.Scoped.
func (e memberEvent) Scope() event.Scope { return scopeOf(e.Bot()) }

// Group returns the member's group.
func (e memberEvent) Group() *Group {
	if e.Member == nil {
		return nil
	}
	return e.Member.Group()
}

// MemberJoinEvent is broadcast after a member joined a group.
type MemberJoinEvent struct {
	event.Base
	memberEvent

	// InvitorID is zero when the member joined on request.
	InvitorID int64
}

// NewMemberJoinEvent creates a MemberJoinEvent.
func NewMemberJoinEvent(m *Member, invitorID int64) *MemberJoinEvent {
	return &MemberJoinEvent{memberEvent: memberEvent{Member: m}, InvitorID: invitorID}
}

// LogValue implements slog.LogValuer.
func (e *MemberJoinEvent) LogValue() slog.Value {
	return slog.GroupValue(slog.Any("member", e.Member), slog.Int64("invitor_id", e.InvitorID))
}

// MemberPermissionChangeEvent is broadcast after a member's role changed.
type MemberPermissionChangeEvent struct {
	event.Base
	memberEvent

	Origin Permission
	New    Permission
}

// NewMemberPermissionChangeEvent creates a MemberPermissionChangeEvent.
func NewMemberPermissionChangeEvent(m *Member, origin, next Permission) *MemberPermissionChangeEvent {
	return &MemberPermissionChangeEvent{memberEvent: memberEvent{Member: m}, Origin: origin, New: next}
}

// LogValue implements slog.LogValuer.
func (e *MemberPermissionChangeEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("member", e.Member),
		slog.String("origin", e.Origin.String()),
		slog.String("new", e.New.String()),
	)
}

// MemberCardChangeEvent is broadcast after a member's group nickname changed.
// It is not broadcast at all when the nickname stayed the same.
type MemberCardChangeEvent struct {
	event.Base
	memberEvent

	Origin string
	New    string
}

// NewMemberCardChangeEvent creates a MemberCardChangeEvent.
func NewMemberCardChangeEvent(m *Member, origin, next string) *MemberCardChangeEvent {
	return &MemberCardChangeEvent{memberEvent: memberEvent{Member: m}, Origin: origin, New: next}
}

// ShouldBroadcast implements event.BroadcastControllable.
func (e *MemberCardChangeEvent) ShouldBroadcast() bool {
	return e.Origin != e.New
}

// LogValue implements slog.LogValuer.
func (e *MemberCardChangeEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("member", e.Member),
		slog.String("origin", e.Origin),
		slog.String("new", e.New),
	)
}

// Compile-time interface checks.
var (
	_ BotEvent = (*BotOnlineEvent)(nil)
	_ BotEvent = (*BotOfflineEvent)(nil)
	_ BotEvent = (*BotReloginEvent)(nil)
	_ BotEvent = (*BotHeartbeatEvent)(nil)
	_ BotEvent = (*PacketReceivedEvent)(nil)
	_ BotEvent = (*FriendAddEvent)(nil)
	_ BotEvent = (*FriendDeleteEvent)(nil)
	_ BotEvent = (*BotInvitedJoinGroupRequestEvent)(nil)
	_ BotEvent = (*MemberJoinRequestEvent)(nil)
	_ BotEvent = (*MemberJoinEvent)(nil)
	_ BotEvent = (*MemberPermissionChangeEvent)(nil)
	_ BotEvent = (*MemberCardChangeEvent)(nil)

	_ event.NeverLogged           = (*BotHeartbeatEvent)(nil)
	_ event.LogExempt             = (*PacketReceivedEvent)(nil)
	_ event.BroadcastControllable = (*MemberCardChangeEvent)(nil)
)
