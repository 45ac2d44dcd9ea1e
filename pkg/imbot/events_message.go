package imbot

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/imbot/pkg/imbot/event"
)

// MessageSource identifies a stored message.
type MessageSource struct {
	ID       int64 // Message ID as assigned by the message database
	SenderID int64
	TargetID int64 // Friend or group the message was sent to
	Time     time.Time
}

// Message is a received or sent text message.
type Message struct {
	Source  MessageSource
	Content string
}

// LogValue implements slog.LogValuer.
func (m Message) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", m.Source.ID),
		slog.Int64("sender_id", m.Source.SenderID),
		slog.Int("length", len(m.Content)),
	)
}

// FriendMessageEvent is broadcast for a message from a friend.
// The transport logs incoming messages, so the event is not logged again.
type FriendMessageEvent struct {
	event.Base
	Friend  *Friend
	Message Message
}

// Bot implements BotEvent.
func (e *FriendMessageEvent) Bot() *Bot { return friendBot(e.Friend) }

// Scope implements event.Scoped.
func (e *FriendMessageEvent) Scope() event.Scope { return scopeOf(e.Bot()) }

// MessageReceipt implements event.MessageReceipt.
func (*FriendMessageEvent) MessageReceipt() {}

// GroupMessageEvent is broadcast for a message in a group.
type GroupMessageEvent struct {
	event.Base
	memberEvent
	Message Message
}

// NewGroupMessageEvent creates a GroupMessageEvent sent by m.
func NewGroupMessageEvent(m *Member, msg Message) *GroupMessageEvent {
	return &GroupMessageEvent{memberEvent: memberEvent{Member: m}, Message: msg}
}

// Sender returns the member who sent the message.
func (e *GroupMessageEvent) Sender() *Member { return e.Member }

// MessageReceipt implements event.MessageReceipt.
func (*GroupMessageEvent) MessageReceipt() {}

// groupEvent carries a group the bot sends to.
type groupEvent struct {
	Group *Group
}

// Bot implements BotEvent.
func (e groupEvent) Bot() *Bot {
	if e.Group == nil {
		return nil
	}
	return e.Group.Bot()
}

// Scope implements event.Scoped.
func (e groupEvent) Scope() event.Scope { return scopeOf(e.Bot()) }

// GroupMessagePreSendEvent is broadcast before the bot sends to a group.
// Cancelling it stops the message from being sent.
type GroupMessagePreSendEvent struct {
	event.CancellableBase
	groupEvent
	Content string
}

// NewGroupMessagePreSendEvent creates a GroupMessagePreSendEvent.
func NewGroupMessagePreSendEvent(g *Group, content string) *GroupMessagePreSendEvent {
	return &GroupMessagePreSendEvent{groupEvent: groupEvent{Group: g}, Content: content}
}

// LogValue implements slog.LogValuer.
func (e *GroupMessagePreSendEvent) LogValue() slog.Value {
	return slog.GroupValue(slog.Any("group", e.Group), slog.Int("length", len(e.Content)))
}

// GroupMessagePostSendEvent is broadcast after the bot sent, or failed to
// send, to a group. It is only logged when verbose event logging is on.
type GroupMessagePostSendEvent struct {
	event.Base
	groupEvent
	Content string

	// Source is nil when sending failed.
	Source *MessageSource
	Err    error
}

// NewGroupMessagePostSendEvent creates a GroupMessagePostSendEvent.
func NewGroupMessagePostSendEvent(g *Group, content string, src *MessageSource, err error) *GroupMessagePostSendEvent {
	return &GroupMessagePostSendEvent{groupEvent: groupEvent{Group: g}, Content: content, Source: src, Err: err}
}

// Verbose implements event.Verbose.
func (*GroupMessagePostSendEvent) Verbose() {}

// LogValue implements slog.LogValuer.
func (e *GroupMessagePostSendEvent) LogValue() slog.Value {
	attrs := []slog.Attr{slog.Any("group", e.Group), causeAttr(e.Err)}
	if e.Source != nil {
		attrs = append(attrs, slog.Int64("message_id", e.Source.ID))
	}
	return slog.GroupValue(attrs...)
}

// FriendRecallEvent is broadcast when a message in a private chat is recalled.
type FriendRecallEvent struct {
	event.Base

	// Friend is the chat the message was in.
	Friend      *Friend
	MessageID   int64
	MessageTime time.Time

	// OperatorID is the account that recalled the message.
	OperatorID int64
}

// Bot implements BotEvent.
func (e *FriendRecallEvent) Bot() *Bot { return friendBot(e.Friend) }

// Scope implements event.Scoped.
func (e *FriendRecallEvent) Scope() event.Scope { return scopeOf(e.Bot()) }

// LogValue implements slog.LogValuer.
func (e *FriendRecallEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("friend", e.Friend),
		slog.Int64("message_id", e.MessageID),
		slog.Int64("operator_id", e.OperatorID),
	)
}

// GroupRecallEvent is broadcast when a group message is recalled. Member is
// the author of the message.
type GroupRecallEvent struct {
	event.Base
	memberEvent

	// Operator recalled the message. It may be the author.
	Operator    *Member
	MessageID   int64
	MessageTime time.Time
}

// NewGroupRecallEvent creates a GroupRecallEvent for a message by author.
func NewGroupRecallEvent(author, operator *Member, id int64, sent time.Time) *GroupRecallEvent {
	return &GroupRecallEvent{
		memberEvent: memberEvent{Member: author},
		Operator:    operator,
		MessageID:   id,
		MessageTime: sent,
	}
}

// Author returns the member who sent the recalled message.
func (e *GroupRecallEvent) Author() *Member { return e.Member }

// LogValue implements slog.LogValuer.
func (e *GroupRecallEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("author", e.Member),
		slog.Any("operator", e.Operator),
		slog.Int64("message_id", e.MessageID),
	)
}

// NudgeEvent is broadcast when someone nudges someone else, the bot included.
type NudgeEvent struct {
	event.Base

	FromID   int64
	TargetID int64

	// Subject is the chat the nudge shows up in: a friend, stranger or group.
	Subject Contact

	// Action and Suffix render as "<from> <action> <target><suffix>".
	Action string
	Suffix string
}

// Bot implements BotEvent.
func (e *NudgeEvent) Bot() *Bot {
	if e.Subject == nil {
		return nil
	}
	return e.Subject.Bot()
}

// Scope implements event.Scoped.
func (e *NudgeEvent) Scope() event.Scope { return scopeOf(e.Bot()) }

// LogValue implements slog.LogValuer.
func (e *NudgeEvent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("from_id", e.FromID),
		slog.Int64("target_id", e.TargetID),
		slog.String("action", e.Action),
	}
	if e.Subject != nil {
		attrs = append(attrs, slog.Int64("subject_id", e.Subject.ID()))
	}
	return slog.GroupValue(attrs...)
}

// Compile-time interface checks.
var (
	_ BotEvent = (*FriendMessageEvent)(nil)
	_ BotEvent = (*GroupMessageEvent)(nil)
	_ BotEvent = (*GroupMessagePreSendEvent)(nil)
	_ BotEvent = (*GroupMessagePostSendEvent)(nil)
	_ BotEvent = (*FriendRecallEvent)(nil)
	_ BotEvent = (*GroupRecallEvent)(nil)
	_ BotEvent = (*NudgeEvent)(nil)

	_ event.MessageReceipt = (*FriendMessageEvent)(nil)
	_ event.MessageReceipt = (*GroupMessageEvent)(nil)
	_ event.Cancellable    = (*GroupMessagePreSendEvent)(nil)
	_ event.Verbose        = (*GroupMessagePostSendEvent)(nil)
)
