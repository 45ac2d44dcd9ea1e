package mock

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/randalmurphal/imbot/pkg/imbot"
	"github.com/randalmurphal/imbot/pkg/imbot/mock/msgdb"
)

// BroadcastFriendAdd adds f to the friend list and broadcasts FriendAddEvent.
func (b *Bot) BroadcastFriendAdd(ctx context.Context, f *imbot.Friend) (*imbot.FriendAddEvent, error) {
	if !b.owns(f.Bot()) {
		return nil, ErrForeignContact
	}
	b.PutFriend(f)
	return imbot.Broadcast(ctx, &imbot.FriendAddEvent{Friend: f})
}

// BroadcastFriendDelete removes a friend and broadcasts FriendDeleteEvent.
func (b *Bot) BroadcastFriendDelete(ctx context.Context, id int64) (*imbot.FriendDeleteEvent, error) {
	f, ok := b.RemoveFriend(id)
	if !ok {
		_, err := b.FriendOrFail(id)
		return nil, err
	}
	return imbot.Broadcast(ctx, &imbot.FriendDeleteEvent{Friend: f})
}

// BroadcastInviteBotJoinGroupRequest broadcasts that invitor asked the bot
// to join a group. Each request gets a fresh ID.
func (b *Bot) BroadcastInviteBotJoinGroupRequest(ctx context.Context, invitor *imbot.Friend, groupID int64, groupName string) (*imbot.BotInvitedJoinGroupRequestEvent, error) {
	if !b.owns(invitor.Bot()) {
		return nil, ErrForeignContact
	}
	return imbot.Broadcast(ctx, &imbot.BotInvitedJoinGroupRequestEvent{
		BotRef:      imbot.BotRef{Of: b.Bot},
		RequestID:   uuid.NewString(),
		InvitorID:   invitor.ID(),
		InvitorNick: invitor.Nick(),
		GroupID:     groupID,
		GroupName:   groupName,
	})
}

// FriendSays records a message from f and broadcasts FriendMessageEvent.
func (b *Bot) FriendSays(ctx context.Context, f *imbot.Friend, content string) (*imbot.FriendMessageEvent, error) {
	if !b.owns(f.Bot()) {
		return nil, ErrForeignContact
	}
	src, err := b.record(ctx, f.ID(), f.ID(), msgdb.KindFriend)
	if err != nil {
		return nil, err
	}
	return imbot.Broadcast(ctx, &imbot.FriendMessageEvent{
		Friend:  f,
		Message: imbot.Message{Source: src, Content: content},
	})
}

// record stores message metadata and returns its source.
func (b *Bot) record(ctx context.Context, sender, subject int64, kind msgdb.Kind) (imbot.MessageSource, error) {
	info, err := b.db.NewMessageInfo(ctx, sender, subject, kind)
	if err != nil {
		return imbot.MessageSource{}, fmt.Errorf("record %s message: %w", kind, err)
	}
	return imbot.MessageSource{
		ID:       info.ID,
		SenderID: info.Sender,
		TargetID: info.Subject,
		Time:     info.Time,
	}, nil
}
