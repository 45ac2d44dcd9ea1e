package mock

import (
	"context"
	"fmt"

	"github.com/randalmurphal/imbot/pkg/imbot"
	"github.com/randalmurphal/imbot/pkg/imbot/mock/msgdb"
)

// Recall recalls a recorded message and broadcasts FriendRecallEvent or
// GroupRecallEvent. The message is removed from the database first, so a
// source can be recalled once.
//
// In a private chat only the author can recall, so the operator is the
// sender. In a group the bot is the operator: it may always recall its own
// messages, and those of members ranked strictly below it.
func (b *Bot) Recall(ctx context.Context, src imbot.MessageSource) (imbot.BotEvent, error) {
	info, err := b.db.Query(ctx, src.ID)
	if err != nil {
		return nil, fmt.Errorf("recall message %d: %w", src.ID, err)
	}

	var evt imbot.BotEvent
	switch info.Kind {
	case msgdb.KindFriend:
		f, err := b.FriendOrFail(info.Subject)
		if err != nil {
			return nil, err
		}
		evt = &imbot.FriendRecallEvent{
			Friend:      f,
			MessageID:   info.ID,
			MessageTime: info.Time,
			OperatorID:  info.Sender,
		}
	case msgdb.KindGroup:
		g, err := b.GroupOrFail(info.Subject)
		if err != nil {
			return nil, err
		}
		author, err := g.MemberOrFail(info.Sender)
		if err != nil {
			return nil, err
		}
		if !author.IsBot() && g.BotPermission() <= author.Permission() {
			return nil, fmt.Errorf("recall message %d of %s %d: %w",
				info.ID, author.Permission(), author.ID(), ErrPermissionDenied)
		}
		evt = imbot.NewGroupRecallEvent(author, g.BotAsMember(), info.ID, info.Time)
	default:
		return nil, fmt.Errorf("recall %s message %d: %w", info.Kind, info.ID, ErrUnsupportedRecall)
	}

	if err := b.db.Remove(ctx, info.ID); err != nil {
		return nil, fmt.Errorf("recall message %d: %w", info.ID, err)
	}
	return imbot.Broadcast(ctx, evt)
}
