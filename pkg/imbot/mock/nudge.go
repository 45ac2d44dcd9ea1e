package mock

import (
	"context"

	"github.com/randalmurphal/imbot/pkg/imbot"
)

// DefaultNudgeAction is the action text of nudges sent by mock actions.
const DefaultNudgeAction = "poked"

// Nudge makes the bot nudge target, a friend, stranger or group member.
func (b *Bot) Nudge(ctx context.Context, target imbot.Contact) (*imbot.NudgeEvent, error) {
	subject, err := b.nudgeSubject(target)
	if err != nil {
		return nil, err
	}
	return b.broadcastNudge(ctx, b.ID(), target.ID(), subject)
}

// NudgedBy broadcasts that actor, a friend, stranger or group member,
// nudged the bot.
func (b *Bot) NudgedBy(ctx context.Context, actor imbot.Contact) (*imbot.NudgeEvent, error) {
	subject, err := b.nudgeSubject(actor)
	if err != nil {
		return nil, err
	}
	return b.broadcastNudge(ctx, actor.ID(), b.ID(), subject)
}

// MemberNudges broadcasts that actor nudged target, both members of the same group.
func (b *Bot) MemberNudges(ctx context.Context, actor, target *imbot.Member) (*imbot.NudgeEvent, error) {
	if actor == nil || target == nil {
		return nil, ErrInvalidNudgeTarget
	}
	if !b.owns(actor.Bot()) || !b.owns(target.Bot()) {
		return nil, ErrForeignContact
	}
	if actor.Group() != target.Group() {
		return nil, ErrInvalidNudgeTarget
	}
	return b.broadcastNudge(ctx, actor.ID(), target.ID(), actor.Group())
}

// nudgeSubject returns the chat a nudge between the bot and c shows up in.
func (b *Bot) nudgeSubject(c imbot.Contact) (imbot.Contact, error) {
	if c == nil {
		return nil, ErrInvalidNudgeTarget
	}
	if !b.owns(c.Bot()) {
		return nil, ErrForeignContact
	}
	switch c := c.(type) {
	case *imbot.Friend, *imbot.Stranger:
		return c, nil
	case *imbot.Member:
		if c.IsBot() {
			return nil, ErrInvalidNudgeTarget
		}
		return c.Group(), nil
	default:
		return nil, ErrInvalidNudgeTarget
	}
}

func (b *Bot) broadcastNudge(ctx context.Context, from, target int64, subject imbot.Contact) (*imbot.NudgeEvent, error) {
	return imbot.Broadcast(ctx, &imbot.NudgeEvent{
		FromID:   from,
		TargetID: target,
		Subject:  subject,
		Action:   DefaultNudgeAction,
	})
}
