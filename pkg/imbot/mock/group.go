package mock

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/randalmurphal/imbot/pkg/imbot"
	"github.com/randalmurphal/imbot/pkg/imbot/mock/msgdb"
	"github.com/randalmurphal/imbot/pkg/imbot/observability"
)

// JoinRequest describes someone asking to join a group.
type JoinRequest struct {
	FromID   int64
	FromNick string
	Message  string

	// InvitorID is the member who invited the requester, or zero.
	InvitorID int64
}

// BroadcastNewMemberJoinRequest broadcasts a MemberJoinRequestEvent for g.
// Each request gets a fresh ID.
func (b *Bot) BroadcastNewMemberJoinRequest(ctx context.Context, g *imbot.Group, req JoinRequest) (*imbot.MemberJoinRequestEvent, error) {
	if !b.owns(g.Bot()) {
		return nil, ErrForeignContact
	}
	return imbot.Broadcast(ctx, &imbot.MemberJoinRequestEvent{
		BotRef:    imbot.BotRef{Of: b.Bot},
		RequestID: uuid.NewString(),
		GroupID:   g.ID(),
		GroupName: g.Name(),
		FromID:    req.FromID,
		FromNick:  req.FromNick,
		Message:   req.Message,
		InvitorID: req.InvitorID,
	})
}

// AcceptJoinRequest adds the requester to the group and broadcasts
// MemberJoinEvent. It fails if the bot left the group or the requester is
// already a member.
func (b *Bot) AcceptJoinRequest(ctx context.Context, req *imbot.MemberJoinRequestEvent) (*imbot.Member, error) {
	if !b.owns(req.Bot()) {
		return nil, ErrForeignContact
	}
	g, err := b.GroupOrFail(req.GroupID)
	if err != nil {
		return nil, err
	}
	m, err := g.AddMember(req.FromID, req.FromNick, imbot.PermissionMember)
	if err != nil {
		return nil, err
	}
	_, err = imbot.Broadcast(ctx, imbot.NewMemberJoinEvent(m, req.InvitorID))
	return m, err
}

// ChangeOwner transfers ownership of m's group to m and broadcasts a
// MemberPermissionChangeEvent for the previous owner, then for m.
// Transferring to the current owner does nothing. Listener failures of
// either event are returned together once both were broadcast.
func (b *Bot) ChangeOwner(ctx context.Context, m *imbot.Member) error {
	old, origin, changed, err := b.changeOwner(m)
	if err != nil || !changed {
		return err
	}

	var errs error
	if old != nil {
		_, err := imbot.Broadcast(ctx, imbot.NewMemberPermissionChangeEvent(old, imbot.PermissionOwner, imbot.PermissionMember))
		if aborts(err) {
			return err
		}
		errs = err
	}
	_, err = imbot.Broadcast(ctx, imbot.NewMemberPermissionChangeEvent(m, origin, imbot.PermissionOwner))
	return multierr.Append(errs, err)
}

// ChangeOwnerNoEventBroadcast is ChangeOwner without any event.
func (b *Bot) ChangeOwnerNoEventBroadcast(m *imbot.Member) error {
	_, _, _, err := b.changeOwner(m)
	return err
}

// changeOwner demotes the current owner, if any, to member and promotes m.
func (b *Bot) changeOwner(m *imbot.Member) (old *imbot.Member, origin imbot.Permission, changed bool, err error) {
	if !b.owns(m.Bot()) {
		return nil, 0, false, ErrForeignContact
	}
	g := m.Group()
	if _, err := g.MemberOrFail(m.ID()); err != nil {
		return nil, 0, false, err
	}

	old = g.Owner()
	if old == m {
		return nil, 0, false, nil
	}
	if old != nil {
		old.SetPermission(imbot.PermissionMember)
	}
	return old, m.SetPermission(imbot.PermissionOwner), true, nil
}

// ChangeNameCard sets m's group nickname and broadcasts MemberCardChangeEvent.
// Nothing is broadcast when the nickname is unchanged.
func (b *Bot) ChangeNameCard(ctx context.Context, m *imbot.Member, card string) (*imbot.MemberCardChangeEvent, error) {
	if !b.owns(m.Bot()) {
		return nil, ErrForeignContact
	}
	origin := m.SetNameCard(card)
	return imbot.Broadcast(ctx, imbot.NewMemberCardChangeEvent(m, origin, card))
}

// MemberSays records a message from m and broadcasts GroupMessageEvent.
func (b *Bot) MemberSays(ctx context.Context, m *imbot.Member, content string) (*imbot.GroupMessageEvent, error) {
	if !b.owns(m.Bot()) {
		return nil, ErrForeignContact
	}
	src, err := b.record(ctx, m.ID(), m.Group().ID(), msgdb.KindGroup)
	if err != nil {
		return nil, err
	}
	return imbot.Broadcast(ctx, imbot.NewGroupMessageEvent(m, imbot.Message{Source: src, Content: content}))
}

// SendGroupMessage sends content to g as the bot.
//
// GroupMessagePreSendEvent is broadcast first; if a listener cancels it the
// message is dropped and ErrMessageCancelled returned. Otherwise the message
// is recorded and GroupMessagePostSendEvent broadcast with its source, or
// with the recording error. Listener failures of either event do not stop
// the send and are returned together with the source.
func (b *Bot) SendGroupMessage(ctx context.Context, g *imbot.Group, content string) (*imbot.MessageSource, error) {
	if !b.owns(g.Bot()) {
		return nil, ErrForeignContact
	}

	pre, preErr := imbot.Broadcast(ctx, imbot.NewGroupMessagePreSendEvent(g, content))
	if aborts(preErr) {
		return nil, preErr
	}
	if pre.IsCancelled() {
		return nil, multierr.Append(ErrMessageCancelled, preErr)
	}

	var source *imbot.MessageSource
	src, sendErr := b.record(ctx, b.ID(), g.ID(), msgdb.KindGroup)
	if sendErr != nil {
		observability.LogStoreError(b.Logger(), "msgdb", "new_message_info", sendErr)
	} else {
		source = &src
	}

	_, postErr := imbot.Broadcast(ctx, imbot.NewGroupMessagePostSendEvent(g, pre.Content, source, sendErr))
	return source, multierr.Combine(sendErr, preErr, postErr)
}
