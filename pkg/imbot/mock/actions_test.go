package mock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/imbot/pkg/imbot"
	"github.com/randalmurphal/imbot/pkg/imbot/event"
	"github.com/randalmurphal/imbot/pkg/imbot/mock"
	"github.com/randalmurphal/imbot/pkg/imbot/mock/msgdb"
)

func TestBroadcastFriendAdd(t *testing.T) {
	bot, events := newBot(t, 4001)
	ctx := context.Background()

	f := imbot.NewFriend(bot.Bot, 7, "alice")
	evt, err := bot.BroadcastFriendAdd(ctx, f)
	require.NoError(t, err)
	assert.Same(t, f, evt.Friend)
	assert.Same(t, f, bot.Friend(7))

	deleted, err := bot.BroadcastFriendDelete(ctx, 7)
	require.NoError(t, err)
	assert.Same(t, f, deleted.Friend)
	assert.Nil(t, bot.Friend(7))

	_, err = bot.BroadcastFriendDelete(ctx, 7)
	assert.ErrorIs(t, err, imbot.ErrContactNotFound)

	assert.Equal(t, []string{"imbot.FriendAddEvent", "imbot.FriendDeleteEvent"}, events.types())
}

func TestForeignContacts(t *testing.T) {
	bot, _ := newBot(t, 4002)
	other, _ := newBot(t, 4003)
	ctx := context.Background()

	f := other.AddFriend(1, "x")
	g := other.AddGroup(2, "g")
	m, err := g.AddMember(3, "m", imbot.PermissionMember)
	require.NoError(t, err)

	_, err = bot.BroadcastFriendAdd(ctx, f)
	assert.ErrorIs(t, err, mock.ErrForeignContact)
	_, err = bot.FriendSays(ctx, f, "hi")
	assert.ErrorIs(t, err, mock.ErrForeignContact)
	_, err = bot.BroadcastInviteBotJoinGroupRequest(ctx, f, 1, "g")
	assert.ErrorIs(t, err, mock.ErrForeignContact)
	_, err = bot.BroadcastNewMemberJoinRequest(ctx, g, mock.JoinRequest{FromID: 9})
	assert.ErrorIs(t, err, mock.ErrForeignContact)
	assert.ErrorIs(t, bot.ChangeOwner(ctx, m), mock.ErrForeignContact)
	_, err = bot.ChangeNameCard(ctx, m, "x")
	assert.ErrorIs(t, err, mock.ErrForeignContact)
	_, err = bot.MemberSays(ctx, m, "hi")
	assert.ErrorIs(t, err, mock.ErrForeignContact)
	_, err = bot.SendGroupMessage(ctx, g, "hi")
	assert.ErrorIs(t, err, mock.ErrForeignContact)
}

func TestBroadcastInviteBotJoinGroupRequest(t *testing.T) {
	bot, _ := newBot(t, 4004)
	f := bot.AddFriend(1, "alice")

	a, err := bot.BroadcastInviteBotJoinGroupRequest(context.Background(), f, 500, "devs")
	require.NoError(t, err)
	b, err := bot.BroadcastInviteBotJoinGroupRequest(context.Background(), f, 500, "devs")
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.InvitorID)
	assert.Equal(t, "alice", a.InvitorNick)
	assert.Equal(t, int64(500), a.GroupID)
	assert.NotEmpty(t, a.RequestID)
	assert.NotEqual(t, a.RequestID, b.RequestID)
}

func TestJoinRequestAccepted(t *testing.T) {
	bot, events := newBot(t, 4005)
	ctx := context.Background()
	g := bot.AddGroup(500, "devs")

	req, err := bot.BroadcastNewMemberJoinRequest(ctx, g, mock.JoinRequest{
		FromID:   42,
		FromNick: "newbie",
		Message:  "let me in",
	})
	require.NoError(t, err)
	assert.Same(t, g, req.Group())
	assert.Equal(t, "let me in", req.Message)

	m, err := bot.AcceptJoinRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "newbie", m.NameCard())
	assert.Equal(t, imbot.PermissionMember, m.Permission())
	assert.True(t, g.Contains(42))

	join, ok := events.last().(*imbot.MemberJoinEvent)
	require.True(t, ok)
	assert.Same(t, m, join.Member)
	assert.Zero(t, join.InvitorID)

	_, err = bot.AcceptJoinRequest(ctx, req)
	assert.ErrorIs(t, err, imbot.ErrMemberExists)

	bot.RemoveGroup(500)
	_, err = bot.AcceptJoinRequest(ctx, req)
	assert.ErrorIs(t, err, imbot.ErrContactNotFound)
}

func TestChangeOwner(t *testing.T) {
	bot, events := newBot(t, 4006)
	ctx := context.Background()
	g := bot.AddGroup(1, "g")
	m, err := g.AddMember(2, "heir", imbot.PermissionAdministrator)
	require.NoError(t, err)

	require.NoError(t, bot.ChangeOwner(ctx, m))

	assert.Same(t, m, g.Owner())
	assert.Equal(t, imbot.PermissionMember, g.BotPermission())

	var changes []*imbot.MemberPermissionChangeEvent
	for _, e := range events.events {
		if pc, ok := e.(*imbot.MemberPermissionChangeEvent); ok {
			changes = append(changes, pc)
		}
	}
	require.Len(t, changes, 2)
	assert.True(t, changes[0].Member.IsBot())
	assert.Equal(t, imbot.PermissionOwner, changes[0].Origin)
	assert.Equal(t, imbot.PermissionMember, changes[0].New)
	assert.Same(t, m, changes[1].Member)
	assert.Equal(t, imbot.PermissionAdministrator, changes[1].Origin)
	assert.Equal(t, imbot.PermissionOwner, changes[1].New)

	require.NoError(t, bot.ChangeOwner(ctx, m), "already owner")
	assert.Len(t, events.types(), 2)
}

func TestChangeOwner_ListenerFailure(t *testing.T) {
	bot, events := newBot(t, 4012)
	ctx := context.Background()
	g := bot.AddGroup(1, "g")
	m, err := g.AddMember(2, "heir", imbot.PermissionMember)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = event.FilterByType[*imbot.MemberPermissionChangeEvent](bot.EventChannel()).SubscribeAlways(ctx,
		func(context.Context, *imbot.MemberPermissionChangeEvent) error {
			return boom
		})
	require.NoError(t, err)

	err = bot.ChangeOwner(ctx, m)
	require.Error(t, err)
	assert.True(t, event.IsDeliveryError(err))
	assert.ErrorIs(t, err, boom)

	assert.Same(t, m, g.Owner())
	assert.Equal(t, []string{
		"imbot.MemberPermissionChangeEvent",
		"imbot.MemberPermissionChangeEvent",
	}, events.types(), "the new owner is announced even though the first event failed")

	promoted, ok := events.last().(*imbot.MemberPermissionChangeEvent)
	require.True(t, ok)
	assert.Same(t, m, promoted.Member)
	assert.Equal(t, imbot.PermissionOwner, promoted.New)
}

func TestChangeOwnerNoEventBroadcast(t *testing.T) {
	bot, events := newBot(t, 4007)
	g := bot.AddGroup(1, "g")
	m, err := g.AddMember(2, "heir", imbot.PermissionMember)
	require.NoError(t, err)

	require.NoError(t, bot.ChangeOwnerNoEventBroadcast(m))
	assert.Same(t, m, g.Owner())
	assert.Empty(t, events.types())

	g.RemoveMember(2)
	assert.ErrorIs(t, bot.ChangeOwnerNoEventBroadcast(m), imbot.ErrContactNotFound)
}

func TestChangeNameCard(t *testing.T) {
	bot, events := newBot(t, 4008)
	g := bot.AddGroup(1, "g")
	m, err := g.AddMember(2, "old", imbot.PermissionMember)
	require.NoError(t, err)

	evt, err := bot.ChangeNameCard(context.Background(), m, "new")
	require.NoError(t, err)
	assert.Equal(t, "old", evt.Origin)
	assert.Equal(t, "new", m.NameCard())

	_, err = bot.ChangeNameCard(context.Background(), m, "new")
	require.NoError(t, err)

	assert.Equal(t, []string{"imbot.MemberCardChangeEvent"}, events.types())
}

func TestMessagesAreRecorded(t *testing.T) {
	bot, _ := newBot(t, 4009)
	ctx := context.Background()
	f := bot.AddFriend(1, "alice")
	g := bot.AddGroup(2, "g")
	m, err := g.AddMember(3, "bob", imbot.PermissionMember)
	require.NoError(t, err)

	fe, err := bot.FriendSays(ctx, f, "hi bot")
	require.NoError(t, err)
	assert.Equal(t, "hi bot", fe.Message.Content)
	info, err := bot.MessageDatabase().Query(ctx, fe.Message.Source.ID)
	require.NoError(t, err)
	assert.Equal(t, msgdb.KindFriend, info.Kind)
	assert.Equal(t, int64(1), info.Sender)

	ge, err := bot.MemberSays(ctx, m, "hi all")
	require.NoError(t, err)
	assert.Same(t, m, ge.Sender())
	info, err = bot.MessageDatabase().Query(ctx, ge.Message.Source.ID)
	require.NoError(t, err)
	assert.Equal(t, msgdb.KindGroup, info.Kind)
	assert.Equal(t, int64(2), info.Subject)
}

func TestSendGroupMessage(t *testing.T) {
	bot, events := newBot(t, 4010)
	ctx := context.Background()
	g := bot.AddGroup(1, "g")

	_, err := event.FilterByType[*imbot.GroupMessagePreSendEvent](bot.EventChannel()).SubscribeAlways(ctx,
		func(_ context.Context, e *imbot.GroupMessagePreSendEvent) error {
			if e.Content == "forbidden" {
				e.Cancel()
			}
			return nil
		})
	require.NoError(t, err)

	src, err := bot.SendGroupMessage(ctx, g, "hello")
	require.NoError(t, err)
	require.NotNil(t, src)
	assert.Equal(t, bot.ID(), src.SenderID)
	assert.Equal(t, g.ID(), src.TargetID)

	post, ok := events.last().(*imbot.GroupMessagePostSendEvent)
	require.True(t, ok)
	assert.Same(t, src, post.Source)
	assert.NoError(t, post.Err)

	_, err = bot.SendGroupMessage(ctx, g, "forbidden")
	assert.ErrorIs(t, err, mock.ErrMessageCancelled)
	assert.Equal(t, []string{
		"imbot.GroupMessagePreSendEvent",
		"imbot.GroupMessagePostSendEvent",
		"imbot.GroupMessagePreSendEvent",
	}, events.types())
}

func TestSendGroupMessage_RecordFailure(t *testing.T) {
	db := msgdb.NewMemoryDatabase()
	bot, events := newBot(t, 4011, mock.WithMessageDatabase(db))
	g := bot.AddGroup(1, "g")
	require.NoError(t, db.Close())

	src, err := bot.SendGroupMessage(context.Background(), g, "hello")
	assert.Nil(t, src)
	assert.ErrorIs(t, err, msgdb.ErrClosed)

	post, ok := events.last().(*imbot.GroupMessagePostSendEvent)
	require.True(t, ok)
	assert.Nil(t, post.Source)
	assert.True(t, errors.Is(post.Err, msgdb.ErrClosed))
}

func TestSendGroupMessage_ListenerFailure(t *testing.T) {
	bot, events := newBot(t, 4013)
	ctx := context.Background()
	g := bot.AddGroup(1, "g")

	sinkDown := errors.New("audit sink down")
	_, err := event.FilterByType[*imbot.GroupMessagePreSendEvent](bot.EventChannel()).SubscribeAlways(ctx,
		func(_ context.Context, e *imbot.GroupMessagePreSendEvent) error {
			if e.Content == "drop me" {
				e.Cancel()
			}
			return sinkDown
		})
	require.NoError(t, err)

	src, err := bot.SendGroupMessage(ctx, g, "hello")
	require.NotNil(t, src, "a failing listener does not stop the send")
	assert.True(t, event.IsDeliveryError(err))
	assert.ErrorIs(t, err, sinkDown)
	assert.NotErrorIs(t, err, mock.ErrMessageCancelled)

	_, qerr := bot.MessageDatabase().Query(ctx, src.ID)
	assert.NoError(t, qerr)
	post, ok := events.last().(*imbot.GroupMessagePostSendEvent)
	require.True(t, ok)
	assert.Same(t, src, post.Source)

	src, err = bot.SendGroupMessage(ctx, g, "drop me")
	assert.Nil(t, src)
	assert.ErrorIs(t, err, mock.ErrMessageCancelled)
	assert.ErrorIs(t, err, sinkDown)
	assert.Equal(t, "imbot.GroupMessagePreSendEvent", event.TypeName(events.last()))
}
