package imbot

import (
	"log/slog"
	"sync"

	"github.com/randalmurphal/imbot/pkg/imbot/registry"
)

// Permission is a member's role in a group.
type Permission int

const (
	// PermissionMember is an ordinary member.
	PermissionMember Permission = iota

	// PermissionAdministrator can manage members.
	PermissionAdministrator

	// PermissionOwner owns the group. A group has exactly one owner.
	PermissionOwner
)

// String returns the permission name.
func (p Permission) String() string {
	switch p {
	case PermissionMember:
		return "member"
	case PermissionAdministrator:
		return "administrator"
	case PermissionOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// IsOperator reports whether p is administrator or owner.
func (p Permission) IsOperator() bool {
	return p >= PermissionAdministrator
}

// Contact is a friend, stranger, group or group member of a bot.
type Contact interface {
	Bot() *Bot
	ID() int64
}

// Friend is a contact on the bot's friend list.
type Friend struct {
	bot  *Bot
	id   int64
	nick string

	mu     sync.RWMutex
	remark string
}

// NewFriend creates a friend of b. It is not added to the friend list.
func NewFriend(b *Bot, id int64, nick string) *Friend {
	return &Friend{bot: b, id: id, nick: nick}
}

// Bot returns the bot this friend belongs to.
func (f *Friend) Bot() *Bot { return f.bot }

// ID returns the friend's account ID.
func (f *Friend) ID() int64 { return f.id }

// Nick returns the friend's nickname.
func (f *Friend) Nick() string { return f.nick }

// Remark returns the bot's note for this friend.
func (f *Friend) Remark() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.remark
}

// SetRemark changes the bot's note for this friend.
func (f *Friend) SetRemark(remark string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remark = remark
}

// LogValue implements slog.LogValuer.
func (f *Friend) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", f.id),
		slog.String("nick", f.nick),
	)
}

// Stranger is a contact that talked to the bot without being a friend.
type Stranger struct {
	bot  *Bot
	id   int64
	nick string
}

// NewStranger creates a stranger of b. It is not added to the stranger list.
func NewStranger(b *Bot, id int64, nick string) *Stranger {
	return &Stranger{bot: b, id: id, nick: nick}
}

// Bot returns the bot this stranger belongs to.
func (s *Stranger) Bot() *Bot { return s.bot }

// ID returns the stranger's account ID.
func (s *Stranger) ID() int64 { return s.id }

// Nick returns the stranger's nickname.
func (s *Stranger) Nick() string { return s.nick }

// Group is a group the bot is a member of.
type Group struct {
	bot  *Bot
	id   int64
	name string

	members *registry.Registry[int64, *Member]
	self    *Member
}

// NewGroup creates a group of b in which the bot holds perm.
// It is not added to the group list.
func NewGroup(b *Bot, id int64, name string, perm Permission) *Group {
	g := &Group{
		bot:     b,
		id:      id,
		name:    name,
		members: registry.New[int64, *Member](),
	}
	g.self = &Member{group: g, id: b.ID(), nameCard: b.Nick(), permission: perm}
	return g
}

// Bot returns the bot this group belongs to.
func (g *Group) Bot() *Bot { return g.bot }

// ID returns the group number.
func (g *Group) ID() int64 { return g.id }

// Name returns the group name.
func (g *Group) Name() string { return g.name }

// BotAsMember returns the bot's own membership.
func (g *Group) BotAsMember() *Member { return g.self }

// BotPermission returns the bot's permission in this group.
func (g *Group) BotPermission() Permission { return g.self.Permission() }

// Members returns every member except the bot, in join order.
func (g *Group) Members() []*Member {
	return g.members.Values()
}

// Member returns the member with id, or nil. The bot's own ID resolves to BotAsMember.
func (g *Group) Member(id int64) *Member {
	if id == g.self.id {
		return g.self
	}
	m, _ := g.members.Get(id)
	return m
}

// MemberOrFail is Member returning ErrContactNotFound instead of nil.
func (g *Group) MemberOrFail(id int64) (*Member, error) {
	if m := g.Member(id); m != nil {
		return m, nil
	}
	return nil, notFound(g.bot.ID(), KindMember, id)
}

// Contains reports whether id is a member, the bot included.
func (g *Group) Contains(id int64) bool {
	return g.Member(id) != nil
}

// Owner returns the owner of the group, which may be the bot itself.
// It returns nil if no member holds PermissionOwner.
func (g *Group) Owner() *Member {
	if g.self.Permission() == PermissionOwner {
		return g.self
	}
	var owner *Member
	g.members.Range(func(_ int64, m *Member) bool {
		if m.Permission() == PermissionOwner {
			owner = m
			return false
		}
		return true
	})
	return owner
}

// AddMember adds a member without broadcasting any event.
func (g *Group) AddMember(id int64, nameCard string, perm Permission) (*Member, error) {
	if id == g.self.id {
		return g.self, &ContactError{BotID: g.bot.ID(), Kind: KindMember, ID: id, Err: ErrMemberExists}
	}
	m, created := g.members.GetOrCreate(id, func() *Member {
		return &Member{group: g, id: id, nameCard: nameCard, permission: perm}
	})
	if !created {
		return m, &ContactError{BotID: g.bot.ID(), Kind: KindMember, ID: id, Err: ErrMemberExists}
	}
	return m, nil
}

// RemoveMember removes a member without broadcasting any event.
func (g *Group) RemoveMember(id int64) (*Member, bool) {
	return g.members.Delete(id)
}

// LogValue implements slog.LogValuer.
func (g *Group) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", g.id),
		slog.String("name", g.name),
	)
}

// Member is a member of a group.
type Member struct {
	group *Group
	id    int64

	mu         sync.RWMutex
	nameCard   string
	permission Permission
}

// Group returns the group this member belongs to.
func (m *Member) Group() *Group { return m.group }

// Bot returns the bot the group belongs to.
func (m *Member) Bot() *Bot { return m.group.bot }

// ID returns the member's account ID.
func (m *Member) ID() int64 { return m.id }

// NameCard returns the member's group nickname.
func (m *Member) NameCard() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nameCard
}

// Permission returns the member's role.
func (m *Member) Permission() Permission {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.permission
}

// SetNameCard changes the group nickname and returns the previous one.
func (m *Member) SetNameCard(card string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.nameCard
	m.nameCard = card
	return old
}

// SetPermission changes the role and returns the previous one.
func (m *Member) SetPermission(p Permission) Permission {
	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.permission
	m.permission = p
	return old
}

// IsBot reports whether this member is the bot itself.
func (m *Member) IsBot() bool {
	return m == m.group.self
}

// LogValue implements slog.LogValuer.
func (m *Member) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", m.id),
		slog.Int64("group_id", m.group.id),
		slog.String("name_card", m.NameCard()),
	)
}

// Compile-time interface checks.
var (
	_ Contact = (*Friend)(nil)
	_ Contact = (*Stranger)(nil)
	_ Contact = (*Group)(nil)
	_ Contact = (*Member)(nil)
)
