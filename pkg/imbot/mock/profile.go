package mock

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Sex is a profile's declared sex.
type Sex int

const (
	SexUnknown Sex = iota
	SexMale
	SexFemale
)

// String returns the sex name.
func (s Sex) String() string {
	switch s {
	case SexMale:
		return "male"
	case SexFemale:
		return "female"
	default:
		return "unknown"
	}
}

// Profile is the public profile of an account.
type Profile struct {
	Nickname string
	Email    string
	Age      int // -1 when unknown
	Level    int // -1 when unknown
	Sex      Sex
	Sign     string
}

// DefaultProfile returns the profile of an account nobody described.
func DefaultProfile() Profile {
	return Profile{Age: -1, Level: -1, Sex: SexUnknown}
}

// ProfileBuilder builds a Profile starting from DefaultProfile.
//
//	p := mock.NewProfileBuilder().Nickname("alice").Age(30).Build()
type ProfileBuilder struct {
	p Profile
}

// NewProfileBuilder creates a builder.
func NewProfileBuilder() *ProfileBuilder {
	return &ProfileBuilder{p: DefaultProfile()}
}

func (b *ProfileBuilder) Nickname(v string) *ProfileBuilder { b.p.Nickname = v; return b }
func (b *ProfileBuilder) Email(v string) *ProfileBuilder    { b.p.Email = v; return b }
func (b *ProfileBuilder) Age(v int) *ProfileBuilder         { b.p.Age = v; return b }
func (b *ProfileBuilder) Level(v int) *ProfileBuilder       { b.p.Level = v; return b }
func (b *ProfileBuilder) Sex(v Sex) *ProfileBuilder         { b.p.Sex = v; return b }
func (b *ProfileBuilder) Sign(v string) *ProfileBuilder     { b.p.Sign = v; return b }

// Build returns the profile. The builder can keep being used.
func (b *ProfileBuilder) Build() Profile { return b.p }

// ProfileService answers profile queries for mock accounts. It keeps the
// most recently used profiles up to a fixed capacity; evicted accounts fall
// back to the default profile.
type ProfileService struct {
	cache *lru.Cache[int64, Profile]
	def   Profile
}

// NewProfileService creates a service holding up to size profiles.
func NewProfileService(size int) (*ProfileService, error) {
	if size <= 0 {
		return nil, ErrInvalidCacheSize
	}
	cache, err := lru.New[int64, Profile](size)
	if err != nil {
		return nil, err
	}
	return &ProfileService{cache: cache, def: DefaultProfile()}, nil
}

// Query returns the profile stored for id, or the default profile.
func (s *ProfileService) Query(ctx context.Context, id int64) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	if p, ok := s.cache.Get(id); ok {
		return p, nil
	}
	return s.def, nil
}

// Put stores the profile of id.
func (s *ProfileService) Put(ctx context.Context, id int64, p Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Add(id, p)
	return nil
}

// Len returns the number of stored profiles.
func (s *ProfileService) Len() int {
	return s.cache.Len()
}
