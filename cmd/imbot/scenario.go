package main

import (
	"fmt"
	"time"

	"github.com/randalmurphal/imbot/pkg/imbot/config"
	"github.com/randalmurphal/imbot/pkg/imbot/event"
	"github.com/randalmurphal/imbot/pkg/imbot/mock"
)

// scenario is the script simulate runs. It can be loaded from a YAML or
// JSON file:
//
//	group:
//	  id: 1
//	  name: simulation
//	friends: [100, 101, 102]
//	heartbeat: 15ms
//	auto_accept: true
//	nudge: true
//	recall: true
//	moderation:
//	  priority: high
//	  blocked: [forbidden]
//	group_messages:
//	  - welcome everyone
//	  - this is forbidden
//	profiles:
//	  - id: 100
//	    nickname: alice
//	    age: 30
type scenario struct {
	GroupID       int64
	GroupName     string
	Friends       []int64
	Heartbeat     time.Duration
	AutoAccept    bool
	Nudge         bool // the first friend nudges the bot
	Recall        bool // the bot recalls its first sent group message
	ModPriority   event.Priority
	Blocked       []string
	GroupMessages []string
	Profiles      map[int64]mock.Profile
}

// defaultScenario has n friends with IDs starting at 100.
func defaultScenario(n int) scenario {
	friends := make([]int64, n)
	for i := range friends {
		friends[i] = int64(100 + i)
	}
	return scenario{
		GroupID:       1,
		GroupName:     "simulation",
		Friends:       friends,
		Heartbeat:     15 * time.Millisecond,
		AutoAccept:    true,
		Nudge:         true,
		Recall:        true,
		ModPriority:   event.PriorityHigh,
		Blocked:       []string{"forbidden"},
		GroupMessages: []string{"welcome everyone", "this is forbidden"},
		Profiles:      map[int64]mock.Profile{},
	}
}

// loadScenario reads a scenario file. Keys it doesn't set keep the values of
// defaultScenario(friends).
func loadScenario(path string, friends int) (scenario, error) {
	def := defaultScenario(friends)
	if path == "" {
		return def, nil
	}
	cfg, err := config.FromFile(path)
	if err != nil {
		return scenario{}, fmt.Errorf("load scenario: %w", err)
	}
	return scenarioFrom(cfg, def), nil
}

func scenarioFrom(cfg config.Config, def scenario) scenario {
	group := cfg.Section("group")
	mod := cfg.Section("moderation")

	sc := scenario{
		GroupID:       group.Int64("id", def.GroupID),
		GroupName:     group.String("name", def.GroupName),
		Friends:       cfg.Int64Slice("friends", def.Friends),
		Heartbeat:     cfg.Duration("heartbeat", def.Heartbeat),
		AutoAccept:    cfg.Bool("auto_accept", def.AutoAccept),
		Nudge:         cfg.Bool("nudge", def.Nudge),
		Recall:        cfg.Bool("recall", def.Recall),
		ModPriority:   mod.Priority("priority", def.ModPriority),
		Blocked:       mod.StringSlice("blocked", def.Blocked),
		GroupMessages: cfg.StringSlice("group_messages", def.GroupMessages),
		Profiles:      make(map[int64]mock.Profile),
	}
	for _, p := range cfg.Sections("profiles") {
		id := p.Int64("id", 0)
		if id == 0 {
			continue
		}
		sc.Profiles[id] = mock.NewProfileBuilder().
			Nickname(p.String("nickname", "")).
			Email(p.String("email", "")).
			Age(p.Int("age", -1)).
			Sign(p.String("sign", "")).
			Build()
	}
	return sc
}

// nick returns the nickname of friend id: its profile nickname if the
// scenario has one.
func (sc scenario) nick(id int64, index int) string {
	if p, ok := sc.Profiles[id]; ok && p.Nickname != "" {
		return p.Nickname
	}
	return fmt.Sprintf("friend-%d", index+1)
}
