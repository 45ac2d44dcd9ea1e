package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/imbot/pkg/imbot"
	"github.com/randalmurphal/imbot/pkg/imbot/config"
	"github.com/randalmurphal/imbot/pkg/imbot/event"
	"github.com/randalmurphal/imbot/pkg/imbot/mock"
	"github.com/randalmurphal/imbot/pkg/imbot/mock/msgdb"
	"github.com/randalmurphal/imbot/pkg/imbot/observability"
)

type simulation struct {
	settings    config.Settings
	scenario    scenario
	logger      *slog.Logger
	concurrency int
}

// summary is what a simulation reports.
type summary struct {
	Delivered  map[string]int
	Members    int
	Sent       int
	Cancelled  int
	Recalled   int
	Broadcasts int64
	Failures   int64
	Spans      int
	Elapsed    time.Duration
}

func (s *summary) print(w io.Writer) error {
	types := make([]string, 0, len(s.Delivered))
	for t := range s.Delivered {
		types = append(types, t)
	}
	sort.Strings(types)

	var b strings.Builder
	fmt.Fprintf(&b, "events delivered:\n")
	for _, t := range types {
		fmt.Fprintf(&b, "  %-40s %d\n", t, s.Delivered[t])
	}
	fmt.Fprintf(&b, "group members:      %d\n", s.Members)
	fmt.Fprintf(&b, "messages sent:      %d\n", s.Sent)
	fmt.Fprintf(&b, "messages cancelled: %d\n", s.Cancelled)
	fmt.Fprintf(&b, "messages recalled:  %d\n", s.Recalled)
	fmt.Fprintf(&b, "broadcasts:         %d\n", s.Broadcasts)
	fmt.Fprintf(&b, "listener failures:  %d\n", s.Failures)
	fmt.Fprintf(&b, "spans:              %d\n", s.Spans)
	fmt.Fprintf(&b, "elapsed:            %s\n", s.Elapsed.Round(time.Millisecond))

	_, err := io.WriteString(w, b.String())
	return err
}

// tally counts delivered events per type. It runs at monitor priority and
// so sees every event nobody intercepted.
type tally struct {
	mu     sync.Mutex
	counts map[string]int
}

func (t *tally) observe(_ context.Context, e imbot.BotEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[event.TypeName(e)]++
	return nil
}

func (t *tally) snapshot() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// simulate runs a scripted session: login, friends joining and talking
// concurrently, join requests accepted by a listener, a nudge, a moderated
// group conversation with a recall, and shutdown.
func simulate(ctx context.Context, sim simulation) (*summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sim.concurrency <= 0 {
		return nil, errors.New("concurrency must be positive")
	}
	start := time.Now()

	tel, err := newTelemetry()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := tel.shutdown(context.Background()); err != nil {
			sim.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	b := event.NewBroadcaster(event.BroadcasterConfig{
		Logger:  observability.PipelineLogger(sim.logger),
		Metrics: tel.metrics,
		Spans:   tel.spanManager(),
	})
	sim.settings.Apply(b)

	db, err := msgdb.Open(sim.settings.MessageDB.Driver, sim.settings.MessageDB.Path)
	if err != nil {
		return nil, fmt.Errorf("open message database: %w", err)
	}
	defer db.Close()

	profiles, err := mock.NewProfileService(sim.settings.Profiles.CacheSize)
	if err != nil {
		return nil, err
	}

	bot := mock.NewBot(sim.settings.Bot.ID,
		mock.WithNick(sim.settings.Bot.Nick),
		mock.WithMessageDatabase(db),
		mock.WithProfileService(profiles),
		mock.WithBotOptions(
			imbot.WithBroadcaster(b),
			imbot.WithLogger(sim.logger),
			imbot.WithShowVerboseEventLog(sim.settings.Bot.ShowVerboseEventLog),
		),
	)

	// Listeners end with the session.
	session, endSession := context.WithCancel(ctx)
	defer endSession()

	counts := &tally{counts: make(map[string]int)}
	if err := registerListeners(session, sim.scenario, bot, counts); err != nil {
		return nil, err
	}

	sum := &summary{}
	if err := runScript(ctx, sim, bot, sum); err != nil {
		_ = bot.Destroy(ctx)
		return nil, err
	}
	if err := bot.Destroy(ctx); err != nil {
		return nil, err
	}

	sum.Delivered = counts.snapshot()
	if sum.Broadcasts, err = tel.counter(ctx, "imbot.event.broadcasts"); err != nil {
		return nil, err
	}
	if sum.Failures, err = tel.counter(ctx, "imbot.event.listener.failures"); err != nil {
		return nil, err
	}
	sum.Spans = tel.spanCount()
	sum.Elapsed = time.Since(start)
	return sum, nil
}

func registerListeners(ctx context.Context, sc scenario, bot *mock.Bot, counts *tally) error {
	ch := bot.EventChannel()

	if _, err := ch.SubscribeAlways(ctx, counts.observe,
		event.WithPriority(event.PriorityMonitor),
		event.WithName("tally"),
	); err != nil {
		return err
	}

	if _, err := event.FilterByType[*imbot.GroupMessagePreSendEvent](ch).SubscribeAlways(ctx,
		func(_ context.Context, e *imbot.GroupMessagePreSendEvent) error {
			for _, word := range sc.Blocked {
				if strings.Contains(e.Content, word) {
					e.Cancel()
					return nil
				}
			}
			return nil
		},
		event.WithPriority(sc.ModPriority),
		event.WithName("moderation"),
	); err != nil {
		return err
	}

	if !sc.AutoAccept {
		return nil
	}
	_, err := event.FilterByType[*imbot.MemberJoinRequestEvent](ch).SubscribeAlways(ctx,
		func(ctx context.Context, req *imbot.MemberJoinRequestEvent) error {
			_, err := bot.AcceptJoinRequest(ctx, req)
			return err
		},
		event.WithName("auto-accept"),
	)
	return err
}

func runScript(ctx context.Context, sim simulation, bot *mock.Bot, sum *summary) error {
	sc := sim.scenario
	if err := bot.Login(ctx); err != nil {
		return err
	}
	if _, err := bot.Heartbeat(ctx, sc.Heartbeat); err != nil {
		return err
	}

	group := bot.AddGroup(sc.GroupID, sc.GroupName)

	friends := make([]*imbot.Friend, len(sc.Friends))
	for i, id := range sc.Friends {
		f := imbot.NewFriend(bot.Bot, id, sc.nick(id, i))
		if _, err := bot.BroadcastFriendAdd(ctx, f); err != nil {
			return err
		}
		profile, ok := sc.Profiles[id]
		if !ok {
			profile = mock.NewProfileBuilder().Nickname(f.Nick()).Build()
		}
		if err := bot.Profiles().Put(ctx, id, profile); err != nil {
			return err
		}
		friends[i] = f
	}

	if sc.Nudge && len(friends) > 0 {
		if _, err := bot.NudgedBy(ctx, friends[0]); err != nil {
			return err
		}
	}

	// Every friend asks to join the group.
	for _, f := range friends {
		if _, err := bot.BroadcastNewMemberJoinRequest(ctx, group, mock.JoinRequest{
			FromID:   f.ID(),
			FromNick: f.Nick(),
			Message:  "hello",
		}); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sim.concurrency)
	for _, f := range friends {
		g.Go(func() error {
			if _, err := bot.FriendSays(gctx, f, "hi from "+f.Nick()); err != nil {
				return err
			}
			m := group.Member(f.ID())
			if m == nil {
				return nil
			}
			_, err := bot.MemberSays(gctx, m, "hi all")
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("conversation: %w", err)
	}

	var sent []imbot.MessageSource
	for _, content := range sc.GroupMessages {
		src, err := bot.SendGroupMessage(ctx, group, content)
		switch {
		case errors.Is(err, mock.ErrMessageCancelled):
			sum.Cancelled++
		case src == nil:
			return err
		default:
			// Listener failures are already counted by the metrics.
			sum.Sent++
			sent = append(sent, *src)
		}
	}

	if sc.Recall && len(sent) > 0 {
		if _, err := bot.Recall(ctx, sent[0]); err != nil && !event.IsDeliveryError(err) {
			return err
		}
		sum.Recalled++
	}

	if members := group.Members(); len(members) > 0 {
		if _, err := bot.ChangeNameCard(ctx, members[0], "first"); err != nil {
			return err
		}
	}
	sum.Members = len(group.Members())
	return nil
}
