// Package imbot is the client-side runtime of an instant-messaging bot.
//
// A Bot holds its contact lists and turns everything that happens on the
// account into typed events delivered through the event pipeline (package
// event). Application code subscribes to those events; it never talks to
// the transport directly.
//
// # Bots
//
//	bot := imbot.New(10001, "Mock bot", imbot.WithLogger(logger))
//	defer bot.Close(ctx, nil)
//
//	bot.EventChannel().SubscribeAlways(ctx, func(ctx context.Context, e imbot.BotEvent) error {
//	    ...
//	})
//	if err := bot.Login(ctx); err != nil {
//	    return err
//	}
//
// EventChannel only sees events of its own bot. Every bot logs its events to
// its own logger, tagged with bot_id and bot_nick.
//
// # Events
//
// All event types implement BotEvent. Some opt into pipeline capabilities:
//
//   - BotHeartbeatEvent is never logged
//   - PacketReceivedEvent is not logged but still counted in metrics
//   - FriendMessageEvent and GroupMessageEvent are message receipts
//   - GroupMessagePreSendEvent is cancellable
//   - GroupMessagePostSendEvent is verbose
//   - MemberCardChangeEvent is not broadcast when the card did not change
//
// The mock package produces all of them without a network.
package imbot
