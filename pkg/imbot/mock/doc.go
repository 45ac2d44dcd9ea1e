// Package mock runs a bot without a network. Contacts are added directly and
// every action a real server would push is broadcast as the matching event,
// so listeners can be tested end to end.
//
//	bot := mock.NewBot(10001)
//	defer bot.Destroy(ctx)
//
//	alice := bot.AddFriend(1, "alice")
//	if _, err := bot.FriendSays(ctx, alice, "hello"); err != nil {
//	    return err
//	}
//
// Messages sent and received through the mock bot are recorded in a
// msgdb.Database so that their sources can be queried and recalled later.
//
// A listener that fails never stops an action. Its error is returned together
// with the action's result, so callers may ignore event.DeliveryError.
package mock
