// Package changefeed carries "something changed for this user" notifications
// from the subscription store to live entitlement sessions.
//
// Events are hints, not state. A receiver reacts by reloading from the
// repository, so a lost event only delays an update until the next load.
// Two implementations are provided:
//
//   - MemoryFeed for a single process (and tests)
//   - RedisFeed for fan-out across processes via Redis pub/sub. A feed opens
//     one Redis subscription and fans events out to its local subscribers.
//
// Delivery never blocks publishers. A subscriber whose buffer is full is
// dropped and its channel closed; the owner subscribes again when it next
// needs events.
//
// Usage:
//
//	feed := changefeed.NewMemoryFeed(16)
//	sub := feed.Subscribe(ctx)
//	defer sub.Close()
//
//	for ev := range sub.Events() {
//		if ev.UserID == userID {
//			_ = engine.Refresh(ctx)
//		}
//	}
package changefeed
