// Package notify provides an in-process, key-scoped publish/subscribe broker.
//
// Every Subscription filters on exactly one key and owns a private FIFO queue.
// Publish hands a value to each live subscription of the key and returns
// without waiting for any consumer, so a stalled reader never delays writers
// or other readers.
//
// # Usage
//
//	broker := notify.NewBroker(notify.WithLogger(log))
//	defer broker.Close()
//
//	sub, err := broker.Subscribe("temperature")
//	if err != nil {
//		return err
//	}
//	defer sub.Unsubscribe()
//
//	go broker.Publish("temperature", "21.5")
//
//	for {
//		v, err := sub.Next(ctx)
//		if err != nil {
//			return nil // ctx cancelled or subscription closed
//		}
//		fmt.Println(v)
//	}
//
// # Ordering
//
// Values published for a key reach each subscription of that key in the
// order Publish was called. Nothing is promised across keys, or across two
// subscriptions of the same key.
//
// # Teardown
//
// Unsubscribe is idempotent and safe to call from several exit paths at
// once. After it returns the subscription is out of the registry, its queue
// is released, a pending Next returns ErrSubscriptionClosed and later
// publishes never reach it.
//
// # Queue Policy
//
// Queues are unbounded by default. A stalled consumer therefore grows its
// queue without limit until it unsubscribes. WithQueueLimit bounds every
// queue; WithOverflow chooses what happens when a bounded queue is full:
//
//   - DropOldest: discard the oldest queued value and append the new one
//   - DropNewest: discard the incoming value
//
// Publish never blocks, so there is no block-the-publisher policy.
//
// # Registry
//
// Subscriptions are kept in a lock-striped registry. Each shard holds
// copy-on-write slices per key behind a sync.RWMutex; Publish only takes a
// shard read lock long enough to grab the current slice and dispatches with
// no registry lock held.
package notify
