// Package eventbus delivers discovery, lifecycle, error and data events to
// dynamic subscribers.
//
// Delivery is ordered and at-least-once per subscriber: every event published
// after a subscription was created reaches that subscriber, in publish order.
// Publish never blocks the producer; each subscriber has its own queue drained
// by a dedicated goroutine. A slow subscriber only delays itself.
//
// There is no replay. A subscriber sees only events published after Subscribe
// returned.
//
// Producers publish a transport's events from that transport's own goroutine,
// so per-transport order is preserved end to end. No ordering is promised
// between transports.
package eventbus
