// Package bus carries module events between publishers and subscribers.
//
// A single Publisher is shared by every module. Publishing never blocks:
// each subscriber owns a buffered queue, and when a slow subscriber falls
// behind its oldest pending event is dropped. Cross-subscriber ordering is
// not guaranteed; events from one source arrive at one subscriber in emit
// order.
//
// Events come in two flavors. Transient events are fire-and-forget. Stateful
// events additionally occupy a cache slot named by CacheKey — the latest
// event per slot is remembered and replayed to late subscribers via
// Snapshot. Events with the same CacheKey are mutually exclusive and
// overwrite each other; use a shared key for events that represent
// alternative states of the same thing.
package bus
