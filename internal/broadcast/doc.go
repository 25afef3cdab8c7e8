// Package broadcast provides the fan-in and fan-out primitives used by the
// automaton run loop.
//
// Queue is an unbounded multi-producer FIFO with a coalescing signal channel,
// so consumers can wait on it inside a select alongside ctx.Done().
//
// Hub is a publish/subscribe primitive. Every Subscription owns its own Queue
// (an independent cursor), so Publish never blocks on a slow subscriber. A
// hub created with NewReplay retains the most recent value and hands it to
// new subscribers before any later update.
//
// There is no backpressure anywhere in this package. Consumers that fall
// behind grow their cursor's buffer.
package broadcast
