// Package engine wires the batch auction components into a running
// settlement service for one trading pair.
//
// The Engine owns commitment lifecycle and batch orchestration: it accepts
// signed commits during the commit window, validates reveals during the
// reveal window, slashes non-reveals when the window closes, and runs the
// matching and clearing pipeline as one serialized step when settlement is
// triggered. Settlement is permissionless and idempotent: any caller may
// invoke it once the reveal window has closed, and only the first call has
// any effect.
//
// Commit and reveal submissions from different actors touch only their own
// commitment record and may be accepted concurrently. Matching and clearing
// are a deliberate sequential bottleneck: fairness requires seeing every
// order before producing any output, so the settle step runs under one lock
// and no partial or streamed settlement exists.
//
// External collaborators are interfaces: Custody holds bonds and token
// balances, Oracle supplies the circuit-breaker reference price, and the
// compliance deny-list is consulted through the aggregator package.
// Per-batch audit records persist through an ArchiveStore (Postgres, Pebble
// or in-memory), and clearing outcomes are published to an event stream for
// downstream indexers.
package engine
