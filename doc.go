// Package delay implements a deferred-command scheduler driven by a discrete
// logical clock. Commands are opaque payloads addressed by a unique identifier,
// fired at the first clock tick at or after their scheduled tick, ordered by
// priority, and persisted across restarts through a pluggable Store.
//
// Typical usage looks like:
//   - Create a Session with a Config, a Dispatcher and a Store
//   - Load any previously persisted events with Session.Load
//   - Schedule events through the Engine (or the command front end)
//   - Call Session.Step once per host clock tick to fire due events
//   - Close the Session to persist what is still pending
//
// The command package provides the user-facing grammar, and cmd/delayd is a
// runnable host that drives a Session from the console.
package delay
