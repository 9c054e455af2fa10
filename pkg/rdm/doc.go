// Package rdm runs RDM GET, SET and DISCOVERY transactions against a daemon.
//
// A Client packs arguments with the parameter layouts of a pid.Store, sends
// the request with the daemon's RDMCommand call and interprets the reply:
//
//   - ACK: the parameter data is unpacked with the response layout.
//   - NACK: the reason is decoded and returned as a final result.
//   - ACK_TIMER: the device deferred its answer. After the advertised delay
//     the client polls QUEUED_MESSAGE at the same address until the
//     device returns a message for the original parameter. Unrelated queued
//     messages go to an optional handler. Draining is bounded by a
//     DrainPolicy.
//
// Transactions complete through a callback and never block: ACK_TIMER waits
// are scheduled, not slept. Get, Set and Discover wrap the callback API for
// callers that prefer to block on a context.
//
// RDM outcomes, including NACKs and response codes such as TIMEOUT, are
// values on Result. The callback's error argument is reserved for transport
// failures and for queue draining that could not finish.
package rdm
