// Package connection provides retry pacing for the daemon connection.
//
// # Backoff Strategy
//
// Connection attempts to the daemon are spaced with exponential backoff:
//
//  1. Initial delay: 250 milliseconds
//  2. Exponential increase: 500ms, 1s, 2s, 4s
//  3. Maximum delay: 5 seconds
//  4. Reset to the initial delay after a successful connect
//
// # Jitter
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection
