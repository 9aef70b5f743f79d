// Package connection keeps long-lived subscriptions alive.
//
// A Manager runs one subscription at a time and starts a new one when the
// previous one stops. A subscription that ends cleanly (its observe
// duration elapsed) is renewed at once. A subscription that fails, or that
// cannot be started, is retried with exponential backoff:
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Continue at 60s until successful
//  5. Reset to 1s once a subscription is established
//
// # Jitter
//
// Bridges usually hold one subscription per device; jitter spreads their
// retries after the gateway drops every stream at once:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection
