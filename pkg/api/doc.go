// Package api is the request dispatcher used by resource models and
// applications.
//
// An API wraps an Executor (normally a *session.Session) and runs single
// commands, ordered lists of commands, or concurrently scheduled batches
// whose results come back in input order:
//
//	gw := api.New(sess, api.DefaultConfig())
//	ids, err := gw.Request(ctx, model.ListDevices())
//	lights, err := gw.RequestAsync(ctx, cmds).Wait()
//
// Timeouts are retried by wrapping the executor:
//
//	gw := api.New(api.WithRetry(sess, api.DefaultAttempts), api.DefaultConfig())
package api
