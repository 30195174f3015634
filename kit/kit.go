// Package kit holds the transport-neutral plumbing shared by the HTTP and
// MCP front-ends: the Endpoint abstraction, middleware chaining, and the
// request-scoped context keys.
package kit

import "context"

// Endpoint is a transport-neutral request handler. HTTP handlers and MCP
// tools both decode into a typed request, call an Endpoint, and encode the
// response for their wire.
type Endpoint func(ctx context.Context, req any) (any, error)

// Middleware wraps an Endpoint with cross-cutting behavior.
type Middleware func(Endpoint) Endpoint

// Chain composes middlewares so the first argument is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(next Endpoint) Endpoint {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
