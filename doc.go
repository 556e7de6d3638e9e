// Package courier is a declarative HTTP client front-end over net/http.
//
// A caller builds a Request description; the pipeline folds an ordered
// middleware list over a terminal transport executor into one composed
// executor. Invocation order: URL parsing and normalization, param and
// header construction, outgoing body coercion, the terminal transport
// call, transparent decompression, incoming body coercion, and status
// classification — identically for synchronous calls and for the
// continuation-pair asynchronous mode.
//
// # Synchronous and asynchronous execution
//
//	resp, err := courier.Get(ctx, "https://example.com/api", &courier.Request{
//		Accept: "json",
//		As:     "auto",
//	})
//
//	err := courier.DoAsync(ctx, req,
//		func(resp *courier.Response) { /* exactly once */ },
//		func(err error) { /* or this, exactly once */ })
//
// Errors raised before the terminal call begins — a missing host,
// contradictory options — return synchronously in both modes; once the
// transport has dispatched, async failures arrive only at onFailure.
//
// # Pipeline overrides
//
// The default middleware list can be replaced or extended for a
// dynamic scope through the context:
//
//	ctx = courier.WithExtraMiddleware(ctx, courier.EnsureRequestID())
//
// Overrides nest and never leak across concurrent call chains. A
// Request.Middleware value overrides everything for that one call.
//
// # Connection pooling
//
// Requests without a pool handle run one-shot and close their
// connection; a pool.Manager carried on the request (or installed with
// pool.With) keeps connections alive across calls. Handles are owned by
// their creators; the pipeline never shuts one down.
package courier
