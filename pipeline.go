package courier

import "context"

// Executor accepts a request description and delivers its outcome to
// exactly one of the two continuations, exactly once. The same contract
// serves both execution modes: synchronous callers are driven by a
// blocking adapter in Client.Do, asynchronous callers get their
// continuations invoked on whatever goroutine the transport chooses.
type Executor func(req *Request, respond func(*Response), raise func(error))

// Middleware transforms a downstream executor into an upstream one. A
// middleware written generically adjusts the request before calling
// next and, when it post-processes responses, wraps respond while
// leaving raise untouched unless it is explicitly translating errors.
type Middleware func(next Executor) Executor

// Compose folds middleware right-to-left around a terminal executor:
// the first listed middleware is outermost, seeing the request first
// and the response last.
func Compose(mw []Middleware, terminal Executor) Executor {
	exec := terminal
	for i := len(mw) - 1; i >= 0; i-- {
		exec = mw[i](exec)
	}
	return exec
}

// DefaultMiddleware returns a copy of the standard pipeline. The order
// matters: the response-side stages (exceptions, output coercion,
// decompression) sit outermost so they observe the response after the
// request-side stages have finished with it, and URL parsing runs
// before anything that consumes URL components.
func DefaultMiddleware() []Middleware {
	return append([]Middleware(nil), defaultChain...)
}

var defaultChain = []Middleware{
	WrapExceptions,
	WrapOutputCoercion,
	WrapDecompression,
	WrapURL,
	WrapNestedParams,
	WrapQueryParams,
	WrapContentType,
	WrapAccept,
	WrapAcceptEncoding,
	WrapFormParams,
	WrapMultipart,
	WrapUnknownHost,
}

type middlewareKey struct{}

// WithMiddleware replaces the effective pipeline for every call made
// under the returned context. Overrides are scoped per logical call
// chain: concurrent calls under other contexts are unaffected, and
// nesting shadows inner-over-outer.
func WithMiddleware(ctx context.Context, mw ...Middleware) context.Context {
	return context.WithValue(ctx, middlewareKey{}, append([]Middleware(nil), mw...))
}

// WithExtraMiddleware prepends middleware to the pipeline effective in
// ctx for every call made under the returned context.
func WithExtraMiddleware(ctx context.Context, mw ...Middleware) context.Context {
	current := middlewareFromContext(ctx)
	combined := make([]Middleware, 0, len(mw)+len(current))
	combined = append(combined, mw...)
	combined = append(combined, current...)
	return context.WithValue(ctx, middlewareKey{}, combined)
}

func middlewareFromContext(ctx context.Context) []Middleware {
	if ctx != nil {
		if mw, ok := ctx.Value(middlewareKey{}).([]Middleware); ok {
			return mw
		}
	}
	return DefaultMiddleware()
}
