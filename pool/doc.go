// Package pool provides externally owned connection-pool handles for
// the request pipeline. A Manager wraps a tuned http.Transport; the
// pipeline routes calls through it when a request carries one (or one
// is installed in the context via With/NewContext) and never closes it.
// Ownership stays with the creator: every Manager must be Shutdown by
// whoever built it.
package pool
