// Package urlkit parses, normalizes, and reassembles URLs for the
// request pipeline.
//
// Parse decomposes a URL into the fields the pipeline works with
// (scheme, server name, optional port, uri, query string, user info)
// and Unparse inverts it. Percent-encoding is applied per component
// with the RFC 3986 allowed sets and is idempotent: valid %XX triplets
// are never re-encoded. Path encoding (%20 for space) and query-param
// encoding (the "+" convention, handled by package params) are distinct
// codecs and are never mixed.
package urlkit
