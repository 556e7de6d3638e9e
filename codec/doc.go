// Package codec is the content-negotiation and body-coercion engine:
// a runtime-extensible registry mapping format tags to encoder/decoder
// implementations, MIME canonicalization, charset handling, and the
// inflate helpers used by the decompression middleware.
//
// Built-in formats: json (json-iterator), edn, transit+json and
// transit+msgpack (a tagged-envelope layer with caller-registered
// per-type write handlers and tag-keyed read handlers), and
// x-www-form-urlencoded. Additional formats can be registered on the
// Default registry or a private one.
package codec
