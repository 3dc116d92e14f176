// Package surface converts semantic orchestration notices into an
// identifier-addressed component graph (the envelope) consumed by a UI layer.
// Identifiers are idempotent keys: re-emitting a fragment with an identifier
// the consumer has already seen means "replace", never "append", which is
// what makes progressive refinement of a streaming message possible.
//
// A secondary, best-effort refinement step can re-interpret final text
// through a content-classification capability to produce richer components
// (forms, tables, tickets); when it fails the plain text fragment already
// emitted stays authoritative.
package surface
