// Package core defines the shared data model for agentsurface: the
// append-only Conversation with role-attributed Turns, tool call / invocation
// records, and the Notice taxonomy emitted by an orchestration run.
//
// Core goals:
//   - Keep the conversation a replayable audit trail (append, never edit)
//   - Normalize tool call representation independent of any model provider
//   - Give downstream consumers (envelope conversion, logging) a closed set
//     of semantic notices instead of provider-specific stream chunks
package core
