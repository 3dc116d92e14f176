// Package model defines the provider-agnostic generation capability used to
// drive an orchestration run: a streaming interface producing incremental
// deltas, the accumulator that folds deltas back into a completed assistant
// turn, and the Transient/Fatal error classification consumed by the retry
// controller.
//
// Core goals:
//   - Unify streaming generation behind a single channel-based interface
//   - Keep delta merging deterministic regardless of transport chunking
//   - Classify provider failures so only capacity/availability errors retry
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic, remote A2A agents) implement the Model
// interface from this package so higher layers stay decoupled from SDKs.
package model
