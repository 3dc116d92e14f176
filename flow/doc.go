// Package flow implements the reason-act turn loop that drives one
// orchestration run: generate an assistant turn (with retry on transient
// failures), dispatch any requested tool calls, feed the results back into
// the conversation, and repeat until the model answers with plain text or
// the turn limit is reached.
//
// Progress is reported as a stream of semantic notices. Partial text of a
// turn is re-emitted under a stable message identifier so consumers replace
// rather than append; a failed run ends with exactly one error notice.
package flow
