// Package session houses conversation persistence between runs. A Store keeps
// one Conversation per session identifier so a user's follow-up messages
// continue the same history.
//
// Add additional backends (Redis, Postgres, etc.) in sub-packages without
// changing any calling code, only the wiring layer decides which
// implementation to instantiate.
package session
