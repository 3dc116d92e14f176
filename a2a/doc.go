// Package a2a implements discovery of and communication with remote
// agents: fetching the agent card from the well-known location (with a
// per-address cache), and a Connection that exposes the remote agent's
// streaming endpoint as a model.Model so the orchestration loop stays
// transport-agnostic. Transport mode (streaming / polling / push) is selected
// from the card's declared capabilities, not by runtime type inspection.
package a2a
