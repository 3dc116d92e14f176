package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// WellKnownPath is the discovery location of an agent's card relative to its
// base address.
const WellKnownPath = "/.well-known/agent.json"

var (
	// ErrUnreachableAgent signals the descriptor could not be fetched.
	ErrUnreachableAgent = errors.New("agent unreachable")
	// ErrMalformedDescriptor signals the descriptor could not be parsed.
	ErrMalformedDescriptor = errors.New("malformed agent descriptor")
)

// Capabilities declares the transport modes a remote agent supports.
type Capabilities struct {
	Streaming bool `json:"streaming"`
	Polling   bool `json:"polling"`
	Push      bool `json:"push"`
}

// Skill describes one advertised agent capability.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// AgentCard is a remote agent's self-description. Immutable once resolved;
// cached per address for the process lifetime.
type AgentCard struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Version      string       `json:"version"`
	URL          string       `json:"url"`
	Capabilities Capabilities `json:"capabilities"`
	Skills       []Skill      `json:"skills,omitempty"`
}

// ResolverOptions configures a CardResolver.
type ResolverOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

// CardResolver fetches and caches agent cards by base address. A cache hit is
// a pure lookup with no I/O; entries live for the process lifetime unless
// explicitly cleared. Safe for concurrent use (writes are idempotent upserts).
type CardResolver struct {
	httpClient *http.Client

	mu    sync.RWMutex
	cards map[string]*AgentCard
}

// NewCardResolver creates a resolver with optional overrides.
func NewCardResolver(optFns ...func(o *ResolverOptions)) *CardResolver {
	opts := ResolverOptions{Timeout: 30 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &CardResolver{httpClient: client, cards: map[string]*AgentCard{}}
}

// Resolve returns the agent card for baseURL, fetching it on first use.
func (r *CardResolver) Resolve(ctx context.Context, baseURL string) (*AgentCard, error) {
	key := strings.TrimRight(baseURL, "/")

	r.mu.RLock()
	card, ok := r.cards[key]
	r.mu.RUnlock()
	if ok {
		return card, nil
	}

	card, err := r.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cards[key] = card
	r.mu.Unlock()

	return card, nil
}

// ClearCache drops all cached descriptors.
func (r *CardResolver) ClearCache() {
	r.mu.Lock()
	r.cards = map[string]*AgentCard{}
	r.mu.Unlock()
}

func (r *CardResolver) fetch(ctx context.Context, baseURL string) (*AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+WellKnownPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachableAgent, err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachableAgent, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrUnreachableAgent, baseURL+WellKnownPath, resp.Status)
	}

	var card AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}
	if card.Name == "" {
		return nil, fmt.Errorf("%w: missing agent name", ErrMalformedDescriptor)
	}
	if card.URL == "" {
		card.URL = baseURL
	}

	return &card, nil
}
