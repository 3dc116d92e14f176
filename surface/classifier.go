package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/agentsurface/core"
	"github.com/hupe1980/agentsurface/model"
)

// Classifier turns final turn text into richer fragments. fragmentID is the
// identifier of the plain text fragment already on the surface; a classifier
// reuses it for its primary text component so the refinement replaces the
// plain rendering in place.
type Classifier interface {
	Classify(ctx context.Context, text, fragmentID string) ([]Component, error)
}

const classifierSystemPrompt = `You convert agent text responses into rich surface components.

Component format:
{"id": "unique_id", "component": {"ComponentType": {"property": "value"}}}

Available components:

1. Text: plain messages.
   {"Text": {"text": {"literalString": "content"}, "usageHint": "subtle"|"code"|"error"|null}}

2. Form: collects user input (VM specs, access requests, missing details).
   {"Form": {"title": "...", "description": "...", "fields": [{"id": "cpu", "type": "text|select|radio|number", "label": "CPU", "required": true, "options": [{"value": "v", "label": "l"}]}], "actions": [{"id": "submit", "label": "Submit", "type": "primary"}]}}
   Use it whenever the agent asks the user for specific details.

3. Ticket: displays an IT ticket.
   {"Ticket": {"ticket_id": "#123", "title": "...", "status": "open", "priority": "high"}}

4. Table: displays lists of resources (VMs, users, tickets).
   {"Table": {"title": "...", "table": {"headers": [...], "rows": [...]}}}

Return ONLY a JSON object: {"components": [...]}.
Rules:
- Valid JSON only.
- If the agent asks for information, generate a Form.
- If the agent lists items, generate a Table.
- Do NOT generate Column components; return a flat list, layout is handled for you.`

const classifierUserPrompt = `Generate surface components for this agent response:

Content: %s

Instructions:
1. If you generate a Text component for the main content, YOU MUST USE ID: %q.
2. For any other components use unique random IDs.
3. Return JSON only.`

// ModelClassifierOptions configures a ModelClassifier.
type ModelClassifierOptions struct {
	// MaxContent truncates input text before it is sent to the model.
	MaxContent int
}

// ModelClassifier asks a generation model to re-render text as structured
// components. It is intentionally forgiving: markdown fences around the JSON
// are stripped and components without identifiers get fresh ones.
type ModelClassifier struct {
	model model.Model
	opts  ModelClassifierOptions
}

// NewModelClassifier creates a classifier backed by the given model.
func NewModelClassifier(m model.Model, optFns ...func(o *ModelClassifierOptions)) *ModelClassifier {
	opts := ModelClassifierOptions{MaxContent: 1500}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelClassifier{model: m, opts: opts}
}

// Classify implements Classifier.
func (mc *ModelClassifier) Classify(ctx context.Context, text, fragmentID string) ([]Component, error) {
	if len(text) > mc.opts.MaxContent {
		text = text[:mc.opts.MaxContent]
	}

	turns := []core.Turn{
		{Role: core.RoleSystem, Text: classifierSystemPrompt},
		{Role: core.RoleUser, Text: fmt.Sprintf(classifierUserPrompt, text, fragmentID)},
	}

	deltas, errs := mc.model.GenerateStream(ctx, model.Request{Turns: turns})
	var sb strings.Builder
	for d := range deltas {
		sb.WriteString(d.Text)
	}
	if err := <-errs; err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	return parseComponents(sb.String())
}

// parseComponents extracts the component list from a model reply, tolerating
// markdown code fences and missing identifiers.
func parseComponents(raw string) ([]Component, error) {
	content := stripFences(raw)

	list := gjson.Get(content, "components")
	if !list.Exists() || !list.IsArray() {
		return nil, fmt.Errorf("reply has no components array")
	}

	var components []Component
	for _, item := range list.Array() {
		var comp Component
		if err := json.Unmarshal([]byte(item.Raw), &comp); err != nil {
			return nil, fmt.Errorf("decode component: %w", err)
		}
		if comp.ID == "" {
			comp.ID = "gen_" + core.NewID()
		}
		components = append(components, comp)
	}
	return components, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag. Models emit those even when asked for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```json"); i >= 0 {
		s = s[i+len("```json"):]
	} else if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+len("```"):]
	} else {
		return s
	}
	if j := strings.Index(s, "```"); j >= 0 {
		s = s[:j]
	}
	return strings.TrimSpace(s)
}
