package surface

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentsurface/core"
)

// Converter maps semantic notices to envelope increments. It remembers every
// top-level fragment identifier it has emitted so each envelope can carry a
// root column listing all fragments in first-emission order, with no
// duplicates. One Converter serves one run; it is not safe for concurrent use.
type Converter struct {
	order []string
	seen  map[string]struct{}
}

// NewConverter creates a converter with an empty fragment registry.
func NewConverter() *Converter {
	return &Converter{seen: make(map[string]struct{})}
}

// Convert translates one notice into an envelope. Repeated notices for the
// same logical fragment (partial text of a streaming turn) reuse the same
// identifier, so consumers replace content in place.
func (c *Converter) Convert(n core.Notice) Envelope {
	var fragment Component

	switch v := n.(type) {
	case core.TextNotice:
		fragment = NewTextComponent("msg_"+v.MessageID, v.Text, "")
	case core.ToolCallNotice:
		text := fmt.Sprintf("%s(%s)", v.Name, v.Arguments)
		fragment = NewTextComponent("call_"+v.CallID, text, UsageHintCode)
	case core.ToolResultNotice:
		hint := UsageHintCode
		if v.IsError {
			hint = UsageHintError
		}
		fragment = NewTextComponent("result_"+v.CallID, v.Result, hint)
	case core.RetryNotice:
		text := fmt.Sprintf("Retrying in %s (attempt %d): %s", v.Wait.Truncate(time.Millisecond), v.Attempt, v.Reason)
		fragment = NewTextComponent("retry_"+core.NewID(), text, UsageHintSubtle)
	case core.ErrorNotice:
		fragment = NewTextComponent("error_"+core.NewID(), v.Message, UsageHintError)
	default:
		fragment = NewTextComponent("notice_"+core.NewID(), fmt.Sprintf("%v", n), UsageHintSubtle)
	}

	c.register(fragment.ID)

	return Envelope{SurfaceUpdate: SurfaceUpdate{
		Components: []Component{fragment, c.root()},
	}}
}

// Refine re-renders the final text of a turn into richer fragments produced
// by a classifier. Best effort: any classifier failure or unusable output
// leaves the already emitted plain text authoritative and reports ok=false.
// The classifier is asked to reuse the turn's text fragment identifier for
// its primary component so the refinement replaces instead of duplicating.
func (c *Converter) Refine(ctx context.Context, cl Classifier, messageID, text string) (Envelope, bool) {
	if cl == nil {
		return Envelope{}, false
	}
	components, err := cl.Classify(ctx, text, MessageFragmentID(messageID))
	if err != nil || len(components) == 0 {
		return Envelope{}, false
	}
	for _, comp := range components {
		if comp.ID == "" || comp.ID == RootID {
			return Envelope{}, false
		}
	}
	for _, comp := range components {
		c.register(comp.ID)
	}

	return Envelope{SurfaceUpdate: SurfaceUpdate{
		Components: append(components, c.root()),
	}}, true
}

// MessageFragmentID returns the fragment identifier the converter assigns to
// text of the given turn. Classifiers reuse it to replace the plain rendering.
func MessageFragmentID(messageID string) string { return "msg_" + messageID }

func (c *Converter) register(id string) {
	if _, ok := c.seen[id]; ok {
		return
	}
	c.seen[id] = struct{}{}
	c.order = append(c.order, id)
}

// root builds the container fragment referencing every known fragment in
// emission order.
func (c *Converter) root() Component {
	children := make([]string, len(c.order))
	copy(children, c.order)
	return Component{
		ID: RootID,
		Component: ComponentUnion{Column: &Column{
			Children: ExplicitList{ExplicitList: children},
		}},
	}
}

// Children exposes the current root child identifiers, mainly for tests and
// diagnostics.
func (c *Converter) Children() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
