package surface

// Usage hints for text components.
const (
	// UsageHintSubtle renders subdued text (thinking, retry waits).
	UsageHintSubtle = "subtle"
	// UsageHintCode renders monospaced text (tool calls and results).
	UsageHintCode = "code"
	// UsageHintError renders error-styled text.
	UsageHintError = "error"
)

// RootID is the identifier of the container fragment listing all top-level
// fragments in emission order.
const RootID = "root"

// LiteralString wraps literal text content.
type LiteralString struct {
	LiteralString string `json:"literalString"`
}

// Text is a plain text fragment with an optional usage hint.
type Text struct {
	Text      LiteralString `json:"text"`
	UsageHint string        `json:"usageHint,omitempty"`
}

// ExplicitList is an ordered list of child fragment identifiers.
type ExplicitList struct {
	ExplicitList []string `json:"explicitList"`
}

// Column is a vertical container; the root fragment is always a Column.
type Column struct {
	Children ExplicitList `json:"children"`
}

// FormOption is one selectable choice of a form field.
type FormOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FormField describes one input of a form fragment.
type FormField struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"` // text, number, select, radio, checkbox, email, textarea
	Label       string       `json:"label"`
	Required    bool         `json:"required,omitempty"`
	Placeholder string       `json:"placeholder,omitempty"`
	Options     []FormOption `json:"options,omitempty"`
	Validation  string       `json:"validation,omitempty"`
	MaxLength   int          `json:"maxLength,omitempty"`
}

// FormAction describes a form submit button.
type FormAction struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"` // primary, secondary
}

// Form collects structured user input (VM specs, access requests, ...).
type Form struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Fields      []FormField  `json:"fields"`
	Actions     []FormAction `json:"actions,omitempty"`
}

// TableData holds tabular content.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Table displays lists of resources (VMs, tickets, users).
type Table struct {
	Title string    `json:"title,omitempty"`
	Table TableData `json:"table"`
}

// Ticket displays an IT ticket summary.
type Ticket struct {
	TicketID string            `json:"ticket_id"`
	Title    string            `json:"title"`
	Status   string            `json:"status"`
	Priority string            `json:"priority,omitempty"`
	Details  map[string]string `json:"details,omitempty"`
}

// ComponentUnion holds exactly one concrete component kind.
type ComponentUnion struct {
	Text   *Text   `json:"Text,omitempty"`
	Column *Column `json:"Column,omitempty"`
	Form   *Form   `json:"Form,omitempty"`
	Table  *Table  `json:"Table,omitempty"`
	Ticket *Ticket `json:"Ticket,omitempty"`
}

// Component is one node of the component graph. ID is the idempotent key the
// consumer replaces by.
type Component struct {
	ID        string         `json:"id"`
	Component ComponentUnion `json:"component"`
}

// NewTextComponent builds a text fragment.
func NewTextComponent(id, text, usageHint string) Component {
	return Component{
		ID: id,
		Component: ComponentUnion{Text: &Text{
			Text:      LiteralString{LiteralString: text},
			UsageHint: usageHint,
		}},
	}
}

// SurfaceUpdate carries changed or added fragments. The consumer treats
// repeated identifiers as replacement, not duplication.
type SurfaceUpdate struct {
	Components []Component `json:"components"`
}

// Envelope is one increment sent to the UI layer.
type Envelope struct {
	SurfaceUpdate SurfaceUpdate `json:"surfaceUpdate"`
}
