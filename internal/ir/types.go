package ir

// Kind discriminates the catalog entry variants.
type Kind string

const (
	KindModel   Kind = "model"
	KindRule    Kind = "rule"
	KindRole    Kind = "role"
	KindCommand Kind = "command"
)

// DefaultAnchorID is the reserved slug of the model that is always selected.
const DefaultAnchorID = "orchestrator"

// Entry is implemented by every catalog variant.
type Entry interface {
	Kind() Kind
	Base() Item
}

// Item is the shape shared by all catalog entries. Immutable once fetched.
type Item struct {
	ID          string    `json:"id" yaml:"id"`
	DisplayName string    `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Metadata    *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Metadata carries optional descriptive fields for an entry or hook.
type Metadata struct {
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Priority    int64    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
}

// Model is a selectable agent model. Exactly one model is the anchor.
type Model struct {
	Item `yaml:",inline"`
}

// Rule belongs to exactly one model. Its name is Item.ID.
type Rule struct {
	Item         `yaml:",inline"`
	OwnerModelID string `json:"owner_model_id" yaml:"owner_model_id"`
	Content      string `json:"content" yaml:"content"`
}

// Role is a single-select catalog entry.
type Role struct {
	Item    `yaml:",inline"`
	Content string `json:"content" yaml:"content"`
}

// Command is a multi-select catalog entry, unique by id.
type Command struct {
	Item    `yaml:",inline"`
	Content string `json:"content" yaml:"content"`
}

func (Model) Kind() Kind   { return KindModel }
func (Rule) Kind() Kind    { return KindRule }
func (Role) Kind() Kind    { return KindRole }
func (Command) Kind() Kind { return KindCommand }

func (m Model) Base() Item   { return m.Item }
func (r Rule) Base() Item    { return r.Item }
func (r Role) Base() Item    { return r.Item }
func (c Command) Base() Item { return c.Item }

// Name returns the rule name (its id).
func (r Rule) Name() string { return r.ID }

// Hook is an opaque before/after payload.
type Hook struct {
	Content  string    `json:"content" yaml:"content"`
	Metadata *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// HookPair holds the two fixed hook slots. Either may be absent.
type HookPair struct {
	Before *Hook `json:"before,omitempty" yaml:"before,omitempty"`
	After  *Hook `json:"after,omitempty" yaml:"after,omitempty"`
}

// IsZero reports whether neither hook is present.
func (h HookPair) IsZero() bool {
	return h.Before == nil && h.After == nil
}
