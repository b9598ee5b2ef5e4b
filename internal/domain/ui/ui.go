// Package ui describes bot replies independently of the chat platform.
// Adapters translate a Reply into platform components.
package ui

// Style is the visual weight of a button.
type Style int

const (
	StylePrimary Style = iota
	StyleSecondary
	StyleSuccess
)

// Button is a clickable choice carrying an encoded step identifier.
type Button struct {
	Label    string
	CustomID string
	Style    Style
}

// UserSelect asks for exactly Count distinct users.
type UserSelect struct {
	CustomID    string
	Placeholder string
	Count       int
}

// Field is one single-line text input of a Form.
type Field struct {
	CustomID    string
	Label       string
	Placeholder string
	MaxLength   int
}

// Form is a modal dialog. A Reply with a Form opens the dialog instead of
// posting a message.
type Form struct {
	CustomID string
	Title    string
	Fields   []Field
}

// EmbedField is a name/value pair of an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich card.
type Embed struct {
	Title  string
	Color  int
	Fields []EmbedField
	Footer string
}

// Reply is what a handler answers with.
type Reply struct {
	Content    string
	Ephemeral  bool
	Buttons    []Button
	UserSelect *UserSelect
	Form       *Form
	Embed      *Embed
}

// Text returns an ephemeral plain reply.
func Text(content string) Reply {
	return Reply{Content: content, Ephemeral: true}
}

// InteractionRef lets an asynchronous task answer an interaction after the
// primary response was sent.
type InteractionRef struct {
	AppID string
	Token string
}
