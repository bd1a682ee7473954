package host

import "context"

// Chats is the minimal chat-lifecycle contract the engine consumes from the
// host. Metadata and Messages expose live mutable state for the current
// chat; the Open/New/Clear/Rename operations may complete asynchronously,
// with completion signaled out-of-band on the bus.
type Chats interface {
	// Context returns the identity snapshot of the current chat.
	Context() Context
	// Messages returns the ordered, index-addressable message sequence of
	// the current chat.
	Messages() []*Message
	// Metadata returns the current chat's metadata object, or nil when no
	// chat context is available.
	Metadata() *Metadata

	// OpenCharacterChat switches to an existing individual chat.
	OpenCharacterChat(ctx context.Context, chatID string) error
	// OpenGroupChat switches to an existing group chat.
	OpenGroupChat(ctx context.Context, groupID, chatID string) error
	// NewChat creates a fresh chat for the current subject without deleting
	// the current one, switches to it, and returns its identifier.
	NewChat(ctx context.Context) (string, error)
	// ClearChat removes all messages from the current chat.
	ClearChat(ctx context.Context) error
	// RenameChat renames the current chat and returns the final name, which
	// may differ from the requested one (e.g. on collision).
	RenameChat(ctx context.Context, oldID, newName string) (string, error)
	// AppendMessage appends one message to the current chat.
	AppendMessage(ctx context.Context, msg *Message) error

	// Rendered returns handles for the messages currently rendered by the
	// host view.
	Rendered() []MessageView
}

// MessageView is a handle to one rendered message, carrying the favorite
// toggle affordance.
type MessageView interface {
	// Index is the zero-based position of the message in the chat sequence.
	Index() int
	// HasToggle reports whether the favorite toggle control is attached.
	HasToggle() bool
	// AttachToggle attaches the toggle control in its unfavorited state.
	AttachToggle()
	// Favorited returns the current visual state of the toggle.
	Favorited() bool
	// SetFavorited sets the visual state of the toggle.
	SetFavorited(on bool)
}

// Result is a dialog outcome.
type Result int

const (
	// ResultAffirmative is the canonical confirm value. Everything that asks
	// the user for a yes/no decision tests for this and nothing else.
	ResultAffirmative Result = iota + 1
	ResultCancelled
)

// Dialog is the host's modal dialog capability.
type Dialog interface {
	Display(ctx context.Context, text string) error
	Confirm(ctx context.Context, text string) (Result, error)
	Input(ctx context.Context, prompt, initial string) (string, Result, error)
}

// Toaster is the host's transient notification capability. Fire-and-forget;
// implementations must never block or fail loudly.
type Toaster interface {
	Success(msg string)
	Error(msg string)
	Info(msg string)
	Warning(msg string)
}

// Formatter renders a raw message into safe display markup. It is fallible:
// callers fall back to the raw text on error.
type Formatter func(text, sender string, isUser bool, messageID string) (string, error)

// PreviewUI is the affordance layer toggled around a preview session:
// hide the primary input and install the return control on enter, undo both
// on exit. Idempotent in both directions.
type PreviewUI interface {
	EnterPreviewMode(previewChatID string)
	ExitPreviewMode()
}
