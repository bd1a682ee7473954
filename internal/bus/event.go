package bus

import "time"

// Event represents a notification published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Host-emitted event kinds. The host publishes these as its chat state
// changes; the engine subscribes.
const (
	// KindChatChanged carries a ChatChange payload whenever the live chat
	// switches, regardless of what initiated the switch.
	KindChatChanged = "chat.changed"
	// KindMoreLoaded fires when older messages are loaded into the view.
	KindMoreLoaded = "chat.more_loaded"

	// Message events carry a MessageRef payload.
	KindMessageReceived = "message.received"
	KindMessageSent     = "message.sent"
	KindMessageDeleted  = "message.deleted"
	KindMessageSwiped   = "message.swiped"
	KindMessageUpdated  = "message.updated"
)

// Engine-emitted event kinds. Hosts subscribe to re-render.
const (
	// KindFavoritesChanged fires after any favorites collection mutation.
	KindFavoritesChanged = "favorites.changed"
	// KindPreviewEntered fires once a preview session reaches Active.
	KindPreviewEntered = "preview.entered"
	// KindPreviewExited fires when a preview session resets to Idle.
	KindPreviewExited = "preview.exited"
)

// ChatChange is the payload for KindChatChanged.
type ChatChange struct {
	ChatID string
}

// MessageRef is the payload for message events, identifying a message by
// its position in the live chat sequence.
type MessageRef struct {
	Index int
}
