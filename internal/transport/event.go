package transport

// EventKind classifies an inbound platform event.
type EventKind string

const (
	// KindMention fires when the client user is mentioned in a channel.
	KindMention EventKind = "mention"
	// KindReply fires when a user replies directly to a document.
	KindReply EventKind = "reply"
	// KindThreadMessage fires when a user posts in a document's thread.
	KindThreadMessage EventKind = "thread_message"
	// KindButtonClick fires when a button on a document is clicked.
	KindButtonClick EventKind = "button_click"
	// KindMenuSelect fires when a dropdown value is chosen on a document.
	KindMenuSelect EventKind = "menu_select"
	// KindRawDelete fires when a document is deleted externally.
	KindRawDelete EventKind = "raw_delete"
	// KindRawBulkDelete fires when documents are bulk-deleted externally.
	KindRawBulkDelete EventKind = "raw_bulk_delete"
)

// Event is one typed inbound platform event. The platform serializes raw
// event delivery; concurrency only arises once handlers suspend on I/O.
type Event struct {
	Kind      EventKind
	GuildID   string
	ChannelID string

	// DocumentID is the target document: the clicked message, the replied-to
	// message, or the thread's parent message.
	DocumentID string
	// MessageID is the inbound message itself for reply and thread events.
	MessageID string
	// ThreadID is the thread channel for thread events.
	ThreadID string

	Actor   Actor
	Content string

	// ControlID identifies the clicked control for button events.
	ControlID string
	// Values holds the chosen entries for menu events.
	Values []string

	// DocumentIDs lists affected documents for bulk delete events.
	DocumentIDs []string
}
