// Package transport defines the chat-platform collaborator surface: the
// editable Document acting as a UI screen, the typed inbound event stream,
// and the Gateway operations handlers use to mutate documents. The concrete
// gateway implementation lives outside this module.
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that a referenced document no longer exists on the
// platform. Dispatch treats it as a tombstone, not a failure.
var ErrNotFound = errors.New("transport: document not found")

// ErrLayoutOverflow reports that a screen declares more interactive controls
// than one document can hold. It signals a programming defect and is the one
// error the resource queue re-raises instead of swallowing.
var ErrLayoutOverflow = errors.New("transport: too many controls for one screen")

// BackSentinel is the reserved menu payload used when the back control
// re-invokes a screen's MenuSelect handlers in place of a real selection.
const BackSentinel = "@back_button_click"

// Actor is the user acting on a document, as reported by the platform with
// each event.
type Actor struct {
	ID          string
	DisplayName string
	Roles       []string
	Admin       bool
	ManageMsgs  bool
	Bot         bool
}

// Gateway is the transport collaborator. All blocking operations take a
// context; implementations are expected to be safe for concurrent use.
type Gateway interface {
	// Events delivers the inbound event stream. The channel closes when the
	// platform connection terminates.
	Events() <-chan Event

	Document(ctx context.Context, channelID, id string) (Document, error)
	Send(ctx context.Context, channelID string, doc Document) (Document, error)
	SendDM(ctx context.Context, userID string, doc Document) (Document, error)
	Edit(ctx context.Context, doc Document) error
	Delete(ctx context.Context, channelID, id string) error

	// ScheduleDelete registers a fire-and-forget deletion timer with the
	// platform. It is independent of the resource queue.
	ScheduleDelete(channelID, id string, delay time.Duration)

	// Purge bulk-deletes up to limit recent messages in a channel, skipping
	// any for which keep reports true. Returns the number deleted.
	Purge(ctx context.Context, channelID string, limit int, keep func(Document) bool) (int, error)

	CreateThread(ctx context.Context, channelID, id, name string) (threadID string, err error)
	ArchiveThread(ctx context.Context, threadID string) error

	// Notify and Warn post short-lived notices to a channel or thread.
	Notify(ctx context.Context, channelID, text string) error
	Warn(ctx context.Context, channelID, text string) error

	// Ephemeral responds to the interaction carried by ev with a document
	// visible only to the acting user.
	Ephemeral(ctx context.Context, ev Event, doc Document) error

	Member(ctx context.Context, guildID, userID string) (Actor, error)
	GuildRoles(ctx context.Context, guildID string) ([]string, error)

	// AddRole and RemoveRole change a member's role set.
	AddRole(ctx context.Context, guildID, userID, role string) error
	RemoveRole(ctx context.Context, guildID, userID, role string) error
}
