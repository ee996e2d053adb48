// Package storage defines the durable records backing screens and the store
// interfaces handlers depend on. Records outlive the documents they shadow;
// the message record is the source of truth for authorship checks.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound reports that a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// InfoDeletionTime is the info row name carrying a document's scheduled
// deletion timestamp, stored as RFC3339.
const InfoDeletionTime = "deletion_time"

// InfoRow is one keyed piece of auxiliary information attached to a message
// record: a vote, a chosen game token, a deletion timestamp.
type InfoRow struct {
	Name   string
	Value  string
	UserID string
}

// MessageRecord is the durable shadow of a document: ownership plus keyed
// info rows. Deleting the record cascades to its info rows.
type MessageRecord struct {
	ID        string
	ChannelID string
	AuthorID  string
	Type      string
	Info      []InfoRow
}

// Counter is one per-guild, per-user named counter, such as a game's win
// tally.
type Counter struct {
	GuildID string
	UserID  string
	Name    string
	Value   int64
}

// MessageStore persists message records and their info rows.
type MessageStore interface {
	// GetMessage loads a record; withInfo also loads its info rows.
	// Returns ErrNotFound when no record exists.
	GetMessage(ctx context.Context, id string, withInfo bool) (MessageRecord, error)
	AddMessage(ctx context.Context, rec MessageRecord) error
	UpdateMessageAuthor(ctx context.Context, id, authorID string) error
	DeleteMessage(ctx context.Context, id string) error

	// GetMessageInfo lists a record's info rows, optionally filtered by name
	// and user id (empty filters match everything).
	GetMessageInfo(ctx context.Context, id, name, userID string) ([]InfoRow, error)
	AddMessageInfo(ctx context.Context, id string, row InfoRow) error
	DeleteMessageInfo(ctx context.Context, id, name, userID string) error

	// ListMessagesByInfo returns every record carrying an info row with the
	// given name, with only that row populated.
	ListMessagesByInfo(ctx context.Context, name string) ([]MessageRecord, error)
}

// ConfigStore persists per-guild named options, each a list of strings.
type ConfigStore interface {
	// GetOption returns the configured values, or an empty slice when the
	// option is unset.
	GetOption(ctx context.Context, guildID, name string) ([]string, error)
	SetOption(ctx context.Context, guildID, name string, values []string) error
	DeleteOption(ctx context.Context, guildID, name string) error
}

// CounterStore persists per-guild per-user named counters.
type CounterStore interface {
	// GetCounter returns the current value, or ErrNotFound when unset.
	GetCounter(ctx context.Context, guildID, userID, name string) (int64, error)
	// IncrementCounter adds delta to the counter, creating it at delta when
	// unset, and returns the new value.
	IncrementCounter(ctx context.Context, guildID, userID, name string, delta int64) (int64, error)
	// ListCounters returns every counter with the given name in a guild.
	ListCounters(ctx context.Context, guildID, name string) ([]Counter, error)
}

// Store aggregates the collaborator interfaces the dispatcher needs.
type Store interface {
	MessageStore
	ConfigStore
	CounterStore
}
