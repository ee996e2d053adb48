// Package sqlite provides the SQLite-backed storage collaborator.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lpoto/discord-utility-bot/internal/platform/storage/sqlitemigrate"
	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists message records, guild options, and user counters.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the store at path and applies migrations. Use ":memory:" for an
// in-memory database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetMessage loads a message record by id.
func (s *Store) GetMessage(ctx context.Context, id string, withInfo bool) (storage.MessageRecord, error) {
	var rec storage.MessageRecord
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT id, channel_id, author_id, type FROM message WHERE id = ?
`, id).Scan(&rec.ID, &rec.ChannelID, &rec.AuthorID, &rec.Type)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.MessageRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.MessageRecord{}, fmt.Errorf("get message: %w", err)
	}
	if withInfo {
		info, err := s.GetMessageInfo(ctx, id, "", "")
		if err != nil {
			return storage.MessageRecord{}, err
		}
		rec.Info = info
	}
	return rec, nil
}

// AddMessage inserts a message record together with its info rows.
func (s *Store) AddMessage(ctx context.Context, rec storage.MessageRecord) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO message (id, channel_id, author_id, type) VALUES (?, ?, ?, ?)
`, rec.ID, rec.ChannelID, rec.AuthorID, rec.Type); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("add message: %w", err)
	}
	for _, row := range rec.Info {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO message_info (message_id, name, info, user_id) VALUES (?, ?, ?, ?)
`, rec.ID, row.Name, row.Value, row.UserID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("add message info: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add message: %w", err)
	}
	return nil
}

// UpdateMessageAuthor changes a record's author id. Returns ErrNotFound when
// no record matches.
func (s *Store) UpdateMessageAuthor(ctx context.Context, id, authorID string) error {
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE message SET author_id = ? WHERE id = ?
`, authorID, id)
	if err != nil {
		return fmt.Errorf("update message author: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteMessage removes a record; info rows cascade.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM message WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// GetMessageInfo lists info rows, optionally filtered by name and user id.
func (s *Store) GetMessageInfo(ctx context.Context, id, name, userID string) ([]storage.InfoRow, error) {
	query := `SELECT name, info, user_id FROM message_info WHERE message_id = ?`
	args := []any{id}
	if name != "" {
		query += ` AND name = ?`
		args = append(args, name)
	}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id`
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get message info: %w", err)
	}
	defer rows.Close()

	var out []storage.InfoRow
	for rows.Next() {
		var row storage.InfoRow
		if err := rows.Scan(&row.Name, &row.Value, &row.UserID); err != nil {
			return nil, fmt.Errorf("scan message info: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message info: %w", err)
	}
	return out, nil
}

// AddMessageInfo inserts one info row for a message.
func (s *Store) AddMessageInfo(ctx context.Context, id string, row storage.InfoRow) error {
	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO message_info (message_id, name, info, user_id) VALUES (?, ?, ?, ?)
`, id, row.Name, row.Value, row.UserID); err != nil {
		return fmt.Errorf("add message info: %w", err)
	}
	return nil
}

// DeleteMessageInfo removes info rows matching name and user id.
func (s *Store) DeleteMessageInfo(ctx context.Context, id, name, userID string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM message_info WHERE message_id = ? AND name = ? AND user_id = ?
`, id, name, userID); err != nil {
		return fmt.Errorf("delete message info: %w", err)
	}
	return nil
}

// ListMessagesByInfo returns records carrying an info row with name, with
// only the matching row populated.
func (s *Store) ListMessagesByInfo(ctx context.Context, name string) ([]storage.MessageRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT m.id, m.channel_id, m.author_id, m.type, i.name, i.info, i.user_id
FROM message m JOIN message_info i ON m.id = i.message_id
WHERE i.name = ?
ORDER BY i.id
`, name)
	if err != nil {
		return nil, fmt.Errorf("list messages by info: %w", err)
	}
	defer rows.Close()

	var out []storage.MessageRecord
	for rows.Next() {
		var rec storage.MessageRecord
		var row storage.InfoRow
		if err := rows.Scan(&rec.ID, &rec.ChannelID, &rec.AuthorID, &rec.Type, &row.Name, &row.Value, &row.UserID); err != nil {
			return nil, fmt.Errorf("scan message by info: %w", err)
		}
		rec.Info = []storage.InfoRow{row}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages by info: %w", err)
	}
	return out, nil
}

// GetOption returns a guild option's values; unset options return an empty
// slice.
func (s *Store) GetOption(ctx context.Context, guildID, name string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT info FROM option_info WHERE guild_id = ? AND name = ? ORDER BY id
`, guildID, name)
	if err != nil {
		return nil, fmt.Errorf("get option: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate option: %w", err)
	}
	return values, nil
}

// SetOption replaces a guild option's values.
func (s *Store) SetOption(ctx context.Context, guildID, name string, values []string) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set option: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
DELETE FROM option WHERE guild_id = ? AND name = ?
`, guildID, name); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear option: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO option (name, guild_id) VALUES (?, ?)
`, name, guildID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("set option: %w", err)
	}
	for _, value := range values {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO option_info (name, guild_id, info) VALUES (?, ?, ?)
`, name, guildID, value); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("set option value: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set option: %w", err)
	}
	return nil
}

// DeleteOption removes a guild option; its values cascade.
func (s *Store) DeleteOption(ctx context.Context, guildID, name string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `
DELETE FROM option WHERE guild_id = ? AND name = ?
`, guildID, name); err != nil {
		return fmt.Errorf("delete option: %w", err)
	}
	return nil
}

// GetCounter returns a counter value or ErrNotFound.
func (s *Store) GetCounter(ctx context.Context, guildID, userID, name string) (int64, error) {
	var value int64
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT value FROM user_counter WHERE guild_id = ? AND user_id = ? AND name = ?
`, guildID, userID, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get counter: %w", err)
	}
	return value, nil
}

// IncrementCounter adds delta to a counter, creating it when unset, and
// returns the new value.
func (s *Store) IncrementCounter(ctx context.Context, guildID, userID, name string, delta int64) (int64, error) {
	var value int64
	err := s.sqlDB.QueryRowContext(ctx, `
INSERT INTO user_counter (guild_id, user_id, name, value) VALUES (?, ?, ?, ?)
ON CONFLICT (guild_id, user_id, name) DO UPDATE SET value = value + excluded.value
RETURNING value
`, guildID, userID, name, delta).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return value, nil
}

// ListCounters returns every counter with name in a guild.
func (s *Store) ListCounters(ctx context.Context, guildID, name string) ([]storage.Counter, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT guild_id, user_id, name, value FROM user_counter
WHERE guild_id = ? AND name = ?
ORDER BY value DESC
`, guildID, name)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	defer rows.Close()

	var out []storage.Counter
	for rows.Next() {
		var c storage.Counter
		if err := rows.Scan(&c.GuildID, &c.UserID, &c.Name, &c.Value); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counters: %w", err)
	}
	return out, nil
}

var _ storage.Store = (*Store)(nil)
