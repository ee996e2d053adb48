package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lpoto/discord-utility-bot/internal/storage"
)

// Store is an in-memory storage.Store. Err, when set, is returned by every
// operation to exercise fail-open paths.
type Store struct {
	mu sync.Mutex

	Err error

	messages map[string]storage.MessageRecord
	options  map[string][]string
	counters map[string]int64
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		messages: map[string]storage.MessageRecord{},
		options:  map[string][]string{},
		counters: map[string]int64{},
	}
}

func optionKey(guildID, name string) string { return guildID + "\x00" + name }
func counterKey(g, u, n string) string      { return g + "\x00" + u + "\x00" + n }

// GetMessage implements storage.MessageStore.
func (s *Store) GetMessage(_ context.Context, id string, withInfo bool) (storage.MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return storage.MessageRecord{}, s.Err
	}
	rec, ok := s.messages[id]
	if !ok {
		return storage.MessageRecord{}, storage.ErrNotFound
	}
	if !withInfo {
		rec.Info = nil
	}
	return rec, nil
}

// AddMessage implements storage.MessageStore.
func (s *Store) AddMessage(_ context.Context, rec storage.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.messages[rec.ID] = rec
	return nil
}

// UpdateMessageAuthor implements storage.MessageStore.
func (s *Store) UpdateMessageAuthor(_ context.Context, id, authorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	rec, ok := s.messages[id]
	if !ok {
		return storage.ErrNotFound
	}
	rec.AuthorID = authorID
	s.messages[id] = rec
	return nil
}

// DeleteMessage implements storage.MessageStore.
func (s *Store) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.messages, id)
	return nil
}

// GetMessageInfo implements storage.MessageStore.
func (s *Store) GetMessageInfo(_ context.Context, id, name, userID string) ([]storage.InfoRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	rec, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	var out []storage.InfoRow
	for _, row := range rec.Info {
		if name != "" && row.Name != name {
			continue
		}
		if userID != "" && row.UserID != userID {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// AddMessageInfo implements storage.MessageStore.
func (s *Store) AddMessageInfo(_ context.Context, id string, row storage.InfoRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	rec, ok := s.messages[id]
	if !ok {
		return storage.ErrNotFound
	}
	rec.Info = append(rec.Info, row)
	s.messages[id] = rec
	return nil
}

// DeleteMessageInfo implements storage.MessageStore.
func (s *Store) DeleteMessageInfo(_ context.Context, id, name, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	rec, ok := s.messages[id]
	if !ok {
		return nil
	}
	kept := rec.Info[:0]
	for _, row := range rec.Info {
		if row.Name == name && row.UserID == userID {
			continue
		}
		kept = append(kept, row)
	}
	rec.Info = kept
	s.messages[id] = rec
	return nil
}

// ListMessagesByInfo implements storage.MessageStore.
func (s *Store) ListMessagesByInfo(_ context.Context, name string) ([]storage.MessageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []storage.MessageRecord
	for _, rec := range s.messages {
		for _, row := range rec.Info {
			if row.Name != name {
				continue
			}
			match := rec
			match.Info = []storage.InfoRow{row}
			out = append(out, match)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetOption implements storage.ConfigStore.
func (s *Store) GetOption(_ context.Context, guildID, name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.options[optionKey(guildID, name)], nil
}

// SetOption implements storage.ConfigStore.
func (s *Store) SetOption(_ context.Context, guildID, name string, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.options[optionKey(guildID, name)] = append([]string(nil), values...)
	return nil
}

// DeleteOption implements storage.ConfigStore.
func (s *Store) DeleteOption(_ context.Context, guildID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	delete(s.options, optionKey(guildID, name))
	return nil
}

// GetCounter implements storage.CounterStore.
func (s *Store) GetCounter(_ context.Context, guildID, userID, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	value, ok := s.counters[counterKey(guildID, userID, name)]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return value, nil
}

// IncrementCounter implements storage.CounterStore.
func (s *Store) IncrementCounter(_ context.Context, guildID, userID, name string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	key := counterKey(guildID, userID, name)
	s.counters[key] += delta
	return s.counters[key], nil
}

// ListCounters implements storage.CounterStore.
func (s *Store) ListCounters(_ context.Context, guildID, name string) ([]storage.Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []storage.Counter
	for key, value := range s.counters {
		g, rest, _ := strings.Cut(key, "\x00")
		u, n, _ := strings.Cut(rest, "\x00")
		if g != guildID || n != name {
			continue
		}
		out = append(out, storage.Counter{GuildID: g, UserID: u, Name: n, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

var _ storage.Store = (*Store)(nil)
