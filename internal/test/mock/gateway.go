// Package mock provides in-memory test doubles for the transport gateway and
// the storage interfaces.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lpoto/discord-utility-bot/internal/transport"
)

// ScheduledDelete records one ScheduleDelete call.
type ScheduledDelete struct {
	ChannelID string
	ID        string
	Delay     time.Duration
}

// PurgeCall records one Purge call.
type PurgeCall struct {
	ChannelID string
	Limit     int
}

// Gateway is an in-memory transport.Gateway. Documents are held by id;
// inbound events are pushed through Emit.
type Gateway struct {
	mu sync.Mutex

	events chan transport.Event
	nextID int

	Docs       map[string]transport.Document
	DMs        map[string][]transport.Document
	Deleted    []string
	Scheduled  []ScheduledDelete
	Purges     []PurgeCall
	Threads    map[string]string
	Archived   []string
	Notices    []string
	Warnings   []string
	Ephemerals []transport.Document

	Members map[string]transport.Actor
	Roles   map[string][]string

	// Gone marks document ids for which lookups and edits return
	// transport.ErrNotFound.
	Gone map[string]bool
}

// NewGateway returns an empty mock gateway with a buffered event stream.
func NewGateway() *Gateway {
	return &Gateway{
		events:  make(chan transport.Event, 64),
		Docs:    map[string]transport.Document{},
		DMs:     map[string][]transport.Document{},
		Threads: map[string]string{},
		Members: map[string]transport.Actor{},
		Roles:   map[string][]string{},
		Gone:    map[string]bool{},
	}
}

// Emit pushes an inbound event.
func (g *Gateway) Emit(ev transport.Event) { g.events <- ev }

// CloseEvents terminates the event stream.
func (g *Gateway) CloseEvents() { close(g.events) }

// Events implements transport.Gateway.
func (g *Gateway) Events() <-chan transport.Event { return g.events }

// Document implements transport.Gateway.
func (g *Gateway) Document(_ context.Context, _, id string) (transport.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Gone[id] {
		return transport.Document{}, transport.ErrNotFound
	}
	doc, ok := g.Docs[id]
	if !ok {
		return transport.Document{}, transport.ErrNotFound
	}
	return doc, nil
}

// Send implements transport.Gateway. It assigns the next message id.
func (g *Gateway) Send(_ context.Context, channelID string, doc transport.Document) (transport.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	doc.ID = fmt.Sprintf("msg-%d", g.nextID)
	doc.ChannelID = channelID
	g.Docs[doc.ID] = doc
	return doc, nil
}

// SendDM implements transport.Gateway.
func (g *Gateway) SendDM(_ context.Context, userID string, doc transport.Document) (transport.Document, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	doc.ID = fmt.Sprintf("dm-%d", g.nextID)
	doc.ChannelID = "dm:" + userID
	g.DMs[userID] = append(g.DMs[userID], doc)
	g.Docs[doc.ID] = doc
	return doc, nil
}

// Edit implements transport.Gateway.
func (g *Gateway) Edit(_ context.Context, doc transport.Document) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Gone[doc.ID] {
		return transport.ErrNotFound
	}
	if _, ok := g.Docs[doc.ID]; !ok {
		return transport.ErrNotFound
	}
	g.Docs[doc.ID] = doc
	return nil
}

// Delete implements transport.Gateway.
func (g *Gateway) Delete(_ context.Context, _, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Gone[id] {
		return transport.ErrNotFound
	}
	if _, ok := g.Docs[id]; !ok {
		return transport.ErrNotFound
	}
	delete(g.Docs, id)
	g.Deleted = append(g.Deleted, id)
	return nil
}

// ScheduleDelete implements transport.Gateway.
func (g *Gateway) ScheduleDelete(channelID, id string, delay time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Scheduled = append(g.Scheduled, ScheduledDelete{ChannelID: channelID, ID: id, Delay: delay})
}

// Purge implements transport.Gateway. It deletes tracked documents in the
// channel, newest first, up to limit.
func (g *Gateway) Purge(_ context.Context, channelID string, limit int, keep func(transport.Document) bool) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Purges = append(g.Purges, PurgeCall{ChannelID: channelID, Limit: limit})
	deleted := 0
	for id, doc := range g.Docs {
		if deleted >= limit {
			break
		}
		if doc.ChannelID != channelID {
			continue
		}
		if keep != nil && keep(doc) {
			continue
		}
		delete(g.Docs, id)
		g.Deleted = append(g.Deleted, id)
		deleted++
	}
	return deleted, nil
}

// CreateThread implements transport.Gateway.
func (g *Gateway) CreateThread(_ context.Context, _, id, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	threadID := "thread-" + id
	g.Threads[id] = threadID
	_ = name
	return threadID, nil
}

// ArchiveThread implements transport.Gateway.
func (g *Gateway) ArchiveThread(_ context.Context, threadID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Archived = append(g.Archived, threadID)
	return nil
}

// Notify implements transport.Gateway.
func (g *Gateway) Notify(_ context.Context, _, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Notices = append(g.Notices, text)
	return nil
}

// Warn implements transport.Gateway.
func (g *Gateway) Warn(_ context.Context, _, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Warnings = append(g.Warnings, text)
	return nil
}

// Ephemeral implements transport.Gateway.
func (g *Gateway) Ephemeral(_ context.Context, _ transport.Event, doc transport.Document) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Ephemerals = append(g.Ephemerals, doc)
	return nil
}

// Member implements transport.Gateway.
func (g *Gateway) Member(_ context.Context, _, userID string) (transport.Actor, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	actor, ok := g.Members[userID]
	if !ok {
		return transport.Actor{ID: userID}, nil
	}
	return actor, nil
}

// GuildRoles implements transport.Gateway.
func (g *Gateway) GuildRoles(_ context.Context, guildID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Roles[guildID], nil
}

// AddRole implements transport.Gateway.
func (g *Gateway) AddRole(_ context.Context, _, userID, role string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	actor := g.Members[userID]
	actor.ID = userID
	actor.Roles = append(actor.Roles, role)
	g.Members[userID] = actor
	return nil
}

// RemoveRole implements transport.Gateway.
func (g *Gateway) RemoveRole(_ context.Context, _, userID, role string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	actor := g.Members[userID]
	actor.ID = userID
	kept := actor.Roles[:0]
	for _, r := range actor.Roles {
		if r != role {
			kept = append(kept, r)
		}
	}
	actor.Roles = kept
	g.Members[userID] = actor
	return nil
}

// Doc returns a stored document by id.
func (g *Gateway) Doc(id string) (transport.Document, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	doc, ok := g.Docs[id]
	return doc, ok
}

// LastNotice returns the most recent Notify text.
func (g *Gateway) LastNotice() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Notices) == 0 {
		return ""
	}
	return g.Notices[len(g.Notices)-1]
}

// NoticesContaining returns notices that contain substr.
func (g *Gateway) NoticesContaining(substr string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []string
	for _, n := range g.Notices {
		if strings.Contains(n, substr) {
			out = append(out, n)
		}
	}
	return out
}

var _ transport.Gateway = (*Gateway)(nil)
