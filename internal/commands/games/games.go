// Package games implements the games hub screen: one dropdown to start a
// game, one to browse a game's guild leaderboard.
package games

import (
	"context"
	"fmt"
	"log"

	"github.com/lpoto/discord-utility-bot/internal/capability"
	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

const (
	// ScreenType owns the hub's handlers; leaderboards carry the
	// "Games_leaderboard" variant.
	ScreenType  = "Games"
	boardScreen = ScreenType + "_leaderboard"

	gameMenuID  = "game_select"
	boardMenuID = "leaderboard_select"

	leaderboardSize = 10
)

// Starter opens a game's lobby.
type Starter interface {
	Start(ctx context.Context, inv *registry.Invocation) error
}

// Entry is one playable game offered by the hub.
type Entry struct {
	Name        string
	Description string
	Starter     Starter
}

// Command renders the hub and its leaderboards.
type Command struct {
	gw      transport.Gateway
	store   storage.Store
	version string
	entries []Entry
}

// New builds the games hub over the given entries.
func New(gw transport.Gateway, store storage.Store, version string, entries []Entry) *Command {
	return &Command{gw: gw, store: store, version: version, entries: entries}
}

// Name implements registry.Command.
func (c *Command) Name() string { return ScreenType }

// Description implements registry.Command.
func (c *Command) Description() string { return "Play games and browse leaderboards" }

// Bindings implements registry.Command.
func (c *Command) Bindings() []registry.Binding {
	return []registry.Binding{
		{Tag: capability.MenuSelect, Handler: c.handleSelect},
	}
}

// HelpLines implements the optional help interface.
func (c *Command) HelpLines() []string {
	lines := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Name, e.Description))
	}
	return lines
}

// Color implements the optional color interface.
func (c *Command) Color() int { return screen.ColorGreen }

func (c *Command) handleSelect(ctx context.Context, inv *registry.Invocation) error {
	switch inv.Event.ControlID {
	case gameMenuID:
		for _, value := range inv.Values {
			if entry, ok := c.entry(value); ok {
				if err := entry.Starter.Start(ctx, inv); err != nil {
					return fmt.Errorf("start %s: %w", value, err)
				}
			}
		}
		return nil
	case boardMenuID:
		if len(inv.Values) == 0 {
			return c.render(ctx, inv.Doc)
		}
		return c.renderLeaderboard(ctx, inv.Doc, inv.Values[0])
	}
	// Main menu selection or the back control: show the hub.
	return c.render(ctx, inv.Doc)
}

// render rewrites the document into the hub screen.
func (c *Command) render(ctx context.Context, doc transport.Document) error {
	options := make([]transport.Option, 0, len(c.entries))
	for _, e := range c.entries {
		options = append(options, transport.Option{Label: e.Name, Description: e.Description})
	}
	doc.Title = "Games"
	doc.Description = "Pick a game to play, or a leaderboard to browse."
	doc.Content = ""
	doc.Footer = screen.Encode(ScreenType, c.version, "")
	doc.Color = c.Color()
	doc.Controls = []transport.Control{
		{
			Kind:        transport.KindMenu,
			ID:          gameMenuID,
			Placeholder: "Play a game",
			Options:     options,
			MaxValues:   1,
			Row:         0,
		},
		{
			Kind:        transport.KindMenu,
			ID:          boardMenuID,
			Placeholder: "View a leaderboard",
			Options:     options,
			MaxValues:   1,
			Row:         1,
		},
		transport.HelpButton(),
		transport.HomeButton(),
		transport.DeleteButton(),
	}
	return c.gw.Edit(ctx, doc)
}

// renderLeaderboard rewrites the document into a game's top-ten win list.
func (c *Command) renderLeaderboard(ctx context.Context, doc transport.Document, game string) error {
	counters, err := c.store.ListCounters(ctx, doc.GuildID, game+"_wins")
	if err != nil {
		return fmt.Errorf("list %s wins: %w", game, err)
	}
	if len(counters) > leaderboardSize {
		counters = counters[:leaderboardSize]
	}

	body := "Nobody has won yet."
	if len(counters) > 0 {
		body = ""
		for i, counter := range counters {
			name := counter.UserID
			if member, err := c.gw.Member(ctx, doc.GuildID, counter.UserID); err == nil && member.DisplayName != "" {
				name = member.DisplayName
			} else if err != nil {
				log.Printf("games: member=%s err=%v", counter.UserID, err)
			}
			body += fmt.Sprintf("%d. %s — %d\n", i+1, name, counter.Value)
		}
	}

	doc.Title = game + " leaderboard"
	doc.Description = body
	doc.Content = ""
	doc.Footer = screen.Encode(boardScreen, c.version, "")
	doc.Color = c.Color()
	doc.Controls = []transport.Control{
		transport.BackButton(),
		transport.DeleteButton(),
	}
	return c.gw.Edit(ctx, doc)
}

func (c *Command) entry(name string) (Entry, bool) {
	for _, e := range c.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

var _ registry.Command = (*Command)(nil)
