// Package rps implements rock-paper-scissors between two players, with the
// simultaneous choices hidden until both are in.
package rps

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/lpoto/discord-utility-bot/internal/capability"
	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

const (
	// ScreenType owns the game's handlers.
	ScreenType  = "RockPaperScissors"
	endedScreen = ScreenType + "_ended"

	// WinCounter is the per-guild leaderboard counter name.
	WinCounter = ScreenType + "_wins"

	infoPlayer = "player"
	infoChoice = "choice"
	joinID     = "join"

	maxPlayers = 2
)

// beats maps each choice to the choice it defeats.
var beats = map[string]string{
	"rock":     "scissors",
	"paper":    "rock",
	"scissors": "paper",
}

// Command wires rock-paper-scissors into documents.
type Command struct {
	gw      transport.Gateway
	store   storage.Store
	version string
}

// New builds the command.
func New(gw transport.Gateway, store storage.Store, version string) *Command {
	return &Command{gw: gw, store: store, version: version}
}

// Name implements registry.Command.
func (c *Command) Name() string { return ScreenType }

// Description implements registry.Command.
func (c *Command) Description() string { return "Rock beats scissors, scissors beat paper" }

// Bindings implements registry.Command.
func (c *Command) Bindings() []registry.Binding {
	return []registry.Binding{
		{Tag: capability.ButtonClick, Handler: c.handleButton},
	}
}

// SerializedTags funnels concurrent clicks on one game through the queue.
func (c *Command) SerializedTags() []capability.Tag {
	return []capability.Tag{capability.ButtonClick}
}

// Color implements the optional color interface.
func (c *Command) Color() int { return screen.ColorPurple }

// Start posts a fresh lobby.
func (c *Command) Start(ctx context.Context, inv *registry.Invocation) error {
	doc := transport.Document{
		Title:       "Rock Paper Scissors",
		Description: "Waiting for players.\n\nPlayers:\n*none yet*",
		Footer:      screen.Encode(ScreenType, c.version, ""),
		Color:       c.Color(),
		Controls: []transport.Control{
			{Kind: transport.KindButton, ID: joinID, Label: "join", Style: transport.StyleGreen, Row: -1},
			transport.DeleteButton(),
		},
	}
	sent, err := c.gw.Send(ctx, inv.Doc.ChannelID, doc)
	if err != nil {
		return fmt.Errorf("send lobby: %w", err)
	}
	rec := storage.MessageRecord{
		ID:        sent.ID,
		ChannelID: sent.ChannelID,
		AuthorID:  inv.Actor.ID,
		Type:      ScreenType,
	}
	if err := c.store.AddMessage(ctx, rec); err != nil {
		return fmt.Errorf("record lobby: %w", err)
	}
	return nil
}

func (c *Command) handleButton(ctx context.Context, inv *registry.Invocation) error {
	if inv.Control.ID == joinID {
		return c.join(ctx, inv)
	}
	if _, ok := beats[inv.Control.ID]; ok {
		return c.choose(ctx, inv, inv.Control.ID)
	}
	return nil
}

func (c *Command) join(ctx context.Context, inv *registry.Invocation) error {
	players, err := c.store.GetMessageInfo(ctx, inv.Doc.ID, infoPlayer, "")
	if err != nil {
		return fmt.Errorf("load players: %w", err)
	}
	if len(players) >= maxPlayers {
		return nil
	}
	for _, p := range players {
		if p.UserID == inv.Actor.ID {
			return nil
		}
	}
	row := storage.InfoRow{Name: infoPlayer, Value: inv.Actor.DisplayName, UserID: inv.Actor.ID}
	if err := c.store.AddMessageInfo(ctx, inv.Doc.ID, row); err != nil {
		return fmt.Errorf("record player: %w", err)
	}
	players = append(players, row)

	doc := inv.Doc
	if len(players) < maxPlayers {
		doc.Description = "Waiting for players.\n\nPlayers:\n" + names(players)
		return c.gw.Edit(ctx, doc)
	}
	return c.renderChoosing(ctx, doc, players, "Make your choice.")
}

func (c *Command) choose(ctx context.Context, inv *registry.Invocation, choice string) error {
	players, err := c.store.GetMessageInfo(ctx, inv.Doc.ID, infoPlayer, "")
	if err != nil {
		return fmt.Errorf("load players: %w", err)
	}
	if len(players) < maxPlayers || !isPlayer(players, inv.Actor.ID) {
		return nil
	}
	// Replace any previous pick so players can change their mind until both
	// are in.
	if err := c.store.DeleteMessageInfo(ctx, inv.Doc.ID, infoChoice, inv.Actor.ID); err != nil {
		return fmt.Errorf("clear choice: %w", err)
	}
	row := storage.InfoRow{Name: infoChoice, Value: choice, UserID: inv.Actor.ID}
	if err := c.store.AddMessageInfo(ctx, inv.Doc.ID, row); err != nil {
		return fmt.Errorf("record choice: %w", err)
	}

	choices, err := c.store.GetMessageInfo(ctx, inv.Doc.ID, infoChoice, "")
	if err != nil {
		return fmt.Errorf("load choices: %w", err)
	}
	if len(choices) < maxPlayers {
		return c.renderChoosing(ctx, inv.Doc, players, "Waiting for the other player.")
	}
	return c.resolve(ctx, inv.Doc, players, choices)
}

func (c *Command) resolve(ctx context.Context, doc transport.Document, players, choices []storage.InfoRow) error {
	byUser := map[string]string{}
	for _, row := range choices {
		byUser[row.UserID] = row.Value
	}
	first, second := players[0], players[1]
	a, b := byUser[first.UserID], byUser[second.UserID]

	if a == b {
		for _, p := range players {
			if err := c.store.DeleteMessageInfo(ctx, doc.ID, infoChoice, p.UserID); err != nil {
				return fmt.Errorf("reset choices: %w", err)
			}
		}
		return c.renderChoosing(ctx, doc, players, fmt.Sprintf("Both picked %s. Go again.", a))
	}

	winner := first
	if beats[b] == a {
		winner = second
	}
	if doc.GuildID != "" {
		if _, err := c.store.IncrementCounter(ctx, doc.GuildID, winner.UserID, WinCounter, 1); err != nil {
			log.Printf("rps: counter user=%s err=%v", winner.UserID, err)
		}
	}
	doc.Description = fmt.Sprintf("%s picked %s, %s picked %s.\n\n**%s wins!**",
		first.Value, a, second.Value, b, winner.Value)
	doc.Footer = screen.Encode(endedScreen, c.version, "")
	doc.Controls = []transport.Control{transport.DeleteButton()}
	return c.gw.Edit(ctx, doc)
}

func (c *Command) renderChoosing(ctx context.Context, doc transport.Document, players []storage.InfoRow, note string) error {
	doc.Description = fmt.Sprintf("Players:\n%s\n\n%s", names(players), note)
	doc.Footer = screen.Encode(ScreenType, c.version, "")
	doc.Controls = []transport.Control{
		{Kind: transport.KindButton, ID: "rock", Label: "rock", Emoji: "🪨", Row: 0},
		{Kind: transport.KindButton, ID: "paper", Label: "paper", Emoji: "📄", Row: 0},
		{Kind: transport.KindButton, ID: "scissors", Label: "scissors", Emoji: "✂️", Row: 0},
		transport.DeleteButton(),
	}
	return c.gw.Edit(ctx, doc)
}

func isPlayer(players []storage.InfoRow, id string) bool {
	for _, p := range players {
		if p.UserID == id {
			return true
		}
	}
	return false
}

func names(players []storage.InfoRow) string {
	if len(players) == 0 {
		return "*none yet*"
	}
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, "• "+p.Value)
	}
	return strings.Join(out, "\n")
}

var _ registry.Command = (*Command)(nil)
