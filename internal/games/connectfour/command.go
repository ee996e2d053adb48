package connectfour

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/lpoto/discord-utility-bot/internal/capability"
	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

const (
	// ScreenType owns the game's handlers; ended games carry the
	// "ConnectFour_ended" variant.
	ScreenType  = "ConnectFour"
	endedScreen = ScreenType + "_ended"

	// WinCounter is the per-guild leaderboard counter name.
	WinCounter = ScreenType + "_wins"

	infoPlayer = "player"
	joinID     = "join"
	forfeitID  = "forfeit"

	movesPrefix = "Moves: "
	maxPlayers  = 2

	tokenOne   = "🔴"
	tokenTwo   = "🟡"
	tokenEmpty = "⚫"
)

// Command wires the Connect Four engine into documents.
type Command struct {
	gw      transport.Gateway
	store   storage.Store
	version string
}

// New builds the Connect Four command.
func New(gw transport.Gateway, store storage.Store, version string) *Command {
	return &Command{gw: gw, store: store, version: version}
}

// Name implements registry.Command.
func (c *Command) Name() string { return ScreenType }

// Description implements registry.Command.
func (c *Command) Description() string { return "Connect four tokens before your opponent does" }

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
func (c *Command) Color() int { return screen.ColorRed }

// Start posts a fresh lobby and records the starting user as its author.
func (c *Command) Start(ctx context.Context, inv *registry.Invocation) error {
	doc := transport.Document{
		Title:       "Connect Four",
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
	switch inv.Control.ID {
	case joinID:
		return c.join(ctx, inv)
	case forfeitID:
		return c.forfeit(ctx, inv)
	}
	if col, err := strconv.Atoi(inv.Control.ID); err == nil {
		return c.play(ctx, inv, col)
	}
	return nil
}

func (c *Command) join(ctx context.Context, inv *registry.Invocation) error {
	players, err := c.players(ctx, inv.Doc.ID)
	if err != nil {
		return err
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

	if len(players) < maxPlayers {
		doc := inv.Doc
		doc.Description = "Waiting for players.\n\nPlayers:\n" + playerList(players)
		return c.edit(ctx, doc)
	}
	return c.render(ctx, inv.Doc, players, &Game{})
}

func (c *Command) play(ctx context.Context, inv *registry.Invocation, col int) error {
	players, err := c.players(ctx, inv.Doc.ID)
	if err != nil {
		return err
	}
	if len(players) < maxPlayers {
		return nil
	}
	game, err := parseDoc(inv.Doc)
	if err != nil {
		return err
	}
	turn := players[(game.CurrentPlayer()-1)%len(players)]
	if inv.Actor.ID != turn.UserID {
		return nil
	}
	if err := game.Play(col); err != nil {
		if errors.Is(err, ErrColumnFull) {
			return c.gw.Warn(ctx, inv.Doc.ChannelID, "That column is full.")
		}
		if errors.Is(err, ErrGameOver) {
			return nil
		}
		return err
	}

	if winner, won := game.Winner(); won {
		return c.finish(ctx, inv.Doc, game, players[winner-1], "")
	}
	if game.Draw() {
		return c.finish(ctx, inv.Doc, game, storage.InfoRow{}, "It's a draw.")
	}
	return c.render(ctx, inv.Doc, players, game)
}

func (c *Command) forfeit(ctx context.Context, inv *registry.Invocation) error {
	players, err := c.players(ctx, inv.Doc.ID)
	if err != nil {
		return err
	}
	if len(players) < maxPlayers {
		return nil
	}
	game, err := parseDoc(inv.Doc)
	if err != nil {
		return err
	}
	var winner storage.InfoRow
	switch inv.Actor.ID {
	case players[0].UserID:
		winner = players[1]
	case players[1].UserID:
		winner = players[0]
	default:
		return nil
	}
	reason := fmt.Sprintf("%s forfeited.", inv.Actor.DisplayName)
	return c.finish(ctx, inv.Doc, game, winner, reason)
}

// render redraws a running game in place.
func (c *Command) render(ctx context.Context, doc transport.Document, players []storage.InfoRow, game *Game) error {
	turn := players[(game.CurrentPlayer()-1)%len(players)]
	doc.Description = fmt.Sprintf("%s\n%s %s's turn", drawGrid(game), token(game.CurrentPlayer()), turn.Value)
	doc.Content = movesPrefix + game.String()
	doc.Footer = screen.Encode(ScreenType, c.version, "")

	controls := make([]transport.Control, 0, columns+2)
	for col := 1; col <= columns; col++ {
		controls = append(controls, transport.Control{
			Kind:  transport.KindButton,
			ID:    strconv.Itoa(col),
			Label: strconv.Itoa(col),
			Row:   (col - 1) / 5,
		})
	}
	controls = append(controls,
		transport.Control{Kind: transport.KindButton, ID: forfeitID, Label: "forfeit", Style: transport.StyleRed, Row: 1},
		transport.DeleteButton(),
	)
	doc.Controls = controls
	return c.edit(ctx, doc)
}

// finish renders the ended screen and credits the winner on the guild
// leaderboard.
func (c *Command) finish(ctx context.Context, doc transport.Document, game *Game, winner storage.InfoRow, note string) error {
	outcome := note
	if winner.UserID != "" {
		if outcome != "" {
			outcome += " "
		}
		outcome += fmt.Sprintf("%s wins!", winner.Value)
		if doc.GuildID != "" {
			if _, err := c.store.IncrementCounter(ctx, doc.GuildID, winner.UserID, WinCounter, 1); err != nil {
				log.Printf("connectfour: counter user=%s err=%v", winner.UserID, err)
			}
		}
	}
	doc.Description = fmt.Sprintf("%s\n%s", drawGrid(game), outcome)
	doc.Content = movesPrefix + game.String()
	doc.Footer = screen.Encode(endedScreen, c.version, "")
	doc.Controls = []transport.Control{transport.DeleteButton()}
	return c.edit(ctx, doc)
}

func (c *Command) edit(ctx context.Context, doc transport.Document) error {
	controls, err := transport.Layout(doc.Controls)
	if err != nil {
		return err
	}
	doc.Controls = controls
	return c.gw.Edit(ctx, doc)
}

func (c *Command) players(ctx context.Context, id string) ([]storage.InfoRow, error) {
	rows, err := c.store.GetMessageInfo(ctx, id, infoPlayer, "")
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	return rows, nil
}

// parseDoc re-derives the game from the document's move line.
func parseDoc(doc transport.Document) (*Game, error) {
	moves, _ := strings.CutPrefix(doc.Content, movesPrefix)
	return Parse(moves)
}

func playerList(players []storage.InfoRow) string {
	if len(players) == 0 {
		return "*none yet*"
	}
	var b strings.Builder
	for i, p := range players {
		fmt.Fprintf(&b, "%s %s\n", token(i+1), p.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func token(player int) string {
	switch player {
	case 1:
		return tokenOne
	case 2:
		return tokenTwo
	}
	return tokenEmpty
}

func drawGrid(game *Game) string {
	grid := game.Grid()
	var b strings.Builder
	for r := rows - 1; r >= 0; r-- {
		for col := 0; col < columns; col++ {
			b.WriteString(token(grid[r][col]))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

var _ registry.Command = (*Command)(nil)
