package hangman

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/lpoto/discord-utility-bot/internal/capability"
	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

const (
	// ScreenType owns the game's handlers; the DM word prompt carries the
	// "Hangman_setup" variant and ended games "Hangman_ended".
	ScreenType  = "Hangman"
	setupScreen = ScreenType + "_setup"
	endedScreen = ScreenType + "_ended"

	// WinCounter is the per-guild leaderboard counter name.
	WinCounter = ScreenType + "_wins"

	infoWord = "word"
	infoGame = "game"
	// guessPrefix keys one info row per distinct guess, so replays of the
	// same letter collapse instead of violating the row uniqueness.
	guessPrefix = "guess_"

	minWordLen = 3
	maxWordLen = 24
)

// Command wires hangman into documents.
type Command struct {
	gw      transport.Gateway
	store   storage.Store
	version string
}

// New builds the hangman command.
func New(gw transport.Gateway, store storage.Store, version string) *Command {
	return &Command{gw: gw, store: store, version: version}
}

// Name implements registry.Command.
func (c *Command) Name() string { return ScreenType }

// Description implements registry.Command.
func (c *Command) Description() string { return "Guess the word before the gallows are done" }

// Bindings implements registry.Command.
func (c *Command) Bindings() []registry.Binding {
	return []registry.Binding{
		{Tag: capability.Reply, Handler: c.handleWordReply},
		{Tag: capability.Thread, Handler: c.handleGuess},
	}
}

// SerializedTags funnels word submission and guesses through the queue, so
// concurrent thread messages merge into one edit sequence.
func (c *Command) SerializedTags() []capability.Tag {
	return []capability.Tag{capability.Reply, capability.Thread}
}

// Color implements the optional color interface.
func (c *Command) Color() int { return screen.ColorOrange }

// Start posts the game document and asks the starting user for a word over
// DM.
func (c *Command) Start(ctx context.Context, inv *registry.Invocation) error {
	doc := transport.Document{
		Title:       "Hangman",
		Description: fmt.Sprintf("Waiting for a word. Check your DMs, %s.", inv.Actor.DisplayName),
		Footer:      screen.Encode(ScreenType, c.version, ""),
		Color:       c.Color(),
		Controls:    []transport.Control{transport.DeleteButton()},
	}
	sent, err := c.gw.Send(ctx, inv.Doc.ChannelID, doc)
	if err != nil {
		return fmt.Errorf("send game: %w", err)
	}
	rec := storage.MessageRecord{
		ID:        sent.ID,
		ChannelID: sent.ChannelID,
		AuthorID:  inv.Actor.ID,
		Type:      ScreenType,
	}
	if err := c.store.AddMessage(ctx, rec); err != nil {
		return fmt.Errorf("record game: %w", err)
	}

	prompt := transport.Document{
		Title:       "Hangman",
		Description: "Reply to this message with the word to guess.",
		Footer:      screen.Encode(setupScreen, c.version, ""),
		Color:       c.Color(),
	}
	dm, err := c.gw.SendDM(ctx, inv.Actor.ID, prompt)
	if err != nil {
		return fmt.Errorf("send word prompt: %w", err)
	}
	dmRec := storage.MessageRecord{
		ID:        dm.ID,
		ChannelID: dm.ChannelID,
		AuthorID:  inv.Actor.ID,
		Type:      setupScreen,
		Info:      []storage.InfoRow{{Name: infoGame, Value: sent.ID}},
	}
	if err := c.store.AddMessage(ctx, dmRec); err != nil {
		return fmt.Errorf("record word prompt: %w", err)
	}
	return nil
}

// handleWordReply accepts the word the starter sends back over DM.
func (c *Command) handleWordReply(ctx context.Context, inv *registry.Invocation) error {
	if screenType, _ := screen.Decode(inv.Doc.Footer); screenType != setupScreen {
		return nil
	}
	rec, err := c.store.GetMessage(ctx, inv.Doc.ID, true)
	if err != nil {
		return fmt.Errorf("load word prompt: %w", err)
	}
	if rec.AuthorID != inv.Actor.ID {
		return nil
	}
	gameID := infoValue(rec.Info, infoGame)
	if gameID == "" {
		return nil
	}

	word := strings.ToLower(strings.TrimSpace(inv.Event.Content))
	if !validWord(word) {
		return c.gw.Warn(ctx, inv.Doc.ChannelID,
			fmt.Sprintf("The word must be %d-%d letters, no spaces.", minWordLen, maxWordLen))
	}

	game, err := c.store.GetMessage(ctx, gameID, false)
	if err != nil {
		return fmt.Errorf("load game record: %w", err)
	}
	row := storage.InfoRow{Name: infoWord, Value: word, UserID: inv.Actor.ID}
	if err := c.store.AddMessageInfo(ctx, gameID, row); err != nil {
		return fmt.Errorf("record word: %w", err)
	}

	doc, err := c.gw.Document(ctx, game.ChannelID, gameID)
	if err != nil {
		return fmt.Errorf("fetch game: %w", err)
	}
	if _, err := c.gw.CreateThread(ctx, game.ChannelID, gameID, "hangman guesses"); err != nil {
		return fmt.Errorf("create guess thread: %w", err)
	}
	if err := c.renderRunning(ctx, doc, State{Word: word}); err != nil {
		return err
	}

	done := inv.Doc
	done.Description = "Word accepted. The game is on."
	return c.gw.Edit(ctx, done)
}

// handleGuess merges one thread message into the game.
func (c *Command) handleGuess(ctx context.Context, inv *registry.Invocation) error {
	state, err := c.state(ctx, inv.Doc.ID)
	if err != nil {
		return err
	}
	if state.Word == "" || state.Won() || state.Lost() {
		return nil
	}

	guess := strings.ToLower(strings.TrimSpace(inv.Event.Content))
	if guess == "" || !lettersOnly(guess) {
		return nil
	}
	if state.Guessed(guess) {
		return c.gw.Notify(ctx, inv.Event.ThreadID, fmt.Sprintf("%q was already tried.", guess))
	}

	row := storage.InfoRow{Name: guessPrefix + guess, Value: guess, UserID: inv.Actor.ID}
	if err := c.store.AddMessageInfo(ctx, inv.Doc.ID, row); err != nil {
		return fmt.Errorf("record guess: %w", err)
	}
	state.Guesses = append(state.Guesses, guess)

	switch {
	case state.Won():
		if inv.Doc.GuildID != "" {
			if _, err := c.store.IncrementCounter(ctx, inv.Doc.GuildID, inv.Actor.ID, WinCounter, 1); err != nil {
				log.Printf("hangman: counter user=%s err=%v", inv.Actor.ID, err)
			}
		}
		return c.finish(ctx, inv, state, fmt.Sprintf("**%s** — solved by %s!", spaced(state.Word), inv.Actor.DisplayName))
	case state.Lost():
		return c.finish(ctx, inv, state, fmt.Sprintf("Out of guesses. The word was **%s**.", spaced(state.Word)))
	}
	return c.renderRunning(ctx, inv.Doc, state)
}

func (c *Command) finish(ctx context.Context, inv *registry.Invocation, state State, outcome string) error {
	doc := inv.Doc
	doc.Description = outcome + "\n\n" + wrongLine(state)
	doc.Footer = screen.Encode(endedScreen, c.version, "")
	doc.Controls = []transport.Control{transport.DeleteButton()}
	if err := c.gw.Edit(ctx, doc); err != nil {
		return err
	}
	if inv.Event.ThreadID != "" {
		if err := c.gw.ArchiveThread(ctx, inv.Event.ThreadID); err != nil {
			log.Printf("hangman: archive thread=%s err=%v", inv.Event.ThreadID, err)
		}
	}
	return nil
}

func (c *Command) renderRunning(ctx context.Context, doc transport.Document, state State) error {
	doc.Description = fmt.Sprintf("%s\n\n%s\nGuess in this message's thread.", state.Masked(), wrongLine(state))
	doc.Footer = screen.Encode(ScreenType, c.version, "")
	doc.Controls = []transport.Control{transport.DeleteButton()}
	return c.gw.Edit(ctx, doc)
}

// state rebuilds the game from the record's info rows.
func (c *Command) state(ctx context.Context, id string) (State, error) {
	rows, err := c.store.GetMessageInfo(ctx, id, "", "")
	if err != nil {
		return State{}, fmt.Errorf("load game state: %w", err)
	}
	var state State
	for _, row := range rows {
		switch {
		case row.Name == infoWord:
			state.Word = row.Value
		case strings.HasPrefix(row.Name, guessPrefix):
			state.Guesses = append(state.Guesses, row.Value)
		}
	}
	return state, nil
}

func wrongLine(state State) string {
	wrong := state.Wrong()
	if len(wrong) == 0 {
		return fmt.Sprintf("Wrong guesses: none (0/%d)", MaxWrong)
	}
	return fmt.Sprintf("Wrong guesses: %s (%d/%d)", strings.Join(wrong, ", "), len(wrong), MaxWrong)
}

func validWord(word string) bool {
	n := len([]rune(word))
	return n >= minWordLen && n <= maxWordLen && lettersOnly(word)
}

func lettersOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func infoValue(rows []storage.InfoRow, name string) string {
	for _, row := range rows {
		if row.Name == name {
			return row.Value
		}
	}
	return ""
}

var _ registry.Command = (*Command)(nil)
