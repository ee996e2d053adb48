// Package poll implements reply-managed polls: the poll author drives the
// screen with reply instructions, everyone else votes through the response
// buttons.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/lpoto/discord-utility-bot/internal/capability"
	"github.com/lpoto/discord-utility-bot/internal/gate"
	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

const (
	// ScreenType owns the poll's handlers.
	ScreenType = "Poll"

	// Content markers. A fixed poll accepts votes but no more edits; an
	// ended poll is frozen entirely.
	markerFixed = "Fixed"
	markerEnded = "Ended"

	maxQuestionLen  = 60
	maxResponseLen  = 25
	maxResponses    = 20
	defaultLifetime = 7 * 24 * time.Hour

	optionPrefix = "option_"
	votePrefix   = "vote_"
)

// Command is the poll screen.
type Command struct {
	gw      transport.Gateway
	store   storage.Store
	version string
}

// New builds the poll command.
func New(gw transport.Gateway, store storage.Store, version string) *Command {
	return &Command{gw: gw, store: store, version: version}
}

// Name implements registry.Command.
func (c *Command) Name() string { return ScreenType }

// Description implements registry.Command.
func (c *Command) Description() string { return "Run a poll managed by replies" }

// Bindings implements registry.Command. Management replies only act for the
// recorded poll author; the author gate screens them out.
func (c *Command) Bindings() []registry.Binding {
	return []registry.Binding{
		{Tag: capability.MenuSelect, Handler: c.handleOpen},
		{Tag: capability.Reply, Handler: gate.RequireAuthor(c.store)(c.handleReply)},
		{Tag: capability.ButtonClick, Handler: c.handleVote},
		{Tag: capability.Help, Handler: c.handleHelp},
	}
}

// SerializedTags funnels management replies and votes through the queue.
func (c *Command) SerializedTags() []capability.Tag {
	return []capability.Tag{capability.Reply, capability.ButtonClick}
}

// DeleteRequiresAuthor keeps the delete control author-only.
func (c *Command) DeleteRequiresAuthor() bool { return true }

// DefaultDeletionTime implements the optional auto-delete interface.
func (c *Command) DefaultDeletionTime() time.Duration { return defaultLifetime }

// HelpLines implements the optional help interface.
func (c *Command) HelpLines() []string {
	return []string{
		"reply `question <text>` to set the question",
		"reply with any text to add responses, `;` separates several",
		"reply `remove <n>` to drop a response, `fix` to lock, `end` to close",
	}
}

// Color implements the optional color interface.
func (c *Command) Color() int { return screen.ColorYellow }

// handleOpen turns the hosting document into a fresh poll owned by the
// selecting user. The lifetime declared by DefaultDeletionTime is scheduled
// by the dispatcher once the screen opens.
func (c *Command) handleOpen(ctx context.Context, inv *registry.Invocation) error {
	doc := inv.Doc
	doc.Title = "Poll"
	doc.Description = "Reply to this message to build the poll, or click `help`."
	doc.Content = ""
	doc.Footer = screen.Encode(ScreenType, c.version, "")
	doc.Color = c.Color()
	doc.Controls = []transport.Control{
		transport.HelpButton(),
		transport.DeleteButton(),
	}
	if err := c.gw.Edit(ctx, doc); err != nil {
		return err
	}

	// Replace the record wholesale so the menu's history does not bleed in.
	if err := c.store.DeleteMessage(ctx, doc.ID); err != nil {
		log.Printf("poll: reset record doc=%s err=%v", doc.ID, err)
	}
	rec := storage.MessageRecord{
		ID:        doc.ID,
		ChannelID: doc.ChannelID,
		AuthorID:  inv.Actor.ID,
		Type:      ScreenType,
	}
	if err := c.store.AddMessage(ctx, rec); err != nil {
		return fmt.Errorf("record poll: %w", err)
	}
	return nil
}

// handleHelp answers the poll's help control with an ephemeral instruction
// sheet, leaving the poll itself untouched.
func (c *Command) handleHelp(ctx context.Context, inv *registry.Invocation) error {
	var b strings.Builder
	b.WriteString("The poll author drives the screen by replying:")
	for _, line := range c.HelpLines() {
		fmt.Fprintf(&b, "\n> %s", line)
	}
	help := transport.Document{
		Title:       "Poll help",
		Description: b.String(),
		Color:       c.Color(),
	}
	return c.gw.Ephemeral(ctx, inv.Event, help)
}

// handleReply applies the author's management instructions, several when
// separated by `;`, then removes the instruction message. The author gate in
// Bindings screens out everyone else.
func (c *Command) handleReply(ctx context.Context, inv *registry.Invocation) error {
	rec, err := c.store.GetMessage(ctx, inv.Doc.ID, true)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load poll: %w", err)
	}
	if inv.Doc.Content == markerEnded {
		return nil
	}

	doc := inv.Doc
	responses := loadResponses(rec.Info)
	for _, raw := range strings.Split(inv.Event.Content, ";") {
		instruction := strings.TrimSpace(raw)
		if instruction == "" {
			continue
		}
		doc, responses, err = c.apply(ctx, doc, responses, instruction)
		if err != nil {
			return err
		}
		if doc.Content == markerEnded {
			break
		}
	}

	if err := c.storeResponses(ctx, doc.ID, responses); err != nil {
		return err
	}
	if err := c.render(ctx, doc, responses); err != nil {
		return err
	}
	if inv.Event.MessageID != "" {
		if err := c.gw.Delete(ctx, inv.Event.ChannelID, inv.Event.MessageID); err != nil && !errors.Is(err, transport.ErrNotFound) {
			log.Printf("poll: delete reply=%s err=%v", inv.Event.MessageID, err)
		}
	}
	return nil
}

// apply executes one instruction against the working copy.
func (c *Command) apply(ctx context.Context, doc transport.Document, responses []string, instruction string) (transport.Document, []string, error) {
	lower := strings.ToLower(instruction)
	switch {
	case lower == "end":
		doc.Content = markerEnded
		return doc, responses, nil
	case doc.Content == markerFixed:
		// A fixed poll only accepts `end`.
		return doc, responses, c.gw.Warn(ctx, doc.ChannelID, "The poll is fixed; only `end` is accepted.")
	case lower == "fix":
		doc.Content = markerFixed
		return doc, responses, nil
	case strings.HasPrefix(lower, "question"):
		question := strings.TrimSpace(instruction[len("question"):])
		if question == "" || len([]rune(question)) > maxQuestionLen {
			return doc, responses, c.gw.Warn(ctx, doc.ChannelID,
				fmt.Sprintf("The question is limited to %d characters.", maxQuestionLen))
		}
		doc.Title = question
		return doc, responses, nil
	case strings.HasPrefix(lower, "remove"):
		arg := strings.TrimSpace(instruction[len("remove"):])
		i, err := strconv.Atoi(arg)
		if err != nil || i < 1 || i > len(responses) {
			return doc, responses, c.gw.Warn(ctx, doc.ChannelID, "`remove` needs a listed response number.")
		}
		removed := responses[i-1]
		responses = append(responses[:i-1], responses[i:]...)
		if err := c.clearVotes(ctx, doc.ID, removed); err != nil {
			return doc, responses, err
		}
		return doc, responses, nil
	default:
		if len([]rune(instruction)) > maxResponseLen {
			return doc, responses, c.gw.Warn(ctx, doc.ChannelID,
				fmt.Sprintf("Responses are limited to %d characters.", maxResponseLen))
		}
		if len(responses) >= maxResponses {
			return doc, responses, c.gw.Warn(ctx, doc.ChannelID,
				fmt.Sprintf("A poll holds at most %d responses.", maxResponses))
		}
		for _, r := range responses {
			if r == instruction {
				return doc, responses, nil
			}
		}
		return doc, append(responses, instruction), nil
	}
}

// handleVote toggles the clicking user's vote on one response.
func (c *Command) handleVote(ctx context.Context, inv *registry.Invocation) error {
	if inv.Doc.Content == markerEnded {
		return nil
	}
	if !strings.HasPrefix(inv.Control.ID, optionPrefix) {
		return nil
	}
	rec, err := c.store.GetMessage(ctx, inv.Doc.ID, true)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load poll: %w", err)
	}
	responses := loadResponses(rec.Info)
	i, err := strconv.Atoi(strings.TrimPrefix(inv.Control.ID, optionPrefix))
	if err != nil || i < 0 || i >= len(responses) {
		return nil
	}
	voteName := votePrefix + responses[i]

	existing, err := c.store.GetMessageInfo(ctx, inv.Doc.ID, voteName, inv.Actor.ID)
	if err != nil {
		return fmt.Errorf("load vote: %w", err)
	}
	if len(existing) > 0 {
		if err := c.store.DeleteMessageInfo(ctx, inv.Doc.ID, voteName, inv.Actor.ID); err != nil {
			return fmt.Errorf("clear vote: %w", err)
		}
	} else {
		row := storage.InfoRow{Name: voteName, UserID: inv.Actor.ID}
		if err := c.store.AddMessageInfo(ctx, inv.Doc.ID, row); err != nil {
			return fmt.Errorf("record vote: %w", err)
		}
	}
	return c.render(ctx, inv.Doc, responses)
}

// render redraws the poll from its responses and current tallies.
func (c *Command) render(ctx context.Context, doc transport.Document, responses []string) error {
	counts := make([]int, len(responses))
	for i, response := range responses {
		rows, err := c.store.GetMessageInfo(ctx, doc.ID, votePrefix+response, "")
		if err != nil {
			return fmt.Errorf("count votes: %w", err)
		}
		counts[i] = len(rows)
	}

	if doc.Content == markerEnded {
		doc.Description = results(responses, counts)
		doc.Controls = []transport.Control{transport.DeleteButton()}
		return c.gw.Edit(ctx, doc)
	}

	var b strings.Builder
	for i, response := range responses {
		fmt.Fprintf(&b, "%s — %d\n", response, counts[i])
	}
	if len(responses) == 0 {
		b.WriteString("No responses yet. The author adds them by replying.")
	}
	doc.Description = strings.TrimRight(b.String(), "\n")

	labels := alignLabels(responses)
	controls := make([]transport.Control, 0, len(responses)+2)
	for i, label := range labels {
		controls = append(controls, transport.Control{
			Kind:  transport.KindButton,
			ID:    optionPrefix + strconv.Itoa(i),
			Label: label,
			Row:   -1,
		})
	}
	controls = append(controls, transport.HelpButton(), transport.DeleteButton())
	placed, err := transport.Layout(controls)
	if err != nil {
		return err
	}
	doc.Controls = placed
	return c.gw.Edit(ctx, doc)
}

// results renders the final tally, winners first.
func results(responses []string, counts []int) string {
	type line struct {
		text  string
		count int
	}
	lines := make([]line, len(responses))
	for i, response := range responses {
		lines[i] = line{text: response, count: counts[i]}
	}
	for i := 0; i < len(lines); i++ {
		for j := i + 1; j < len(lines); j++ {
			if lines[j].count > lines[i].count {
				lines[i], lines[j] = lines[j], lines[i]
			}
		}
	}
	var b strings.Builder
	for i, l := range lines {
		if i == 0 && l.count > 0 {
			fmt.Fprintf(&b, "**%s — %d**\n", l.text, l.count)
			continue
		}
		fmt.Fprintf(&b, "%s — %d\n", l.text, l.count)
	}
	if len(lines) == 0 {
		return "The poll ended without responses."
	}
	return strings.TrimRight(b.String(), "\n")
}

// clearVotes drops every vote for a removed response.
func (c *Command) clearVotes(ctx context.Context, id, response string) error {
	rows, err := c.store.GetMessageInfo(ctx, id, votePrefix+response, "")
	if err != nil {
		return fmt.Errorf("load votes: %w", err)
	}
	for _, row := range rows {
		if err := c.store.DeleteMessageInfo(ctx, id, row.Name, row.UserID); err != nil {
			return fmt.Errorf("clear votes: %w", err)
		}
	}
	return nil
}

// storeResponses rewrites the indexed response rows.
func (c *Command) storeResponses(ctx context.Context, id string, responses []string) error {
	rows, err := c.store.GetMessageInfo(ctx, id, "", "")
	if err != nil {
		return fmt.Errorf("load rows: %w", err)
	}
	for _, row := range rows {
		if strings.HasPrefix(row.Name, optionPrefix) {
			if err := c.store.DeleteMessageInfo(ctx, id, row.Name, row.UserID); err != nil {
				return fmt.Errorf("clear responses: %w", err)
			}
		}
	}
	for i, response := range responses {
		row := storage.InfoRow{Name: optionPrefix + strconv.Itoa(i), Value: response}
		if err := c.store.AddMessageInfo(ctx, id, row); err != nil {
			return fmt.Errorf("store response: %w", err)
		}
	}
	return nil
}

// loadResponses extracts the ordered responses from a record's info rows.
func loadResponses(rows []storage.InfoRow) []string {
	indexed := map[int]string{}
	max := -1
	for _, row := range rows {
		if !strings.HasPrefix(row.Name, optionPrefix) {
			continue
		}
		i, err := strconv.Atoi(strings.TrimPrefix(row.Name, optionPrefix))
		if err != nil {
			continue
		}
		indexed[i] = row.Value
		if i > max {
			max = i
		}
	}
	out := make([]string, 0, len(indexed))
	for i := 0; i <= max; i++ {
		if v, ok := indexed[i]; ok {
			out = append(out, v)
		}
	}
	return out
}

var _ registry.Command = (*Command)(nil)
