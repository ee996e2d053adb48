package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/lpoto/discord-utility-bot/internal/capability"
	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

// mainMenuID identifies the command dropdown on the main menu.
const mainMenuID = "main_menu"

// sendMainMenu posts a fresh main menu document and records the mentioning
// user as its author.
func (d *Dispatcher) sendMainMenu(ctx context.Context, ev transport.Event) error {
	doc := d.mainMenuDoc()
	doc.GuildID = ev.GuildID
	sent, err := d.gw.Send(ctx, ev.ChannelID, doc)
	if err != nil {
		return fmt.Errorf("send main menu: %w", err)
	}
	rec := storage.MessageRecord{
		ID:        sent.ID,
		ChannelID: sent.ChannelID,
		AuthorID:  ev.Actor.ID,
		Type:      MainScreen,
	}
	if err := d.store.AddMessage(ctx, rec); err != nil {
		return fmt.Errorf("record main menu: %w", err)
	}
	return nil
}

func (d *Dispatcher) mainMenuDoc() transport.Document {
	options := make([]transport.Option, 0, len(d.reg.Commands()))
	for _, info := range d.reg.Commands() {
		options = append(options, transport.Option{Label: info.Name, Description: info.Description})
	}
	return transport.Document{
		Title:       "Utility Bot",
		Description: "Select a command from the menu below.",
		Footer:      d.Footer(MainScreen),
		Color:       screen.ColorBlue,
		Controls: []transport.Control{
			{
				Kind:        transport.KindMenu,
				ID:          mainMenuID,
				Placeholder: "Select a command",
				Options:     options,
				MaxValues:   1,
				Row:         -1,
			},
			transport.HelpButton(),
			transport.DeleteButton(),
		},
	}
}

// handleDelete services the shared delete control. Pinned documents are never
// deleted. The main menu and opted-in screens require the clicker to be the
// recorded author, an admin, or a message manager.
func (d *Dispatcher) handleDelete(ctx context.Context, ev transport.Event, doc transport.Document, screenType string) {
	if doc.Pinned {
		return
	}
	base := BaseType(screenType)
	if base == MainScreen || base == HelpScreen || d.reg.DeleteRequiresAuthor(base) {
		if !d.actorOwns(ctx, ev.Actor, doc.ID) {
			log.Printf("delete: doc=%s user=%s denied", doc.ID, ev.Actor.ID)
			return
		}
	}
	if err := d.gw.Delete(ctx, doc.ChannelID, doc.ID); err != nil && !errors.Is(err, transport.ErrNotFound) {
		log.Printf("delete: doc=%s err=%v", doc.ID, err)
		return
	}
	d.cleanup(ctx, doc.ID)
}

// handleHelp services the shared help control. On the main menu it lists
// every registered command; the author check mirrors delete's. On a command's
// screen it defers to the command's own Help binding when one exists, and
// otherwise renders the registered description and help lines.
func (d *Dispatcher) handleHelp(ctx context.Context, ev transport.Event, doc transport.Document, screenType string) {
	if base := BaseType(screenType); base != MainScreen {
		if handlers := d.reg.Lookup(capability.Help, base); len(handlers) > 0 {
			d.route(ctx, ev, doc, screenType, capability.Help, nil)
			return
		}
		d.renderCommandHelp(ctx, doc, base)
		return
	}
	if !d.actorOwns(ctx, ev.Actor, doc.ID) {
		return
	}

	var b strings.Builder
	for _, info := range d.reg.Commands() {
		fmt.Fprintf(&b, "**%s** — %s\n", info.Name, info.Description)
		for _, line := range d.reg.HelpLines(info.Name) {
			fmt.Fprintf(&b, "> %s\n", line)
		}
	}
	for _, info := range d.reg.Games() {
		fmt.Fprintf(&b, "**%s** — %s\n", info.Name, info.Description)
	}

	help := doc
	help.Title = "Help"
	help.Description = b.String()
	help.Footer = d.Footer(HelpScreen)
	help.Color = screen.ColorWhite
	help.Controls = []transport.Control{
		transport.BackButton(),
		transport.DeleteButton(),
	}
	if err := d.gw.Edit(ctx, help); err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			d.cleanup(ctx, doc.ID)
			return
		}
		log.Printf("help: doc=%s err=%v", doc.ID, err)
	}
}

// renderCommandHelp rewrites a command's screen into its help view. The
// footer keeps the command's screen type, so back re-renders the screen.
func (d *Dispatcher) renderCommandHelp(ctx context.Context, doc transport.Document, base string) {
	var b strings.Builder
	b.WriteString(d.reg.Description(base))
	for _, line := range d.reg.HelpLines(base) {
		fmt.Fprintf(&b, "\n> %s", line)
	}

	help := doc
	help.Title = "Help"
	help.Description = b.String()
	help.Content = ""
	help.Color = screen.ColorWhite
	if color, ok := d.reg.Color(base); ok {
		help.Color = color
	}
	help.Controls = []transport.Control{
		transport.BackButton(),
		transport.DeleteButton(),
	}
	if err := d.gw.Edit(ctx, help); err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			d.cleanup(ctx, doc.ID)
			return
		}
		log.Printf("help: doc=%s err=%v", doc.ID, err)
	}
}

// handleHome re-renders the main menu in place. Only the recorded author, an
// admin, or a message manager may return home; the clicker then becomes the
// recorded author.
func (d *Dispatcher) handleHome(ctx context.Context, ev transport.Event, doc transport.Document) {
	if !d.actorOwns(ctx, ev.Actor, doc.ID) {
		log.Printf("home: doc=%s user=%s denied", doc.ID, ev.Actor.ID)
		return
	}
	menu := d.mainMenuDoc()
	menu.ID = doc.ID
	menu.ChannelID = doc.ChannelID
	menu.GuildID = doc.GuildID
	if err := d.gw.Edit(ctx, menu); err != nil {
		if errors.Is(err, transport.ErrNotFound) {
			d.cleanup(ctx, doc.ID)
			return
		}
		log.Printf("home: doc=%s err=%v", doc.ID, err)
		return
	}
	if err := d.store.UpdateMessageAuthor(ctx, doc.ID, ev.Actor.ID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("home: doc=%s err=%v", doc.ID, err)
			return
		}
		rec := storage.MessageRecord{
			ID:        doc.ID,
			ChannelID: doc.ChannelID,
			AuthorID:  ev.Actor.ID,
			Type:      MainScreen,
		}
		if err := d.store.AddMessage(ctx, rec); err != nil {
			log.Printf("home: doc=%s err=%v", doc.ID, err)
		}
	}
}

// handleBack returns the help screen to the main menu, and re-invokes every
// other screen's MenuSelect handlers with the reserved back payload.
func (d *Dispatcher) handleBack(ctx context.Context, ev transport.Event, doc transport.Document, screenType string) {
	if BaseType(screenType) == HelpScreen {
		d.handleHome(ctx, ev, doc)
		return
	}
	d.route(ctx, ev, doc, screenType, capability.MenuSelect, []string{transport.BackSentinel})
}

// actorOwns reports whether actor may act on the document as its owner.
// Admins and message managers always pass; storage failures fail open.
func (d *Dispatcher) actorOwns(ctx context.Context, actor transport.Actor, id string) bool {
	if actor.Admin || actor.ManageMsgs {
		return true
	}
	rec, err := d.store.GetMessage(ctx, id, false)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("ownership: doc=%s err=%v, allowing", id, err)
		}
		return true
	}
	return rec.AuthorID == "" || rec.AuthorID == actor.ID
}
