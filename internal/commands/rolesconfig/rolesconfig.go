// Package rolesconfig implements the per-guild command permission editor:
// which roles may use which command. Unconfigured commands are open to
// everyone.
package rolesconfig

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lpoto/discord-utility-bot/internal/capability"
	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

const (
	// ScreenType owns the editor's handlers; the role picker carries the
	// "Config_roles" variant.
	ScreenType  = "Config"
	rolesScreen = ScreenType + "_roles"

	cmdMenuID  = "config_command"
	roleMenuID = "config_roles"
	clearID    = "clear"
	nextID     = "next_page"
	prevID     = "prev_page"

	infoCommand = "config_command"
	infoPage    = "config_page"

	pageSize = 25
)

// Command is the permission editor screen. Only admins may use it.
type Command struct {
	gw       transport.Gateway
	store    storage.Store
	version  string
	commands []string
}

// New builds the editor over the configurable command names.
func New(gw transport.Gateway, store storage.Store, version string, commands []string) *Command {
	return &Command{gw: gw, store: store, version: version, commands: commands}
}

// Name implements registry.Command.
func (c *Command) Name() string { return ScreenType }

// Description implements registry.Command.
func (c *Command) Description() string { return "Restrict commands to specific roles" }

// Bindings implements registry.Command.
func (c *Command) Bindings() []registry.Binding {
	return []registry.Binding{
		{Tag: capability.MenuSelect, Handler: c.handleSelect},
		{Tag: capability.ButtonClick, Handler: c.handleButton},
	}
}

// HelpLines implements the optional help interface.
func (c *Command) HelpLines() []string {
	return []string{"admins only: pick a command, then the roles allowed to use it"}
}

// Color implements the optional color interface.
func (c *Command) Color() int { return screen.ColorBrown }

func (c *Command) handleSelect(ctx context.Context, inv *registry.Invocation) error {
	if !inv.Actor.Admin {
		return nil
	}
	switch inv.Event.ControlID {
	case cmdMenuID:
		if len(inv.Values) == 0 {
			return c.renderPicker(ctx, inv.Doc)
		}
		if err := c.setSelection(ctx, inv.Doc.ID, inv.Values[0]); err != nil {
			return err
		}
		return c.renderRoles(ctx, inv.Doc, inv.Values[0], 0, "")
	case roleMenuID:
		command, page, err := c.selection(ctx, inv.Doc.ID)
		if err != nil || command == "" {
			return c.renderPicker(ctx, inv.Doc)
		}
		if err := c.store.SetOption(ctx, inv.Doc.GuildID, command, inv.Values); err != nil {
			return fmt.Errorf("set roles for %s: %w", command, err)
		}
		return c.renderRoles(ctx, inv.Doc, command, page, "Saved.")
	}
	// Main menu selection or the back control.
	return c.renderPicker(ctx, inv.Doc)
}

func (c *Command) handleButton(ctx context.Context, inv *registry.Invocation) error {
	if !inv.Actor.Admin {
		return nil
	}
	command, page, err := c.selection(ctx, inv.Doc.ID)
	if err != nil || command == "" {
		return nil
	}
	switch inv.Control.ID {
	case clearID:
		if err := c.store.DeleteOption(ctx, inv.Doc.GuildID, command); err != nil {
			return fmt.Errorf("clear roles for %s: %w", command, err)
		}
		return c.renderRoles(ctx, inv.Doc, command, page, "Cleared; everyone may use it.")
	case nextID:
		return c.flipPage(ctx, inv.Doc, command, page+1)
	case prevID:
		return c.flipPage(ctx, inv.Doc, command, page-1)
	}
	return nil
}

func (c *Command) flipPage(ctx context.Context, doc transport.Document, command string, page int) error {
	if page < 0 {
		page = 0
	}
	if err := c.setPage(ctx, doc.ID, page); err != nil {
		return err
	}
	return c.renderRoles(ctx, doc, command, page, "")
}

// renderPicker rewrites the document into the command picker.
func (c *Command) renderPicker(ctx context.Context, doc transport.Document) error {
	options := make([]transport.Option, 0, len(c.commands))
	for _, name := range c.commands {
		options = append(options, transport.Option{Label: name})
	}
	doc.Title = "Command permissions"
	doc.Description = "Pick the command to configure."
	doc.Content = ""
	doc.Footer = screen.Encode(ScreenType, c.version, "")
	doc.Color = c.Color()
	doc.Controls = []transport.Control{
		{
			Kind:        transport.KindMenu,
			ID:          cmdMenuID,
			Placeholder: "Select a command",
			Options:     options,
			MaxValues:   1,
			Row:         0,
		},
		transport.HomeButton(),
		transport.DeleteButton(),
	}
	return c.gw.Edit(ctx, doc)
}

// renderRoles rewrites the document into the role picker for command,
// showing one page of the guild's roles.
func (c *Command) renderRoles(ctx context.Context, doc transport.Document, command string, page int, note string) error {
	roles, err := c.gw.GuildRoles(ctx, doc.GuildID)
	if err != nil {
		return fmt.Errorf("list guild roles: %w", err)
	}
	pages := (len(roles) + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}
	if page >= pages {
		page = pages - 1
	}
	start := page * pageSize
	end := min(start+pageSize, len(roles))

	current, err := c.store.GetOption(ctx, doc.GuildID, command)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load roles for %s: %w", command, err)
	}
	allowed := "everyone"
	if len(current) > 0 {
		allowed = strings.Join(current, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Command: **%s**\nAllowed: %s", command, allowed)
	if note != "" {
		fmt.Fprintf(&b, "\n\n%s", note)
	}

	options := make([]transport.Option, 0, end-start)
	for _, role := range roles[start:end] {
		options = append(options, transport.Option{Label: role})
	}
	controls := []transport.Control{
		{
			Kind:        transport.KindMenu,
			ID:          roleMenuID,
			Placeholder: "Select the allowed roles",
			Options:     options,
			MaxValues:   len(options),
			Row:         0,
		},
		{Kind: transport.KindButton, ID: clearID, Label: clearID, Style: transport.StyleRed, Row: 1},
		transport.BackButton(),
		transport.DeleteButton(),
	}
	if pages > 1 {
		if page > 0 {
			controls = append(controls, transport.Control{Kind: transport.KindButton, ID: prevID, Label: "previous", Row: 2})
		}
		if page < pages-1 {
			controls = append(controls, transport.Control{Kind: transport.KindButton, ID: nextID, Label: "next", Row: 2})
		}
		fmt.Fprintf(&b, "\nPage %d/%d", page+1, pages)
	}

	doc.Title = "Command permissions"
	doc.Description = b.String()
	doc.Content = ""
	doc.Footer = screen.Encode(rolesScreen, c.version, "")
	doc.Color = c.Color()
	doc.Controls = controls
	return c.gw.Edit(ctx, doc)
}

// selection loads the document's chosen command and page.
func (c *Command) selection(ctx context.Context, id string) (string, int, error) {
	rows, err := c.store.GetMessageInfo(ctx, id, "", "")
	if err != nil {
		return "", 0, fmt.Errorf("load selection: %w", err)
	}
	command := ""
	page := 0
	for _, row := range rows {
		switch row.Name {
		case infoCommand:
			command = row.Value
		case infoPage:
			page, _ = strconv.Atoi(row.Value)
		}
	}
	return command, page, nil
}

func (c *Command) setSelection(ctx context.Context, id, command string) error {
	if err := c.store.DeleteMessageInfo(ctx, id, infoCommand, ""); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	if err := c.setPage(ctx, id, 0); err != nil {
		return err
	}
	row := storage.InfoRow{Name: infoCommand, Value: command}
	if err := c.store.AddMessageInfo(ctx, id, row); err != nil {
		return fmt.Errorf("store selection: %w", err)
	}
	return nil
}

func (c *Command) setPage(ctx context.Context, id string, page int) error {
	if err := c.store.DeleteMessageInfo(ctx, id, infoPage, ""); err != nil {
		return fmt.Errorf("clear page: %w", err)
	}
	row := storage.InfoRow{Name: infoPage, Value: strconv.Itoa(page)}
	if err := c.store.AddMessageInfo(ctx, id, row); err != nil {
		return fmt.Errorf("store page: %w", err)
	}
	return nil
}

var _ registry.Command = (*Command)(nil)
