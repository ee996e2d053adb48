// Package roles implements self-assign role messages: an admin publishes a
// screen with one button per role, and clicking a button toggles that role
// on the clicking user.
package roles

import (
	"context"
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
	// ScreenType owns the handlers; the role-picking setup carries the
	// "Roles_setup" variant.
	ScreenType  = "Roles"
	setupScreen = ScreenType + "_setup"

	pickMenuID = "roles_pick"
	rolePrefix = "role_"

	maxOffered = 24 // five button rows, one slot kept for delete
)

// Command is the self-assign roles screen.
type Command struct {
	gw      transport.Gateway
	store   storage.Store
	version string
}

// New builds the roles command.
func New(gw transport.Gateway, store storage.Store, version string) *Command {
	return &Command{gw: gw, store: store, version: version}
}

// Name implements registry.Command.
func (c *Command) Name() string { return ScreenType }

// Description implements registry.Command.
func (c *Command) Description() string { return "Publish buttons that assign roles" }

// Bindings implements registry.Command.
func (c *Command) Bindings() []registry.Binding {
	return []registry.Binding{
		{Tag: capability.MenuSelect, Handler: c.handleSelect},
		{Tag: capability.ButtonClick, Handler: c.handleToggle},
	}
}

// HelpLines implements the optional help interface.
func (c *Command) HelpLines() []string {
	return []string{"admins pick the offered roles; anyone clicks to join or leave them"}
}

// Color implements the optional color interface.
func (c *Command) Color() int { return screen.ColorPurple }

func (c *Command) handleSelect(ctx context.Context, inv *registry.Invocation) error {
	if inv.Event.ControlID == pickMenuID {
		if !inv.Actor.Admin {
			return nil
		}
		if len(inv.Values) == 0 || inv.Back() {
			return c.renderSetup(ctx, inv.Doc)
		}
		return c.publish(ctx, inv.Doc, inv.Values)
	}
	// Main menu selection or the back control; setup is admin-only.
	if !inv.Actor.Admin {
		return nil
	}
	return c.renderSetup(ctx, inv.Doc)
}

// renderSetup rewrites the document into the role picker.
func (c *Command) renderSetup(ctx context.Context, doc transport.Document) error {
	roles, err := c.gw.GuildRoles(ctx, doc.GuildID)
	if err != nil {
		return fmt.Errorf("list guild roles: %w", err)
	}
	if len(roles) > maxOffered {
		roles = roles[:maxOffered]
	}
	options := make([]transport.Option, 0, len(roles))
	for _, role := range roles {
		options = append(options, transport.Option{Label: role})
	}
	doc.Title = "Self-assign roles"
	doc.Description = "Pick the roles this message will offer."
	doc.Content = ""
	doc.Footer = screen.Encode(setupScreen, c.version, "")
	doc.Color = c.Color()
	doc.Controls = []transport.Control{
		{
			Kind:        transport.KindMenu,
			ID:          pickMenuID,
			Placeholder: "Select the offered roles",
			Options:     options,
			MaxValues:   len(options),
			Row:         0,
		},
		transport.HomeButton(),
		transport.DeleteButton(),
	}
	return c.gw.Edit(ctx, doc)
}

// publish rewrites the document into the public toggle screen.
func (c *Command) publish(ctx context.Context, doc transport.Document, roles []string) error {
	if len(roles) > maxOffered {
		roles = roles[:maxOffered]
	}
	controls := make([]transport.Control, 0, len(roles)+1)
	for i, role := range roles {
		controls = append(controls, transport.Control{
			Kind:  transport.KindButton,
			ID:    rolePrefix + strconv.Itoa(i),
			Label: role,
			Style: transport.StyleBlurple,
			Row:   -1,
		})
	}
	controls = append(controls, transport.DeleteButton())
	placed, err := transport.Layout(controls)
	if err != nil {
		return err
	}
	doc.Title = "Self-assign roles"
	doc.Description = "Click a button to join or leave the role."
	doc.Content = ""
	doc.Footer = screen.Encode(ScreenType, c.version, "")
	doc.Color = c.Color()
	doc.Controls = placed
	return c.gw.Edit(ctx, doc)
}

// handleToggle flips the clicked role on the clicking user and confirms with
// an ephemeral notice.
func (c *Command) handleToggle(ctx context.Context, inv *registry.Invocation) error {
	if !strings.HasPrefix(inv.Control.ID, rolePrefix) {
		return nil
	}
	role := inv.Control.Label
	if role == "" {
		return nil
	}

	has := false
	for _, r := range inv.Actor.Roles {
		if r == role {
			has = true
			break
		}
	}
	text := ""
	if has {
		if err := c.gw.RemoveRole(ctx, inv.Doc.GuildID, inv.Actor.ID, role); err != nil {
			return fmt.Errorf("remove role %s: %w", role, err)
		}
		text = fmt.Sprintf("Removed **%s**.", role)
	} else {
		if err := c.gw.AddRole(ctx, inv.Doc.GuildID, inv.Actor.ID, role); err != nil {
			return fmt.Errorf("add role %s: %w", role, err)
		}
		text = fmt.Sprintf("Added **%s**.", role)
	}
	return c.gw.Ephemeral(ctx, inv.Event, transport.Document{Description: text})
}

var _ registry.Command = (*Command)(nil)
