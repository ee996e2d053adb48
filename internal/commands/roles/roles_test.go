package roles

import (
	"context"
	"strings"
	"testing"

	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/test/mock"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

var admin = transport.Actor{ID: "alice", Admin: true}

type fixture struct {
	cmd *Command
	gw  *mock.Gateway
}

func newFixture(t *testing.T, guildRoles ...string) *fixture {
	t.Helper()
	f := &fixture{gw: mock.NewGateway()}
	f.cmd = New(f.gw, mock.NewStore(), "1.0.0")
	f.gw.Roles["g"] = guildRoles
	f.gw.Docs["m1"] = transport.Document{ID: "m1", ChannelID: "chan", GuildID: "g"}
	return f
}

func (f *fixture) selectMenu(t *testing.T, actor transport.Actor, controlID string, values ...string) {
	t.Helper()
	doc, _ := f.gw.Doc("m1")
	err := f.cmd.handleSelect(context.Background(), &registry.Invocation{
		Doc:    doc,
		Actor:  actor,
		Event:  transport.Event{ControlID: controlID},
		Values: values,
	})
	if err != nil {
		t.Fatalf("select %s: %v", controlID, err)
	}
}

func (f *fixture) click(t *testing.T, actor transport.Actor, controlID string) {
	t.Helper()
	doc, _ := f.gw.Doc("m1")
	control, found := doc.Control(controlID)
	if !found {
		t.Fatalf("control %s missing", controlID)
	}
	err := f.cmd.handleToggle(context.Background(), &registry.Invocation{
		Doc:     doc,
		Actor:   actor,
		Event:   transport.Event{ControlID: controlID},
		Control: control,
	})
	if err != nil {
		t.Fatalf("click %s: %v", controlID, err)
	}
}

func TestNonAdminCannotOpenSetup(t *testing.T) {
	f := newFixture(t, "mods")
	f.selectMenu(t, transport.Actor{ID: "bob"}, "")
	doc, _ := f.gw.Doc("m1")
	if doc.Footer != "" {
		t.Fatal("expected no rendering for non-admin")
	}
}

func TestSetupListsGuildRoles(t *testing.T) {
	f := newFixture(t, "mods", "gamers")
	f.selectMenu(t, admin, "")

	doc, _ := f.gw.Doc("m1")
	screenType, _ := screen.Decode(doc.Footer)
	if screenType != setupScreen {
		t.Fatalf("expected setup screen, got %q", screenType)
	}
	menu, found := doc.Control(pickMenuID)
	if !found {
		t.Fatal("expected role picker menu")
	}
	if len(menu.Options) != 2 || menu.Options[0].Label != "mods" {
		t.Fatalf("unexpected options %v", menu.Options)
	}
}

func TestPublishBuildsRoleButtons(t *testing.T) {
	f := newFixture(t, "mods", "gamers", "artists")
	f.selectMenu(t, admin, "")
	f.selectMenu(t, admin, pickMenuID, "gamers", "artists")

	doc, _ := f.gw.Doc("m1")
	screenType, _ := screen.Decode(doc.Footer)
	if screenType != ScreenType {
		t.Fatalf("expected published screen, got %q", screenType)
	}
	buttons := doc.Buttons()
	if len(buttons) != 3 { // two roles + delete
		t.Fatalf("expected 3 buttons, got %d", len(buttons))
	}
	if buttons[0].Label != "gamers" || buttons[1].Label != "artists" {
		t.Fatalf("unexpected labels %q %q", buttons[0].Label, buttons[1].Label)
	}
}

func TestToggleAddsAndRemovesRole(t *testing.T) {
	f := newFixture(t, "gamers")
	f.selectMenu(t, admin, "")
	f.selectMenu(t, admin, pickMenuID, "gamers")

	bob := transport.Actor{ID: "bob"}
	f.click(t, bob, rolePrefix+"0")
	member, err := f.gw.Member(context.Background(), "g", "bob")
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if len(member.Roles) != 1 || member.Roles[0] != "gamers" {
		t.Fatalf("expected gamers assigned, got %v", member.Roles)
	}
	if len(f.gw.Ephemerals) != 1 || !strings.Contains(f.gw.Ephemerals[0].Description, "Added") {
		t.Fatalf("expected added confirmation, got %v", f.gw.Ephemerals)
	}

	f.click(t, member, rolePrefix+"0")
	member, _ = f.gw.Member(context.Background(), "g", "bob")
	if len(member.Roles) != 0 {
		t.Fatalf("expected role removed, got %v", member.Roles)
	}
	if last := f.gw.Ephemerals[len(f.gw.Ephemerals)-1]; !strings.Contains(last.Description, "Removed") {
		t.Fatalf("expected removed confirmation, got %q", last.Description)
	}
}

func TestEmptySelectionReopensSetup(t *testing.T) {
	f := newFixture(t, "mods")
	f.selectMenu(t, admin, "")
	f.selectMenu(t, admin, pickMenuID)

	doc, _ := f.gw.Doc("m1")
	screenType, _ := screen.Decode(doc.Footer)
	if screenType != setupScreen {
		t.Fatalf("expected setup screen after empty selection, got %q", screenType)
	}
}
