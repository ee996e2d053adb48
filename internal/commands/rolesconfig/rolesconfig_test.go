package rolesconfig

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/test/mock"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

var admin = transport.Actor{ID: "alice", Admin: true}

type fixture struct {
	cmd   *Command
	gw    *mock.Gateway
	store *mock.Store
}

func newFixture(t *testing.T, roles ...string) *fixture {
	t.Helper()
	f := &fixture{gw: mock.NewGateway(), store: mock.NewStore()}
	f.cmd = New(f.gw, f.store, "1.0.0", []string{"Poll", "Games"})
	f.gw.Roles["g"] = roles
	f.gw.Docs["m1"] = transport.Document{ID: "m1", ChannelID: "chan", GuildID: "g"}
	err := f.store.AddMessage(context.Background(), storage.MessageRecord{
		ID: "m1", ChannelID: "chan", AuthorID: "alice", Type: ScreenType,
	})
	if err != nil {
		t.Fatalf("seed record: %v", err)
	}
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

func (f *fixture) clickButton(t *testing.T, actor transport.Actor, controlID string) {
	t.Helper()
	doc, _ := f.gw.Doc("m1")
	err := f.cmd.handleButton(context.Background(), &registry.Invocation{
		Doc:     doc,
		Actor:   actor,
		Control: transport.Control{ID: controlID},
	})
	if err != nil {
		t.Fatalf("click %s: %v", controlID, err)
	}
}

func TestNonAdminIgnored(t *testing.T) {
	f := newFixture(t, "mods")
	f.selectMenu(t, transport.Actor{ID: "bob"}, "")
	doc, _ := f.gw.Doc("m1")
	if doc.Footer != "" {
		t.Fatal("expected no rendering for non-admin")
	}
}

func TestPickerThenRoleEditor(t *testing.T) {
	f := newFixture(t, "mods", "admins")
	f.selectMenu(t, admin, "")

	doc, _ := f.gw.Doc("m1")
	screenType, _ := screen.Decode(doc.Footer)
	if screenType != ScreenType {
		t.Fatalf("expected picker screen, got %q", screenType)
	}

	f.selectMenu(t, admin, cmdMenuID, "Poll")
	doc, _ = f.gw.Doc("m1")
	screenType, _ = screen.Decode(doc.Footer)
	if screenType != rolesScreen {
		t.Fatalf("expected role editor, got %q", screenType)
	}
	if !strings.Contains(doc.Description, "Allowed: everyone") {
		t.Fatalf("expected open default, got %q", doc.Description)
	}
}

func TestSelectingRolesSavesOption(t *testing.T) {
	f := newFixture(t, "mods", "admins")
	f.selectMenu(t, admin, cmdMenuID, "Poll")
	f.selectMenu(t, admin, roleMenuID, "mods")

	values, err := f.store.GetOption(context.Background(), "g", "Poll")
	if err != nil {
		t.Fatalf("get option: %v", err)
	}
	if len(values) != 1 || values[0] != "mods" {
		t.Fatalf("expected [mods], got %v", values)
	}
	doc, _ := f.gw.Doc("m1")
	if !strings.Contains(doc.Description, "Allowed: mods") {
		t.Fatalf("expected saved roles shown, got %q", doc.Description)
	}
}

func TestClearReopensCommand(t *testing.T) {
	f := newFixture(t, "mods")
	f.selectMenu(t, admin, cmdMenuID, "Poll")
	f.selectMenu(t, admin, roleMenuID, "mods")
	f.clickButton(t, admin, clearID)

	values, err := f.store.GetOption(context.Background(), "g", "Poll")
	if err != nil {
		t.Fatalf("get option: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected cleared option, got %v", values)
	}
}

func TestRolePaging(t *testing.T) {
	roles := make([]string, 0, 30)
	for i := 0; i < 30; i++ {
		roles = append(roles, fmt.Sprintf("role-%02d", i))
	}
	f := newFixture(t, roles...)
	f.selectMenu(t, admin, cmdMenuID, "Poll")

	doc, _ := f.gw.Doc("m1")
	if !strings.Contains(doc.Description, "Page 1/2") {
		t.Fatalf("expected page marker, got %q", doc.Description)
	}
	if _, found := doc.Control(nextID); !found {
		t.Fatal("expected next page button")
	}

	f.clickButton(t, admin, nextID)
	doc, _ = f.gw.Doc("m1")
	if !strings.Contains(doc.Description, "Page 2/2") {
		t.Fatalf("expected second page, got %q", doc.Description)
	}
	menu, _ := doc.Control(roleMenuID)
	if len(menu.Options) != 5 {
		t.Fatalf("expected 5 roles on last page, got %d", len(menu.Options))
	}
	if _, found := doc.Control(prevID); !found {
		t.Fatal("expected previous page button")
	}
}
