package poll

import (
	"context"
	"strings"
	"testing"

	"github.com/lpoto/discord-utility-bot/internal/capability"
	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/test/mock"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

var (
	alice = transport.Actor{ID: "alice", DisplayName: "Alice"}
	bob   = transport.Actor{ID: "bob", DisplayName: "Bob"}
)

type fixture struct {
	cmd     *Command
	gw      *mock.Gateway
	store   *mock.Store
	replyFn registry.Handler
}

func open(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{gw: mock.NewGateway(), store: mock.NewStore()}
	f.cmd = New(f.gw, f.store, "1.0.0")
	for _, b := range f.cmd.Bindings() {
		if b.Tag == capability.Reply {
			f.replyFn = b.Handler
		}
	}
	if f.replyFn == nil {
		t.Fatal("expected a reply binding")
	}

	doc := transport.Document{ID: "m1", ChannelID: "chan", GuildID: "g"}
	f.gw.Docs["m1"] = doc
	err := f.cmd.handleOpen(context.Background(), &registry.Invocation{Doc: doc, Actor: alice})
	if err != nil {
		t.Fatalf("open poll: %v", err)
	}
	return f
}

// reply drives the bound Reply handler, author gate included.
func (f *fixture) reply(t *testing.T, actor transport.Actor, content string) {
	t.Helper()
	doc, _ := f.gw.Doc("m1")
	err := f.replyFn(context.Background(), &registry.Invocation{
		Doc:   doc,
		Actor: actor,
		Event: transport.Event{ChannelID: "chan", Content: content, MessageID: "reply-1"},
	})
	if err != nil {
		t.Fatalf("reply %q: %v", content, err)
	}
}

func (f *fixture) vote(t *testing.T, actor transport.Actor, controlID string) {
	t.Helper()
	doc, _ := f.gw.Doc("m1")
	control, _ := doc.Control(controlID)
	err := f.cmd.handleVote(context.Background(), &registry.Invocation{
		Doc:     doc,
		Actor:   actor,
		Control: control,
	})
	if err != nil {
		t.Fatalf("vote %q: %v", controlID, err)
	}
}

func TestOpenRecordsAuthor(t *testing.T) {
	f := open(t)
	rec, err := f.store.GetMessage(context.Background(), "m1", true)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.AuthorID != "alice" {
		t.Fatalf("expected alice as author, got %q", rec.AuthorID)
	}
	if rec.Type != ScreenType {
		t.Fatalf("expected poll record, got %q", rec.Type)
	}
	doc, _ := f.gw.Doc("m1")
	if _, found := doc.Control(transport.HelpLabel); !found {
		t.Fatal("expected help control on fresh poll")
	}
	// The dispatcher owns the lifetime; opening alone schedules nothing.
	if len(f.gw.Scheduled) != 0 {
		t.Fatalf("expected no scheduled delete, got %v", f.gw.Scheduled)
	}
}

func TestDefaultDeletionTime(t *testing.T) {
	f := open(t)
	if f.cmd.DefaultDeletionTime() != defaultLifetime {
		t.Fatalf("expected %s lifetime, got %s", defaultLifetime, f.cmd.DefaultDeletionTime())
	}
}

func TestHelpIsEphemeral(t *testing.T) {
	f := open(t)
	before, _ := f.gw.Doc("m1")
	err := f.cmd.handleHelp(context.Background(), &registry.Invocation{
		Doc:   before,
		Actor: bob,
		Event: transport.Event{ChannelID: "chan", DocumentID: "m1"},
	})
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if len(f.gw.Ephemerals) != 1 {
		t.Fatalf("expected one ephemeral reply, got %d", len(f.gw.Ephemerals))
	}
	if !strings.Contains(f.gw.Ephemerals[0].Description, "question") {
		t.Fatalf("expected instructions, got %q", f.gw.Ephemerals[0].Description)
	}
	after, _ := f.gw.Doc("m1")
	if after.Title != before.Title || after.Description != before.Description {
		t.Fatal("expected the poll untouched")
	}
}

func TestBatchRepliesBuildResponses(t *testing.T) {
	f := open(t)
	f.reply(t, alice, "question Lunch spot?; pizza; sushi")

	doc, _ := f.gw.Doc("m1")
	if doc.Title != "Lunch spot?" {
		t.Fatalf("expected question set, got %q", doc.Title)
	}
	buttons := doc.Buttons()
	if len(buttons) != 4 { // two responses + help + delete
		t.Fatalf("expected 4 buttons, got %d", len(buttons))
	}
	if !strings.HasPrefix(buttons[0].Label, "pizza") || !strings.HasPrefix(buttons[1].Label, "sushi") {
		t.Fatalf("unexpected labels %q %q", buttons[0].Label, buttons[1].Label)
	}
}

func TestResponseLabelsAligned(t *testing.T) {
	f := open(t)
	f.reply(t, alice, "yes; absolutely not")

	doc, _ := f.gw.Doc("m1")
	buttons := doc.Buttons()
	if !strings.Contains(buttons[0].Label, pad) {
		t.Fatalf("expected short label padded, got %q", buttons[0].Label)
	}
}

func TestQuestionLengthLimit(t *testing.T) {
	f := open(t)
	f.reply(t, alice, "question "+strings.Repeat("x", maxQuestionLen+1))
	if len(f.gw.Warnings) != 1 {
		t.Fatalf("expected warning, got %v", f.gw.Warnings)
	}
	doc, _ := f.gw.Doc("m1")
	if doc.Title != "Poll" {
		t.Fatalf("expected title unchanged, got %q", doc.Title)
	}
}

func TestResponseLengthLimit(t *testing.T) {
	f := open(t)
	f.reply(t, alice, strings.Repeat("x", maxResponseLen+1))
	if len(f.gw.Warnings) != 1 {
		t.Fatalf("expected warning, got %v", f.gw.Warnings)
	}
}

func TestNonAuthorRepliesIgnored(t *testing.T) {
	f := open(t)
	f.reply(t, bob, "sneaky response")
	doc, _ := f.gw.Doc("m1")
	if len(doc.Buttons()) != 2 { // help + delete only
		t.Fatalf("expected no responses, got %d buttons", len(doc.Buttons()))
	}
}

func TestRemoveResponse(t *testing.T) {
	f := open(t)
	f.reply(t, alice, "pizza; sushi")
	f.reply(t, alice, "remove 1")

	doc, _ := f.gw.Doc("m1")
	buttons := doc.Buttons()
	if len(buttons) != 3 {
		t.Fatalf("expected 1 response + help + delete, got %d", len(buttons))
	}
	if !strings.HasPrefix(buttons[0].Label, "sushi") {
		t.Fatalf("expected sushi to remain, got %q", buttons[0].Label)
	}
}

func TestVoteToggleRoundTrip(t *testing.T) {
	f := open(t)
	f.reply(t, alice, "pizza")

	f.vote(t, bob, optionPrefix+"0")
	doc, _ := f.gw.Doc("m1")
	if !strings.Contains(doc.Description, "pizza — 1") {
		t.Fatalf("expected one vote, got %q", doc.Description)
	}

	f.vote(t, bob, optionPrefix+"0")
	doc, _ = f.gw.Doc("m1")
	if !strings.Contains(doc.Description, "pizza — 0") {
		t.Fatalf("expected vote withdrawn, got %q", doc.Description)
	}
}

func TestFixBlocksEditsButAllowsEnd(t *testing.T) {
	f := open(t)
	f.reply(t, alice, "pizza; fix")
	f.reply(t, alice, "sushi")

	doc, _ := f.gw.Doc("m1")
	if len(doc.Buttons()) != 3 { // pizza + help + delete
		t.Fatalf("expected edits blocked, got %d buttons", len(doc.Buttons()))
	}
	if doc.Content != markerFixed {
		t.Fatalf("expected Fixed marker, got %q", doc.Content)
	}

	f.reply(t, alice, "end")
	doc, _ = f.gw.Doc("m1")
	if doc.Content != markerEnded {
		t.Fatalf("expected Ended marker, got %q", doc.Content)
	}
}

func TestEndShowsResultsAndFreezesVotes(t *testing.T) {
	f := open(t)
	f.reply(t, alice, "pizza; sushi")
	f.vote(t, bob, optionPrefix+"1")
	f.reply(t, alice, "end")

	doc, _ := f.gw.Doc("m1")
	if !strings.HasPrefix(doc.Description, "**sushi — 1**") {
		t.Fatalf("expected sushi on top, got %q", doc.Description)
	}
	if len(doc.Buttons()) != 1 {
		t.Fatalf("expected only delete after end, got %d", len(doc.Buttons()))
	}

	f.vote(t, bob, optionPrefix+"0")
	doc, _ = f.gw.Doc("m1")
	if !strings.HasPrefix(doc.Description, "**sushi — 1**") {
		t.Fatalf("expected tallies frozen, got %q", doc.Description)
	}
}

func TestManagementRepliesAreRemoved(t *testing.T) {
	f := open(t)
	f.gw.Docs["reply-1"] = transport.Document{ID: "reply-1", ChannelID: "chan"}
	f.reply(t, alice, "pizza")
	if _, ok := f.gw.Doc("reply-1"); ok {
		t.Fatal("expected management reply deleted")
	}
}
