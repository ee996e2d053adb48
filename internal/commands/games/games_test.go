package games

import (
	"context"
	"strings"
	"testing"

	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/test/mock"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

type fakeStarter struct {
	started int
}

func (s *fakeStarter) Start(context.Context, *registry.Invocation) error {
	s.started++
	return nil
}

func fixture(t *testing.T) (*Command, *mock.Gateway, *mock.Store, *fakeStarter, transport.Document) {
	t.Helper()
	gw := mock.NewGateway()
	store := mock.NewStore()
	starter := &fakeStarter{}
	cmd := New(gw, store, "1.0.0", []Entry{
		{Name: "ConnectFour", Description: "connect four", Starter: starter},
	})
	doc := transport.Document{ID: "m1", ChannelID: "chan", GuildID: "g"}
	gw.Docs["m1"] = doc
	return cmd, gw, store, starter, doc
}

func TestMainMenuSelectionRendersHub(t *testing.T) {
	cmd, gw, _, _, doc := fixture(t)
	err := cmd.handleSelect(context.Background(), &registry.Invocation{
		Doc:    doc,
		Values: []string{ScreenType},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	got, _ := gw.Doc("m1")
	screenType, _ := screen.Decode(got.Footer)
	if screenType != ScreenType {
		t.Fatalf("expected hub screen, got %q", screenType)
	}
	if _, found := got.Control(gameMenuID); !found {
		t.Fatal("expected game menu")
	}
	if _, found := got.Control(boardMenuID); !found {
		t.Fatal("expected leaderboard menu")
	}
}

func TestGameSelectionStartsGame(t *testing.T) {
	cmd, _, _, starter, doc := fixture(t)
	err := cmd.handleSelect(context.Background(), &registry.Invocation{
		Doc:    doc,
		Event:  transport.Event{ControlID: gameMenuID},
		Values: []string{"ConnectFour"},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if starter.started != 1 {
		t.Fatalf("expected 1 start, got %d", starter.started)
	}
}

func TestUnknownGameIgnored(t *testing.T) {
	cmd, _, _, starter, doc := fixture(t)
	err := cmd.handleSelect(context.Background(), &registry.Invocation{
		Doc:    doc,
		Event:  transport.Event{ControlID: gameMenuID},
		Values: []string{"Chess"},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if starter.started != 0 {
		t.Fatalf("expected no start, got %d", starter.started)
	}
}

func TestLeaderboardTopTenDescending(t *testing.T) {
	cmd, gw, store, _, doc := fixture(t)
	ctx := context.Background()
	users := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8", "u9", "u10", "u11"}
	for i, user := range users {
		if _, err := store.IncrementCounter(ctx, "g", user, "ConnectFour_wins", int64(i+1)); err != nil {
			t.Fatalf("seed counter: %v", err)
		}
	}
	gw.Members["u11"] = transport.Actor{ID: "u11", DisplayName: "Top Dog"}

	err := cmd.handleSelect(ctx, &registry.Invocation{
		Doc:    doc,
		Event:  transport.Event{ControlID: boardMenuID},
		Values: []string{"ConnectFour"},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}

	got, _ := gw.Doc("m1")
	screenType, _ := screen.Decode(got.Footer)
	if screenType != boardScreen {
		t.Fatalf("expected leaderboard screen, got %q", screenType)
	}
	if !strings.HasPrefix(got.Description, "1. Top Dog — 11") {
		t.Fatalf("expected Top Dog first, got %q", got.Description)
	}
	if strings.Contains(got.Description, "u1 —") && strings.Contains(got.Description, "— 1\n") {
		t.Fatalf("expected only top ten, got %q", got.Description)
	}
	if strings.Count(got.Description, "\n") != leaderboardSize {
		t.Fatalf("expected %d lines, got %q", leaderboardSize, got.Description)
	}
}

func TestEmptyLeaderboard(t *testing.T) {
	cmd, gw, _, _, doc := fixture(t)
	err := cmd.handleSelect(context.Background(), &registry.Invocation{
		Doc:    doc,
		Event:  transport.Event{ControlID: boardMenuID},
		Values: []string{"ConnectFour"},
	})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	got, _ := gw.Doc("m1")
	if !strings.Contains(got.Description, "Nobody has won yet") {
		t.Fatalf("expected empty leaderboard text, got %q", got.Description)
	}
}
