package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/test/mock"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

func seed(t *testing.T, gw *mock.Gateway, store *mock.Store, id string, at time.Time) {
	t.Helper()
	gw.Docs[id] = transport.Document{ID: id, ChannelID: "chan"}
	err := store.AddMessage(context.Background(), storage.MessageRecord{
		ID: id, ChannelID: "chan", Info: []storage.InfoRow{
			{Name: storage.InfoDeletionTime, Value: at.Format(time.RFC3339)},
		},
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestSweepDeletesOnlyExpired(t *testing.T) {
	gw := mock.NewGateway()
	store := mock.NewStore()
	seed(t, gw, store, "expired", time.Now().Add(-time.Minute))
	seed(t, gw, store, "pending", time.Now().Add(time.Hour))

	s, err := New(gw, store, "* * * * *")
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := gw.Doc("expired"); ok {
		t.Fatal("expected expired document deleted")
	}
	if _, ok := gw.Doc("pending"); !ok {
		t.Fatal("expected pending document to survive")
	}
	if _, err := store.GetMessage(context.Background(), "pending", false); err != nil {
		t.Fatalf("expected pending record to survive, got %v", err)
	}
}

func TestSweepDropsRecordForVanishedDocument(t *testing.T) {
	gw := mock.NewGateway()
	store := mock.NewStore()
	seed(t, gw, store, "gone", time.Now().Add(-time.Minute))
	delete(gw.Docs, "gone")

	s, err := New(gw, store, "* * * * *")
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	if _, err := s.Sweep(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if _, err := store.GetMessage(context.Background(), "gone", false); err == nil {
		t.Fatal("expected record removed")
	}
}

func TestSweepSkipsMalformedTimestamps(t *testing.T) {
	gw := mock.NewGateway()
	store := mock.NewStore()
	gw.Docs["bad"] = transport.Document{ID: "bad", ChannelID: "chan"}
	err := store.AddMessage(context.Background(), storage.MessageRecord{
		ID: "bad", ChannelID: "chan", Info: []storage.InfoRow{
			{Name: storage.InfoDeletionTime, Value: "not-a-time"},
		},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	s, err := New(gw, store, "* * * * *")
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected nothing removed, got %d", removed)
	}
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	if _, err := New(mock.NewGateway(), mock.NewStore(), "not a cron"); err == nil {
		t.Fatal("expected invalid schedule error")
	}
}
