package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/lpoto/discord-utility-bot/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir() + "/bot.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMessageRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := storage.MessageRecord{
		ID:        "msg-1",
		ChannelID: "chan-1",
		AuthorID:  "user-1",
		Type:      "Poll",
		Info: []storage.InfoRow{
			{Name: "deletion_time", Value: "2026-08-28T00:00:00Z"},
			{Name: "vote", Value: "", UserID: "user-2"},
		},
	}
	if err := store.AddMessage(ctx, rec); err != nil {
		t.Fatalf("add message: %v", err)
	}

	got, err := store.GetMessage(ctx, "msg-1", true)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got.AuthorID != "user-1" || got.Type != "Poll" {
		t.Fatalf("unexpected record %+v", got)
	}
	if len(got.Info) != 2 {
		t.Fatalf("expected 2 info rows, got %d", len(got.Info))
	}
}

func TestUpdateMessageAuthor(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := storage.MessageRecord{ID: "msg-1", ChannelID: "chan-1", AuthorID: "user-1", Type: "Main"}
	if err := store.AddMessage(ctx, rec); err != nil {
		t.Fatalf("add message: %v", err)
	}
	if err := store.UpdateMessageAuthor(ctx, "msg-1", "user-2"); err != nil {
		t.Fatalf("update author: %v", err)
	}
	got, err := store.GetMessage(ctx, "msg-1", false)
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got.AuthorID != "user-2" {
		t.Fatalf("expected user-2, got %q", got.AuthorID)
	}

	if err := store.UpdateMessageAuthor(ctx, "missing", "user-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetMessageNotFound(t *testing.T) {
	store := openTestStore(t)
	if _, err := store.GetMessage(context.Background(), "missing", false); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMessageCascadesInfoRows(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	rec := storage.MessageRecord{
		ID:        "msg-1",
		ChannelID: "chan-1",
		Info: []storage.InfoRow{
			{Name: "vote", UserID: "u1"},
			{Name: "vote", UserID: "u2"},
		},
	}
	if err := store.AddMessage(ctx, rec); err != nil {
		t.Fatalf("add message: %v", err)
	}
	if err := store.DeleteMessage(ctx, "msg-1"); err != nil {
		t.Fatalf("delete message: %v", err)
	}

	rows, err := store.GetMessageInfo(ctx, "msg-1", "", "")
	if err != nil {
		t.Fatalf("get message info: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no orphaned info rows, got %d", len(rows))
	}
}

func TestMessageInfoFilters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.AddMessage(ctx, storage.MessageRecord{ID: "m", ChannelID: "c"}); err != nil {
		t.Fatalf("add message: %v", err)
	}
	rowsIn := []storage.InfoRow{
		{Name: "vote", Value: "yes", UserID: "u1"},
		{Name: "vote", Value: "no", UserID: "u2"},
		{Name: "word", Value: "GOPHER", UserID: "u1"},
	}
	for _, row := range rowsIn {
		if err := store.AddMessageInfo(ctx, "m", row); err != nil {
			t.Fatalf("add info: %v", err)
		}
	}

	votes, err := store.GetMessageInfo(ctx, "m", "vote", "")
	if err != nil {
		t.Fatalf("get votes: %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("expected 2 votes, got %d", len(votes))
	}

	u1, err := store.GetMessageInfo(ctx, "m", "vote", "u1")
	if err != nil {
		t.Fatalf("get u1 vote: %v", err)
	}
	if len(u1) != 1 || u1[0].Value != "yes" {
		t.Fatalf("expected u1 yes vote, got %+v", u1)
	}

	if err := store.DeleteMessageInfo(ctx, "m", "vote", "u1"); err != nil {
		t.Fatalf("delete info: %v", err)
	}
	votes, err = store.GetMessageInfo(ctx, "m", "vote", "")
	if err != nil {
		t.Fatalf("get votes after delete: %v", err)
	}
	if len(votes) != 1 || votes[0].UserID != "u2" {
		t.Fatalf("expected only u2 vote, got %+v", votes)
	}
}

func TestListMessagesByInfo(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		rec := storage.MessageRecord{ID: id, ChannelID: "c", Info: []storage.InfoRow{
			{Name: "deletion_time", Value: "t-" + id},
		}}
		if err := store.AddMessage(ctx, rec); err != nil {
			t.Fatalf("add message %s: %v", id, err)
		}
	}
	if err := store.AddMessage(ctx, storage.MessageRecord{ID: "plain", ChannelID: "c"}); err != nil {
		t.Fatalf("add plain message: %v", err)
	}

	recs, err := store.ListMessagesByInfo(ctx, "deletion_time")
	if err != nil {
		t.Fatalf("list by info: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	for _, rec := range recs {
		if len(rec.Info) != 1 || rec.Info[0].Name != "deletion_time" {
			t.Fatalf("expected single deletion_time row, got %+v", rec.Info)
		}
	}
}

func TestOptionLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	values, err := store.GetOption(ctx, "g", "Poll")
	if err != nil {
		t.Fatalf("get unset option: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty option, got %v", values)
	}

	if err := store.SetOption(ctx, "g", "Poll", []string{"mods", "admins"}); err != nil {
		t.Fatalf("set option: %v", err)
	}
	values, err = store.GetOption(ctx, "g", "Poll")
	if err != nil {
		t.Fatalf("get option: %v", err)
	}
	if len(values) != 2 || values[0] != "mods" {
		t.Fatalf("expected [mods admins], got %v", values)
	}

	if err := store.SetOption(ctx, "g", "Poll", []string{"everyone"}); err != nil {
		t.Fatalf("replace option: %v", err)
	}
	values, err = store.GetOption(ctx, "g", "Poll")
	if err != nil {
		t.Fatalf("get replaced option: %v", err)
	}
	if len(values) != 1 || values[0] != "everyone" {
		t.Fatalf("expected [everyone], got %v", values)
	}

	if err := store.DeleteOption(ctx, "g", "Poll"); err != nil {
		t.Fatalf("delete option: %v", err)
	}
	values, err = store.GetOption(ctx, "g", "Poll")
	if err != nil {
		t.Fatalf("get deleted option: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected empty option after delete, got %v", values)
	}
}

func TestCounters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if _, err := store.GetCounter(ctx, "g", "u", "ConnectFour_wins"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	value, err := store.IncrementCounter(ctx, "g", "u", "ConnectFour_wins", 1)
	if err != nil {
		t.Fatalf("increment counter: %v", err)
	}
	if value != 1 {
		t.Fatalf("expected 1, got %d", value)
	}
	value, err = store.IncrementCounter(ctx, "g", "u", "ConnectFour_wins", 1)
	if err != nil {
		t.Fatalf("increment counter: %v", err)
	}
	if value != 2 {
		t.Fatalf("expected 2, got %d", value)
	}

	if _, err := store.IncrementCounter(ctx, "g", "other", "ConnectFour_wins", 5); err != nil {
		t.Fatalf("increment other: %v", err)
	}
	counters, err := store.ListCounters(ctx, "g", "ConnectFour_wins")
	if err != nil {
		t.Fatalf("list counters: %v", err)
	}
	if len(counters) != 2 {
		t.Fatalf("expected 2 counters, got %d", len(counters))
	}
	if counters[0].UserID != "other" || counters[0].Value != 5 {
		t.Fatalf("expected descending order, got %+v", counters)
	}
}
