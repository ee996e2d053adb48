package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

// restoreDeletionTimers re-registers deletion timers for records carrying a
// deletion_time info row. Expired documents are deleted immediately; records
// whose document already vanished are cleaned up.
func (d *Dispatcher) restoreDeletionTimers(ctx context.Context) error {
	records, err := d.store.ListMessagesByInfo(ctx, storage.InfoDeletionTime)
	if err != nil {
		return fmt.Errorf("list deletion records: %w", err)
	}
	now := time.Now()
	for _, rec := range records {
		if len(rec.Info) == 0 {
			continue
		}
		at, err := time.Parse(time.RFC3339, rec.Info[0].Value)
		if err != nil {
			log.Printf("restore: doc=%s bad deletion_time %q", rec.ID, rec.Info[0].Value)
			d.cleanupTimer(ctx, rec)
			continue
		}

		if _, err := d.gw.Document(ctx, rec.ChannelID, rec.ID); err != nil {
			if errors.Is(err, transport.ErrNotFound) {
				d.cleanup(ctx, rec.ID)
			} else {
				log.Printf("restore: doc=%s err=%v", rec.ID, err)
			}
			continue
		}

		if delay := at.Sub(now); delay > 0 {
			d.gw.ScheduleDelete(rec.ChannelID, rec.ID, delay)
			log.Printf("restore: doc=%s delete in %s", rec.ID, delay.Round(time.Second))
			continue
		}
		if err := d.gw.Delete(ctx, rec.ChannelID, rec.ID); err != nil && !errors.Is(err, transport.ErrNotFound) {
			log.Printf("restore: doc=%s err=%v", rec.ID, err)
			continue
		}
		d.cleanup(ctx, rec.ID)
	}
	return nil
}

func (d *Dispatcher) cleanupTimer(ctx context.Context, rec storage.MessageRecord) {
	if err := d.store.DeleteMessageInfo(ctx, rec.ID, storage.InfoDeletionTime, rec.Info[0].UserID); err != nil {
		log.Printf("restore: doc=%s err=%v", rec.ID, err)
	}
}

// scheduleDeletion stores a document's deletion timestamp and registers the
// matching timer, so a restart restores it.
func (d *Dispatcher) scheduleDeletion(ctx context.Context, doc transport.Document, delay time.Duration) {
	at := time.Now().Add(delay)
	row := storage.InfoRow{Name: storage.InfoDeletionTime, Value: at.Format(time.RFC3339)}
	if err := d.store.AddMessageInfo(ctx, doc.ID, row); err != nil {
		log.Printf("schedule: doc=%s err=%v", doc.ID, err)
		return
	}
	d.gw.ScheduleDelete(doc.ChannelID, doc.ID, delay)
	log.Printf("schedule: doc=%s delete in %s", doc.ID, delay)
}
