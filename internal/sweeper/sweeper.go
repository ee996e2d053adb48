// Package sweeper periodically removes documents whose deletion time passed
// while the process was down or whose timers were lost. It complements the
// gateway's in-memory deletion timers with a durable backstop.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/adhocore/gronx"

	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

// Sweeper runs an expiry sweep on a cron schedule.
type Sweeper struct {
	gw       transport.Gateway
	store    storage.MessageStore
	schedule string
}

// New validates the cron schedule and builds a Sweeper. An empty schedule
// disables sweeping.
func New(gw transport.Gateway, store storage.MessageStore, schedule string) (*Sweeper, error) {
	if schedule != "" && !gronx.New().IsValid(schedule) {
		return nil, fmt.Errorf("invalid sweep schedule %q", schedule)
	}
	return &Sweeper{gw: gw, store: store, schedule: schedule}, nil
}

// Run sweeps on every cron tick until ctx is canceled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.schedule == "" {
		<-ctx.Done()
		return nil
	}
	for {
		next, err := gronx.NextTickAfter(s.schedule, time.Now(), false)
		if err != nil {
			return fmt.Errorf("next sweep tick: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Until(next)):
		}
		removed, err := s.Sweep(ctx)
		if err != nil {
			log.Printf("sweep: err=%v", err)
			continue
		}
		if removed > 0 {
			log.Printf("sweep: removed=%d", removed)
		}
	}
}

// Sweep deletes every document whose deletion time has passed, and drops
// records whose document already vanished. It returns the number of records
// removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	records, err := s.store.ListMessagesByInfo(ctx, storage.InfoDeletionTime)
	if err != nil {
		return 0, fmt.Errorf("list deletion records: %w", err)
	}
	now := time.Now()
	removed := 0
	for _, rec := range records {
		if len(rec.Info) == 0 {
			continue
		}
		at, err := time.Parse(time.RFC3339, rec.Info[0].Value)
		if err != nil {
			log.Printf("sweep: doc=%s bad deletion_time %q", rec.ID, rec.Info[0].Value)
			continue
		}
		if at.After(now) {
			continue
		}
		if err := s.gw.Delete(ctx, rec.ChannelID, rec.ID); err != nil && !errors.Is(err, transport.ErrNotFound) {
			log.Printf("sweep: doc=%s err=%v", rec.ID, err)
			continue
		}
		if err := s.store.DeleteMessage(ctx, rec.ID); err != nil {
			log.Printf("sweep: doc=%s err=%v", rec.ID, err)
			continue
		}
		removed++
	}
	return removed, nil
}
