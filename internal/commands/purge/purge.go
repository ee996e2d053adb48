// Package purge implements the mention-triggered bulk delete. It removes
// only this bot's screens, identified by a decodable footer, and leaves
// every other message alone.
package purge

import (
	"context"
	"fmt"
	"log"

	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

// Command bulk-deletes the bot's screens from a channel.
type Command struct {
	gw transport.Gateway
}

// New builds the purge command.
func New(gw transport.Gateway) *Command {
	return &Command{gw: gw}
}

// Purge deletes up to count of the bot's screens in the event's channel.
func (c *Command) Purge(ctx context.Context, ev transport.Event, count int) error {
	deleted, err := c.gw.Purge(ctx, ev.ChannelID, count, func(doc transport.Document) bool {
		_, ok := screen.Decode(doc.Footer)
		return !ok
	})
	if err != nil {
		return fmt.Errorf("purge channel %s: %w", ev.ChannelID, err)
	}
	log.Printf("purge: channel=%s user=%s deleted=%d", ev.ChannelID, ev.Actor.ID, deleted)
	return c.gw.Notify(ctx, ev.ChannelID, fmt.Sprintf("Removed %d message(s).", deleted))
}
