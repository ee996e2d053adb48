// Package dispatch classifies inbound gateway events and routes them to the
// registered screen handlers. It owns the main menu, the cross-cutting
// delete/help/back/home controls, and the tombstone cleanup for documents
// that disappeared out from under their records.
package dispatch

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/lpoto/discord-utility-bot/internal/capability"
	"github.com/lpoto/discord-utility-bot/internal/gate"
	"github.com/lpoto/discord-utility-bot/internal/metrics"
	"github.com/lpoto/discord-utility-bot/internal/queue"
	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/screen"
	"github.com/lpoto/discord-utility-bot/internal/storage"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

// MainScreen is the screen type of the top-level menu document.
const MainScreen = "Main"

// HelpScreen is the screen type of the in-place help view.
const HelpScreen = "Help"

// Purger handles the mention-triggered bulk delete.
type Purger interface {
	Purge(ctx context.Context, ev transport.Event, count int) error
}

var purgePattern = regexp.MustCompile(`^(?:clear|delete|purge)\s+(\d+)$`)

// Options configures a Dispatcher.
type Options struct {
	Gateway  transport.Gateway
	Store    storage.Store
	Registry *registry.Registry
	Metrics  *metrics.Metrics
	Purger   Purger
	Version  string
}

// Dispatcher runs the event loop. One goroutine per event; the resource
// queue is the only coordination between events targeting the same document.
type Dispatcher struct {
	gw      transport.Gateway
	store   storage.Store
	reg     *registry.Registry
	met     *metrics.Metrics
	purger  Purger
	version string
	q       *queue.Queue
	wg      sync.WaitGroup
}

// New builds a Dispatcher.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		gw:      opts.Gateway,
		store:   opts.Store,
		reg:     opts.Registry,
		met:     opts.Metrics,
		purger:  opts.Purger,
		version: opts.Version,
	}
	d.q = queue.New(
		func(key string, err error) { log.Printf("queue: key=%s err=%v", key, err) },
		func(err error) bool { return errors.Is(err, transport.ErrLayoutOverflow) },
	)
	return d
}

// Run restores deletion timers, then consumes the event stream until it
// closes or ctx is canceled. In-flight handlers are waited for on exit.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.restoreDeletionTimers(ctx); err != nil {
		log.Printf("restore deletion timers: err=%v", err)
	}
	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			return ctx.Err()
		case ev, ok := <-d.gw.Events():
			if !ok {
				d.wg.Wait()
				return nil
			}
			d.wg.Add(1)
			go func() {
				defer d.wg.Done()
				d.Handle(ctx, ev)
			}()
		}
	}
}

// Handle classifies and routes one event.
func (d *Dispatcher) Handle(ctx context.Context, ev transport.Event) {
	d.met.Event(string(ev.Kind))
	if ev.Actor.Bot {
		return
	}
	switch ev.Kind {
	case transport.KindMention:
		d.handleMention(ctx, ev)
	case transport.KindReply:
		d.handleMessage(ctx, ev, capability.Reply)
	case transport.KindThreadMessage:
		d.handleMessage(ctx, ev, capability.Thread)
	case transport.KindButtonClick:
		d.handleButton(ctx, ev)
	case transport.KindMenuSelect:
		d.handleMenu(ctx, ev)
	case transport.KindRawDelete:
		d.cleanup(ctx, ev.DocumentID)
	case transport.KindRawBulkDelete:
		for _, id := range ev.DocumentIDs {
			d.cleanup(ctx, id)
		}
	}
}

func (d *Dispatcher) handleMention(ctx context.Context, ev transport.Event) {
	content := strings.ToLower(strings.TrimSpace(ev.Content))
	if m := purgePattern.FindStringSubmatch(content); m != nil {
		count, err := strconv.Atoi(m[1])
		if err != nil || count < 1 || count > 50 {
			d.warn(ctx, ev.ChannelID, "purge count must be between 1 and 50")
			return
		}
		if d.purger == nil {
			return
		}
		if !ev.Actor.Admin {
			log.Printf("purge: user=%s denied", ev.Actor.ID)
			return
		}
		if err := d.purger.Purge(ctx, ev, count); err != nil {
			log.Printf("purge: err=%v", err)
		}
		return
	}
	if err := d.sendMainMenu(ctx, ev); err != nil {
		log.Printf("main menu: err=%v", err)
	}
}

// handleMessage routes reply and thread events to the referenced document's
// screen handlers.
func (d *Dispatcher) handleMessage(ctx context.Context, ev transport.Event, tag capability.Tag) {
	doc, screenType, ok := d.resolve(ctx, ev)
	if !ok {
		return
	}
	d.route(ctx, ev, doc, screenType, tag, ev.Values)
}

func (d *Dispatcher) handleButton(ctx context.Context, ev transport.Event) {
	doc, screenType, ok := d.resolve(ctx, ev)
	if !ok {
		return
	}
	control, found := doc.Control(ev.ControlID)
	if !found {
		log.Printf("button: doc=%s control=%s unknown", doc.ID, ev.ControlID)
		return
	}
	switch control.Label {
	case transport.DeleteLabel:
		d.handleDelete(ctx, ev, doc, screenType)
		return
	case transport.HelpLabel:
		d.handleHelp(ctx, ev, doc, screenType)
		return
	case transport.HomeLabel:
		d.handleHome(ctx, ev, doc)
		return
	case transport.BackLabel:
		d.handleBack(ctx, ev, doc, screenType)
		return
	}
	d.route(ctx, ev, doc, screenType, capability.ButtonClick, nil)
}

func (d *Dispatcher) handleMenu(ctx context.Context, ev transport.Event) {
	doc, screenType, ok := d.resolve(ctx, ev)
	if !ok {
		return
	}
	if screenType == MainScreen {
		// Main menu selections open the chosen command's screen. Commands
		// declaring a default lifetime get their deletion scheduled here.
		for _, value := range ev.Values {
			if !d.reg.Registered(value) {
				continue
			}
			d.route(ctx, ev, doc, value, capability.MenuSelect, []string{value})
			if delay, ok := d.reg.DeletionTime(value); ok {
				d.scheduleDeletion(ctx, doc, delay)
			}
		}
		return
	}
	d.route(ctx, ev, doc, screenType, capability.MenuSelect, ev.Values)
}

// resolve fetches the event's target document and decodes its screen type.
// A vanished document is tombstoned; a foreign footer is ignored.
func (d *Dispatcher) resolve(ctx context.Context, ev transport.Event) (transport.Document, string, bool) {
	doc, err := d.gw.Document(ctx, ev.ChannelID, ev.DocumentID)
	if errors.Is(err, transport.ErrNotFound) {
		d.cleanup(ctx, ev.DocumentID)
		return transport.Document{}, "", false
	}
	if err != nil {
		log.Printf("resolve: doc=%s err=%v", ev.DocumentID, err)
		return transport.Document{}, "", false
	}
	screenType, ok := screen.Decode(doc.Footer)
	if !ok {
		return transport.Document{}, "", false
	}
	return doc, screenType, true
}

// route invokes the handlers registered for (tag, base screen type),
// serializing through the queue when the screen opted in. Handlers run behind
// the role gate for the owning command.
func (d *Dispatcher) route(ctx context.Context, ev transport.Event, doc transport.Document, screenType string, tag capability.Tag, values []string) {
	base := BaseType(screenType)
	handlers := d.reg.Lookup(tag, base)
	if len(handlers) == 0 {
		return
	}
	control, _ := doc.Control(ev.ControlID)
	inv := &registry.Invocation{
		Doc:     doc,
		Actor:   ev.Actor,
		Event:   ev,
		Control: control,
		Values:  values,
	}
	call := func(ctx context.Context) error {
		var defect error
		for _, h := range handlers {
			d.met.Invocation(string(tag), base)
			gated := gate.Chain(h, gate.RequireRoles(d.store, base))
			if err := gated(ctx, inv); err != nil {
				if errors.Is(err, transport.ErrNotFound) {
					d.cleanup(ctx, doc.ID)
					return nil
				}
				if errors.Is(err, transport.ErrLayoutOverflow) {
					defect = err
					continue
				}
				d.met.HandlerError(base)
				log.Printf("handler: screen=%s tag=%s err=%v", base, tag, err)
			}
		}
		return defect
	}

	var err error
	if d.reg.Serialized(base, tag) {
		err = d.q.Enqueue(ctx, string(tag)+":"+doc.ID, call)
		d.met.SetQueueDepth(d.q.Depth())
	} else {
		err = call(ctx)
	}
	if errors.Is(err, transport.ErrLayoutOverflow) {
		d.warn(ctx, ev.ChannelID, "this screen declares too many controls")
		log.Printf("handler: screen=%s tag=%s err=%v", base, tag, err)
	}
}

// cleanup drops the durable record of a document that no longer exists. Info
// rows cascade with the record.
func (d *Dispatcher) cleanup(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := d.store.DeleteMessage(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("cleanup: doc=%s err=%v", id, err)
		return
	}
	log.Printf("cleanup: doc=%s record removed", id)
}

func (d *Dispatcher) warn(ctx context.Context, channelID, text string) {
	if err := d.gw.Warn(ctx, channelID, text); err != nil {
		log.Printf("warn: channel=%s err=%v", channelID, err)
	}
}

// BaseType strips a screen state suffix: "ConnectFour_ended" owns the same
// handlers as "ConnectFour".
func BaseType(screenType string) string {
	base, _, _ := strings.Cut(screenType, "_")
	return base
}

// Footer encodes a screen type with the dispatcher's version label.
func (d *Dispatcher) Footer(screenType string) string {
	return screen.Encode(screenType, d.version, "")
}
