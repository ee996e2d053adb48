// Package registry indexes command and game handlers by capability tag and
// owning screen type. The index is built once at startup from explicit
// declarations and is read-only afterwards.
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/lpoto/discord-utility-bot/internal/capability"
	"github.com/lpoto/discord-utility-bot/internal/transport"
)

// Invocation carries everything a handler needs for one event: the freshly
// fetched target document, the acting user, and the event's discriminants.
type Invocation struct {
	Doc   transport.Document
	Actor transport.Actor
	Event transport.Event

	// Control is the clicked control for ButtonClick invocations.
	Control transport.Control
	// Values holds menu selections for MenuSelect invocations; a back
	// control re-invocation carries the single transport.BackSentinel value.
	Values []string
}

// Back reports whether this invocation is a back-control re-invocation.
func (inv *Invocation) Back() bool {
	return len(inv.Values) == 1 && inv.Values[0] == transport.BackSentinel
}

// Handler responds to one event routed to a screen.
type Handler func(ctx context.Context, inv *Invocation) error

// Binding declares one handler under a capability tag.
type Binding struct {
	Tag     capability.Tag
	Handler Handler
}

// Command is a screen-owning command or game. Implementations declare their
// handlers statically through Bindings.
type Command interface {
	Name() string
	Description() string
	Bindings() []Binding
}

// Optional command interfaces discovered during Build.
type (
	// Serializer opts capability tags into resource-queue serialization.
	Serializer interface {
		SerializedTags() []capability.Tag
	}
	// AuthorGuardedDelete requires the delete control to pass the
	// authorship check.
	AuthorGuardedDelete interface {
		DeleteRequiresAuthor() bool
	}
	// AutoDeleter declares a default lifetime for the command's documents.
	AutoDeleter interface {
		DefaultDeletionTime() time.Duration
	}
	// HelpProvider contributes extra lines to the help screen.
	HelpProvider interface {
		HelpLines() []string
	}
	// Colored declares the command's embed color.
	Colored interface {
		Color() int
	}
)

type key struct {
	tag    capability.Tag
	screen string
}

// Info names one registered command or game.
type Info struct {
	Name        string
	Description string
}

// Registry is the immutable handler index.
type Registry struct {
	handlers   map[key][]Handler
	serialized map[key]bool

	commands []Info
	games    []Info

	descriptions  map[string]string
	helpLines     map[string][]string
	colors        map[string]int
	deleteGuarded map[string]bool
	deletionTimes map[string]time.Duration
}

// Builder accumulates registrations before Build freezes them.
type Builder struct {
	reg  *Registry
	errs []error
}

// NewBuilder returns an empty registry builder.
func NewBuilder() *Builder {
	return &Builder{reg: &Registry{
		handlers:      make(map[key][]Handler),
		serialized:    make(map[key]bool),
		descriptions:  make(map[string]string),
		helpLines:     make(map[string][]string),
		colors:        make(map[string]int),
		deleteGuarded: make(map[string]bool),
		deletionTimes: make(map[string]time.Duration),
	}}
}

// Add registers a command.
func (b *Builder) Add(cmd Command) *Builder {
	b.register(cmd, false)
	return b
}

// AddGame registers a game.
func (b *Builder) AddGame(cmd Command) *Builder {
	b.register(cmd, true)
	return b
}

func (b *Builder) register(cmd Command, game bool) {
	name := cmd.Name()
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("command with empty name"))
		return
	}
	if _, ok := b.reg.descriptions[name]; ok {
		b.errs = append(b.errs, fmt.Errorf("duplicate command name %q", name))
		return
	}
	b.reg.descriptions[name] = cmd.Description()
	info := Info{Name: name, Description: cmd.Description()}
	if game {
		b.reg.games = append(b.reg.games, info)
	} else {
		b.reg.commands = append(b.reg.commands, info)
	}

	for _, binding := range cmd.Bindings() {
		if !binding.Tag.Valid() {
			b.errs = append(b.errs, fmt.Errorf("command %q: invalid tag %q", name, binding.Tag))
			continue
		}
		if binding.Handler == nil {
			b.errs = append(b.errs, fmt.Errorf("command %q: nil handler for %q", name, binding.Tag))
			continue
		}
		k := key{tag: binding.Tag, screen: name}
		b.reg.handlers[k] = append(b.reg.handlers[k], binding.Handler)
	}

	if s, ok := cmd.(Serializer); ok {
		for _, tag := range s.SerializedTags() {
			b.reg.serialized[key{tag: tag, screen: name}] = true
		}
	}
	if g, ok := cmd.(AuthorGuardedDelete); ok && g.DeleteRequiresAuthor() {
		b.reg.deleteGuarded[name] = true
	}
	if d, ok := cmd.(AutoDeleter); ok {
		b.reg.deletionTimes[name] = d.DefaultDeletionTime()
	}
	if h, ok := cmd.(HelpProvider); ok {
		b.reg.helpLines[name] = h.HelpLines()
	}
	if c, ok := cmd.(Colored); ok {
		b.reg.colors[name] = c.Color()
	}
}

// Build freezes the registry. It fails on duplicate names, invalid tags, and
// nil handlers.
func (b *Builder) Build() (*Registry, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("build registry: %w", b.errs[0])
	}
	return b.reg, nil
}

// Lookup returns the ordered handlers registered for (tag, screenType).
// Unregistered pairs yield an empty slice.
func (r *Registry) Lookup(tag capability.Tag, screenType string) []Handler {
	return r.handlers[key{tag: tag, screen: screenType}]
}

// Serialized reports whether (screenType, tag) opted into queue
// serialization.
func (r *Registry) Serialized(screenType string, tag capability.Tag) bool {
	return r.serialized[key{tag: tag, screen: screenType}]
}

// Commands lists registered commands in registration order.
func (r *Registry) Commands() []Info { return r.commands }

// Games lists registered games in registration order.
func (r *Registry) Games() []Info { return r.games }

// Registered reports whether name is a registered command or game.
func (r *Registry) Registered(name string) bool {
	_, ok := r.descriptions[name]
	return ok
}

// IsGame reports whether name is a registered game.
func (r *Registry) IsGame(name string) bool {
	for _, g := range r.games {
		if g.Name == name {
			return true
		}
	}
	return false
}

// Description returns a command's description, empty when unregistered.
func (r *Registry) Description(name string) string { return r.descriptions[name] }

// HelpLines returns the extra help lines a command contributes.
func (r *Registry) HelpLines(name string) []string { return r.helpLines[name] }

// Color returns a command's embed color.
func (r *Registry) Color(name string) (int, bool) {
	c, ok := r.colors[name]
	return c, ok
}

// DeleteRequiresAuthor reports whether the delete control on name's screens
// must pass the authorship check.
func (r *Registry) DeleteRequiresAuthor(name string) bool { return r.deleteGuarded[name] }

// DeletionTime returns a command's default document lifetime.
func (r *Registry) DeletionTime(name string) (time.Duration, bool) {
	d, ok := r.deletionTimes[name]
	return d, ok
}
