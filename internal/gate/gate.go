// Package gate wraps handlers with permission and authorship checks.
//
// Gates never surface an error for a denied actor: a failed check skips the
// handler silently. Storage failures fail open so that a broken database
// cannot lock every screen.
package gate

import (
	"context"
	"log"
	"slices"

	"github.com/lpoto/discord-utility-bot/internal/registry"
	"github.com/lpoto/discord-utility-bot/internal/storage"
)

// Middleware wraps a handler with a cross-cutting check.
type Middleware func(next registry.Handler) registry.Handler

// Chain applies middlewares outermost-first.
func Chain(h registry.Handler, mws ...Middleware) registry.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RequireRoles allows the invocation only when the acting user holds one of
// the guild's configured roles for command. Admins bypass the check, and an
// unset option allows everyone.
func RequireRoles(store storage.ConfigStore, command string) Middleware {
	return func(next registry.Handler) registry.Handler {
		return func(ctx context.Context, inv *registry.Invocation) error {
			if inv.Actor.Admin {
				return next(ctx, inv)
			}
			required, err := store.GetOption(ctx, inv.Event.GuildID, command)
			if err != nil {
				log.Printf("roles gate: command=%s err=%v, allowing", command, err)
				return next(ctx, inv)
			}
			if len(required) == 0 {
				return next(ctx, inv)
			}
			for _, role := range inv.Actor.Roles {
				if slices.Contains(required, role) {
					return next(ctx, inv)
				}
			}
			log.Printf("roles gate: command=%s user=%s denied", command, inv.Actor.ID)
			return nil
		}
	}
}

// RequireAuthor allows the invocation only when the acting user authored the
// target document. Admins and users who may manage messages bypass the check,
// as do documents without a stored record.
func RequireAuthor(store storage.MessageStore) Middleware {
	return func(next registry.Handler) registry.Handler {
		return func(ctx context.Context, inv *registry.Invocation) error {
			if inv.Actor.Admin || inv.Actor.ManageMsgs {
				return next(ctx, inv)
			}
			rec, err := store.GetMessage(ctx, inv.Doc.ID, false)
			if err != nil {
				log.Printf("author gate: message=%s err=%v, allowing", inv.Doc.ID, err)
				return next(ctx, inv)
			}
			if rec.AuthorID != "" && rec.AuthorID != inv.Actor.ID {
				log.Printf("author gate: message=%s user=%s denied", inv.Doc.ID, inv.Actor.ID)
				return nil
			}
			return next(ctx, inv)
		}
	}
}
