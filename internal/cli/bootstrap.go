// Package cli provides the cobra commands for ecoprog.
package cli

import (
	"context"

	"github.com/example/ecoprog/internal/ctxutil"
)

// globalActor stores the acting identity for the current CLI invocation.
// Set once at startup by ConfigureActor.
var globalActor ctxutil.Actor

// ConfigureActor resolves the acting identity. Flag values win over the
// configured defaults.
func ConfigureActor(flagID string, flagAdmin bool, cfgID string, cfgAdmin bool) ctxutil.Actor {
	actor := ctxutil.Actor{ID: cfgID, Admin: cfgAdmin}
	if flagID != "" {
		actor.ID = flagID
	}
	if flagAdmin {
		actor.Admin = true
	}
	globalActor = actor
	return actor
}

// NewContext creates a context.Background() with the current actor embedded.
// CLI commands should use this instead of context.Background() directly.
func NewContext() context.Context {
	return ctxutil.WithActor(context.Background(), globalActor)
}
