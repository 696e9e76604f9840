package engine

import (
	"context"
	"log/slog"
	"strings"

	"github.com/torwart-dev/torwart/pkg/credstore"
	"github.com/torwart-dev/torwart/pkg/debug"
	"github.com/torwart-dev/torwart/pkg/observability"
	"github.com/torwart-dev/torwart/pkg/persist"
	"github.com/torwart-dev/torwart/pkg/runner"
)

// Engine evaluates authorization requests against the shared credential
// store and performs the associated side effects.
type Engine struct {
	store  *credstore.Store
	pers   persist.Persister
	run    runner.Runner
	logger *slog.Logger
}

// New creates an engine. The persister and runner are required; pass
// persist.Noop{} when no durable path is configured.
func New(store *credstore.Store, pers persist.Persister, run runner.Runner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, pers: pers, run: run, logger: logger}
}

// Evaluate runs the ordered checks against the aggregate and returns the
// first match. It performs no mutation, which keeps the precedence policy
// testable on its own.
func Evaluate(c *credstore.Credentials, sig Signals) Verdict {
	if sig.ClientIP.IsValid() && c.AllowedIP(sig.ClientIP) {
		return Verdict{Method: ClientIP}
	}

	if sig.BasicAuthHeader != "" {
		encoded := strings.TrimPrefix(sig.BasicAuthHeader, "Basic ")
		if user, ok := c.LookupPassword(encoded); ok {
			return Verdict{Method: BasicAuth, User: user}
		}
	}

	if sig.QueryToken != "" {
		if user, ok := c.LookupToken(sig.QueryToken); ok {
			return Verdict{Method: BypassTokenQuery, User: user}
		}
	}

	if sig.HeaderToken != "" {
		if user, ok := c.LookupToken(sig.HeaderToken); ok {
			return Verdict{Method: BypassTokenHeader, User: user}
		}
	}

	if token := lastPathSegment(sig.PathTail); token != "" {
		if user, ok := c.LookupToken(token); ok {
			return Verdict{Method: BypassTokenPath, User: user}
		}
	}

	return Verdict{Method: Unauthenticated}
}

// lastPathSegment returns the last non-empty /-separated component.
func lastPathSegment(tail string) string {
	parts := strings.Split(tail, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}

// Authorize evaluates the request signals and, on an identity-bearing
// match, applies the learn-step and triggers the user's commands.
//
// The store lock covers the lookup and the allowlist mutation so two
// concurrent authentications from the same IP cannot lose an update. The
// persister and the command runner both operate on snapshots after the
// lock is released: persistence failure is logged and counted but never
// rolls back the in-memory state, and commands run regardless of whether
// persistence succeeded.
func (e *Engine) Authorize(ctx context.Context, sig Signals) Verdict {
	var (
		verdict Verdict
		cmds    []credstore.UserCommand
		learn   bool
	)

	snapshot := e.store.Update(func(c *credstore.Credentials) {
		verdict = Evaluate(c, sig)
		if !verdict.IdentityBearing() {
			return
		}
		if sig.ClientIP.IsValid() {
			c.AddIPBinding(sig.ClientIP, verdict.User)
			learn = true
		}
		cmds = c.CommandsFor(verdict.User)
	})

	observability.AuthVerdictsTotal.WithLabelValues(verdict.Method.String()).Inc()
	debug.Log("engine", "request evaluated",
		"method", verdict.Method.String(),
		"user", verdict.User.String(),
		"learn", learn,
		"commands", len(cmds),
	)

	if learn {
		if err := e.pers.Save(ctx, snapshot); err != nil {
			observability.PersistTotal.WithLabelValues("error").Inc()
			e.logger.Error("persisting credential store",
				"user", verdict.User.String(),
				"ip", sig.ClientIP.String(),
				"error", err,
			)
		} else {
			observability.PersistTotal.WithLabelValues("ok").Inc()
			e.logger.Info("successful authentication, ip added to allowlist",
				"user", verdict.User.String(),
				"ip", sig.ClientIP.String(),
				"method", verdict.Method.String(),
			)
		}
	}

	if verdict.IdentityBearing() && len(cmds) > 0 {
		e.run.Run(ctx, verdict.User, cmds)
	}

	return verdict
}
