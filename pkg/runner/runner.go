// Package runner executes a user's configured post-authentication commands.
//
// Execution is a capability the decision engine depends on, so tests swap
// in a recording fake and never start real processes. Failures are captured
// for diagnostics only; they never reach the HTTP caller and never stop the
// remaining commands.
package runner

import (
	"context"
	"log/slog"
	"os/exec"
	"time"

	"github.com/torwart-dev/torwart/pkg/credstore"
	"github.com/torwart-dev/torwart/pkg/debug"
	"github.com/torwart-dev/torwart/pkg/observability"
)

// Runner executes a user's command list sequentially, in list order.
type Runner interface {
	Run(ctx context.Context, username credstore.Username, cmds []credstore.UserCommand)
}

// ExecRunner runs commands as real OS processes. Each command is the
// literal program to invoke, with no arguments and no shell interpretation,
// in its configured working directory.
type ExecRunner struct {
	// Timeout bounds each individual command. A hung command must not
	// hold resources forever; zero falls back to DefaultTimeout.
	Timeout time.Duration

	Logger *slog.Logger
}

// DefaultTimeout bounds a single command execution.
const DefaultTimeout = 30 * time.Second

// Ensure ExecRunner implements Runner at compile time.
var _ Runner = (*ExecRunner)(nil)

// Run invokes each command in order. A failing command is logged and
// counted, then the next command runs.
func (r *ExecRunner) Run(ctx context.Context, username credstore.Username, cmds []credstore.UserCommand) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	for _, cmd := range cmds {
		cmdCtx, cancel := context.WithTimeout(ctx, timeout)
		c := exec.CommandContext(cmdCtx, cmd.Command)
		c.Dir = cmd.Path
		output, err := c.CombinedOutput()
		cancel()

		if err != nil {
			observability.UserCommandsTotal.WithLabelValues("error").Inc()
			logger.Warn("user command failed",
				"user", username.String(),
				"command", cmd.String(),
				"output", string(output),
				"error", err,
			)
			continue
		}

		observability.UserCommandsTotal.WithLabelValues("ok").Inc()
		debug.Log("runner", "user command completed",
			"user", username.String(),
			"command", cmd.String(),
			"output", debug.Truncate(string(output), 512),
		)
	}
}
