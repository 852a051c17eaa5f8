package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wricardo/gobblets/game/engine"
	"github.com/wricardo/gobblets/game/service"
)

// Report is the outcome of one script run
type Report struct {
	Script    string
	SessionID string
	Steps     int
	Failures  []string
	Final     *engine.Snapshot
}

func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

func (r *Report) fail(format string, args ...interface{}) {
	r.Failures = append(r.Failures, fmt.Sprintf(format, args...))
}

// Runner plays scripts against a server
type Runner struct {
	client *Client
	logger *zap.Logger
	// keep leaves the session on the server after the run
	keep bool
}

func NewRunner(client *Client, logger *zap.Logger, keep bool) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{client: client, logger: logger, keep: keep}
}

// Run starts a session for script and sends every step in order. Mismatched
// messages and a wrong winner are reported as failures; transport errors and
// server-side errors abort the run.
func (r *Runner) Run(ctx context.Context, script *Script) (*Report, error) {
	info, err := r.client.CreateSession(ctx, script.Preset)
	if err != nil {
		return nil, err
	}

	report := &Report{Script: script.Name, SessionID: info.ID}
	logger := r.logger.With(zap.String("session", info.ID), zap.String("script", script.Name))
	logger.Info("session started", zap.String("config", info.ConfigName))

	if !r.keep {
		defer func() {
			if err := r.client.DeleteSession(ctx, info.ID); err != nil {
				logger.Warn("failed to delete session", zap.Error(err))
			}
		}()
	}

	for i, step := range script.Steps {
		result, err := r.click(ctx, info.ID, step)
		if err != nil {
			return report, fmt.Errorf("step %d (%s): %w", i+1, step, err)
		}
		report.Steps++

		logger.Debug("step",
			zap.Int("step", i+1),
			zap.Stringer("click", step),
			zap.String("message", result.Message),
			zap.String("active", string(result.GameState.Active)),
		)
		if step.Expect != "" && result.Message != step.Expect {
			report.fail("step %d (%s): expected %q, got %q", i+1, step, step.Expect, result.Message)
		}
	}

	final, err := r.client.State(ctx, info.ID)
	if err != nil {
		return report, err
	}
	report.Final = final

	if script.Winner != "" && final.Winner != script.Winner {
		report.fail("expected %s to win, status is %q", script.Winner, final.Status)
	}
	return report, nil
}

func (r *Runner) click(ctx context.Context, sessionID string, step Step) (*service.CommandResult, error) {
	if step.Reserve != nil {
		return r.client.SelectReserve(ctx, sessionID, *step.Reserve)
	}
	return r.client.SelectCell(ctx, sessionID, engine.Cell{Row: step.Cell[0], Col: step.Cell[1]})
}
