// Package terminal runs an interview interactively on stdin/stdout. It is the
// offline counterpart of the HTTP API: the same engine drives both, this
// package only reads lines and prints the engine's replies.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/BTreeMap/SurveyPipe/internal/flow"
	"github.com/BTreeMap/SurveyPipe/internal/models"
)

// Client runs interviews over a line-oriented reader and writer.
type Client struct {
	engine  *flow.Engine
	manager *flow.SessionManager
	in      *bufio.Scanner
	out     io.Writer
}

// NewClient creates a terminal client for one engine. Sessions are persisted
// through the manager after every turn so an interrupted interview can be
// inspected later.
func NewClient(engine *flow.Engine, manager *flow.SessionManager, in io.Reader, out io.Writer) *Client {
	return &Client{
		engine:  engine,
		manager: manager,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

// Run conducts one full interview, blocking until it completes, the input
// stream ends, or the context is cancelled.
func (c *Client) Run(ctx context.Context) error {
	session, err := c.manager.CreateSession(ctx, c.engine.Goal().Name)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("terminal.Client.Run: interview started", "session", session.ID, "goal", session.GoalName)

	messages, mode := c.engine.Start(session)
	c.print(messages)

	for mode != models.InputModeDone {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(c.out, "> ")
		if !c.in.Scan() {
			if err := c.in.Err(); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			slog.Info("terminal.Client.Run: input stream closed", "session", session.ID)
			return nil
		}
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}

		messages, mode, err = c.engine.Advance(ctx, session, line)
		if err != nil {
			return fmt.Errorf("failed to process input: %w", err)
		}
		if err := c.manager.SaveSession(ctx, session); err != nil {
			slog.Warn("terminal.Client.Run: failed to persist session", "session", session.ID, "error", err)
		}
		c.print(messages)
	}

	slog.Info("terminal.Client.Run: interview complete", "session", session.ID)
	return nil
}

func (c *Client) print(messages []string) {
	for _, msg := range messages {
		fmt.Fprintln(c.out, msg)
		fmt.Fprintln(c.out)
	}
}
