package conversation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hammamikhairi/ottoflow/internal/diagram"
	"github.com/hammamikhairi/ottoflow/internal/display"
	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/engine"
	"github.com/hammamikhairi/ottoflow/internal/logger"
)

// Cook is the part of the engine the line mode drives.
type Cook interface {
	Complete(ctx context.Context, sessionID string, step int) (*engine.Transition, error)
	Reopen(ctx context.Context, sessionID string, step int) (*engine.Transition, error)
	Board(ctx context.Context, sessionID string) (*engine.Board, error)
	Diagram(ctx context.Context, sessionID string, direction diagram.Direction) (string, error)
}

const prompt = "ottoflow> "

const helpText = `Commands:
  done N      mark step N done (d N, or just N)
  done        mark the only ready step done
  undo N      mark step N not done
  board       show every step
  ready       show steps you can do now
  diagram     print the recipe as a mermaid flowchart
  status      show progress
  quit        leave cook mode (progress is saved)`

// ReplOption configures a REPL.
type ReplOption func(*REPL)

// WithDirection sets the flowchart direction of the diagram command.
func WithDirection(d diagram.Direction) ReplOption {
	return func(r *REPL) {
		r.direction = d
	}
}

// WithWidth sets the column count used to wrap step summaries.
func WithWidth(w int) ReplOption {
	return func(r *REPL) {
		r.width = w
	}
}

// REPL is plain cook mode: one command per line, output as text.
type REPL struct {
	cook      Cook
	parser    domain.CommandParser
	notifier  domain.Notifier
	log       *logger.Logger
	out       io.Writer
	sessionID string
	direction diagram.Direction
	width     int
}

// NewREPL creates a line-mode runner for one session.
func NewREPL(cook Cook, parser domain.CommandParser, notifier domain.Notifier, log *logger.Logger, out io.Writer, sessionID string, opts ...ReplOption) *REPL {
	r := &REPL{
		cook:      cook,
		parser:    parser,
		notifier:  notifier,
		log:       log,
		out:       out,
		sessionID: sessionID,
		direction: diagram.TopBottom,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run prints the board, then reads commands from in until quit, end of
// input, or ctx is cancelled.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	if err := r.showBoard(ctx); err != nil {
		return err
	}
	r.println("Type 'help' for commands, 'quit' to exit.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		intent, err := r.parser.Parse(ctx, scanner.Text())
		if err != nil {
			r.log.Error("parsing input: %v", err)
			continue
		}
		r.log.Debug("intent: %s (step=%d)", intent.Type, intent.Step)

		if intent.Type == domain.IntentQuit {
			r.println("Progress saved. Bye!")
			return nil
		}
		r.handleIntent(ctx, intent)
	}
}

func (r *REPL) handleIntent(ctx context.Context, intent *domain.Intent) {
	var err error
	switch intent.Type {
	case domain.IntentDone:
		err = r.toggle(ctx, intent.Step, true)
	case domain.IntentUndo:
		err = r.toggle(ctx, intent.Step, false)
	case domain.IntentBoard:
		err = r.showBoard(ctx)
	case domain.IntentReady:
		err = r.showReady(ctx)
	case domain.IntentDiagram:
		err = r.showDiagram(ctx)
	case domain.IntentStatus:
		err = r.showStatus(ctx)
	case domain.IntentHelp:
		r.println(helpText)
	default:
		if intent.Raw != "" {
			r.println(fmt.Sprintf("I don't know %q. Type 'help' for commands.", intent.Raw))
		}
	}
	if err != nil {
		r.log.Warn("%s: %v", intent.Type, err)
		_ = r.notifier.NotifyUrgent(ctx, userMessage(err))
	}
}

// toggle completes (done) or reopens step, given one-based. Zero picks the
// only ready step for done.
func (r *REPL) toggle(ctx context.Context, step int, done bool) error {
	if step == 0 {
		if !done {
			r.println("Which step? Try 'undo 3'.")
			return nil
		}
		b, err := r.cook.Board(ctx, r.sessionID)
		if err != nil {
			return err
		}
		switch len(b.Ready) {
		case 0:
			r.println("No step is ready.")
			return nil
		case 1:
			step = b.Ready[0] + 1
		default:
			r.println("Which step? Ready: " + display.StepList(b.Ready) + ".")
			return nil
		}
	}

	var (
		tr  *engine.Transition
		err error
	)
	if done {
		tr, err = r.cook.Complete(ctx, r.sessionID, step-1)
	} else {
		tr, err = r.cook.Reopen(ctx, r.sessionID, step-1)
	}
	if err != nil {
		return err
	}

	b, err := r.cook.Board(ctx, r.sessionID)
	if err != nil {
		return err
	}
	msg := display.DescribeTransition(b, tr)
	if len(tr.Unblocked) > 0 || tr.SessionDone {
		return r.notifier.Notify(ctx, msg)
	}
	r.println(msg)
	return nil
}

func (r *REPL) showBoard(ctx context.Context) error {
	b, err := r.cook.Board(ctx, r.sessionID)
	if err != nil {
		return err
	}
	r.println(display.RenderBoard(b, r.width))
	r.println(display.RenderProgress(b, r.width))
	return nil
}

func (r *REPL) showReady(ctx context.Context) error {
	b, err := r.cook.Board(ctx, r.sessionID)
	if err != nil {
		return err
	}
	r.println(display.RenderReady(b, r.width))
	return nil
}

func (r *REPL) showDiagram(ctx context.Context) error {
	text, err := r.cook.Diagram(ctx, r.sessionID, r.direction)
	if err != nil {
		return err
	}
	fmt.Fprint(r.out, text)
	return nil
}

func (r *REPL) showStatus(ctx context.Context) error {
	b, err := r.cook.Board(ctx, r.sessionID)
	if err != nil {
		return err
	}
	r.println(fmt.Sprintf("%s, session %s", b.Recipe.Name, b.Session.ID))
	r.println(display.RenderProgress(b, r.width))
	return nil
}

func (r *REPL) println(s string) {
	fmt.Fprintln(r.out, s)
}

// userMessage turns engine errors into something a cook can act on.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrStepOutOfRange):
		return "There is no such step."
	case errors.Is(err, domain.ErrStepBlocked):
		return "Not yet: " + err.Error()
	case errors.Is(err, domain.ErrSessionNotActive):
		return "This session was abandoned."
	default:
		return "Something went wrong: " + err.Error()
	}
}
