package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hammamikhairi/ottoflow/internal/conversation"
	"github.com/hammamikhairi/ottoflow/internal/diagram"
	"github.com/hammamikhairi/ottoflow/internal/display"
	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/reminder"
	"github.com/hammamikhairi/ottoflow/internal/speech"
)

type cookOptions struct {
	plain     bool
	sessionID string
	servings  int
	fresh     bool
	noChime   bool
	remind    time.Duration
}

func newCookCmd(a *app) *cobra.Command {
	var opts cookOptions
	cmd := &cobra.Command{
		Use:     "cook <recipe>",
		GroupID: GroupCook,
		Short:   "Cook a recipe step by step",
		Long: `Start or resume a cooking session. Steps are checked off in any order
their dependencies allow. Progress is saved after every change.

In a terminal this opens a checklist (space to check a step). With
--plain, or when input is not a terminal, commands are read line by
line: done N, undo N, board, ready, diagram, help, quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("remind") {
				opts.remind = a.cfg.Cook.Reminder()
			}
			return a.cook(cmd, args[0], opts)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&opts.plain, "plain", false, "line-by-line mode instead of the checklist")
	flags.StringVar(&opts.sessionID, "session", "", "resume this session")
	flags.IntVar(&opts.servings, "servings", 0, "scale ingredient quantities for this many servings")
	flags.BoolVar(&opts.fresh, "new", false, "start a new session even if one is in progress")
	flags.BoolVar(&opts.noChime, "no-chime", false, "do not play a sound when steps become ready")
	flags.DurationVar(&opts.remind, "remind", 10*time.Minute, "remind after this long without progress (0 turns reminders off)")
	return cmd
}

func (a *app) cook(cmd *cobra.Command, recipeID string, opts cookOptions) error {
	ctx := cmd.Context()
	if _, err := a.recipeArg(cmd, []string{recipeID}); err != nil {
		return err
	}

	session, err := a.session(cmd, recipeID, opts)
	if err != nil {
		return err
	}
	a.log.Info("cooking %s in session %s", recipeID, session.ID)

	var player speech.AudioPlayer = speech.NewSilent(a.log)
	if a.cfg.Cook.Chime && !opts.noChime {
		p, err := speech.NewPlayer(a.log)
		if err != nil {
			a.log.Warn("audio unavailable, chimes off: %v", err)
		} else {
			player = p
		}
	}

	plain := opts.plain || a.cfg.Cook.Plain || !isTerminal(cmd.InOrStdin())
	if plain {
		out := cmd.OutOrStdout()
		text := conversation.NewCLINotifier(a.log, func(format string, args ...interface{}) {
			fmt.Fprintf(out, format+"\n", args...)
		})
		notifier := speech.NewChimeNotifier(text, player, a.log)
		defer notifier.Close()

		width := 0
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			width = display.TermWidth(f)
			fmt.Fprint(out, display.RenderBanner(width, "cook by the graph"))
		}
		repl := conversation.NewREPL(a.engine, conversation.NewKeywordParser(a.log), notifier, a.log, out, session.ID,
			conversation.WithDirection(diagram.ParseDirection(a.cfg.Diagram.Direction)),
			conversation.WithWidth(width),
		)
		stop := a.startReminder(ctx, notifier, session.ID, opts.remind)
		defer stop()
		return repl.Run(ctx, cmd.InOrStdin())
	}

	// Bubble Tea owns the terminal, so the notifier only chimes.
	notifier := speech.NewChimeNotifier(nil, player, a.log)
	defer notifier.Close()

	model := display.NewModel(ctx, a.engine, session.ID, display.WithNotifier(notifier))
	p := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	stop := a.startReminder(ctx, display.NewProgramNotifier(p, notifier), session.ID, opts.remind)
	final, err := p.Run()
	stop()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("cook mode: %w", err)
	}
	if m, ok := final.(display.Model); ok && m.Board() != nil {
		b := m.Board()
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d steps done. Resume with: ottoflow cook %s --session %s\n",
			b.Recipe.Name, b.Done(), len(b.Steps), recipeID, session.ID)
	}
	return nil
}

// session picks the session to cook in: the one named by --session, the
// latest active one for the recipe, or a new one.
func (a *app) session(cmd *cobra.Command, recipeID string, opts cookOptions) (*domain.Session, error) {
	ctx := cmd.Context()
	if opts.sessionID != "" {
		s, err := a.engine.Status(ctx, opts.sessionID)
		if err != nil {
			return nil, err
		}
		if s.RecipeID != recipeID {
			return nil, fmt.Errorf("session %s is for %s, not %s", s.ID, s.RecipeID, recipeID)
		}
		return s, nil
	}
	if !opts.fresh {
		s, err := a.engine.ResumeLatest(ctx, recipeID)
		if err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Resuming session %s (%d/%d done).\n",
				s.ID, s.Completion.CompletedCount(), len(s.Completion))
			return s, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return a.engine.StartSession(ctx, recipeID, opts.servings)
}

// startReminder watches the session in the background until stop is
// called. A zero duration disables it.
func (a *app) startReminder(ctx context.Context, n domain.Notifier, sessionID string, after time.Duration) (stop func()) {
	if after <= 0 {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	w := reminder.NewWatcher(a.engine, n, a.log, sessionID, reminder.WithIdleAfter(after))
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newSessionsCmd(a *app) *cobra.Command {
	var abandon string
	cmd := &cobra.Command{
		Use:     "sessions",
		GroupID: GroupCook,
		Short:   "List cooking sessions in progress",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			if abandon != "" {
				if err := a.engine.Abandon(ctx, abandon); err != nil {
					return err
				}
				fmt.Fprintf(w, "Abandoned session %s.\n", abandon)
				return nil
			}

			sessions, err := a.store.ListActive(ctx)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Fprintln(w, "No sessions in progress.")
				return nil
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("SESSION", "RECIPE", "DONE", "UPDATED").
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				})
			for _, s := range sessions {
				t.Row(s.ID, s.RecipeName,
					fmt.Sprintf("%d/%d", s.Completion.CompletedCount(), len(s.Completion)),
					s.UpdatedAt.Local().Format(time.DateTime))
			}
			fmt.Fprintln(w, t.Render())
			return nil
		},
	}
	cmd.Flags().StringVar(&abandon, "abandon", "", "abandon the session with this ID")
	return cmd
}
