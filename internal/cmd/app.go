package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hammamikhairi/ottoflow/internal/config"
	"github.com/hammamikhairi/ottoflow/internal/domain"
	"github.com/hammamikhairi/ottoflow/internal/engine"
	"github.com/hammamikhairi/ottoflow/internal/logger"
	"github.com/hammamikhairi/ottoflow/internal/recipe"
	"github.com/hammamikhairi/ottoflow/internal/storage"
)

// globalOptions are the persistent flags.
type globalOptions struct {
	configPath  string
	recipesDir  string
	sessionsDir string
	verbose     bool
	quiet       bool
	logFile     string
}

// app holds everything a command needs, wired once per run.
type app struct {
	opts    globalOptions
	cfg     *config.Config
	log     *logger.Logger
	recipes *recipe.MemorySource
	store   domain.SessionStore
	engine  *engine.Engine
	closers []io.Closer
}

// setup loads configuration and wires dependencies. Flags override the
// environment, which overrides the config file.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	var err error
	if cmd.Flags().Changed("config") {
		a.cfg, err = config.Load(a.opts.configPath)
	} else {
		a.cfg, err = config.LoadOrDefault(config.DefaultPath)
	}
	if err != nil {
		return err
	}
	a.applyFlags(cmd)

	if err := a.setupLogger(cmd.ErrOrStderr()); err != nil {
		return err
	}

	a.recipes = recipe.NewMemorySource(a.log)
	if dir := a.cfg.Recipes.Dir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			if _, err := a.recipes.LoadDir(cmd.Context(), dir); err != nil {
				return fmt.Errorf("loading recipes: %w", err)
			}
		} else if cmd.Flags().Changed("recipes") {
			return fmt.Errorf("recipes dir %s: %w", dir, err)
		} else {
			a.log.Debug("no recipe dir at %s, using built-in recipes", dir)
		}
	}

	switch a.cfg.Sessions.Store {
	case "memory":
		a.store = storage.NewMemoryStore(a.log)
	default:
		fs, err := storage.NewFileStore(a.cfg.Sessions.Dir, a.log)
		if err != nil {
			return err
		}
		a.store = fs
	}

	a.engine = engine.New(a.recipes, a.store, a.log,
		engine.WithServingsDefault(a.cfg.Recipes.DefaultServings),
	)
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("recipes") {
		a.cfg.Recipes.Dir = a.opts.recipesDir
	}
	if flags.Changed("sessions") {
		a.cfg.Sessions.Store = "file"
		a.cfg.Sessions.Dir = a.opts.sessionsDir
	}
	if flags.Changed("log-file") {
		a.cfg.Log.File = a.opts.logFile
	}
	if a.opts.verbose {
		a.cfg.Log.Level = logger.LevelVerbose.String()
	}
	if a.opts.quiet {
		a.cfg.Log.Level = logger.LevelOff.String()
	}
}

// setupLogger sends logs to the configured file so cook mode stays clean.
func (a *app) setupLogger(stderr io.Writer) error {
	level := logger.ParseLevel(a.cfg.Log.Level)

	var out io.Writer = stderr
	if path := a.cfg.Log.File; path != "" && path != "stderr" && level != logger.LevelOff {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating log dir: %w", err)
			}
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		} else {
			out = f
			a.closers = append(a.closers, f)
		}
	}

	a.log = logger.NewWithFormat(level, a.cfg.Log.Format, out)
	return nil
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	a.closers = nil
}

// recipeArg fetches the recipe named by the first argument.
func (a *app) recipeArg(cmd *cobra.Command, args []string) (*domain.Recipe, error) {
	r, err := a.engine.GetRecipe(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("no recipe %q (see 'ottoflow list')", args[0])
	}
	return r, err
}
