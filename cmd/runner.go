package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lqx/internal/pairing"
	"github.com/desertthunder/lqx/internal/repositories"
	"github.com/desertthunder/lqx/internal/services"
	"github.com/desertthunder/lqx/internal/shared"
	"github.com/desertthunder/lqx/internal/tasks"
	"github.com/desertthunder/lqx/internal/ui"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

// ConfirmFunc asks the user to approve an apply step.
type ConfirmFunc func(prompt string) (bool, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The lesson API and the run journal are opened lazily: commands that work on local files or on the
// journal alone never need an API key.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	fs         afero.Fs
	confirm    ConfirmFunc
	api        tasks.LessonAPI
	db         *sql.DB
	runs       *repositories.RunRepository
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
	Fs         afero.Fs
	Confirm    ConfirmFunc
	API        tasks.LessonAPI // built from the config when nil
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		fs:         opts.Fs,
		confirm:    opts.Confirm,
		api:        opts.API,
	}
	if r.confirm == nil {
		r.confirm = func(prompt string) (bool, error) { return ui.Confirm(prompt, r.input, r.output) }
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, collectionCommand, reorderCommand, pairCommand, uploadCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the configuration named by --config and applies --verbose. A missing file means defaults.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if r.config != nil {
		return ctx, nil
	}

	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		r.config = shared.DefaultConfig()
		return ctx, nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config
	return ctx, nil
}

// after releases the database connection, if one was opened.
func (r *Runner) after(ctx context.Context, cmd *cli.Command) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.runs = nil, nil
	return err
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// SetLogger replaces the logger, e.g. with a file logger while a TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// lessonAPI returns the configured API client, creating it on first use.
func (r *Runner) lessonAPI() (tasks.LessonAPI, error) {
	if r.api != nil {
		return r.api, nil
	}

	key, err := r.cfg().APIKey()
	if err != nil {
		return nil, err
	}
	opts := services.ClientOptsFromConfig(r.cfg(), key)
	opts.Logger = r.logger
	client, err := services.NewClient(opts)
	if err != nil {
		return nil, err
	}
	r.api = client
	return client, nil
}

// journal opens the run database and applies pending migrations on first use.
func (r *Runner) journal() (*repositories.RunRepository, error) {
	if r.runs != nil {
		return r.runs, nil
	}

	db, err := shared.NewDatabase(r.cfg().Database.Path)
	if err != nil {
		return nil, err
	}
	if r.cfg().Database.Path != ":memory:" {
		shared.ConfigureDatabase(db, r.cfg().Database.MaxOpenConns, r.cfg().Database.MaxIdleConns)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.runs = repositories.NewRunRepository(db)
	return r.runs, nil
}

// engine builds a lesson engine over the API and the journal. A journal that cannot be opened
// is logged and skipped; it never blocks a sync.
func (r *Runner) engine(threshold int) (*tasks.LessonEngine, error) {
	api, err := r.lessonAPI()
	if err != nil {
		return nil, err
	}

	opts := tasks.EngineOpts{
		API:         api,
		Fs:          r.fs,
		Resolver:    pairing.NewResolver(pairing.WithThreshold(threshold)),
		Logger:      r.logger,
		Concurrency: r.cfg().Sync.Concurrency,
		Language:    r.cfg().API.Language,
		TextExts:    r.cfg().Sync.TextExts,
		AudioExts:   r.cfg().Sync.AudioExts,
	}
	if runs, err := r.journal(); err != nil {
		r.logger.Warn("run journal unavailable, runs will not be recorded", "error", err)
	} else {
		opts.Journal = runs
	}
	return tasks.NewLessonEngine(opts)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, shared.ErrNotConfirmed):
		return 0
	case errors.Is(err, errPartialFailure):
		return 2
	default:
		return 1
	}
}
