package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/lqx/internal/formatter"
	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/pairing"
	"github.com/desertthunder/lqx/internal/planner"
	"github.com/desertthunder/lqx/internal/shared"
	"github.com/desertthunder/lqx/internal/tasks"
	"github.com/desertthunder/lqx/internal/ui"
	"github.com/urfave/cli/v3"
)

// errPartialFailure reports an applied batch in which some items failed.
var errPartialFailure = errors.New("some operations failed")

// tuiLogPath receives log output while the TUI owns the terminal.
const tuiLogPath = "~/.lqx/tui.log"

// Reorder plans the minimal moves for a collection and applies them after confirmation.
func (r *Runner) Reorder(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID("collection id", cmd.StringArg("id"))
	if err != nil {
		return err
	}

	var manifest *planner.Manifest
	if path := cmd.String("manifest"); path != "" {
		if manifest, err = planner.LoadManifest(r.fs, path); err != nil {
			return err
		}
	}

	closeLogs, err := r.redirectLogs(cmd)
	if err != nil {
		return err
	}
	defer closeLogs()

	engine, err := r.engine(r.cfg().Sync.FuzzyThreshold)
	if err != nil {
		return err
	}
	return r.execute(ctx, cmd, &ui.ReorderJob{Engine: engine, CollectionID: id, Manifest: manifest})
}

// Upload pairs local files and creates one lesson per pair after confirmation.
func (r *Runner) Upload(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID("collection id", cmd.StringArg("id"))
	if err != nil {
		return err
	}
	strategy, threshold, err := r.strategy(cmd)
	if err != nil {
		return err
	}

	closeLogs, err := r.redirectLogs(cmd)
	if err != nil {
		return err
	}
	defer closeLogs()

	engine, err := r.engine(threshold)
	if err != nil {
		return err
	}
	return r.execute(ctx, cmd, &ui.UploadJob{
		Engine: engine,
		Request: tasks.UploadRequest{
			CollectionID: id,
			TextDir:      cmd.String("text"),
			AudioDir:     cmd.String("audio"),
			Strategy:     strategy,
		},
	})
}

// Pair prints how the files of two directories pair up. Nothing remote is touched.
func (r *Runner) Pair(ctx context.Context, cmd *cli.Command) error {
	textDir := cmd.StringArg("text-dir")
	if textDir == "" {
		return fmt.Errorf("%w: text directory", shared.ErrMissingArgument)
	}
	strategy, threshold, err := r.strategy(cmd)
	if err != nil {
		return err
	}

	engine, err := tasks.NewLessonEngine(tasks.EngineOpts{
		API:      offlineAPI{},
		Fs:       r.fs,
		Resolver: pairing.NewResolver(pairing.WithThreshold(threshold)),
		Logger:   r.logger,
	})
	if err != nil {
		return err
	}

	candidates, err := engine.PairDirs(nil, textDir, cmd.StringArg("audio-dir"), strategy)
	if err != nil {
		return err
	}

	lines := make([]string, len(candidates))
	for i, c := range candidates {
		lines[i] = formatter.PairLine(c)
	}
	return formatter.WritePreview(r.output, fmt.Sprintf("Pairs (%s)", strategy), lines)
}

// strategy resolves --strategy and --threshold against the sync config.
func (r *Runner) strategy(cmd *cli.Command) (pairing.Strategy, int, error) {
	name := cmd.String("strategy")
	if name == "" {
		name = r.cfg().Sync.Strategy
	}
	strategy, err := pairing.ParseStrategy(name)
	if err != nil {
		return "", 0, err
	}

	threshold := cmd.Int("threshold")
	if threshold < 0 {
		threshold = r.cfg().Sync.FuzzyThreshold
	}
	return strategy, threshold, nil
}

// execute plans job, prints the preview and, unless this is a dry run, applies it once confirmed.
func (r *Runner) execute(ctx context.Context, cmd *cli.Command, job ui.Job) error {
	if cmd.Bool("interactive") {
		return r.runTUI(ctx, job)
	}

	var preview ui.Preview
	err := r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		preview, err = job.Plan(ctx, progress)
		return err
	})
	if err != nil {
		return err
	}

	if err := formatter.WritePreview(r.output, preview.Title, preview.Lines); err != nil {
		return err
	}
	if cmd.Bool("dry-run") {
		return r.writePlain("dry run: nothing applied\n")
	}
	if preview.Pending == 0 {
		return nil
	}

	if !cmd.Bool("yes") {
		ok, err := r.confirm(fmt.Sprintf("Apply %d operations?", preview.Pending))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", shared.ErrNotConfirmed, preview.Title)
		}
	}

	var result *tasks.BatchResult
	err = r.withProgress(func(progress chan<- tasks.ProgressUpdate) error {
		var err error
		result, err = job.Apply(ctx, progress)
		return err
	})
	return r.report(result, err)
}

// report prints the batch summary and turns item failures into errPartialFailure.
func (r *Runner) report(result *tasks.BatchResult, err error) error {
	if result == nil {
		return err
	}
	if werr := formatter.WriteSummary(r.output, result.Kind, result.Outcomes); werr != nil {
		return werr
	}
	if werr := r.writePlain("run %s\n", result.RunID); werr != nil {
		return werr
	}
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", errPartialFailure, result.Failed, len(result.Outcomes))
	}
	return nil
}

// withProgress logs progress updates from fn until it returns.
func (r *Runner) withProgress(fn func(progress chan<- tasks.ProgressUpdate) error) error {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Info(update.Message, "phase", update.Phase)
		}
	}()

	err := fn(progress)
	close(progress)
	<-done
	return err
}

// redirectLogs sends log output to a file when --interactive is set, so the TUI owns the terminal.
// It must run before the engine is built.
func (r *Runner) redirectLogs(cmd *cli.Command) (func(), error) {
	if !cmd.Bool("interactive") {
		return func() {}, nil
	}
	logger, closer, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	logger.SetLevel(r.logger.GetLevel())
	r.SetLogger(logger)
	return func() { closer.Close() }, nil
}

// runTUI drives job through the interactive model.
func (r *Runner) runTUI(ctx context.Context, job ui.Job) error {
	model := ui.NewModel(ctx, job)
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return r.report(model.Result())
}

// offlineAPI stands in for the lesson API in commands that only read local files.
type offlineAPI struct{}

func (offlineAPI) FetchCollection(context.Context, int) (*models.CollectionSnapshot, error) {
	return nil, errOffline
}

func (offlineAPI) MovePosition(context.Context, models.MoveOperation) error {
	return errOffline
}

func (offlineAPI) PostLesson(context.Context, int, models.LessonUpload) (*models.ItemDescriptor, error) {
	return nil, errOffline
}

func (offlineAPI) LessonURL(int) string     { return "" }
func (offlineAPI) CollectionURL(int) string { return "" }

var errOffline = fmt.Errorf("%w: command runs offline", shared.ErrServiceUnavailable)
