package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/pairing"
	"github.com/desertthunder/lqx/internal/planner"
	"github.com/desertthunder/lqx/internal/shared"
	"github.com/spf13/afero"
)

// LessonAPI is the remote surface the engine drives. [services.Client] implements it.
type LessonAPI interface {
	FetchCollection(ctx context.Context, collectionID int) (*models.CollectionSnapshot, error)
	MovePosition(ctx context.Context, op models.MoveOperation) error
	PostLesson(ctx context.Context, collectionID int, upload models.LessonUpload) (*models.ItemDescriptor, error)
	LessonURL(id int) string
	CollectionURL(id int) string
}

// Journal records applied runs. [repositories.RunRepository] implements it.
type Journal interface {
	StartRun(ctx context.Context, run *models.Run) error
	FinishRun(ctx context.Context, run *models.Run, outcomes []models.ItemOutcome) error
}

// SyncEngine defines the plan/apply operations on a collection.
type SyncEngine interface {
	// PlanReorder fetches the collection and computes the minimal moves towards the manifest order,
	// or towards title order when manifest is nil.
	PlanReorder(ctx context.Context, progress chan<- ProgressUpdate, collectionID int, manifest *planner.Manifest) (*ReorderPlan, error)

	// ApplyReorder executes the moves strictly in plan order.
	ApplyReorder(ctx context.Context, progress chan<- ProgressUpdate, plan *ReorderPlan) (*BatchResult, error)

	// PlanUpload pairs local text and audio files and decides which become new lessons.
	PlanUpload(ctx context.Context, progress chan<- ProgressUpdate, req UploadRequest) (*UploadPlan, error)

	// ApplyUpload posts the pending lessons with bounded concurrency.
	ApplyUpload(ctx context.Context, progress chan<- ProgressUpdate, plan *UploadPlan) (*BatchResult, error)
}

// EngineOpts contains the dependencies of a [LessonEngine].
type EngineOpts struct {
	API         LessonAPI
	Journal     Journal // optional
	Fs          afero.Fs
	Resolver    *pairing.Resolver
	Logger      *log.Logger
	Concurrency int // concurrent uploads (default: 2)
	Language    string
	TextExts    []string
	AudioExts   []string
}

// LessonEngine implements SyncEngine against a [LessonAPI].
type LessonEngine struct {
	api         LessonAPI
	journal     Journal
	fs          afero.Fs
	resolver    *pairing.Resolver
	logger      *log.Logger
	concurrency int
	language    string
	textExts    []string
	audioExts   []string
	now         func() time.Time
}

const (
	defaultConcurrency = 2
	maxConcurrency     = 10
)

// NewLessonEngine creates an engine. The API is required; everything else has a default.
func NewLessonEngine(opts EngineOpts) (*LessonEngine, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("%w: lesson API not initialized", shared.ErrServiceUnavailable)
	}

	e := &LessonEngine{
		api:         opts.API,
		journal:     opts.Journal,
		fs:          opts.Fs,
		resolver:    opts.Resolver,
		logger:      opts.Logger,
		concurrency: opts.Concurrency,
		language:    opts.Language,
		textExts:    opts.TextExts,
		audioExts:   opts.AudioExts,
		now:         time.Now,
	}
	if e.fs == nil {
		e.fs = afero.NewOsFs()
	}
	if e.resolver == nil {
		e.resolver = pairing.NewResolver()
	}
	if e.logger == nil {
		e.logger = shared.DiscardLogger()
	}
	if e.concurrency <= 0 {
		e.concurrency = defaultConcurrency
	}
	if e.concurrency > maxConcurrency {
		e.concurrency = maxConcurrency
	}
	if len(e.textExts) == 0 {
		e.textExts = []string{".txt"}
	}
	if len(e.audioExts) == 0 {
		e.audioExts = []string{".mp3"}
	}
	return e, nil
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *LessonEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// BatchResult accumulates per-item outcomes of an applied plan.
type BatchResult struct {
	RunID        string
	Kind         models.RunKind
	CollectionID int
	Outcomes     []models.ItemOutcome
	Succeeded    int
	Skipped      int
	Failed       int
	Aborted      error // the run-fatal error that stopped the batch, if any
}

func (r *BatchResult) record(o models.ItemOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case models.ItemSucceeded:
		r.Succeeded++
	case models.ItemSkipped:
		r.Skipped++
	case models.ItemFailed:
		r.Failed++
	}
}

// FailedOutcomes returns the outcomes that failed, in batch order.
func (r *BatchResult) FailedOutcomes() []models.ItemOutcome {
	var failed []models.ItemOutcome
	for _, o := range r.Outcomes {
		if o.Status == models.ItemFailed {
			failed = append(failed, o)
		}
	}
	return failed
}

// isRunFatal reports whether err must stop the whole batch.
func isRunFatal(err error) bool {
	return shared.IsFatal(err) || errors.Is(err, shared.ErrAborted) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// startRun journals the start of a batch. Journal errors are logged and never stop the batch.
func (e *LessonEngine) startRun(ctx context.Context, kind models.RunKind, collectionID, planned int) *models.Run {
	run := &models.Run{
		ID:           shared.GenerateID(),
		Kind:         kind,
		CollectionID: collectionID,
		Language:     e.language,
		Status:       models.RunRunning,
		Planned:      planned,
		StartedAt:    e.now().UTC(),
	}
	if e.journal != nil {
		if err := e.journal.StartRun(context.WithoutCancel(ctx), run); err != nil {
			e.logger.Warn("failed to journal run start", "run", run.ID, "error", err)
		}
	}
	return run
}

func (e *LessonEngine) finishRun(ctx context.Context, run *models.Run, result *BatchResult) {
	finished := e.now().UTC()
	run.FinishedAt = &finished
	run.Status = models.RunCompleted
	if result.Aborted != nil {
		run.Status = models.RunAborted
	}
	run.Tally(result.Outcomes)

	if e.journal == nil {
		return
	}
	if err := e.journal.FinishRun(context.WithoutCancel(ctx), run, result.Outcomes); err != nil {
		e.logger.Warn("failed to journal run outcome", "run", run.ID, "error", err)
	}
}
