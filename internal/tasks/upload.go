package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/desertthunder/lqx/internal/formatter"
	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/pairing"
	"github.com/desertthunder/lqx/internal/shared"
	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"
)

// UploadRequest names the local directories and the target collection of an upload.
type UploadRequest struct {
	CollectionID int
	TextDir      string
	AudioDir     string // optional; lessons are text-only without it
	Strategy     pairing.Strategy
}

// UploadItem is one pairing candidate and what the upload will do with it.
type UploadItem struct {
	Candidate models.PairingCandidate
	Title     string
	Skip      error // why the item will not be uploaded; nil when it will
}

// Label names the item in outcomes.
func (i UploadItem) Label() string {
	if i.Skip != nil {
		return formatter.PairLine(i.Candidate)
	}
	return formatter.UploadLine(i.Candidate, i.Title, nil)
}

// UploadPlan is the list of lessons an upload would create.
type UploadPlan struct {
	CollectionID int
	Snapshot     *models.CollectionSnapshot
	Strategy     pairing.Strategy
	Items        []UploadItem
}

// Pending counts the items that will be uploaded.
func (p *UploadPlan) Pending() int {
	n := 0
	for _, item := range p.Items {
		if item.Skip == nil {
			n++
		}
	}
	return n
}

// Lines returns one preview line per item, including skipped ones with their reason.
func (p *UploadPlan) Lines() []string {
	lines := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		lines = append(lines, formatter.UploadLine(item.Candidate, item.Title, item.Skip))
	}
	return lines
}

// PairDirs lists the regular files of both directories and pairs them with strategy.
// rightDir may be empty, in which case every left file is an unmatched singleton.
func (e *LessonEngine) PairDirs(progress chan<- ProgressUpdate, leftDir, rightDir string, strategy pairing.Strategy) ([]models.PairingCandidate, error) {
	left, err := pairing.ListAssets(e.fs, leftDir, nil)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, listedAssetsUpdate(leftDir, len(left)))

	var right []string
	if rightDir != "" {
		if right, err = pairing.ListAssets(e.fs, rightDir, nil); err != nil {
			return nil, err
		}
		e.sendProgress(progress, listedAssetsUpdate(rightDir, len(right)))
	}

	candidates, err := e.resolver.Pair(left, right, strategy)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, pairedAssetsUpdate(strategy, candidates))
	return candidates, nil
}

// PlanUpload fetches the collection, pairs the text and audio files and decides, per candidate,
// whether it becomes a new lesson. Files with unsupported extensions are kept out of pairing
// and planned as skips, as are candidates without a text file or whose title already exists.
func (e *LessonEngine) PlanUpload(ctx context.Context, progress chan<- ProgressUpdate, req UploadRequest) (*UploadPlan, error) {
	if req.CollectionID <= 0 {
		return nil, fmt.Errorf("%w: collection id must be positive, got %d", shared.ErrInvalidArgument, req.CollectionID)
	}
	if strings.TrimSpace(req.TextDir) == "" {
		return nil, fmt.Errorf("%w: text directory", shared.ErrMissingArgument)
	}

	e.sendProgress(progress, fetchingCollectionUpdate(req.CollectionID))
	snapshot, err := e.api.FetchCollection(ctx, req.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collection %d: %w", req.CollectionID, err)
	}
	e.sendProgress(progress, fetchedCollectionUpdate(snapshot))

	texts, err := pairing.ListAssets(e.fs, req.TextDir, nil)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, listedAssetsUpdate(req.TextDir, len(texts)))
	texts, badTexts := splitByExt(texts, e.textExts)

	var audio, badAudio []string
	if req.AudioDir != "" {
		if audio, err = pairing.ListAssets(e.fs, req.AudioDir, nil); err != nil {
			return nil, err
		}
		e.sendProgress(progress, listedAssetsUpdate(req.AudioDir, len(audio)))
		audio, badAudio = splitByExt(audio, e.audioExts)
	}

	candidates, err := e.resolver.Pair(texts, audio, req.Strategy)
	if err != nil {
		return nil, err
	}
	e.sendProgress(progress, pairedAssetsUpdate(req.Strategy, candidates))

	existing := make(map[string]bool, len(snapshot.Items))
	for _, item := range snapshot.Items {
		existing[norm.NFC.String(item.Title)] = true
	}
	planned := make(map[string]bool, len(candidates))

	plan := &UploadPlan{CollectionID: req.CollectionID, Snapshot: snapshot, Strategy: req.Strategy}
	for _, c := range candidates {
		item := UploadItem{Candidate: c}
		switch {
		case !c.HasLeft():
			item.Skip = fmt.Errorf("%w: no text file pairs with %s", shared.ErrInvalidInput, filepath.Base(c.Right))
		default:
			item.Title = pairing.Stem(c.Left)
			switch {
			case existing[item.Title]:
				item.Skip = fmt.Errorf("%w: lesson %q already in collection", shared.ErrDuplicateItem, item.Title)
			case planned[item.Title]:
				item.Skip = fmt.Errorf("%w: lesson %q planned twice", shared.ErrDuplicateItem, item.Title)
			}
			planned[item.Title] = true
		}
		plan.Items = append(plan.Items, item)
	}

	for _, path := range badTexts {
		plan.Items = append(plan.Items, UploadItem{
			Candidate: models.PairingCandidate{Left: path},
			Skip:      pairing.CheckExt(path, e.textExts),
		})
	}
	for _, path := range badAudio {
		plan.Items = append(plan.Items, UploadItem{
			Candidate: models.PairingCandidate{Right: path},
			Skip:      pairing.CheckExt(path, e.audioExts),
		})
	}

	e.logger.Debug("planned upload", "collection", req.CollectionID, "items", len(plan.Items), "pending", plan.Pending())
	return plan, nil
}

func splitByExt(paths, exts []string) (ok, bad []string) {
	for _, p := range paths {
		if pairing.HasExt(p, exts) {
			ok = append(ok, p)
		} else {
			bad = append(bad, p)
		}
	}
	return ok, bad
}

type uploadJob struct {
	index int
	item  UploadItem
}

type uploadResult struct {
	index   int
	outcome models.ItemOutcome
}

// ApplyUpload posts every pending item through a pool of e.concurrency workers.
//
// Uploads are independent, so they may finish in any order; outcomes are reported in plan order.
// A run-fatal error cancels the in-flight and queued uploads and is returned wrapped in
// [shared.ErrAborted] with the partial result.
func (e *LessonEngine) ApplyUpload(ctx context.Context, progress chan<- ProgressUpdate, plan *UploadPlan) (*BatchResult, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: upload plan is empty", shared.ErrInvalidArgument)
	}

	run := e.startRun(ctx, models.RunUpload, plan.CollectionID, len(plan.Items))
	logger := shared.WithLogger(e.logger, "collection", plan.CollectionID, "run", run.ID)
	result := &BatchResult{RunID: run.ID, Kind: models.RunUpload, CollectionID: plan.CollectionID}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]models.ItemOutcome, len(plan.Items))
	jobs := make(chan uploadJob, len(plan.Items))
	results := make(chan uploadResult, len(plan.Items))

	pending := 0
	for i, item := range plan.Items {
		if item.Skip != nil {
			outcomes[i] = models.ItemOutcome{Label: item.Label(), Status: models.ItemSkipped, Err: item.Skip}
			continue
		}
		jobs <- uploadJob{index: i, item: item}
		pending++
	}
	close(jobs)

	var wg sync.WaitGroup
	for range min(e.concurrency, max(pending, 1)) {
		wg.Add(1)
		go e.uploadWorker(batchCtx, cancel, &wg, plan.CollectionID, jobs, results)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		o := res.outcome
		outcomes[res.index] = o

		switch {
		case o.Status == models.ItemFailed && isRunFatal(o.Err) && result.Aborted == nil:
			result.Aborted = o.Err
			cancel()
			logger.Error("aborting upload", "lesson", o.Label, "error", o.Err)
		case o.Status == models.ItemFailed:
			logger.Error("upload failed", "lesson", o.Label, "error", o.Err)
		case o.Status == models.ItemSucceeded:
			logger.Debug("uploaded lesson", "lesson", o.ItemID, "title", plan.Items[res.index].Title)
		}
		e.sendProgress(progress, itemDoneUpdate(UploadLessons, completed, pending, o))
	}

	for _, o := range outcomes {
		result.record(o)
	}
	if result.Aborted == nil && ctx.Err() != nil {
		result.Aborted = ctx.Err()
		logger.Error("upload cancelled", "error", ctx.Err())
	}

	e.finishRun(ctx, run, result)
	if result.Aborted != nil {
		return result, fmt.Errorf("%w: %w", shared.ErrAborted, result.Aborted)
	}
	return result, nil
}

// uploadWorker drains jobs. Every job yields exactly one result, so queued jobs are reported
// as skipped once the batch is cancelled. A run-fatal failure cancels the batch before the
// worker takes its next job.
func (e *LessonEngine) uploadWorker(
	ctx context.Context,
	abort context.CancelFunc,
	wg *sync.WaitGroup,
	collectionID int,
	jobs <-chan uploadJob,
	results chan<- uploadResult,
) {
	defer wg.Done()

	for job := range jobs {
		o := e.uploadOne(ctx, collectionID, job.item)
		if o.Status == models.ItemFailed && isRunFatal(o.Err) {
			abort()
		}
		results <- uploadResult{index: job.index, outcome: o}
	}
}

func (e *LessonEngine) uploadOne(ctx context.Context, collectionID int, item UploadItem) models.ItemOutcome {
	o := models.ItemOutcome{Label: item.Label(), URL: e.api.CollectionURL(collectionID)}

	if err := ctx.Err(); err != nil {
		o.Status = models.ItemSkipped
		o.Err = fmt.Errorf("%w: not attempted", shared.ErrAborted)
		return o
	}

	upload, err := e.readUpload(item)
	if err != nil {
		o.Status = models.ItemFailed
		o.Err = err
		return o
	}

	created, err := e.api.PostLesson(ctx, collectionID, upload)
	switch {
	case err != nil && ctx.Err() != nil && (errors.Is(err, shared.ErrAborted) || errors.Is(err, context.Canceled)):
		// Interrupted by the batch being cancelled, not failed on its own.
		o.Status = models.ItemSkipped
		o.Err = err
		return o
	case err != nil:
		o.Status = models.ItemFailed
		o.Err = err
		return o
	}

	o.Status = models.ItemSucceeded
	o.ItemID = created.ID
	o.URL = e.api.LessonURL(created.ID)
	return o
}

func (e *LessonEngine) readUpload(item UploadItem) (models.LessonUpload, error) {
	text, err := afero.ReadFile(e.fs, item.Candidate.Left)
	if err != nil {
		return models.LessonUpload{}, fmt.Errorf("failed to read %s: %w", item.Candidate.Left, err)
	}
	if strings.TrimSpace(string(text)) == "" {
		return models.LessonUpload{}, fmt.Errorf("%w: %s is empty", shared.ErrInvalidInput, filepath.Base(item.Candidate.Left))
	}

	upload := models.LessonUpload{Title: item.Title, Text: norm.NFC.String(string(text))}
	if item.Candidate.HasRight() {
		audio, err := afero.ReadFile(e.fs, item.Candidate.Right)
		if err != nil {
			return models.LessonUpload{}, fmt.Errorf("failed to read %s: %w", item.Candidate.Right, err)
		}
		upload.Audio = audio
		upload.AudioName = filepath.Base(item.Candidate.Right)
	}
	return upload, nil
}
