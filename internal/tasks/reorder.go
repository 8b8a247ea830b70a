package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/lqx/internal/formatter"
	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/planner"
	"github.com/desertthunder/lqx/internal/shared"
)

// ReorderPlan is the minimal move list that turns a collection's current order into the desired one.
type ReorderPlan struct {
	CollectionID int
	Snapshot     *models.CollectionSnapshot
	Desired      []int
	Moves        []models.MoveOperation
}

// Lines returns one preview line per move, in execution order.
func (p *ReorderPlan) Lines() []string {
	lookup := p.Snapshot.Lookup()
	lines := make([]string, 0, len(p.Moves))
	for _, op := range p.Moves {
		lines = append(lines, formatter.MoveLine(lookup[op.ID], op))
	}
	return lines
}

// PlanReorder fetches the collection and plans the moves. No remote state is changed.
func (e *LessonEngine) PlanReorder(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	collectionID int,
	manifest *planner.Manifest,
) (*ReorderPlan, error) {
	e.sendProgress(progress, fetchingCollectionUpdate(collectionID))
	snapshot, err := e.api.FetchCollection(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collection %d: %w", collectionID, err)
	}
	e.sendProgress(progress, fetchedCollectionUpdate(snapshot))

	var desired []int
	if manifest != nil {
		if desired, err = manifest.Resolve(snapshot); err != nil {
			return nil, err
		}
	} else {
		desired = planner.TitleOrder(snapshot.Items)
	}

	current := snapshot.IDs()
	moves, err := planner.Plan(current, desired)
	if err != nil {
		return nil, err
	}
	if err := planner.Verify(current, desired, moves); err != nil {
		return nil, fmt.Errorf("refusing plan for collection %d: %w", collectionID, err)
	}

	e.logger.Debug("planned reorder", "collection", collectionID, "lessons", len(current), "moves", len(moves))
	e.sendProgress(progress, plannedMovesUpdate(len(moves), len(current)))

	return &ReorderPlan{
		CollectionID: collectionID,
		Snapshot:     snapshot,
		Desired:      desired,
		Moves:        moves,
	}, nil
}

// ApplyReorder executes the moves one at a time in plan order; each move's target assumes
// every earlier move has been applied.
//
// A failed move is recorded and the batch continues. A run-fatal error (credentials, schema drift,
// cancellation) stops the batch, marks the remaining moves skipped and is returned wrapped in
// [shared.ErrAborted] together with the partial result.
func (e *LessonEngine) ApplyReorder(ctx context.Context, progress chan<- ProgressUpdate, plan *ReorderPlan) (*BatchResult, error) {
	if plan == nil || plan.Snapshot == nil {
		return nil, fmt.Errorf("%w: reorder plan is empty", shared.ErrInvalidArgument)
	}

	run := e.startRun(ctx, models.RunReorder, plan.CollectionID, len(plan.Moves))
	logger := shared.WithLogger(e.logger, "collection", plan.CollectionID, "run", run.ID)
	result := &BatchResult{RunID: run.ID, Kind: models.RunReorder, CollectionID: plan.CollectionID}
	lookup := plan.Snapshot.Lookup()

	for i, op := range plan.Moves {
		outcome := models.ItemOutcome{
			Label:  formatter.MoveLine(lookup[op.ID], op),
			ItemID: op.ID,
			URL:    e.api.LessonURL(op.ID),
		}

		switch {
		case result.Aborted != nil:
			outcome.Status = models.ItemSkipped
			outcome.Err = fmt.Errorf("%w: not attempted", shared.ErrAborted)
		default:
			if err := e.api.MovePosition(ctx, op); err != nil {
				outcome.Status = models.ItemFailed
				outcome.Err = err
				if isRunFatal(err) {
					result.Aborted = err
					logger.Error("aborting reorder", "lesson", op.ID, "error", err)
				} else {
					logger.Error("move failed", "lesson", op.ID, "position", op.TargetPosition, "error", err)
				}
			} else {
				outcome.Status = models.ItemSucceeded
				logger.Debug("moved lesson", "lesson", op.ID, "position", op.TargetPosition)
			}
		}

		result.record(outcome)
		e.sendProgress(progress, itemDoneUpdate(ApplyMoves, i+1, len(plan.Moves), outcome))
	}

	if result.Failed > 0 && result.Aborted == nil {
		logger.Warn("some moves failed; later positions may be off until the reorder is planned again", "failed", result.Failed)
	}

	e.finishRun(ctx, run, result)
	if result.Aborted != nil {
		return result, fmt.Errorf("%w: %w", shared.ErrAborted, result.Aborted)
	}
	return result, nil
}
