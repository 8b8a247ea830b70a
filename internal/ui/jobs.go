package ui

import (
	"context"
	"fmt"

	"github.com/desertthunder/lqx/internal/planner"
	"github.com/desertthunder/lqx/internal/tasks"
)

// Preview is what a planned job would do.
type Preview struct {
	Title   string
	Lines   []string
	Pending int // operations that will be sent; the rest of Lines are skips
}

// Job is a plan/apply pair the TUI can drive. Plan must be called before Apply.
type Job interface {
	Plan(ctx context.Context, progress chan<- tasks.ProgressUpdate) (Preview, error)
	Apply(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.BatchResult, error)
}

// ReorderJob reorders a collection towards a manifest, or title order when Manifest is nil.
type ReorderJob struct {
	Engine       tasks.SyncEngine
	CollectionID int
	Manifest     *planner.Manifest

	plan *tasks.ReorderPlan
}

func (j *ReorderJob) Plan(ctx context.Context, progress chan<- tasks.ProgressUpdate) (Preview, error) {
	plan, err := j.Engine.PlanReorder(ctx, progress, j.CollectionID, j.Manifest)
	if err != nil {
		return Preview{}, err
	}
	j.plan = plan
	return Preview{
		Title:   fmt.Sprintf("Reorder collection %d", j.CollectionID),
		Lines:   plan.Lines(),
		Pending: len(plan.Moves),
	}, nil
}

func (j *ReorderJob) Apply(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.BatchResult, error) {
	if j.plan == nil {
		return nil, errNotPlanned
	}
	return j.Engine.ApplyReorder(ctx, progress, j.plan)
}

// UploadJob creates lessons from paired local files.
type UploadJob struct {
	Engine  tasks.SyncEngine
	Request tasks.UploadRequest

	plan *tasks.UploadPlan
}

func (j *UploadJob) Plan(ctx context.Context, progress chan<- tasks.ProgressUpdate) (Preview, error) {
	plan, err := j.Engine.PlanUpload(ctx, progress, j.Request)
	if err != nil {
		return Preview{}, err
	}
	j.plan = plan
	return Preview{
		Title:   fmt.Sprintf("Upload to collection %d (%s)", j.Request.CollectionID, j.Request.Strategy),
		Lines:   plan.Lines(),
		Pending: plan.Pending(),
	}, nil
}

func (j *UploadJob) Apply(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.BatchResult, error) {
	if j.plan == nil {
		return nil, errNotPlanned
	}
	return j.Engine.ApplyUpload(ctx, progress, j.plan)
}
