package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/lqx/internal/formatter"
	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

// HistoryList prints the most recent runs, optionally for one collection.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	runs, err := r.journal()
	if err != nil {
		return err
	}

	list, err := runs.ListRuns(ctx, cmd.Int("collection"), cmd.Int("limit"))
	if err != nil {
		return err
	}

	values := make([]models.Run, len(list))
	for i, run := range list {
		values[i] = *run
	}
	if cmd.Bool("json") {
		return r.writeJSON(values, true)
	}
	return formatter.WriteRuns(r.output, values)
}

// HistoryShow renders a run and its outcomes as text, CSV or JSON.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	runs, err := r.journal()
	if err != nil {
		return err
	}

	run, err := runs.GetRun(ctx, strings.TrimSpace(cmd.StringArg("run")))
	if err != nil {
		return err
	}
	outcomes, err := runs.Outcomes(ctx, run.ID)
	if err != nil {
		return err
	}

	data, err := formatter.Export(*run, outcomes, strings.ToLower(cmd.String("format")))
	if err != nil {
		return err
	}

	path := cmd.String("output")
	if path == "" {
		_, err := r.output.Write(data)
		return err
	}
	path, err = shared.ExpandHome(path)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(r.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.logger.Info("run exported", "run", run.ID, "path", path)
	return r.writePlain("✓ Wrote %s\n", path)
}

// HistoryDelete removes a run and its outcomes. A unique id prefix is enough.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	runs, err := r.journal()
	if err != nil {
		return err
	}

	run, err := runs.GetRun(ctx, strings.TrimSpace(cmd.StringArg("run")))
	if err != nil {
		return err
	}
	if err := runs.DeleteRun(ctx, run.ID); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted run %s\n", run.ID)
}
