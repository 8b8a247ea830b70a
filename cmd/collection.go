package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/lqx/internal/formatter"
	"github.com/desertthunder/lqx/internal/shared"
	"github.com/urfave/cli/v3"
)

// openBrowser is replaced in tests.
var openBrowser = shared.OpenBrowser

// CollectionShow prints the lessons of a collection.
func (r *Runner) CollectionShow(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID("collection id", cmd.StringArg("id"))
	if err != nil {
		return err
	}
	api, err := r.lessonAPI()
	if err != nil {
		return err
	}

	snapshot, err := api.FetchCollection(ctx, id)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(snapshot, true)
	}
	return formatter.WriteCollection(r.output, snapshot, api.CollectionURL(id))
}

// CollectionOpen opens the collection page in the default browser.
func (r *Runner) CollectionOpen(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID("collection id", cmd.StringArg("id"))
	if err != nil {
		return err
	}
	api, err := r.lessonAPI()
	if err != nil {
		return err
	}

	url := api.CollectionURL(id)
	r.logger.Debug("opening collection", "url", url)
	if err := openBrowser(url); err != nil {
		return err
	}
	return r.writePlain("Opened %s\n", url)
}

// parseID parses a positive numeric id argument.
func parseID(name, value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	id, err := strconv.Atoi(value)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", shared.ErrInvalidArgument, name, value)
	}
	return id, nil
}
