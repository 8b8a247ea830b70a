// submodule cmd contains command definitions
package main

import (
	"fmt"
	"strings"

	"github.com/desertthunder/lqx/internal/pairing"
	"github.com/urfave/cli/v3"
)

func applyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"n"},
			Usage:   "Print the plan without changing anything",
		},
		&cli.BoolFlag{
			Name:    "yes",
			Aliases: []string{"y"},
			Usage:   "Apply without asking for confirmation",
		},
		&cli.BoolFlag{
			Name:    "interactive",
			Aliases: []string{"i"},
			Usage:   "Review and apply the plan in the TUI",
		},
	}
}

func strategyFlags() []cli.Flag {
	names := make([]string, 0, len(pairing.Strategies()))
	for _, s := range pairing.Strategies() {
		names = append(names, string(s))
	}
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "strategy",
			Aliases: []string{"s"},
			Usage:   fmt.Sprintf("Pairing strategy (%s); defaults to sync.strategy", strings.Join(names, ", ")),
		},
		&cli.IntFlag{
			Name:  "threshold",
			Usage: "Largest edit distance the fuzzy strategy accepts; defaults to sync.fuzzy_threshold",
			Value: -1,
		},
	}
}

// setupCommand handles setup operations for the config file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write the default configuration file to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the run journal database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// collectionCommand handles read-only collection operations
func collectionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "collection",
		Aliases: []string{"course"},
		Usage:   "Inspect collections",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "List the lessons of a collection in position order",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CollectionShow,
			},
			{
				Name:  "open",
				Usage: "Open a collection in the browser",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.CollectionOpen,
			},
		},
	}
}

// reorderCommand handles reordering a collection
func reorderCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "reorder",
		Usage:     "Reorder a collection with the fewest position moves",
		ArgsUsage: "<collection-id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "manifest",
				Aliases: []string{"m"},
				Usage:   "YAML file with the desired order (ids or titles); title order when omitted",
			},
		}, applyFlags()...),
		Action: r.Reorder,
	}
}

// pairCommand previews how local files pair up, without touching the remote
func pairCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "pair",
		Usage:     "Preview how text and audio files pair up",
		ArgsUsage: "<text-dir> [audio-dir]",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "text-dir"},
			&cli.StringArg{Name: "audio-dir"},
		},
		Flags:  strategyFlags(),
		Action: r.Pair,
	}
}

// uploadCommand handles creating lessons from local files
func uploadCommand(r *Runner) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "text",
			Aliases:  []string{"t"},
			Usage:    "Directory of lesson text files",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "audio",
			Aliases: []string{"a"},
			Usage:   "Directory of lesson audio files",
		},
	}
	flags = append(flags, strategyFlags()...)
	flags = append(flags, applyFlags()...)

	return &cli.Command{
		Name:      "upload",
		Usage:     "Create lessons in a collection from paired text and audio files",
		ArgsUsage: "<collection-id>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "id"},
		},
		Flags:  flags,
		Action: r.Upload,
	}
}

// historyCommand handles the run journal
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect applied runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to list",
						Value: 20,
					},
					&cli.IntFlag{
						Name:  "collection",
						Usage: "Only list runs for this collection",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show or export the outcomes of a run",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (text, csv, json)",
						Value:   "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Delete a run and its outcomes",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "run"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}
