// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func dirFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "Program directory holding the config, .env and input files",
			Value:   ".",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file, relative to --dir",
			Value:   "config.toml",
		},
	}
}

func syncFlags() []cli.Flag {
	return append(dirFlags(),
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Compute and print the plan without changing anything remotely",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Dry run plan format: text, json, yaml or csv",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the dry run plan to this file instead of stdout",
		},
	)
}

// formCommand syncs a CSV into the records of a page
func formCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "form",
		Aliases: []string{"page"},
		Usage:   "Sync the [form] CSV into a page's records",
		Flags:   syncFlags(),
		Action:  r.FormSync,
	}
}

// listCommand syncs a CSV of options into option lists
func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"options"},
		Usage:   "Sync the [list] CSV into option lists",
		Flags:   syncFlags(),
		Action:  r.ListSync,
	}
}

// setupCommand handles setup operations for the config file and run journal.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example configuration file",
				Flags:  dirFlags(),
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the run journal database and run migrations",
				Flags: append(dirFlags(), &cli.BoolFlag{
					Name:  "rollback",
					Usage: "Roll back the most recent migration instead",
				}),
				Action: r.SetupDatabase,
			},
		},
	}
}

// historyCommand lists journaled sync runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent sync runs from the journal",
		Flags: append(dirFlags(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of runs to show",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Only show form or list runs",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		),
		Action: r.History,
	}
}
