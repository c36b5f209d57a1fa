package main

import (
	"os"

	"vrepo/internal/logging"

	"github.com/urfave/cli"
)

var (
	logger = logging.GetLogger()
)

func main() {
	app := cli.NewApp()
	app.Name = "vrepo"
	app.Usage = "maintain and browse virtual resource repositories"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "index, i",
			Usage:  "index file (.json, .yaml or .yml)",
			EnvVar: "VREPO_INDEX",
		},
		cli.StringFlag{
			Name:  "base, b",
			Usage: "directory relative references resolve against (default: directory of the index)",
		},
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "YAML file describing a composite repository",
			EnvVar: "VREPO_CONFIG",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "log level (error, warn, info, debug, trace)",
			EnvVar: "VREPO_LOG_LEVEL",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "enable verbose logging",
		},
	}
	app.Before = func(c *cli.Context) error {
		if name := c.GlobalString("log-level"); name != "" {
			if err := setLevel(name); err != nil {
				return err
			}
		}
		if c.GlobalBool("verbose") {
			logger.SetLevel(logging.LevelDebug)
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:      "add",
			Usage:     "Map a file or directory (recursively) at a repository path",
			ArgsUsage: "PATH FSPATH",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "link, l",
					Usage: "treat the second argument as a repository path to link to",
				},
			},
			Action: addCommand,
		},
		{
			Name:      "remove",
			Aliases:   []string{"rm"},
			Usage:     "Remove every entry matching a glob, with everything below it",
			ArgsUsage: "GLOB",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "literal",
					Usage: "treat the argument as a plain path, not a glob",
				},
			},
			Action: removeCommand,
		},
		{
			Name:   "clear",
			Usage:  "Remove every entry except the root",
			Action: clearCommand,
		},
		{
			Name:      "get",
			Usage:     "Show the resource at a path",
			ArgsUsage: "PATH",
			Action:    getCommand,
		},
		{
			Name:      "find",
			Usage:     "List the resources matching a query",
			ArgsUsage: "GLOB",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "language",
					Value: "glob",
					Usage: "query language",
				},
			},
			Action: findCommand,
		},
		{
			Name:      "ls",
			Usage:     "List the children of a path",
			ArgsUsage: "[PATH]",
			Action:    lsCommand,
		},
		{
			Name:      "tree",
			Usage:     "Print the repository below a path as a tree",
			ArgsUsage: "[PATH]",
			Action:    treeCommand,
		},
		{
			Name:  "serve",
			Usage: "Serve the repository read-only through FUSE until interrupted",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "mount, m",
					Usage: "mount point for the filesystem",
				},
			},
			Action: serveCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}
