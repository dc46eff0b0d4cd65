package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/compstaff/compstaff/app"
	"github.com/compstaff/compstaff/config"
	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "compstaff",
		Usage: "competition assignment engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to the configuration file",
				EnvVars: []string{"COMPSTAFF_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			newGenerateCommand(),
			newGroupsCommand(),
			newResetCommand(),
			newImportCommand(),
			newValidateCommand(),
			newMigrateCommand(),
			newServeCommand(),
		},
	}
}

// offlineConfig loads the config file when it exists. Offline commands need
// no database, so a missing file yields an empty config.
func offlineConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &config.Config{}, nil
	}
	return config.LoadConfig(path)
}

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API, the event router and the generation queue",
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			return app.Serve(c.Context, cfg)
		},
	}
}
