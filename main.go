package main

/*
PicM8 decodes and catalogs vintage computer graphics: Apple II, Amiga, Atari,
Commodore, Sinclair, Amstrad, MSX, BBC and PC picture formats, and the disk
images they were shipped on.

Pictures can be detected, converted to PNG and have their palettes edited.
Whole directories of disk images can be ingested into a catalog database and
searched for pictures and duplicates.
*/

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/paleotronic/picm8/loggy"
	"github.com/paleotronic/picm8/store"
	"github.com/urfave/cli/v2"
)

const defaultWorkers = 8

func binpath() string {

	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE") + "/PicM8"
	}
	return os.Getenv("HOME") + "/PicM8"

}

func banner() {
	fmt.Printf(`
PicM8 (c) 2024 Paleotronic.com
vintage graphics and disk image cataloger

type "help" to see commands

`)
}

// openStore opens the datastore named by the global flag, creating its
// folder when needed.
func openStore(c *cli.Context) (*store.Store, error) {
	file := c.String("datastore")
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return nil, err
	}
	loggy.Get(0).Debugf("opening datastore %s", file)
	return store.Open(file)
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "picm8"
	app.Usage = "vintage computer graphics decoder and disk image cataloger"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "datastore",
			EnvVars: []string{"PICM8_DB"},
			Value:   filepath.Join(binpath(), "picm8.db"),
			Usage:   "path to catalog database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "log to stderr",
		},
		&cli.StringFlag{
			Name:    "log-dir",
			EnvVars: []string{"PICM8_LOGS"},
			Value:   filepath.Join(binpath(), "logs"),
			Usage:   "folder for log files (empty for none)",
		},
		&cli.IntFlag{
			Name:    "workers",
			EnvVars: []string{"PICM8_WORKERS"},
			Value:   defaultWorkers,
			Usage:   "ingest worker count",
		},
	}

	app.Before = func(c *cli.Context) error {
		loggy.ECHO = c.Bool("verbose")
		loggy.LogFolder = c.String("log-dir")
		return nil
	}
	app.After = func(c *cli.Context) error {
		loggy.CloseAll()
		return nil
	}

	app.Commands = []*cli.Command{
		detectCommand,
		decodeCommand,
		paletteCommand,
		catalogCommand,
		extractCommand,
		ingestCommand,
		searchCommand,
		dupesCommand,
		statsCommand,
		exportCommand,
		replCommand,
	}

	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
