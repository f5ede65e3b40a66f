package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/paleotronic/picm8/picture"
	"github.com/paleotronic/picm8/store"
	"github.com/urfave/cli/v2"
)

var searchCommand = &cli.Command{
	Name:  "search",
	Usage: "find ingested pictures",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "file name pattern, e.g. '*.PIC'",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "picture format, e.g. SHR-standard",
		},
		&cli.StringFlag{
			Name:  "source",
			Usage: "only pictures from this file",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "maximum number of results",
		},
	},
	Action: func(c *cli.Context) error {
		if c.String("format") != "" {
			if _, err := formatTag(c.String("format")); err != nil {
				return cli.Exit(err, 1)
			}
		}
		st, err := openStore(c)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer st.Close()

		n, err := searchImages(os.Stdout, st, store.Query{
			Name:   c.String("name"),
			Format: c.String("format"),
			Source: c.String("source"),
			Limit:  c.Int("limit"),
		})
		if err != nil {
			return cli.Exit(err, 1)
		}
		if n == 0 {
			return cli.Exit("no pictures found", 2)
		}
		return nil
	},
}

var exportCommand = &cli.Command{
	Name:      "export",
	Usage:     "write the original bytes of an ingested picture",
	ArgsUsage: "ID",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "out",
			Aliases:  []string{"o"},
			Required: true,
			Usage:    "output file",
		},
		&cli.BoolFlag{
			Name:  "png",
			Usage: "write a PNG rendering instead",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			cli.ShowCommandHelpAndExit(c, "export", 1)
		}
		id, err := strconv.ParseInt(c.Args().First(), 10, 64)
		if err != nil {
			return cli.Exit(fmt.Errorf("bad picture id %q", c.Args().First()), 1)
		}
		st, err := openStore(c)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer st.Close()

		if err := exportImage(st, id, c.String("out"), c.Bool("png")); err != nil {
			return cli.Exit(err, 1)
		}
		return nil
	},
}

func printImages(w io.Writer, images []*store.Image) {
	fmt.Fprintf(w, "%6s  %-16s  %9s  %7s  %s\n", "ID", "FORMAT", "SIZE", "BYTES", "LOCATION")
	for _, img := range images {
		loc := img.Source
		if img.Entry != "" {
			loc += ": " + img.Entry
		}
		fmt.Fprintf(w, "%6d  %-16s  %4dx%-4d  %7d  %s\n", img.ID, img.Format, img.Width, img.Height, img.Size, loc)
	}
}

func searchImages(w io.Writer, st *store.Store, q store.Query) (int, error) {
	images, err := st.Search(q)
	if err != nil {
		return 0, err
	}
	if len(images) > 0 {
		printImages(w, images)
	}
	return len(images), nil
}

// exportImage writes picture id to filename, either byte for byte or
// rendered as PNG.
func exportImage(st *store.Store, id int64, filename string, asPNG bool) error {
	img, err := st.Image(id)
	if err != nil {
		return err
	}
	data, err := st.Original(id)
	if err != nil {
		return err
	}
	if !asPNG {
		return os.WriteFile(filename, data, 0644)
	}
	tag, err := formatTag(img.Format)
	if err != nil {
		return err
	}
	dec, err := picture.Decode(data, tag)
	if err != nil {
		return err
	}
	return writePNG(dec, 1, filename)
}
