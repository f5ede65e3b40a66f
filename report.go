package main

import (
	"fmt"
	"io"
	"os"

	"github.com/paleotronic/picm8/store"
	"github.com/urfave/cli/v2"
)

var reportFlag = &cli.StringFlag{
	Name:    "out",
	Aliases: []string{"o"},
	Usage:   "write the report to a file instead of stdout",
}

var dupesCommand = &cli.Command{
	Name:  "dupes",
	Usage: "report pictures stored more than once",
	Flags: []cli.Flag{reportFlag},
	Action: func(c *cli.Context) error {
		return withReport(c, func(w io.Writer, st *store.Store) error {
			return dupeReport(w, st)
		})
	},
}

var statsCommand = &cli.Command{
	Name:  "stats",
	Usage: "summarise the datastore by disk and picture format",
	Flags: []cli.Flag{reportFlag},
	Action: func(c *cli.Context) error {
		return withReport(c, func(w io.Writer, st *store.Store) error {
			return statsReport(w, st)
		})
	},
}

// withReport opens the datastore and the report destination for fn.
func withReport(c *cli.Context, fn func(w io.Writer, st *store.Store) error) error {
	st, err := openStore(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer st.Close()

	var w io.Writer = os.Stdout
	if filename := c.String("out"); filename != "" {
		f, err := os.Create(filename)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer f.Close()
		w = f
	}
	if err := fn(w, st); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func dupeReport(w io.Writer, st *store.Store) error {
	groups, err := st.Duplicates()
	if err != nil {
		return err
	}

	var extras int
	for _, g := range groups {
		fmt.Fprintf(w, "\nChecksum %s duplicated %d times:\n", g.SHA256, len(g.Images))
		for i, img := range g.Images {
			loc := img.Source
			if img.Entry != "" {
				loc += " >> " + img.Entry
			}
			fmt.Fprintf(w, " %d) #%d %s (%s)\n", i, img.ID, loc, img.Format)
		}
		extras += len(g.Images) - 1
	}

	fmt.Fprintf(w, "\nSUMMARY: %d pictures with duplicates, %d redundant copies\n", len(groups), extras)
	return nil
}

func statsReport(w io.Writer, st *store.Store) error {
	disks, err := st.Disks()
	if err != nil {
		return err
	}
	counts, err := st.Counts()
	if err != nil {
		return err
	}

	byFormat := make(map[string]int)
	var order []string
	pictures := 0
	for _, d := range disks {
		if byFormat[d.Format] == 0 {
			order = append(order, d.Format)
		}
		byFormat[d.Format]++
		pictures += d.Images
	}

	fmt.Fprintln(w, "=============================================================")
	fmt.Fprintf(w, " %d disk images, %d pictures on disks\n", len(disks), pictures)
	fmt.Fprintln(w, "=============================================================")
	for _, f := range order {
		fmt.Fprintf(w, "%-30s %6d\n", f, byFormat[f])
	}

	fmt.Fprintln(w)
	total := 0
	for _, c := range counts {
		fmt.Fprintf(w, "%-30s %6d\n", c.Format, c.Count)
		total += c.Count
	}
	fmt.Fprintf(w, "\n%-30s %6d\n", "Total pictures", total)
	return nil
}
