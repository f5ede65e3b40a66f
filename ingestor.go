package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/paleotronic/picm8/disk"
	"github.com/paleotronic/picm8/loggy"
	"github.com/paleotronic/picm8/picture"
	"github.com/paleotronic/picm8/store"
	"github.com/urfave/cli/v2"
)

var ingestCommand = &cli.Command{
	Name:      "ingest",
	Usage:     "catalog every picture under a folder into the datastore",
	ArgsUsage: "DIR...",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "re-read disk images that have not changed",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			cli.ShowCommandHelpAndExit(c, "ingest", 1)
		}
		st, err := openStore(c)
		if err != nil {
			return cli.Exit(err, 1)
		}
		defer st.Close()

		ing := newIngestor(st, c.Int("workers"), c.Bool("force"))
		ing.progress = os.Stdout
		if err := ing.walk(c.Args().Slice()...); err != nil {
			return cli.Exit(err, 1)
		}
		ing.report(os.Stdout)
		return nil
	},
}

// protect runs fn, handing any panic to recovered instead of crashing the
// worker.
func protect(fn func(), recovered func(r interface{})) {
	defer func() {
		if r := recover(); r != nil {
			recovered(r)
		}
	}()
	fn()
}

type ingestor struct {
	st       *store.Store
	workers  int
	force    bool
	progress io.Writer

	incoming chan string

	mu         sync.Mutex
	processed  int
	unchanged  int
	skipped    int
	errorcount int
	disks      int
	in         map[picture.FormatTag]int
	out        map[picture.FormatTag]int
	started    time.Time
	duration   time.Duration
}

func newIngestor(st *store.Store, workers int, force bool) *ingestor {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &ingestor{
		st:       st,
		workers:  workers,
		force:    force,
		progress: io.Discard,
		in:       make(map[picture.FormatTag]int),
		out:      make(map[picture.FormatTag]int),
	}
}

func (ing *ingestor) count(fn func()) {
	ing.mu.Lock()
	fn()
	ing.mu.Unlock()
}

// walk feeds every regular file below roots to the worker pool and waits for
// them to finish.
func (ing *ingestor) walk(roots ...string) error {
	ing.started = time.Now()
	ing.incoming = make(chan string, 16)

	var wg sync.WaitGroup
	for i := 0; i < ing.workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			id := 1 + i
			l := loggy.Get(id)

			for filename := range ing.incoming {
				protect(
					func() {
						ing.analyze(id, filename)
						ing.count(func() { ing.processed++ })
					},
					func(r interface{}) {
						l.Errorf("Error processing file: %s: %v", filename, r)
						l.Errorf("%s", debug.Stack())
						ing.count(func() { ing.errorcount++ })
					},
				)
			}
		}(i)
	}

	var walkErr error
	for _, root := range roots {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				loggy.Get(0).Errorf("%v", err)
				return nil
			}
			if d.Type().IsRegular() {
				ing.incoming <- p
				ing.mu.Lock()
				fmt.Fprintf(ing.progress, "\rIngested: %d files ...", ing.processed)
				ing.mu.Unlock()
			}
			return nil
		})
		if err != nil && walkErr == nil {
			walkErr = err
		}
	}

	close(ing.incoming)
	wg.Wait()

	ing.duration = time.Since(ing.started)
	fmt.Fprintf(ing.progress, "\rIngested: %d files ...\n", ing.processed)
	return walkErr
}

func (ing *ingestor) analyze(id int, filename string) {
	l := loggy.Get(id)

	full, err := filepath.Abs(filename)
	if err != nil {
		full = filename
	}
	data, err := os.ReadFile(full)
	if err != nil {
		l.Errorf("%s: %v", full, err)
		ing.count(func() { ing.errorcount++ })
		return
	}

	s := newSource(full, data)
	if !s.IsDisk() {
		parts := s.Pictures()
		if len(parts) == 0 {
			if diskRegex.MatchString(full) {
				l.Errorf("%s: unreadable disk image", full)
			}
			ing.count(func() { ing.skipped++ })
			return
		}
		ing.addPicture(l, 0, full, parts[0], "")
		return
	}

	sha := store.Checksum(data)
	if !ing.force {
		have, err := ing.st.HasDisk(full, sha)
		if err != nil {
			l.Errorf("%s: %v", full, err)
		}
		if have {
			l.Debugf("%s: unchanged", full)
			ing.count(func() { ing.unchanged++ })
			return
		}
	}

	cat := s.Catalog
	d := &store.Disk{
		Path:     full,
		SHA256:   sha,
		Format:   cat.DiskFormat.String(),
		Platform: string(cat.DiskFormat.Platform()),
		Name:     cat.DiskName,
		Files:    cat.TotalFiles,
		Images:   cat.ImageFiles,
	}
	if _, err := ing.st.AddDisk(d); err != nil {
		l.Errorf("%s: %v", full, err)
		ing.count(func() { ing.errorcount++ })
		return
	}
	ing.count(func() { ing.disks++ })
	l.Logf("%s: %s, %d files, %d pictures", full, d.Format, d.Files, d.Images)

	for _, p := range s.Pictures() {
		ing.addPicture(l, d.ID, full, p, d.Platform)
	}
}

func (ing *ingestor) addPicture(l *loggy.Logger, diskID int64, source string, p *picturePart, platform string) {
	ing.count(func() { ing.in[p.Tag]++ })

	img, err := picture.Decode(p.Data, p.Tag)
	if err != nil {
		l.Errorf("%s %s: %v", source, p.Entry, err)
		ing.count(func() { ing.skipped++ })
		return
	}
	if p.Hint.Meta.Platform != disk.PlatformNone {
		platform = string(p.Hint.Meta.Platform)
	}
	rec := &store.Image{
		DiskID:   diskID,
		Source:   source,
		Entry:    p.Entry,
		Name:     p.Name,
		Format:   p.Tag.String(),
		Platform: platform,
		Width:    img.Width,
		Height:   img.Height,
	}
	if _, err := ing.st.AddImage(rec, p.Data); err != nil {
		l.Errorf("%s %s: %v", source, p.Entry, err)
		ing.count(func() { ing.errorcount++ })
		return
	}
	ing.count(func() { ing.out[p.Tag]++ })
}

func (ing *ingestor) report(w io.Writer) {
	fmt.Fprintln(w, "=============================================================")
	fmt.Fprintf(w, " PicM8 ingest report (%d Workers, %v)\n", ing.workers, ing.duration)
	fmt.Fprintln(w, "=============================================================")

	tags := make([]picture.FormatTag, 0, len(ing.in))
	for t := range ing.in {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	tin, tout := 0, 0
	for _, t := range tags {
		count, outcount := ing.in[t], ing.out[t]
		fmt.Fprintf(w, "%-30s %6d in %6d out\n", t.String(), count, outcount)
		tin += count
		tout += outcount
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-30s %6d in %6d out\n", "Total", tin, tout)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d disk images, %d unchanged, %d files skipped, %d errors\n",
		ing.disks, ing.unchanged, ing.skipped, ing.errorcount)

	if n := ing.processed + ing.errorcount; n > 0 {
		fmt.Fprintf(w, "%v average time spent per file.\n", ing.duration/time.Duration(n))
	}
}
