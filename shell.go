package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/paleotronic/picm8/disk"
	"github.com/paleotronic/picm8/loggy"
	"github.com/paleotronic/picm8/picture"
	"github.com/paleotronic/picm8/store"
	"github.com/urfave/cli/v2"
)

const MAXVOL = 8

var commandList map[string]*shellCommand
var commandVolumes [MAXVOL]*source
var commandTarget int = -1

// the picture open for palette editing
var commandDoc *picture.Document
var commandDocName string

var shellDatastore string
var shellWorkers = defaultWorkers

var replCommand = &cli.Command{
	Name:  "shell",
	Usage: "interactive shell for browsing disks and editing palettes",
	Action: func(c *cli.Context) error {
		shellDatastore = c.String("datastore")
		shellWorkers = c.Int("workers")
		banner()
		shellDo()
		return nil
	},
}

func mountSource(s *source) (int, error) {

	var fr []int

	for i, d := range commandVolumes {
		if d == nil {
			fr = append(fr, i)
		} else if s.Path == d.Path {
			commandVolumes[i] = s
			return i, nil
		}
	}

	if len(fr) == 0 {
		return -1, errors.New("No free slots")
	}

	commandVolumes[fr[0]] = s

	return fr[0], nil

}

func mounted() *source {
	if commandTarget < 0 || commandTarget >= MAXVOL {
		return nil
	}
	return commandVolumes[commandTarget]
}

func smartSplit(line string) (string, []string) {

	var out []string

	var inqq bool
	var lastEscape bool
	var chunk string

	add := func() {
		if chunk != "" {
			out = append(out, chunk)
			chunk = ""
		}
	}

	for _, ch := range line {
		switch {
		case ch == '"':
			inqq = !inqq
			add()
		case ch == ' ':
			if inqq || lastEscape {
				chunk += string(ch)
			} else {
				add()
			}
			lastEscape = false
		case ch == '\\' && !inqq:
			lastEscape = true
		default:
			chunk += string(ch)
		}
	}

	add()

	if len(out) == 0 {
		return "", out
	}

	return out[0], out[1:]
}

func getPrompt() string {

	doc := ""
	if commandDoc != nil {
		doc = ":" + commandDocName
		if commandDoc.Modified() {
			doc += "*"
		}
	}

	s := mounted()
	if s == nil {
		return fmt.Sprintf("pic:%d:%s%s> ", 0, "<no mount>", doc)
	}
	return fmt.Sprintf("pic:%d:%s%s> ", commandTarget, filepath.Base(s.Path), doc)
}

type shellCommand struct {
	Name             string
	Usage            string
	Description      string
	// MinArgs and MaxArgs bound the argument count; -1 means no bound
	MinArgs, MaxArgs int
	Needs            shellNeed
	Context          shellCommandContext
	Code             func(args []string) int
	Help             []string
}

type shellNeed int

const (
	needMount shellNeed = 1 << iota
	needDoc
)

type shellCommandContext int

const (
	sccNone shellCommandContext = 1 << iota
	sccLocal
	sccDiskFile
	sccCommand
	sccAnyFile = sccDiskFile | sccLocal
)

type shellCompleter struct {
}

func hasPrefix(str []rune, prefix []rune) bool {
	if len(prefix) > len(str) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if str[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (sc *shellCompleter) Do(line []rune, pos int) ([][]rune, int) {

	prefix := ""
	chunk := ""
	for _, ch := range line {
		if ch == ' ' {
			prefix = chunk
			break
		} else {
			chunk += string(ch)
		}
	}

	// cprefix is the word under the cursor
	cprefix := ""
	var lastEscape bool
	for i := 0; i < pos && i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '\\':
			lastEscape = true
		case ch == ' ' && !lastEscape:
			cprefix = ""
		default:
			cprefix += string(ch)
			lastEscape = false
		}
	}

	var context shellCommandContext = sccNone
	cmd, match := commandList[prefix]
	if match {
		context = cmd.Context
	} else {
		context = sccCommand
	}

	var items [][]rune
	if context&sccCommand != 0 {
		for k := range commandList {
			items = append(items, []rune(k))
		}
	}
	if context&sccDiskFile != 0 {
		if s := mounted(); s != nil && s.IsDisk() {
			s.Catalog.Walk(func(e *disk.Entry) {
				if !e.IsDirectory {
					items = append(items, []rune(e.Path))
				}
			})
		}
	}
	if context&sccLocal != 0 {
		files, err := filepath.Glob(cprefix + "*")
		if err == nil {
			for _, v := range files {
				items = append(items, []rune(v))
			}
		}
	}

	if len(items) == 0 {
		return [][]rune(nil), 0
	}

	var filt [][]rune
	for _, v := range items {
		if hasPrefix(v, []rune(cprefix)) {
			filt = append(filt, shellEscape(v[len(cprefix):]))
		}
	}
	return filt, len(cprefix)
}

func shellEscape(str []rune) []rune {
	out := make([]rune, 0)
	for _, v := range str {
		if v == ' ' {
			out = append(out, '\\')
		}
		out = append(out, v)
	}
	return out
}

var shellCommands = []*shellCommand{
	{Name: "mount", Usage: "mount <file>", Description: "Mount a disk image or picture file", MinArgs: 1, MaxArgs: 1, Context: sccLocal, Code: shellMount,
		Help: []string{"Mounts a disk image or a standalone picture into a free slot", "and makes it the target of later commands."}},
	{Name: "unmount", Usage: "unmount [<slot>]", Description: "Unmount the target slot", MaxArgs: 1, Context: sccNone, Code: shellUnmount},
	{Name: "disks", Usage: "disks", Description: "List mounted slots", Context: sccNone, Code: shellDisks},
	{Name: "target", Usage: "target <slot>", Description: "Select the slot other commands act on", MinArgs: 1, MaxArgs: 1, Context: sccNone, Code: shellTarget},
	{Name: "info", Usage: "info", Description: "Describe the mounted file", Needs: needMount, Context: sccNone, Code: shellInfo},
	{Name: "cat", Usage: "cat [<pattern>]", Description: "List the files on the mounted disk", MaxArgs: 1, Needs: needMount, Context: sccDiskFile, Code: shellCat},
	{Name: "pics", Usage: "pics [<pattern>]", Description: "List the pictures on the mounted disk", MaxArgs: 1, Needs: needMount, Context: sccDiskFile, Code: shellPics},
	{Name: "ls", Usage: "ls [<glob> ...]", Description: "List local files", MaxArgs: -1, Context: sccLocal, Code: shellListFiles},
	{Name: "cd", Usage: "cd [<folder>]", Description: "Change local directory", MaxArgs: 1, Context: sccLocal, Code: shellCd},
	{Name: "detect", Usage: "detect [<file> ...]", Description: "Identify a file on the mounted disk or a local file", MaxArgs: -1, Context: sccAnyFile, Code: shellDetect,
		Help: []string{"With no file, describes the mounted disk."}},
	{Name: "open", Usage: "open [<entry>] [<format>]", Description: "Open a picture for palette editing", MaxArgs: 2, Context: sccDiskFile, Code: shellOpen,
		Help: []string{"Opens a file on the mounted disk, or the mounted picture", "when no entry is given. A format name overrides detection."}},
	{Name: "palette", Usage: "palette", Description: "Show the palette of the open picture", Needs: needDoc, Context: sccNone, Code: shellPalette},
	{Name: "set", Usage: "set [<palette>:]<colour>=#RRGGBB ...", Description: "Change a palette colour of the open picture", MinArgs: 1, MaxArgs: -1, Needs: needDoc, Context: sccNone, Code: shellSet},
	{Name: "reset", Usage: "reset", Description: "Undo all palette changes", Needs: needDoc, Context: sccNone, Code: shellReset},
	{Name: "render", Usage: "render [<file.png>] [<scale>]", Description: "Write the open picture as PNG", MaxArgs: 2, Needs: needDoc, Context: sccLocal, Code: shellRender},
	{Name: "save", Usage: "save <file>", Description: "Write the original bytes of the open picture", MinArgs: 1, MaxArgs: 1, Needs: needDoc, Context: sccLocal, Code: shellSave},
	{Name: "extract", Usage: "extract [images|png|all]", Description: "Copy files from the mounted disk to the local folder", MaxArgs: 1, Needs: needMount, Context: sccNone, Code: shellExtract,
		Help: []string{"images   pictures only, original bytes", "png      pictures only, rendered as PNG", "all      every file (default)"}},
	{Name: "ingest", Usage: "ingest <folder> ...", Description: "Catalog a folder into the datastore", MinArgs: 1, MaxArgs: -1, Context: sccLocal, Code: shellIngest},
	{Name: "search", Usage: "search <name pattern> [<format>]", Description: "Find ingested pictures by name", MinArgs: 1, MaxArgs: 2, Context: sccNone, Code: shellSearch},
	{Name: "export", Usage: "export <id> <file>", Description: "Write an ingested picture by id, as PNG when the file ends in .png", MinArgs: 2, MaxArgs: 2, Context: sccLocal, Code: shellExport},
	{Name: "dupes", Usage: "dupes", Description: "Report pictures stored more than once", Context: sccNone, Code: shellDupes},
	{Name: "help", Usage: "help [<command>]", Description: "Shows this help", MaxArgs: 1, Context: sccCommand, Code: shellHelp},
	{Name: "quit", Usage: "quit", Description: "Leave this place", MinArgs: -1, MaxArgs: -1, Context: sccNone, Code: shellQuit},
}

func init() {
	commandList = make(map[string]*shellCommand, len(shellCommands))
	for _, c := range shellCommands {
		commandList[c.Name] = c
	}
}

// checkArgs reports why args cannot be passed to c, or "" when they can.
func (c *shellCommand) checkArgs(args []string) string {
	switch {
	case c.MinArgs != -1 && len(args) < c.MinArgs:
		return fmt.Sprintf("%s expects at least %d arguments", c.Name, c.MinArgs)
	case c.MaxArgs != -1 && len(args) > c.MaxArgs:
		return fmt.Sprintf("%s expects at most %d arguments", c.Name, c.MaxArgs)
	case c.Needs&needMount != 0 && mounted() == nil:
		return fmt.Sprintf("%s only works on mounted disks", c.Name)
	case c.Needs&needDoc != 0 && commandDoc == nil:
		return fmt.Sprintf("%s needs an open picture, see open", c.Name)
	}
	return ""
}

func shellProcess(line string) int {
	verb, args := smartSplit(strings.TrimSpace(line))
	if verb == "" {
		return 0
	}

	command, ok := commandList[strings.ToLower(verb)]
	if !ok {
		os.Stderr.WriteString(fmt.Sprintf("Unrecognized command: %s\n", verb))
		return -1
	}

	fmt.Println()
	if msg := command.checkArgs(args); msg != "" {
		os.Stderr.WriteString(msg + "\n")
		return -1
	}

	r := -1
	protect(
		func() { r = command.Code(args) },
		func(rec interface{}) {
			loggy.Get(0).Errorf("%s: %v\n%s", command.Name, rec, debug.Stack())
			os.Stderr.WriteString(fmt.Sprintf("%s failed: %v\n", command.Name, rec))
		},
	)
	fmt.Println()
	return r
}

func shellDo() {

	ac := &shellCompleter{}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 getPrompt(),
		HistoryFile:            binpath() + "/.shell_history",
		DisableAutoSaveHistory: false,
		AutoComplete:           ac,
	})
	if err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}

		if shellProcess(line) == 999 {
			return
		}

		rl.SetPrompt(getPrompt())
	}

}

func shellError(err error) int {
	os.Stderr.WriteString("Error: " + err.Error() + "\n")
	return -1
}

func withShellStore(fn func(st *store.Store) error) int {
	file := shellDatastore
	if file == "" {
		file = filepath.Join(binpath(), "picm8.db")
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return shellError(err)
	}
	st, err := store.Open(file)
	if err != nil {
		return shellError(err)
	}
	defer st.Close()
	if err := fn(st); err != nil {
		return shellError(err)
	}
	return 0
}

func shellMount(args []string) int {
	s, err := loadSource(args[0])
	if err != nil {
		return shellError(err)
	}

	slotid, err := mountSource(s)
	if err != nil {
		return shellError(err)
	}

	commandTarget = slotid
	kind := "picture"
	if s.IsDisk() {
		kind = s.Catalog.DiskFormat.String()
	}
	os.Stderr.WriteString(fmt.Sprintf("mount %s in slot %d\n", kind, slotid))

	return 0
}

func shellUnmount(args []string) int {

	if len(args) > 0 {
		if shellTarget(args) == -1 {
			return -1
		}
	}

	if s := mounted(); s != nil {
		commandVolumes[commandTarget] = nil
		os.Stderr.WriteString("Unmounted volume\n")
	}

	return 0
}

func shellDisks(args []string) int {
	for i, s := range commandVolumes {
		if s == nil {
			continue
		}
		mark := " "
		if i == commandTarget {
			mark = "*"
		}
		kind := "picture"
		if s.IsDisk() {
			kind = s.Catalog.DiskFormat.String()
		}
		fmt.Printf("%s%d  %-28s  %s\n", mark, i, kind, s.Path)
	}
	return 0
}

func shellTarget(args []string) int {
	slot, err := strconv.Atoi(args[0])
	if err != nil || slot < 0 || slot >= MAXVOL {
		os.Stderr.WriteString(fmt.Sprintf("slot must be 0 to %d\n", MAXVOL-1))
		return -1
	}
	if commandVolumes[slot] == nil {
		os.Stderr.WriteString(fmt.Sprintf("nothing mounted in slot %d\n", slot))
		return -1
	}
	commandTarget = slot
	return 0
}

func shellHelp(args []string) int {
	if len(args) == 0 {
		names := make([]string, 0, len(commandList))
		for k := range commandList {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Printf("%-10s %s\n", k, commandList[k].Description)
		}
		return 0
	}

	command, ok := commandList[strings.ToLower(args[0])]
	if !ok {
		os.Stderr.WriteString("No help available for " + args[0] + "\n")
		return -1
	}
	fmt.Println(command.Usage)
	fmt.Println()
	fmt.Println(command.Description)
	for _, l := range command.Help {
		fmt.Println(l)
	}
	return 0
}

func shellInfo(args []string) int {
	s := mounted()

	fullpath, _ := filepath.Abs(s.Path)

	fmt.Printf("Path        : %s\n", fullpath)
	fmt.Printf("Size        : %d bytes\n", len(s.Data))
	if s.IsDisk() {
		fmt.Printf("Disk type   : %s\n", s.Catalog.DiskFormat)
		fmt.Printf("Platform    : %s\n", s.Catalog.DiskFormat.Platform())
		fmt.Printf("Volume      : %s\n", s.Catalog.DiskName)
		fmt.Printf("Files       : %d (%d pictures)\n", s.Catalog.TotalFiles, s.Catalog.ImageFiles)
	} else {
		fmt.Printf("Picture     : %s\n", s.standalone().Tag)
	}

	return 0
}

func shellQuit(args []string) int {

	return 999

}

func shellCat(args []string) int {
	return catalogMounted(args, false)
}

func shellPics(args []string) int {
	return catalogMounted(args, true)
}

func catalogMounted(args []string, imagesOnly bool) int {
	s := mounted()
	if !s.IsDisk() {
		os.Stderr.WriteString("mounted file is not a disk image\n")
		return -1
	}

	pattern := "*"
	if len(args) > 0 {
		pattern = args[0]
	}

	printCatalog(os.Stdout, s.Catalog, pattern, imagesOnly)
	return 0
}

func shellCd(args []string) int {

	if len(args) > 0 {
		err := os.Chdir(args[0])
		if err != nil {
			os.Stderr.WriteString("Change directory failed: " + err.Error() + "\n")
			return -1
		}
	}

	wd, _ := os.Getwd()
	os.Stderr.WriteString("Working directory is now " + wd + "\n")
	return 0

}

func shellListFiles(args []string) int {

	if len(args) == 0 {
		wd, _ := os.Getwd()
		args = append(args, wd+"/*")
	}

	fmt.Printf("%9s  %-18s  %s\n", "BYTES", "KIND", "NAME")
	for _, a := range args {

		files, err := filepath.Glob(a)
		if err != nil {
			os.Stderr.WriteString("Error reading path " + a + ": " + err.Error() + "\n")
			continue
		}

		for _, f := range files {
			fi, err := os.Stat(f)
			if err != nil {
				continue
			}
			kind := "Local file"
			if fi.IsDir() {
				kind = "Folder"
			} else if diskRegex.MatchString(f) {
				kind = "Disk image"
			}
			fmt.Printf("%9d  %-18s  %s\n", fi.Size(), kind, fi.Name())
		}
	}

	return 0
}

func shellDetect(args []string) int {
	s := mounted()
	if len(args) == 0 {
		if s == nil {
			os.Stderr.WriteString("detect expects a file when nothing is mounted\n")
			return -1
		}
		describeSource(os.Stdout, s)
		return 0
	}

	for _, a := range args {
		if s != nil && s.IsDisk() {
			if e := s.Catalog.Find(a); e != nil && !e.IsDirectory {
				p := entryPart(e)
				fmt.Printf("%s: %s\n", e.Path, p.Tag)
				continue
			}
		}
		local, err := loadSource(a)
		if err != nil {
			shellError(err)
			continue
		}
		describeSource(os.Stdout, local)
	}
	return 0
}

func shellOpen(args []string) int {
	s := mounted()
	if s == nil {
		os.Stderr.WriteString("mount a disk or picture first\n")
		return -1
	}

	entry, format := "", ""
	if len(args) > 0 {
		entry = args[0]
	}
	if len(args) > 1 {
		format = args[1]
	}

	part, err := s.Picture(entry)
	if err != nil {
		return shellError(err)
	}
	doc, err := openPart(part, format)
	if err != nil {
		return shellError(err)
	}

	commandDoc = doc
	commandDocName = part.Name
	fmt.Printf("Opened %s as %s\n", part.Name, doc.Format())
	return 0
}

func shellPalette(args []string) int {
	printPalette(os.Stdout, commandDoc.Palette())
	return 0
}

func shellSet(args []string) int {
	for _, a := range args {
		p, c, rgb, err := parseColorEdit(a)
		if err != nil {
			return shellError(err)
		}
		if err := commandDoc.SetColor(p, c, rgb); err != nil {
			return shellError(err)
		}
		fmt.Printf("Palette %d colour %d is now %s\n", p, c, rgb)
	}
	return 0
}

func shellReset(args []string) int {
	commandDoc.Reset()
	fmt.Println("Palette restored")
	return 0
}

func shellRender(args []string) int {
	out := pngName(commandDocName)
	if len(args) > 0 {
		out = args[0]
	}
	scale := 1
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			os.Stderr.WriteString("scale must be a positive number\n")
			return -1
		}
		scale = n
	}

	img, err := commandDoc.Render()
	if err != nil {
		return shellError(err)
	}
	if err := writePNG(img, scale, out); err != nil {
		return shellError(err)
	}
	fmt.Printf("Wrote %dx%d %s to %s\n", img.Width*scale, img.Height*scale, img.Format, out)
	return 0
}

func shellSave(args []string) int {
	if err := os.WriteFile(args[0], commandDoc.Original(), 0644); err != nil {
		return shellError(err)
	}
	fmt.Printf("Wrote %s\n", args[0])
	return 0
}

func shellExtract(args []string) int {
	s := mounted()
	if !s.IsDisk() {
		os.Stderr.WriteString("mounted file is not a disk image\n")
		return -1
	}

	mode := "all"
	if len(args) > 0 {
		mode = strings.ToLower(args[0])
	}
	var images, asPNG bool
	switch mode {
	case "all":
	case "images":
		images = true
	case "png":
		images, asPNG = true, true
	default:
		os.Stderr.WriteString("extract expects images, png or all\n")
		return -1
	}

	n, err := extractCatalog(s.Catalog, ".", images, asPNG)
	if err != nil {
		return shellError(err)
	}
	fmt.Printf("%d files extracted\n", n)
	return 0
}

func shellIngest(args []string) int {
	return withShellStore(func(st *store.Store) error {
		ing := newIngestor(st, shellWorkers, false)
		ing.progress = os.Stdout
		if err := ing.walk(args...); err != nil {
			return err
		}
		ing.report(os.Stdout)
		return nil
	})
}

func shellSearch(args []string) int {
	q := store.Query{Name: args[0]}
	if len(args) > 1 {
		q.Format = args[1]
	}
	return withShellStore(func(st *store.Store) error {
		n, err := searchImages(os.Stdout, st, q)
		if err == nil && n == 0 {
			fmt.Println("No pictures found")
		}
		return err
	})
}

func shellExport(args []string) int {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return shellError(fmt.Errorf("bad picture id %q", args[0]))
	}
	return withShellStore(func(st *store.Store) error {
		return exportImage(st, id, args[1], strings.EqualFold(filepath.Ext(args[1]), ".png"))
	})
}

func shellDupes(args []string) int {
	return withShellStore(func(st *store.Store) error {
		return dupeReport(os.Stdout, st)
	})
}
