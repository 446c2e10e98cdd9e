package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxeledit.ai/internal/editor"
	"voxeledit.ai/internal/persistence/archive"
	persistlog "voxeledit.ai/internal/persistence/log"
	"voxeledit.ai/internal/persistence/snapshot"
	"voxeledit.ai/internal/persistence/store"
)

func main() {
	if len(os.Args) >= 2 {
		args := os.Args[2:]
		switch os.Args[1] {
		case "list":
			listCmd(args)
			return
		case "export":
			exportCmd(args)
			return
		case "import":
			importCmd(args)
			return
		case "delete":
			deleteCmd(args)
			return
		case "stats":
			statsCmd(args)
			return
		case "backup":
			backupCmd(args)
			return
		case "restore":
			restoreCmd(args)
			return
		case "journal":
			journalCmd(args)
			return
		case "db":
			dbCmd(args)
			return
		case "health":
			healthCmd(args)
			return
		case "push":
			pushCmd(args)
			return
		}
	}
	listCmd(os.Args[1:])
}

type storeFlags struct {
	dataDir *string
	backend *string
	path    *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		dataDir: fs.String("data", "./data", "runtime data directory"),
		backend: fs.String("backend", "sqlite", "store backend: sqlite|file"),
		path:    fs.String("store", "", "store path (default: derived from -data)"),
	}
}

func (f storeFlags) open() store.Store {
	path := strings.TrimSpace(*f.path)
	if path == "" {
		switch *f.backend {
		case "file":
			path = filepath.Join(*f.dataDir, "scenes")
		default:
			path = filepath.Join(*f.dataDir, "scenes.sqlite")
		}
	}
	st, err := store.Open(*f.backend, path)
	if err != nil {
		fatal("open store:", err)
	}
	return st
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	sf := addStoreFlags(fs)
	_ = fs.Parse(args)

	st := sf.open()
	defer st.Close()
	ctx, cancel := cmdContext()
	defer cancel()
	names, err := st.List(ctx)
	if err != nil {
		fatal("list:", err)
	}
	for _, n := range names {
		fmt.Println(n)
	}
}

func exportCmd(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	sf := addStoreFlags(fs)
	outPath := fs.String("out", "", "output file (default: stdout)")
	_ = fs.Parse(args)
	name := requireName(fs)

	st := sf.open()
	defer st.Close()
	ctx, cancel := cmdContext()
	defer cancel()
	scene, err := st.Load(ctx, name)
	if err != nil {
		fatal("load:", err)
	}
	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fatal("create:", err)
		}
		defer f.Close()
		out = f
	}
	if err := snapshot.ExportJSON(out, scene); err != nil {
		fatal("export:", err)
	}
}

func importCmd(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	sf := addStoreFlags(fs)
	as := fs.String("name", "", "scene name (default: name in the file)")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: import [flags] <file.json>")
		os.Exit(2)
	}

	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fatal("read:", err)
	}
	scene, err := snapshot.ImportJSON(b)
	if err != nil {
		fatal("import:", err)
	}
	name := strings.TrimSpace(*as)
	if name == "" {
		name = scene.Header.Name
	}
	scene.Header.Name = name

	st := sf.open()
	defer st.Close()
	ctx, cancel := cmdContext()
	defer cancel()
	if err := st.Save(ctx, name, scene); err != nil {
		fatal("save:", err)
	}
	fmt.Printf("imported %s (%d nodes)\n", name, len(scene.Nodes))
}

func deleteCmd(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	sf := addStoreFlags(fs)
	noArchive := fs.Bool("no_archive", false, "skip the backup taken before deleting")
	_ = fs.Parse(args)
	name := requireName(fs)

	st := sf.open()
	defer st.Close()
	ctx, cancel := cmdContext()
	defer cancel()
	if !*noArchive {
		scene, err := st.Load(ctx, name)
		if err != nil {
			fatal("load:", err)
		}
		scene.Header.Name = name
		path, err := archive.ArchiveScene(*sf.dataDir, scene, time.Now())
		if err != nil {
			fatal("archive:", err)
		}
		fmt.Println("archived", path)
	}
	if err := st.Delete(ctx, name); err != nil {
		fatal("delete:", err)
	}
}

func backupCmd(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	sf := addStoreFlags(fs)
	keep := fs.Int("keep", 0, "keep only the newest N backups (0 keeps all)")
	_ = fs.Parse(args)
	name := requireName(fs)

	st := sf.open()
	defer st.Close()
	ctx, cancel := cmdContext()
	defer cancel()
	scene, err := st.Load(ctx, name)
	if err != nil {
		fatal("load:", err)
	}
	scene.Header.Name = name
	path, err := archive.ArchiveScene(*sf.dataDir, scene, time.Now())
	if err != nil {
		fatal("archive:", err)
	}
	fmt.Println(path)
	if *keep > 0 {
		n, err := archive.Prune(*sf.dataDir, name, *keep)
		if err != nil {
			fatal("prune:", err)
		}
		if n > 0 {
			fmt.Printf("pruned %d old backups\n", n)
		}
	}
}

// restoreCmd writes the newest backup of a scene back into the store.
func restoreCmd(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	sf := addStoreFlags(fs)
	_ = fs.Parse(args)
	name := requireName(fs)

	scene, err := archive.Latest(*sf.dataDir, name)
	if err != nil {
		fatal("read backup:", err)
	}
	st := sf.open()
	defer st.Close()
	ctx, cancel := cmdContext()
	defer cancel()
	if err := st.Save(ctx, name, scene); err != nil {
		fatal("save:", err)
	}
	fmt.Printf("restored %s (%d nodes, saved %s)\n", name, len(scene.Nodes), scene.Header.SavedAt)
}

func statsCmd(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	sf := addStoreFlags(fs)
	_ = fs.Parse(args)
	name := requireName(fs)

	st := sf.open()
	defer st.Close()
	ctx, cancel := cmdContext()
	defer cancel()
	scene, err := st.Load(ctx, name)
	if err != nil {
		fatal("load:", err)
	}
	printJSON(sceneStats(scene))
}

type stats struct {
	Name    string      `json:"name"`
	Levels  int         `json:"levels"`
	SavedAt string      `json:"saved_at,omitempty"`
	Nodes   int         `json:"nodes"`
	Voxels  int         `json:"voxels"`
	ByLevel map[int]int `json:"by_level"`
	Colors  int         `json:"distinct_colors"`
	Min     [3]int      `json:"min"`
	Max     [3]int      `json:"max"`
}

// sceneStats summarizes a scene. Voxels counts the leaf volume covered by
// every stored node.
func sceneStats(scene snapshot.SceneV1) stats {
	s := stats{
		Name:    scene.Header.Name,
		Levels:  scene.Header.Levels,
		SavedAt: scene.Header.SavedAt,
		Nodes:   len(scene.Nodes),
		ByLevel: map[int]int{},
	}
	colors := map[[4]float32]struct{}{}
	for i, n := range scene.Nodes {
		s.ByLevel[n.Level]++
		colors[n.Color] = struct{}{}
		edge := 1
		if d := scene.Header.Levels - n.Level; d > 0 {
			edge = 1 << d
		}
		s.Voxels += edge * edge * edge
		for a := 0; a < 3; a++ {
			lo, hi := n.Anchor[a], n.Anchor[a]+edge-1
			if i == 0 || lo < s.Min[a] {
				s.Min[a] = lo
			}
			if i == 0 || hi > s.Max[a] {
				s.Max[a] = hi
			}
		}
	}
	s.Colors = len(colors)
	return s
}

func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	scene := fs.String("scene", "", "only entries for this scene")
	_ = fs.Parse(args)

	err := persistlog.ReadJournal(*dataDir, func(e editor.JournalEntry) error {
		if *scene != "" && e.Scene != *scene {
			return nil
		}
		printJSON(e)
		return nil
	})
	if err != nil {
		fatal("journal:", err)
	}
}

func requireName(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <scene>\n", fs.Name())
		os.Exit(2)
	}
	name := strings.TrimSpace(fs.Arg(0))
	if err := store.ValidName(name); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return name
}

func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Minute)
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}

func fatal(prefix string, err error) {
	fmt.Fprintln(os.Stderr, prefix, err)
	os.Exit(1)
}
