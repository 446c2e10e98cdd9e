// Package editor owns a scene's octree and serializes every access to it
// through a single goroutine.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"voxeledit.ai/internal/octree"
	"voxeledit.ai/internal/persistence/snapshot"
	"voxeledit.ai/internal/persistence/store"
)

var ErrStopped = errors.New("editor stopped")

// JournalEntry records one mutating operation.
type JournalEntry struct {
	Time     string           `json:"time"`
	Scene    string           `json:"scene"`
	Op       string           `json:"op"`
	Coords   [][3]int         `json:"coords,omitempty"`
	Value    bool             `json:"value,omitempty"`
	Material *octree.Material `json:"material,omitempty"`
	Applied  int              `json:"applied"`
}

type Journal interface {
	WriteEdit(JournalEntry) error
}

type Config struct {
	Levels        int
	SceneName     string
	Store         store.Store
	Journal       Journal
	Logger        *zap.Logger
	AutosaveEvery time.Duration
}

// Info summarizes the current scene.
type Info struct {
	Scene  string `json:"scene"`
	Levels int    `json:"levels"`
	Range  int    `json:"range"`
	Nodes  int    `json:"nodes"`
	Active int    `json:"active"`
	Dirty  bool   `json:"dirty"`
}

type saveJob struct {
	name  string
	scene snapshot.SceneV1
	gen   uint64
}

type Editor struct {
	levels        int
	store         store.Store
	journal       Journal
	log           *zap.Logger
	autosaveEvery time.Duration

	cmds  chan func()
	saves chan saveJob
	done  chan struct{}

	// Owned by the Run goroutine.
	tree  *octree.Tree
	gen   uint64
	saved uint64
}

func New(cfg Config) (*Editor, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("editor: nil store")
	}
	if cfg.Levels == 0 {
		cfg.Levels = octree.DefaultLevels
	}
	if cfg.Levels < octree.MinLevels || cfg.Levels > octree.MaxLevels {
		return nil, fmt.Errorf("editor: levels %d outside %d..%d", cfg.Levels, octree.MinLevels, octree.MaxLevels)
	}
	if cfg.SceneName != "" {
		if err := store.ValidName(cfg.SceneName); err != nil {
			return nil, fmt.Errorf("editor: %w", err)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Editor{
		levels:        cfg.Levels,
		store:         cfg.Store,
		journal:       cfg.Journal,
		log:           logger,
		autosaveEvery: cfg.AutosaveEvery,
		cmds:          make(chan func(), 64),
		saves:         make(chan saveJob, 2),
		done:          make(chan struct{}),
	}
	e.tree = octree.New(cfg.Levels, octree.WithLogger(logger.Named("octree")), octree.WithName(cfg.SceneName))
	return e, nil
}

func (e *Editor) Levels() int { return e.levels }

// Run processes commands until ctx is done. A dirty named scene is saved one
// last time on the way out.
func (e *Editor) Run(ctx context.Context) error {
	defer close(e.done)

	saverCtx, stopSaver := context.WithCancel(context.Background())
	saverDone := make(chan struct{})
	go func() {
		defer close(saverDone)
		e.saver(saverCtx)
	}()
	defer func() {
		stopSaver()
		<-saverDone
	}()

	var tick <-chan time.Time
	if e.autosaveEvery > 0 {
		t := time.NewTicker(e.autosaveEvery)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			e.finalSave()
			return ctx.Err()
		case fn := <-e.cmds:
			fn()
		case <-tick:
			e.autosave()
		}
	}
}

func (e *Editor) dirty() bool { return e.gen != e.saved }

func (e *Editor) touch() { e.gen++ }

func (e *Editor) autosave() {
	name := e.tree.Name()
	if !e.dirty() || name == "" {
		return
	}
	job := saveJob{name: name, scene: e.snapshot(), gen: e.gen}
	select {
	case e.saves <- job:
	default:
		// A save is still in flight; the next tick retries.
	}
}

func (e *Editor) saver(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.saves:
			sctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			err := e.store.Save(sctx, job.name, job.scene)
			cancel()
			if err != nil {
				instrumentAutosave(false)
				e.log.Warn("autosave failed", zap.String("scene", job.name), zap.Error(err))
				continue
			}
			instrumentAutosave(true)
			e.log.Debug("autosaved", zap.String("scene", job.name), zap.Int("nodes", len(job.scene.Nodes)))
			gen := job.gen
			_ = e.do(ctx, func() { e.markSaved(gen) })
		}
	}
}

func (e *Editor) finalSave() {
	name := e.tree.Name()
	if e.autosaveEvery <= 0 || !e.dirty() || name == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.store.Save(ctx, name, e.snapshot()); err != nil {
		e.log.Error("final save failed", zap.String("scene", name), zap.Error(err))
		return
	}
	e.saved = e.gen
}

func (e *Editor) markSaved(gen uint64) {
	if gen > e.saved {
		e.saved = gen
	}
}

func (e *Editor) snapshot() snapshot.SceneV1 {
	s := e.tree.Snapshot()
	s.Header.SavedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return s
}

const (
	cmdPending int32 = iota
	cmdRunning
	cmdAbandoned
)

// do runs fn on the editor goroutine and waits for it to finish. A command
// whose ctx is done before it is dequeued never runs; once fn has started
// do waits for it regardless of ctx, so an error return means fn did not
// run.
func (e *Editor) do(ctx context.Context, fn func()) error {
	var state atomic.Int32
	finished := make(chan struct{})
	cmd := func() {
		if ctx.Err() != nil || !state.CompareAndSwap(cmdPending, cmdRunning) {
			return
		}
		defer close(finished)
		fn()
	}
	select {
	case e.cmds <- cmd:
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-e.done:
		if state.CompareAndSwap(cmdPending, cmdAbandoned) {
			return ErrStopped
		}
	case <-ctx.Done():
		if state.CompareAndSwap(cmdPending, cmdAbandoned) {
			return ctx.Err()
		}
	}
	<-finished
	return nil
}

func (e *Editor) record(op string, coords []octree.Coord, value bool, m *octree.Material, applied int) {
	if e.journal == nil {
		return
	}
	entry := JournalEntry{
		Time:     time.Now().UTC().Format(time.RFC3339Nano),
		Scene:    e.tree.Name(),
		Op:       op,
		Value:    value,
		Material: m,
		Applied:  applied,
	}
	if len(coords) > 0 {
		entry.Coords = make([][3]int, len(coords))
		for i, c := range coords {
			entry.Coords[i] = c.Array()
		}
	}
	if err := e.journal.WriteEdit(entry); err != nil {
		e.log.Warn("journal write failed", zap.String("op", op), zap.Error(err))
	}
}
