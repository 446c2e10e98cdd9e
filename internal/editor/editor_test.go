package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voxeledit.ai/internal/octree"
	"voxeledit.ai/internal/persistence/snapshot"
	"voxeledit.ai/internal/persistence/store"
)

type memJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
}

func (j *memJournal) WriteEdit(e JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

func (j *memJournal) ops() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.entries))
	for _, e := range j.entries {
		out = append(out, e.Op)
	}
	return out
}

// slowJournal blocks the editor goroutine for delay on every edit.
type slowJournal struct {
	delay   time.Duration
	entered chan struct{}
}

func (j *slowJournal) WriteEdit(JournalEntry) error {
	select {
	case j.entered <- struct{}{}:
	default:
	}
	time.Sleep(j.delay)
	return nil
}

type failingStore struct {
	store.Store
	mu    sync.Mutex
	fails int
}

func (s *failingStore) Save(ctx context.Context, name string, scene snapshot.SceneV1) error {
	s.mu.Lock()
	s.fails++
	s.mu.Unlock()
	return errors.New("disk full")
}

// startEditor runs an editor until the test ends. stop cancels it and
// returns Run's error; it is safe to call more than once.
func startEditor(t *testing.T, cfg Config) (e *Editor, stop func() error) {
	t.Helper()
	if cfg.Levels == 0 {
		cfg.Levels = 3
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()
	var (
		once   sync.Once
		runErr error
	)
	stop = func() error {
		once.Do(func() {
			cancel()
			runErr = <-errCh
		})
		return runErr
	}
	t.Cleanup(func() { _ = stop() })
	return e, stop
}

var red = octree.Material{Color: [4]float32{1, 0, 0, 1}}

func TestNew_Validates(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("expected error for nil store")
	}
	ms := store.NewMemoryStore()
	if _, err := New(Config{Store: ms, Levels: 1}); err == nil {
		t.Fatalf("expected error for levels=1")
	}
	if _, err := New(Config{Store: ms, Levels: 9}); err == nil {
		t.Fatalf("expected error for levels=9")
	}
	if _, err := New(Config{Store: ms, Levels: 3, SceneName: "../x"}); err == nil {
		t.Fatalf("expected error for bad scene name")
	}
	e, err := New(Config{Store: ms, Levels: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.Levels() != 2 {
		t.Fatalf("levels=%d", e.Levels())
	}
}

func TestToggleQueryClear(t *testing.T) {
	j := &memJournal{}
	e, _ := startEditor(t, Config{Journal: j, SceneName: "s"})
	ctx := context.Background()

	coords := []octree.Coord{{0, 0, 0}, {1, 1, 1}, {99, 0, 0}}
	n, err := e.Toggle(ctx, coords, true, red)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if n != 2 {
		t.Fatalf("applied=%d want 2", n)
	}
	all, err := e.AllActive(ctx, coords[:2])
	if err != nil || !all {
		t.Fatalf("AllActive=%v err=%v", all, err)
	}
	all, _ = e.AllActive(ctx, []octree.Coord{{0, 0, 0}, {-1, 0, 0}})
	if all {
		t.Fatalf("expected false with an inactive voxel")
	}

	ds, err := e.Drawables(ctx)
	if err != nil {
		t.Fatalf("Drawables: %v", err)
	}
	if len(ds) != 2 {
		t.Fatalf("drawables=%d want 2", len(ds))
	}
	for _, d := range ds {
		if d.Color != red.Color || d.Scale != 1 {
			t.Fatalf("unexpected drawable %+v", d)
		}
	}

	info, err := e.Info(ctx)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Scene != "s" || info.Levels != 3 || info.Range != 2 || info.Active != 2 || !info.Dirty {
		t.Fatalf("info=%+v", info)
	}
	if info.Nodes != 73 {
		t.Fatalf("nodes=%d want 73", info.Nodes)
	}

	if err := e.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	recs, _ := e.ActiveNodes(ctx)
	if len(recs) != 0 {
		t.Fatalf("active after clear=%d", len(recs))
	}

	ops := j.ops()
	if len(ops) != 2 || ops[0] != "toggle" || ops[1] != "clear" {
		t.Fatalf("journal ops=%v", ops)
	}
	j.mu.Lock()
	first := j.entries[0]
	j.mu.Unlock()
	if len(first.Coords) != 2 || first.Applied != 2 || !first.Value || first.Scene != "s" {
		t.Fatalf("journal entry=%+v", first)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := startEditor(t, Config{Store: ms})
	ctx := context.Background()

	if err := e.Save(ctx, ""); err == nil {
		t.Fatalf("expected error saving an unnamed scene")
	}
	if _, err := e.Toggle(ctx, []octree.Coord{{-2, -2, -2}, {1, 0, -1}}, true, red); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if err := e.Save(ctx, "castle"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, _ := e.Info(ctx)
	if info.Dirty || info.Scene != "castle" {
		t.Fatalf("after save info=%+v", info)
	}
	ok, err := e.Exists(ctx, "castle")
	if err != nil || !ok {
		t.Fatalf("Exists=%v err=%v", ok, err)
	}

	if err := e.NewScene(ctx, "blank"); err != nil {
		t.Fatalf("NewScene: %v", err)
	}
	recs, _ := e.ActiveNodes(ctx)
	if len(recs) != 0 {
		t.Fatalf("new scene has %d active nodes", len(recs))
	}

	applied, err := e.Load(ctx, "castle", octree.Vec3{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if applied != 2 {
		t.Fatalf("applied=%d want 2", applied)
	}
	all, _ := e.AllActive(ctx, []octree.Coord{{-2, -2, -2}, {1, 0, -1}})
	if !all {
		t.Fatalf("restored voxels not active")
	}
	info, _ = e.Info(ctx)
	if info.Scene != "castle" || info.Dirty {
		t.Fatalf("after load info=%+v", info)
	}

	names, err := e.List(ctx)
	if err != nil || len(names) != 1 || names[0] != "castle" {
		t.Fatalf("List=%v err=%v", names, err)
	}
	if err := e.Delete(ctx, "castle"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := e.Delete(ctx, "castle"); !IsNotFound(err) {
		t.Fatalf("second Delete err=%v", err)
	}
}

func TestLoad_NotFoundLeavesSceneAlone(t *testing.T) {
	e, _ := startEditor(t, Config{SceneName: "keep"})
	ctx := context.Background()
	if _, err := e.Toggle(ctx, []octree.Coord{{0, 0, 0}}, true, red); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	_, err := e.Load(ctx, "missing", octree.Vec3{})
	if !IsNotFound(err) {
		t.Fatalf("Load err=%v want not found", err)
	}
	all, _ := e.AllActive(ctx, []octree.Coord{{0, 0, 0}})
	if !all {
		t.Fatalf("scene was modified by a failed load")
	}
}

func TestLoad_DepthMismatch(t *testing.T) {
	ms := store.NewMemoryStore()
	other := octree.New(4, octree.WithName("deep"))
	other.ToggleVoxels([]octree.Coord{{3, 3, 3}}, true, red)
	if err := ms.Save(context.Background(), "deep", other.Snapshot()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	e, _ := startEditor(t, Config{Store: ms, Levels: 3})
	if _, err := e.Load(context.Background(), "deep", octree.Vec3{}); !errors.Is(err, octree.ErrDepthMismatch) {
		t.Fatalf("err=%v want ErrDepthMismatch", err)
	}
}

func TestAutosave(t *testing.T) {
	ms := store.NewMemoryStore()
	e, _ := startEditor(t, Config{Store: ms, SceneName: "auto", AutosaveEvery: 10 * time.Millisecond})
	ctx := context.Background()
	if _, err := e.Toggle(ctx, []octree.Coord{{0, 1, 0}}, true, red); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		ok, _ := ms.Exists(ctx, "auto")
		if ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("scene was not autosaved")
		}
		time.Sleep(5 * time.Millisecond)
	}
	scene, err := ms.Load(ctx, "auto")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(scene.Nodes) != 1 || scene.Header.SavedAt == "" {
		t.Fatalf("autosaved scene=%+v", scene)
	}
	for {
		info, _ := e.Info(ctx)
		if !info.Dirty {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("scene still dirty after autosave")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAutosave_FailureIsNotFatal(t *testing.T) {
	fs := &failingStore{Store: store.NewMemoryStore()}
	e, _ := startEditor(t, Config{Store: fs, SceneName: "doomed", AutosaveEvery: 5 * time.Millisecond})
	ctx := context.Background()
	if _, err := e.Toggle(ctx, []octree.Coord{{0, 0, 0}}, true, red); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	info, err := e.Info(ctx)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if !info.Dirty {
		t.Fatalf("scene should stay dirty when saves fail")
	}
	fs.mu.Lock()
	fails := fs.fails
	fs.mu.Unlock()
	if fails == 0 {
		t.Fatalf("store was never called")
	}
}

func TestFinalSaveOnShutdown(t *testing.T) {
	ms := store.NewMemoryStore()
	e, stop := startEditor(t, Config{Store: ms, SceneName: "last", AutosaveEvery: time.Hour})
	ctx := context.Background()
	if _, err := e.Toggle(ctx, []octree.Coord{{1, 1, 1}}, true, red); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if err := stop(); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err=%v", err)
	}

	ok, _ := ms.Exists(ctx, "last")
	if !ok {
		t.Fatalf("dirty scene was not saved on shutdown")
	}
	if _, err := e.Info(ctx); !errors.Is(err, ErrStopped) {
		t.Fatalf("Info after stop err=%v want ErrStopped", err)
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	ms := store.NewMemoryStore()
	e, err := New(Config{Store: ms, Levels: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Not running: the command sits in the buffer until ctx expires.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := e.Info(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v want deadline exceeded", err)
	}
}

func TestDo_ExpiredCommandDoesNotRun(t *testing.T) {
	j := &slowJournal{delay: 200 * time.Millisecond, entered: make(chan struct{}, 1)}
	e, _ := startEditor(t, Config{Journal: j, SceneName: "s"})

	firstDone := make(chan error, 1)
	go func() {
		_, err := e.Toggle(context.Background(), []octree.Coord{{0, 0, 0}}, true, red)
		firstDone <- err
	}()
	<-j.entered

	// The loop is busy journaling the first toggle; this one expires in the queue.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := e.Toggle(ctx, []octree.Coord{{1, 0, 0}}, true, red); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v want deadline exceeded", err)
	}
	if err := <-firstDone; err != nil {
		t.Fatalf("first Toggle: %v", err)
	}

	bg := context.Background()
	if all, _ := e.AllActive(bg, []octree.Coord{{0, 0, 0}}); !all {
		t.Fatalf("first toggle was not applied")
	}
	if all, _ := e.AllActive(bg, []octree.Coord{{1, 0, 0}}); all {
		t.Fatalf("toggle reported as failed was applied")
	}
}

func TestDo_StartedCommandIsAwaited(t *testing.T) {
	j := &slowJournal{delay: 100 * time.Millisecond, entered: make(chan struct{}, 1)}
	e, _ := startEditor(t, Config{Journal: j, SceneName: "s"})

	ctx, cancel := context.WithCancel(context.Background())
	res := make(chan error, 1)
	go func() {
		_, err := e.Toggle(ctx, []octree.Coord{{0, 0, 0}}, true, red)
		res <- err
	}()
	<-j.entered
	cancel()
	if err := <-res; err != nil {
		t.Fatalf("started toggle reported err=%v", err)
	}
	if all, _ := e.AllActive(context.Background(), []octree.Coord{{0, 0, 0}}); !all {
		t.Fatalf("toggle not applied")
	}
}

func TestSave_FailureKeepsName(t *testing.T) {
	fs := &failingStore{Store: store.NewMemoryStore()}
	e, _ := startEditor(t, Config{Store: fs, SceneName: "orig"})
	ctx := context.Background()
	if _, err := e.Toggle(ctx, []octree.Coord{{0, 0, 0}}, true, red); err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if err := e.Save(ctx, "renamed"); err == nil {
		t.Fatalf("expected save error")
	}
	info, err := e.Info(ctx)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Scene != "orig" || !info.Dirty {
		t.Fatalf("after failed save info=%+v", info)
	}
}
