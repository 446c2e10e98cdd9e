package editor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"voxeledit.ai/internal/octree"
	"voxeledit.ai/internal/persistence/store"
)

// Toggle sets the active flag and material of every addressed voxel.
// Coordinates outside the volume are dropped. It returns the number of
// voxels written.
func (e *Editor) Toggle(ctx context.Context, coords []octree.Coord, value bool, m octree.Material) (int, error) {
	in := make([]octree.Coord, 0, len(coords))
	for _, c := range coords {
		if octree.InRange(e.levels, c) {
			in = append(in, c)
		}
	}
	var applied int
	err := e.do(ctx, func() {
		applied = e.tree.ToggleVoxels(in, value, m)
		if applied > 0 {
			e.touch()
		}
		e.record("toggle", in, value, &m, applied)
	})
	if err != nil {
		instrumentOp("toggle", err)
		return 0, err
	}
	instrumentToggle(value, applied)
	instrumentOp("toggle", nil)
	return applied, nil
}

func (e *Editor) AllActive(ctx context.Context, coords []octree.Coord) (bool, error) {
	var all bool
	err := e.do(ctx, func() { all = e.tree.AllVoxelsActive(coords) })
	instrumentOp("query", err)
	return all, err
}

func (e *Editor) Clear(ctx context.Context) error {
	err := e.do(ctx, func() {
		e.tree.Clear()
		e.touch()
		e.record("clear", nil, false, nil, 0)
	})
	instrumentOp("clear", err)
	return err
}

func (e *Editor) Drawables(ctx context.Context) ([]octree.Drawable, error) {
	var ds []octree.Drawable
	err := e.do(ctx, func() { ds = e.tree.Drawables() })
	instrumentOp("drawables", err)
	if err == nil {
		instrumentDrawables(len(ds))
	}
	return ds, err
}

func (e *Editor) ActiveNodes(ctx context.Context) ([]octree.NodeRecord, error) {
	var recs []octree.NodeRecord
	err := e.do(ctx, func() { recs = e.tree.ActiveNodes() })
	instrumentOp("active", err)
	return recs, err
}

func (e *Editor) Info(ctx context.Context) (Info, error) {
	var info Info
	err := e.do(ctx, func() {
		info = Info{
			Scene:  e.tree.Name(),
			Levels: e.tree.Levels(),
			Range:  e.tree.Range(),
			Nodes:  e.tree.NodeCount(),
			Active: len(e.tree.ActiveNodes()),
			Dirty:  e.dirty(),
		}
	})
	return info, err
}

// NewScene empties the tree and names it. The previous scene is not saved.
func (e *Editor) NewScene(ctx context.Context, name string) error {
	if err := store.ValidName(name); err != nil {
		return err
	}
	err := e.do(ctx, func() {
		e.tree.Clear()
		e.tree.SetName(name)
		e.touch()
		e.saved = e.gen
		e.record("new", nil, false, nil, 0)
	})
	instrumentOp("new", err)
	return err
}

// Save persists the current scene under name, or under the scene's own
// name when name is empty. The snapshot is taken on the editor goroutine;
// the store write happens on the caller's. The scene takes the new name
// only once the write succeeded.
func (e *Editor) Save(ctx context.Context, name string) error {
	var (
		job     saveJob
		prev    string
		nameErr error
	)
	err := e.do(ctx, func() {
		prev = e.tree.Name()
		if name == "" {
			name = prev
		}
		if nameErr = store.ValidName(name); nameErr != nil {
			return
		}
		job = saveJob{name: name, scene: e.snapshot(), gen: e.gen}
		job.scene.Header.Name = name
	})
	if err == nil {
		err = nameErr
	}
	if err == nil {
		err = e.store.Save(ctx, job.name, job.scene)
	}
	if err == nil {
		// The scene is stored; record that even if ctx expired meanwhile.
		err = e.do(context.WithoutCancel(ctx), func() {
			// A NEW or LOAD in between owns the tree now.
			if e.tree.Name() != prev {
				return
			}
			e.tree.SetName(job.name)
			e.markSaved(job.gen)
		})
	}
	instrumentOp("save", err)
	if err != nil {
		return err
	}
	e.log.Info("scene saved", zap.String("scene", job.name), zap.Int("nodes", len(job.scene.Nodes)))
	return nil
}

// Load replaces the current scene with the stored one. store.ErrNotFound
// is returned untouched when the scene does not exist; the tree is then
// left as it was.
func (e *Editor) Load(ctx context.Context, name string, camera octree.Vec3) (int, error) {
	if err := store.ValidName(name); err != nil {
		return 0, err
	}
	scene, err := e.store.Load(ctx, name)
	if err != nil {
		instrumentOp("load", err)
		return 0, err
	}
	var (
		applied    int
		restoreErr error
	)
	err = e.do(ctx, func() {
		applied, restoreErr = e.tree.Restore(scene, camera)
		if restoreErr != nil {
			return
		}
		e.tree.SetName(name)
		e.touch()
		e.saved = e.gen
		e.record("load", nil, false, nil, applied)
	})
	if err == nil && restoreErr != nil {
		err = fmt.Errorf("load %q: %w", name, restoreErr)
	}
	instrumentOp("load", err)
	if err != nil {
		return 0, err
	}
	e.log.Info("scene loaded", zap.String("scene", name), zap.Int("applied", applied))
	return applied, nil
}

func (e *Editor) Delete(ctx context.Context, name string) error {
	if err := store.ValidName(name); err != nil {
		return err
	}
	err := e.store.Delete(ctx, name)
	instrumentOp("delete", err)
	return err
}

func (e *Editor) List(ctx context.Context) ([]string, error) {
	names, err := e.store.List(ctx)
	instrumentOp("list", err)
	return names, err
}

func (e *Editor) Exists(ctx context.Context, name string) (bool, error) {
	return e.store.Exists(ctx, name)
}

// IsNotFound reports whether err means a missing scene.
func IsNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }
