package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voxeledit.ai/internal/persistence/snapshot"
)

const sceneExt = ".scene.zst"

// FileStore keeps one compressed scene file per name in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("empty scene dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+sceneExt)
}

func (s *FileStore) Save(ctx context.Context, name string, scene snapshot.SceneV1) error {
	if err := ValidName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return snapshot.WriteScene(s.path(name), scene)
}

func (s *FileStore) Load(ctx context.Context, name string) (snapshot.SceneV1, error) {
	if err := ValidName(name); err != nil {
		return snapshot.SceneV1{}, err
	}
	if err := ctx.Err(); err != nil {
		return snapshot.SceneV1{}, err
	}
	scene, err := snapshot.ReadScene(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return scene, ErrNotFound
	}
	return scene, err
}

func (s *FileStore) Delete(_ context.Context, name string) error {
	if err := ValidName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	ents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), sceneExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), sceneExt))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) Exists(_ context.Context, name string) (bool, error) {
	if err := ValidName(name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *FileStore) Close() error { return nil }
