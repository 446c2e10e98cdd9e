// Package archive keeps point-in-time backups of scenes under
// <data>/archives/<scene>/.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"voxeledit.ai/internal/persistence/snapshot"
)

const suffix = ".scene.zst"

type Meta struct {
	Scene     string `json:"scene"`
	Levels    int    `json:"levels"`
	Nodes     int    `json:"nodes"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// ArchiveScene writes scene to a new timestamped file and refreshes the
// directory's meta.json. It returns the written path.
func ArchiveScene(dataDir string, scene snapshot.SceneV1, now time.Time) (string, error) {
	name := scene.Header.Name
	if name == "" {
		return "", fmt.Errorf("archive: scene has no name")
	}
	dir := filepath.Join(dataDir, "archives", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, now.UTC().Format("20060102T150405.000000000Z")+suffix)
	if err := snapshot.WriteScene(dst, scene); err != nil {
		return "", err
	}

	meta := Meta{
		Scene:     name,
		Levels:    scene.Header.Levels,
		Nodes:     len(scene.Nodes),
		Snapshot:  filepath.Base(dst),
		CreatedAt: now.UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644)
	}
	return dst, nil
}

// List returns the archived files of a scene, oldest first.
func List(dataDir, name string) ([]string, error) {
	dir := filepath.Join(dataDir, "archives", name)
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Latest reads the newest archived copy of a scene.
func Latest(dataDir, name string) (snapshot.SceneV1, error) {
	files, err := List(dataDir, name)
	if err != nil {
		return snapshot.SceneV1{}, err
	}
	if len(files) == 0 {
		return snapshot.SceneV1{}, os.ErrNotExist
	}
	return snapshot.ReadScene(files[len(files)-1])
}

// Prune deletes all but the newest keep archives of a scene and returns how
// many were removed.
func Prune(dataDir, name string, keep int) (int, error) {
	files, err := List(dataDir, name)
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	removed := 0
	for i := 0; i < len(files)-keep; i++ {
		if err := os.Remove(files[i]); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
