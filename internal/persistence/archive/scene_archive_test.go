package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxeledit.ai/internal/persistence/snapshot"
)

func testScene(nodes int) snapshot.SceneV1 {
	s := snapshot.SceneV1{Header: snapshot.Header{Version: snapshot.Version, Name: "castle", Levels: 4}}
	for i := 0; i < nodes; i++ {
		s.Nodes = append(s.Nodes, snapshot.NodeV1{Anchor: [3]int{i, 0, 0}, Level: 4, Active: true, Color: [4]float32{1, 1, 1, 1}})
	}
	return s
}

func TestArchiveScene(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p1, err := ArchiveScene(dir, testScene(1), t0)
	if err != nil {
		t.Fatalf("ArchiveScene: %v", err)
	}
	p2, err := ArchiveScene(dir, testScene(3), t0.Add(time.Second))
	if err != nil {
		t.Fatalf("ArchiveScene: %v", err)
	}
	if filepath.Dir(p1) != filepath.Join(dir, "archives", "castle") {
		t.Fatalf("archived to %s", p1)
	}

	files, err := List(dir, "castle")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 || files[0] != p1 || files[1] != p2 {
		t.Fatalf("files=%v", files)
	}

	latest, err := Latest(dir, "castle")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(latest.Nodes) != 3 {
		t.Fatalf("latest nodes=%d want 3", len(latest.Nodes))
	}

	b, err := os.ReadFile(filepath.Join(dir, "archives", "castle", "meta.json"))
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	var meta Meta
	if err := json.Unmarshal(b, &meta); err != nil {
		t.Fatalf("unmarshal meta: %v", err)
	}
	if meta.Scene != "castle" || meta.Nodes != 3 || meta.Snapshot != filepath.Base(p2) {
		t.Fatalf("meta=%+v", meta)
	}
}

func TestArchiveSceneRequiresName(t *testing.T) {
	s := testScene(1)
	s.Header.Name = ""
	if _, err := ArchiveScene(t.TempDir(), s, time.Now()); err == nil {
		t.Fatalf("expected error for unnamed scene")
	}
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if _, err := ArchiveScene(dir, testScene(i), t0.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("ArchiveScene: %v", err)
		}
	}
	n, err := Prune(dir, "castle", 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 3 {
		t.Fatalf("removed=%d want 3", n)
	}
	latest, err := Latest(dir, "castle")
	if err != nil || len(latest.Nodes) != 4 {
		t.Fatalf("latest nodes=%d err=%v", len(latest.Nodes), err)
	}
}

func TestLatestMissing(t *testing.T) {
	if _, err := Latest(t.TempDir(), "ghost"); !os.IsNotExist(err) {
		t.Fatalf("err=%v want not-exist", err)
	}
}
