package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"voxeledit.ai/internal/editor"
)

func TestJournalWriteRead(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)
	entries := []editor.JournalEntry{
		{Scene: "a", Op: "toggle", Coords: [][3]int{{0, 0, 0}, {1, 2, 3}}, Value: true, Applied: 2},
		{Scene: "a", Op: "clear"},
		{Scene: "b", Op: "new"},
	}
	for _, e := range entries {
		if err := j.WriteEdit(e); err != nil {
			t.Fatalf("WriteEdit: %v", err)
		}
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var got []editor.JournalEntry
	if err := ReadJournal(dir, func(e editor.JournalEntry) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("ReadJournal: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("entries=%d want %d", len(got), len(entries))
	}
	if got[0].Op != "toggle" || len(got[0].Coords) != 2 || got[0].Coords[1] != [3]int{1, 2, 3} {
		t.Fatalf("first entry=%+v", got[0])
	}
	if got[2].Scene != "b" {
		t.Fatalf("last entry=%+v", got[2])
	}
}

func TestJSONLZstdWriterRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "x")
	at := time.Date(2024, 5, 1, 10, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return at }
	if err := w.Write(map[string]int{"n": 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	at = at.Add(2 * time.Minute)
	if err := w.Write(map[string]int{"n": 2}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := Files(dir, "x")
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	want := []string{
		filepath.Join(dir, "x-2024-05-01-10.jsonl.zst"),
		filepath.Join(dir, "x-2024-05-01-11.jsonl.zst"),
	}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Fatalf("files=%v want %v", files, want)
	}
	for _, f := range files {
		lines := 0
		if err := ReadLines(f, func([]byte) error { lines++; return nil }); err != nil {
			t.Fatalf("ReadLines: %v", err)
		}
		if lines != 1 {
			t.Fatalf("%s has %d lines", f, lines)
		}
	}
}

func TestJSONLZstdWriterVisibleBeforeClose(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "live")
	defer w.Close()
	if err := w.Write(map[string]string{"op": "toggle"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	files, err := Files(dir, "live")
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	st, err := os.Stat(files[0])
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Size() == 0 {
		t.Fatalf("journal file empty before close")
	}
}

func TestReadJournalMissingDir(t *testing.T) {
	err := ReadJournal(t.TempDir(), func(editor.JournalEntry) error { return nil })
	if !os.IsNotExist(err) {
		t.Fatalf("err=%v want not-exist", err)
	}
}
