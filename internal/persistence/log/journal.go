package log

import (
	"encoding/json"
	"path/filepath"

	"voxeledit.ai/internal/editor"
)

const journalPrefix = "edits"

// Journal writes one compressed JSONL entry per scene edit.
type Journal struct{ w *JSONLZstdWriter }

func NewJournal(dataDir string) *Journal {
	return &Journal{w: NewJSONLZstdWriter(filepath.Join(dataDir, "journal"), journalPrefix)}
}

func (j *Journal) WriteEdit(e editor.JournalEntry) error { return j.w.Write(e) }
func (j *Journal) Close() error                          { return j.w.Close() }

// ReadJournal replays every entry under dataDir in write order.
func ReadJournal(dataDir string, fn func(editor.JournalEntry) error) error {
	files, err := Files(filepath.Join(dataDir, "journal"), journalPrefix)
	if err != nil {
		return err
	}
	for _, p := range files {
		err := ReadLines(p, func(line []byte) error {
			var e editor.JournalEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			return fn(e)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
