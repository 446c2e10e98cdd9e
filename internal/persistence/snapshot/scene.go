package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
	Levels  int    `json:"levels"`
	SavedAt string `json:"saved_at,omitempty"`
}

// SceneV1 is a persisted scene: its name plus every active node.
type SceneV1 struct {
	Header Header   `json:"header"`
	Nodes  []NodeV1 `json:"active_nodes"`
}

type NodeV1 struct {
	Anchor [3]int     `json:"anchor"`
	Level  int        `json:"level"`
	Active bool       `json:"active"`
	Color  [4]float32 `json:"color"`
	Fluid  uint8      `json:"fluid"`
	Noise  uint8      `json:"noise"`
}

// Encode writes scene as a zstd stream holding one JSON header line
// followed by the gob-encoded scene.
func Encode(w io.Writer, scene SceneV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, err := json.Marshal(scene.Header)
	if err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&scene); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func Decode(r io.Reader) (SceneV1, error) {
	var scene SceneV1
	dec, err := zstd.NewReader(r)
	if err != nil {
		return scene, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// The header line is for tooling; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return scene, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&scene); err != nil {
		return scene, fmt.Errorf("gob decode: %w", err)
	}
	if scene.Header.Version != Version {
		return scene, fmt.Errorf("unsupported scene version %d", scene.Header.Version)
	}
	return scene, nil
}

// ReadHeader decodes only the leading header line.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	dec, err := zstd.NewReader(r)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

func Marshal(scene SceneV1) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, scene); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Unmarshal(b []byte) (SceneV1, error) {
	return Decode(bytes.NewReader(b))
}

// WriteScene writes to a unique temp file next to path and renames it into
// place, so concurrent writers of the same path never share a temp file.
func WriteScene(path string, scene SceneV1) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := Encode(f, scene); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func ReadScene(path string) (SceneV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return SceneV1{}, err
	}
	defer f.Close()
	return Decode(f)
}
