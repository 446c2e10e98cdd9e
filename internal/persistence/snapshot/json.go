package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed scene.schema.json
var sceneSchemaJSON string

const sceneSchemaURL = "https://voxeledit.ai/schemas/scene.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func sceneSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString(sceneSchemaURL, sceneSchemaJSON)
	})
	return schema, schemaErr
}

// ExportJSON writes scene as indented JSON.
func ExportJSON(w io.Writer, scene SceneV1) error {
	if scene.Nodes == nil {
		scene.Nodes = []NodeV1{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(scene)
}

// ImportJSON validates b against the scene schema and decodes it.
func ImportJSON(b []byte) (SceneV1, error) {
	var scene SceneV1
	s, err := sceneSchema()
	if err != nil {
		return scene, fmt.Errorf("compile scene schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return scene, fmt.Errorf("scene json: %w", err)
	}
	if err := s.Validate(raw); err != nil {
		return scene, fmt.Errorf("scene json: %w", err)
	}
	if err := json.Unmarshal(b, &scene); err != nil {
		return scene, fmt.Errorf("scene json: %w", err)
	}
	return scene, nil
}
