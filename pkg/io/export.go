package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/blockforge/blockforge/pkg/block"
	"github.com/blockforge/blockforge/pkg/config"
	"github.com/blockforge/blockforge/pkg/layer"
	"github.com/blockforge/blockforge/pkg/scene"
)

// FormatVersion is the document version written by this package.
const FormatVersion = 1

type document struct {
	Version     int                 `json:"version"`
	Config      config.Config       `json:"config"`
	Blocks      []*block.Block      `json:"blocks"`
	Layers      []layer.Layer       `json:"layers"`
	Instances   []*scene.Instance   `json:"instances"`
	Connections []*scene.Connection `json:"connections"`
}

// WriteJSON encodes a project as JSON and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(p *scene.Project, w io.Writer) error {
	s := p.Export()
	out := document{
		Version:     FormatVersion,
		Config:      s.Config,
		Blocks:      s.Blocks,
		Layers:      s.Layers,
		Instances:   s.Instances,
		Connections: s.Connections,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Marshal returns the JSON document of a project.
func Marshal(p *scene.Project) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(p, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportJSON writes a project to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(p *scene.Project, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(p, f)
}
