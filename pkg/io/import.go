package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/scene"
)

// ReadJSON decodes a project document from r.
//
// ReadJSON returns an error if:
//   - The JSON is malformed or has an unsupported version
//   - A block fails validation or repeats an (id, version) pair
//   - The layer forest has cycles or inconsistent ownership
//   - An instance or connection references a missing entity (NOT_FOUND)
//
// Options are passed to the rebuilt project (logger, id generator).
// ReadJSON does not close r.
func ReadJSON(r io.Reader, opts ...scene.Option) (*scene.Project, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, bferrors.Wrap(bferrors.ErrCodeInvalidInput, err, "decode project")
	}
	if doc.Version != FormatVersion {
		return nil, bferrors.New(bferrors.ErrCodeInvalidInput,
			"unsupported project version %d (want %d)", doc.Version, FormatVersion)
	}

	p, err := scene.Import(&scene.Snapshot{
		Config:      doc.Config,
		Blocks:      doc.Blocks,
		Layers:      doc.Layers,
		Instances:   doc.Instances,
		Connections: doc.Connections,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	return p, nil
}

// Unmarshal decodes a project document held in memory.
func Unmarshal(data []byte, opts ...scene.Option) (*scene.Project, error) {
	return ReadJSON(bytes.NewReader(data), opts...)
}

// ImportJSON reads a JSON file at path and returns the decoded project.
//
// ImportJSON returns the same validation errors as [ReadJSON], wrapped with
// the file path.
func ImportJSON(path string, opts ...scene.Option) (*scene.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	p, err := ReadJSON(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
