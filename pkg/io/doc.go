// Package io provides JSON import and export for blockforge projects.
//
// # Overview
//
// A project document carries the whole persistent entity set: the editing
// configuration, every published block version, the layer forest, placed
// instances and their connections. Undo history is not stored; a reloaded
// project starts with empty undo and redo stacks.
//
// # JSON Format
//
//	{
//	  "version": 1,
//	  "config": {"unit": "mm", "gridSize": 8, "snapDistance": 2, ...},
//	  "blocks": [{"id": "brick-2x2", "version": 1, "geometry": {...}, "snapPoints": [...]}],
//	  "layers": [{"id": "...", "name": "Default", "children": [], "instanceIds": ["..."]}],
//	  "instances": [{"id": "...", "blockId": "brick-2x2", "transform": {...}, "layerId": "..."}],
//	  "connections": [{"id": "...", "source": {...}, "target": {...}, "valid": true}]
//	}
//
// Ids are kept verbatim and float values are written in shortest form, so a
// document read back with [ReadJSON] reproduces the same project bit for bit.
//
// # Import
//
// [ReadJSON] and [ImportJSON] rebuild the project and check every
// cross-entity invariant. A dangling reference (an instance on a missing
// layer, a connection to a missing snap point) fails with NOT_FOUND:
//
//	p, err := io.ImportJSON("castle.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Export
//
// [WriteJSON] and [ExportJSON] write indented JSON:
//
//	if err := io.ExportJSON(p, "castle.json"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// Export reads the project without locking; callers sharing a project must
// serialize access themselves.
package io
