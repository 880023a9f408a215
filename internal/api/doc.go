// Package api serves one project over HTTP.
//
// The server holds a single [scene.Project] behind a mutex, so requests are
// applied one at a time in arrival order. Every mutating route is one
// project command and lands in its undo history.
//
// # Routes
//
//	GET    /project                 project document (pkg/io format)
//	GET    /instances               all instances
//	POST   /instances               place a block
//	GET    /instances/{id}          instance with world bounds and snap points
//	PATCH  /instances/{id}          move, assign, show/hide, lock, select
//	DELETE /instances/{id}          delete (?force=true detaches locked connections)
//	GET    /connections             all connections
//	PATCH  /connections/{id}        lock or unlock
//	DELETE /connections/{id}        break (?force=true for locked)
//	GET    /layers                  layer forest, depth-first
//	POST   /layers                  create a layer
//	PATCH  /layers/{id}             rename, reparent, reorder, visibility, lock, opacity
//	DELETE /layers/{id}             delete (?cascade=true removes contents)
//	POST   /undo, /redo             step through history
//	GET    /metrics                 Prometheus metrics, when configured
//
// Failures are JSON bodies {"code", "message", "rule"} with the status
// chosen by [StatusOf].
package api
