// Package store persists project documents.
//
// A [Store] maps project ids to encoded documents (see pkg/io). Backends:
//   - memory: in-process map, for tests and the HTTP server without a backing store
//   - file: one <id>.json file per project in a directory
//   - redis: one key per project under a configurable prefix
//   - mongo: one document per project in the "projects" collection
//
// [Open] selects a backend from config; [Save] and [Load] encode and decode
// projects and report to the store hooks in pkg/observability.
//
//	s, err := store.Open(ctx, cfg.Store)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	if err := store.Save(ctx, s, "castle", p); err != nil {
//	    return err
//	}
package store

import (
	"context"
	"errors"
	"time"

	"github.com/blockforge/blockforge/pkg/config"
	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/io"
	"github.com/blockforge/blockforge/pkg/observability"
	"github.com/blockforge/blockforge/pkg/scene"
)

// ErrNotFound is returned when a project id has no stored document.
var ErrNotFound = errors.New("project not found")

// Store is the interface for project storage backends.
type Store interface {
	// Name identifies the backend ("file", "redis", ...).
	Name() string

	// Get returns the stored document, or ErrNotFound.
	Get(ctx context.Context, id string) ([]byte, error)

	// Put stores a document, replacing any previous one.
	Put(ctx context.Context, id string, data []byte) error

	// Delete removes a document. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the stored project ids, sorted.
	List(ctx context.Context) ([]string, error)

	// Close releases connections held by the backend.
	Close() error
}

// Open creates the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile, "":
		return NewFileStore(cfg.Path)
	case config.BackendRedis:
		return NewRedisStore(ctx, RedisConfig{
			Addr:    cfg.RedisAddr,
			DB:      cfg.RedisDB,
			Prefix:  cfg.KeyPrefix,
			Timeout: timeout,
		})
	case config.BackendMongo:
		return NewMongoStore(ctx, MongoConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDB,
			Timeout:  timeout,
		})
	default:
		return nil, bferrors.New(bferrors.ErrCodeInvalidInput, "unknown store backend %q", cfg.Backend)
	}
}

// Save encodes p and stores it under id.
func Save(ctx context.Context, s Store, id string, p *scene.Project) error {
	if err := bferrors.ValidateID("project", id); err != nil {
		return err
	}
	start := time.Now()
	data, err := io.Marshal(p)
	if err == nil {
		err = s.Put(ctx, id, data)
	}
	observability.Store().OnSave(ctx, s.Name(), len(data), time.Since(start), err)
	return err
}

// Load fetches and decodes the project stored under id.
func Load(ctx context.Context, s Store, id string, opts ...scene.Option) (*scene.Project, error) {
	if err := bferrors.ValidateID("project", id); err != nil {
		return nil, err
	}
	start := time.Now()
	data, err := s.Get(ctx, id)
	var p *scene.Project
	if err == nil {
		p, err = io.Unmarshal(data, opts...)
	}
	observability.Store().OnLoad(ctx, s.Name(), len(data), time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return p, nil
}
