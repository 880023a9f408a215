package store

import (
	"context"
	"errors"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/blockforge/blockforge/pkg/config"
	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/scene"
	"github.com/blockforge/blockforge/pkg/transform"
)

// exercise runs the behavior every backend must share.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}
	if err := s.Put(ctx, "b", []byte("two")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "a", []byte("one")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "a", []byte("uno")); err != nil {
		t.Fatalf("Put (replace): %v", err)
	}
	data, err := s.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != "uno" {
		t.Errorf("Get = %q, want %q", data, "uno")
	}
	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Contains(ids, "a") || !slices.Contains(ids, "b") || !slices.IsSorted(ids) {
		t.Errorf("List = %v, want sorted ids including a and b", ids)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Errorf("Delete twice: %v", err)
	}
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete err = %v, want ErrNotFound", err)
	}
	_ = s.Delete(ctx, "b")
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore())
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	_ = s.Put(ctx, "x", buf)
	buf[0] = 'z'
	got, _ := s.Get(ctx, "x")
	if string(got) != "abc" {
		t.Errorf("Get = %q, want %q", got, "abc")
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	exercise(t, s)
}

func TestFileStoreRejectsBadIDs(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, id := range []string{"", "../escape", "a/b"} {
		if err := s.Put(context.Background(), id, []byte("x")); !bferrors.Is(err, bferrors.ErrCodeInvalidInput) {
			t.Errorf("Put(%q) err = %v, want INVALID_INPUT", id, err)
		}
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("BLOCKFORGE_REDIS_ADDR")
	if addr == "" {
		t.Skip("BLOCKFORGE_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), RedisConfig{
		Addr:    addr,
		Prefix:  "blockforge:test:" + time.Now().Format("150405.000") + ":",
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()
	exercise(t, s)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("BLOCKFORGE_MONGO_URI")
	if uri == "" {
		t.Skip("BLOCKFORGE_MONGO_URI not set")
	}
	s, err := NewMongoStore(context.Background(), MongoConfig{
		URI:        uri,
		Database:   "blockforge_test",
		Collection: "projects_" + time.Now().Format("150405"),
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewMongoStore: %v", err)
	}
	defer s.Close()
	exercise(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		cfg  config.Store
		name string
	}{
		{config.Store{Backend: config.BackendMemory}, "memory"},
		{config.Store{Backend: config.BackendFile, Path: t.TempDir()}, "file"},
	}
	for _, tt := range tests {
		s, err := Open(ctx, tt.cfg)
		if err != nil {
			t.Fatalf("Open(%s): %v", tt.cfg.Backend, err)
		}
		if s.Name() != tt.name {
			t.Errorf("Name = %q, want %q", s.Name(), tt.name)
		}
		s.Close()
	}
	if _, err := Open(ctx, config.Store{Backend: "tape"}); !bferrors.Is(err, bferrors.ErrCodeInvalidInput) {
		t.Errorf("Open(tape) err = %v, want INVALID_INPUT", err)
	}
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	p, err := scene.New(config.Default(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	inst, err := p.PlaceInstance(ctx, "brick-1x2", transform.At(1, 2, 3), "")
	if err != nil {
		t.Fatalf("PlaceInstance: %v", err)
	}

	s := NewMemoryStore()
	if err := Save(ctx, s, "castle", p); err != nil {
		t.Fatalf("Save: %v", err)
	}
	q, err := Load(ctx, s, "castle")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, err := q.Instance(inst.ID)
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	if !got.Transform.Equal(inst.Transform) {
		t.Errorf("transform = %v, want %v", got.Transform, inst.Transform)
	}
	if _, err := Load(ctx, s, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(nope) err = %v, want ErrNotFound", err)
	}
}

func TestRetry(t *testing.T) {
	defer func(d time.Duration) { retryDelay = d }(retryDelay)
	retryDelay = time.Millisecond
	boom := errors.New("boom")

	tests := []struct {
		name      string
		failures  int
		transient bool
		wantCalls int
		wantErr   error
	}{
		{"success", 0, true, 1, nil},
		{"recovers", 2, true, 3, nil},
		{"gives up", 5, true, 3, boom},
		{"permanent", 5, false, 1, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retry(context.Background(), func() error {
				calls++
				if calls <= tt.failures {
					if tt.transient {
						return transient(boom)
					}
					return boom
				}
				return nil
			})
			if err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}
