// Package config holds project settings and store connection details.
//
// Settings are read from TOML:
//
//	unit = "mm"
//	grid_size = 8
//	snap_enabled = true
//	snap_distance = 2
//
//	[store]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
// Zero values are filled with defaults by [Config.SetDefaults]; only
// SnapEnabled must be stated explicitly to be false. A project file carries
// its own copy of the editing settings, so the TOML file only seeds new
// projects.
package config

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/blockforge/blockforge/pkg/block"
	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/snap"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config is the project-wide configuration.
type Config struct {
	Unit        block.Unit `toml:"unit" json:"unit"`
	GridSize    float32    `toml:"grid_size" json:"gridSize"`
	SnapEnabled *bool      `toml:"snap_enabled" json:"snapEnabled"`

	SnapDistance          float32 `toml:"snap_distance" json:"snapDistance"`
	NormalTolerance       float32 `toml:"normal_tolerance" json:"normalTolerance"`
	DefaultMaxConnections int     `toml:"default_max_connections" json:"defaultMaxConnections"`
	RotationStep          float32 `toml:"rotation_step" json:"rotationStep"`
	RotationTolerance     float32 `toml:"rotation_tolerance" json:"rotationTolerance"`

	HistoryDepth int `toml:"history_depth" json:"historyDepth"`
	Workers      int `toml:"workers" json:"workers,omitempty"`

	Store Store `toml:"store" json:"-"`
}

// Store selects and configures a persistence backend.
type Store struct {
	Backend    string `toml:"backend"`
	Path       string `toml:"path"`
	RedisAddr  string `toml:"redis_addr"`
	RedisDB    int    `toml:"redis_db"`
	MongoURI   string `toml:"mongo_uri"`
	MongoDB    string `toml:"mongo_database"`
	KeyPrefix  string `toml:"key_prefix"`
	TimeoutSec int    `toml:"timeout_sec"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	var c Config
	c.SetDefaults()
	return c
}

// Load reads a TOML file and applies defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, bferrors.Wrap(bferrors.ErrCodeInvalidInput, err, "open config %s", path)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses TOML from r, applies defaults and validates.
func Decode(r io.Reader) (Config, error) {
	var c Config
	md, err := toml.NewDecoder(r).Decode(&c)
	if err != nil {
		return Config{}, bferrors.Wrap(bferrors.ErrCodeInvalidInput, err, "decode config")
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return Config{}, bferrors.New(bferrors.ErrCodeInvalidInput, "unknown config key %q", keys[0].String())
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// SetDefaults fills zero-valued fields.
func (c *Config) SetDefaults() {
	if c.Unit == "" {
		c.Unit = block.UnitMillimeter
	}
	if c.GridSize == 0 {
		c.GridSize = 8
	}
	if c.SnapEnabled == nil {
		on := true
		c.SnapEnabled = &on
	}
	if c.SnapDistance == 0 {
		c.SnapDistance = snap.DefaultSnapDistance
	}
	if c.NormalTolerance == 0 {
		c.NormalTolerance = snap.DefaultNormalTolerance
	}
	if c.DefaultMaxConnections == 0 {
		c.DefaultMaxConnections = snap.DefaultMaxConnections
	}
	if c.RotationStep == 0 {
		c.RotationStep = snap.DefaultRotationStep
	}
	if c.RotationTolerance == 0 {
		c.RotationTolerance = snap.DefaultRotationTolerance
	}
	if c.HistoryDepth == 0 {
		c.HistoryDepth = 500
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendFile
	}
	if c.Store.Path == "" {
		c.Store.Path = "projects"
	}
	if c.Store.KeyPrefix == "" {
		c.Store.KeyPrefix = "blockforge:project:"
	}
	if c.Store.MongoDB == "" {
		c.Store.MongoDB = "blockforge"
	}
	if c.Store.TimeoutSec == 0 {
		c.Store.TimeoutSec = 10
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if !c.Unit.Valid() {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "unknown unit %q", c.Unit)
	}
	if c.GridSize < 0 {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "grid_size must not be negative")
	}
	if c.SnapDistance < 0 {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "snap_distance must not be negative")
	}
	if c.NormalTolerance < -1 || c.NormalTolerance > 0 {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "normal_tolerance must be in [-1, 0], got %g", c.NormalTolerance)
	}
	if c.DefaultMaxConnections < 0 {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "default_max_connections must not be negative")
	}
	if c.RotationStep < 0 || c.RotationStep > 360 {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "rotation_step must be in [0, 360]")
	}
	if c.HistoryDepth < 0 {
		return bferrors.New(bferrors.ErrCodeInvalidInput, "history_depth must not be negative")
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis, BackendMongo:
	default:
		return bferrors.New(bferrors.ErrCodeInvalidInput, "unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// SnapOn reports whether snapping is enabled.
func (c *Config) SnapOn() bool {
	return c.SnapEnabled == nil || *c.SnapEnabled
}

// SnapOptions converts the editing settings into snap engine options.
func (c *Config) SnapOptions() snap.Options {
	return snap.Options{
		SnapDistance:          c.SnapDistance,
		NormalTolerance:       c.NormalTolerance,
		DefaultMaxConnections: c.DefaultMaxConnections,
		RotationStep:          c.RotationStep,
		RotationTolerance:     c.RotationTolerance,
		Workers:               c.Workers,
	}
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
