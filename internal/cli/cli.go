// Package cli implements the blockforge command-line interface.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/blockforge/blockforge/pkg/buildinfo"
	"github.com/blockforge/blockforge/pkg/config"
	bfio "github.com/blockforge/blockforge/pkg/io"
	"github.com/blockforge/blockforge/pkg/scene"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "blockforge"

	// configFile is looked up under the user config dir when --config is unset.
	configFile = "config.toml"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Blockforge edits snap-together block scenes",
		Long:         `Blockforge places building blocks in 3D space, snaps them together at their connection points and keeps the result organized in layers with full undo history.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/blockforge/config.toml)")

	root.AddCommand(c.newCommand())
	root.AddCommand(c.applyCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.layersCommand())
	root.AddCommand(c.blocksCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.pushCommand())
	root.AddCommand(c.pullCommand())
	root.AddCommand(c.projectsCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Projects
// =============================================================================

// loadConfig reads --config, falling back to the user config file and then
// to defaults when neither exists.
func (c *CLI) loadConfig() (config.Config, error) {
	if c.configPath != "" {
		return config.Load(c.configPath)
	}
	dir, err := configDir()
	if err != nil {
		return config.Default(), nil
	}
	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	c.Logger.Debug("using config", "path", path)
	return config.Load(path)
}

// openProject reads a project file, logging scene activity to the CLI logger.
func (c *CLI) openProject(ctx context.Context, path string) (*scene.Project, error) {
	p, err := bfio.ImportJSON(path, scene.WithLogger(loggerFromContext(ctx)))
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("project loaded", "path", path, "instances", p.InstanceCount(), "connections", len(p.AllConnections()))
	return p, nil
}

// =============================================================================
// Paths
// =============================================================================

// configDir returns the config directory using XDG standard (~/.config/blockforge/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
