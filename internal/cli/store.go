package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blockforge/blockforge/pkg/config"
	bfio "github.com/blockforge/blockforge/pkg/io"
	"github.com/blockforge/blockforge/pkg/scene"
	"github.com/blockforge/blockforge/pkg/store"
)

// storeFlags override the [store] section of the config file.
type storeFlags struct {
	backend   string
	path      string
	redisAddr string
	mongoURI  string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.backend, "store", "", "store backend: file, redis, mongo (default from config)")
	cmd.Flags().StringVar(&f.path, "store-path", "", "directory of the file store")
	cmd.Flags().StringVar(&f.redisAddr, "redis-addr", "", "redis address (host:port)")
	cmd.Flags().StringVar(&f.mongoURI, "mongo-uri", "", "mongo connection URI")
}

func (f *storeFlags) apply(cfg *config.Store) {
	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if f.path != "" {
		cfg.Path = f.path
	}
	if f.redisAddr != "" {
		cfg.RedisAddr = f.redisAddr
	}
	if f.mongoURI != "" {
		cfg.MongoURI = f.mongoURI
	}
}

// openStore connects to the configured backend with a spinner, since redis
// and mongo may take a moment to answer.
func (c *CLI) openStore(ctx context.Context, flags *storeFlags) (store.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	flags.apply(&cfg.Store)

	spinner := newSpinnerWithContext(ctx, "Connecting to "+backendName(cfg.Store.Backend)+" store...")
	spinner.Start()
	s, err := store.Open(ctx, cfg.Store)
	spinner.Stop()
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("store opened", "backend", s.Name())
	return s, nil
}

func backendName(b string) string {
	if b == "" {
		return config.BackendFile
	}
	return b
}

// projectID derives a store id from a project file name.
func projectID(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// pushCommand creates the push command, which uploads a project file.
func (c *CLI) pushCommand() *cobra.Command {
	var (
		id    string
		flags storeFlags
	)

	cmd := &cobra.Command{
		Use:   "push <project.json>",
		Short: "Save a project file to the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := c.openProject(ctx, args[0])
			if err != nil {
				return err
			}
			if id == "" {
				id = projectID(args[0])
			}
			s, err := c.openStore(ctx, &flags)
			if err != nil {
				return err
			}
			defer s.Close()

			prog := newProgress(c.Logger)
			if err := store.Save(ctx, s, id, p); err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Pushed %s to %s", id, s.Name()))
			printSuccess("Pushed project %s", StyleValue.Render(id))
			printDetail("Backend: %s", s.Name())
			printNextStep("Fetch it again", "blockforge pull "+id)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "store id (default: file name without extension)")
	flags.register(cmd)
	return cmd
}

// pullCommand creates the pull command, which downloads a project to a file.
func (c *CLI) pullCommand() *cobra.Command {
	var (
		output string
		flags  storeFlags
	)

	cmd := &cobra.Command{
		Use:   "pull <id>",
		Short: "Load a project from the configured store into a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openStore(ctx, &flags)
			if err != nil {
				return err
			}
			defer s.Close()

			p, err := store.Load(ctx, s, args[0], scene.WithLogger(c.Logger))
			if err != nil {
				return err
			}
			out := output
			if out == "" {
				out = args[0] + ".json"
			}
			if err := bfio.ExportJSON(p, out); err != nil {
				return err
			}
			printSuccess("Pulled project %s", StyleValue.Render(args[0]))
			printFile(out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <id>.json)")
	flags.register(cmd)
	return cmd
}

// projectsCommand creates the projects command, which lists stored ids.
func (c *CLI) projectsCommand() *cobra.Command {
	var (
		remove string
		flags  storeFlags
	)

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List (or remove) projects in the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openStore(ctx, &flags)
			if err != nil {
				return err
			}
			defer s.Close()

			if remove != "" {
				if err := s.Delete(ctx, remove); err != nil {
					return err
				}
				printSuccess("Removed project %s", StyleValue.Render(remove))
				return nil
			}
			ids, err := s.List(ctx)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				printInfo("No projects in %s store", s.Name())
				return nil
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			printSummary(fmt.Sprintf("%d projects", len(ids)), s.Name())
			return nil
		},
	}

	cmd.Flags().StringVar(&remove, "rm", "", "remove the project with this id")
	flags.register(cmd)
	return cmd
}
