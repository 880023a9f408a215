package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	bfio "github.com/blockforge/blockforge/pkg/io"
)

// applyCommand creates the apply command, which runs a TOML edit script
// against a project file.
func (c *CLI) applyCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "apply <project.json> <script.toml>",
		Short: "Apply an edit script to a project",
		Long: `Apply runs the operations of a TOML edit script in order and saves the result.

Every operation is a project command: place, move, delete, assign, set-instance,
break, lock-connection, unlock-connection, create-layer, move-layer,
reorder-layer, rename-layer, delete-layer, set-layer, undo and redo. The
script stops at the first failing operation and nothing is written.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := c.openProject(ctx, args[0])
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open script: %w", err)
			}
			defer f.Close()
			s, err := parseScript(f)
			if err != nil {
				return err
			}

			prog := newProgress(c.Logger)
			n, err := newRunner(p).run(ctx, s)
			if err != nil {
				printError("%d of %d operations applied before failure", n, len(s.Ops))
				return err
			}
			prog.done(fmt.Sprintf("Applied %d operations", n))

			if err := p.Validate(); err != nil {
				return err
			}
			out := output
			if out == "" {
				out = args[0]
			}
			if err := bfio.ExportJSON(p, out); err != nil {
				return err
			}
			printSuccess("Saved project")
			printFile(out)
			printSummary(
				fmt.Sprintf("%d instances", p.InstanceCount()),
				fmt.Sprintf("%d connections", len(p.AllConnections())),
				fmt.Sprintf("%d layers", len(p.Layers())),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result here instead of overwriting the project")
	return cmd
}
