package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blockforge/blockforge/pkg/block"
	bfio "github.com/blockforge/blockforge/pkg/io"
	"github.com/blockforge/blockforge/pkg/scene"
)

// newCommand creates the "new" command, which writes an empty project.
func (c *CLI) newCommand() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "new <project.json>",
		Short: "Create an empty project with the built-in block library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !overwrite {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			p, err := scene.New(cfg, nil, scene.WithLogger(loggerFromContext(cmd.Context())))
			if err != nil {
				return err
			}
			if err := bfio.ExportJSON(p, path); err != nil {
				return err
			}
			printSuccess("Created project")
			printFile(path)
			printNextStep("Add blocks", "blockforge apply "+path+" edits.toml")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&overwrite, "force", "f", false, "overwrite an existing file")
	return cmd
}

// inspectCommand creates the inspect command, which prints instances and
// connection health and checks every project invariant.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <project.json>",
		Short: "Show instances and connections of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.openProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Println(StyleTitle.Render("Project") + " " + StyleDim.Render(args[0]))
			cfg := p.Config()
			printKeyValue("unit", string(cfg.Unit))
			printKeyValue("snap", fmt.Sprintf("%v (distance %g)", cfg.SnapOn(), cfg.SnapDistance))
			printKeyValue("history", fmt.Sprintf("%d undoable", len(p.History().Past())))
			fmt.Println()

			insts := p.Instances()
			rows := make([][]string, len(insts))
			for i, inst := range insts {
				rows[i] = instanceRow(p, inst)
			}
			fmt.Println(renderTable(
				[]string{"Instance", "Block", "Layer", "Position", "Conns", "Errors"},
				rows,
				func(row int) bool {
					v, _ := p.EffectiveVisible(insts[row].ID)
					return !v
				}))

			valid, invalid, locked := 0, 0, 0
			for _, conn := range p.AllConnections() {
				switch {
				case !conn.Valid:
					invalid++
				case conn.Locked:
					locked++
					valid++
				default:
					valid++
				}
			}
			printSummary(
				fmt.Sprintf("%d instances", len(insts)),
				fmt.Sprintf("%d valid connections", valid),
				fmt.Sprintf("%d locked", locked),
				fmt.Sprintf("%d invalid", invalid),
			)
			for _, conn := range p.AllConnections() {
				if !conn.Valid {
					printWarning("%s ↔ %s: %s", conn.Source, conn.Target, conn.Error)
				}
			}

			if err := p.Validate(); err != nil {
				printError("invariants: %v", err)
				return err
			}
			printSuccess("All invariants hold")
			return nil
		},
	}
}

func instanceRow(p *scene.Project, inst *scene.Instance) []string {
	layerName := inst.LayerID
	if l, err := p.Layer(inst.LayerID); err == nil {
		layerName = l.Name
	}
	pos := inst.Transform.Position()
	errs := "-"
	if inst.State.HasErrors {
		errs = StyleError.Render(strconv.Itoa(len(inst.State.Errors)))
	}
	return []string{
		inst.ID,
		fmt.Sprintf("%s@%d", inst.BlockID, inst.BlockVersion),
		layerName,
		fmt.Sprintf("%g, %g, %g", pos.X, pos.Y, pos.Z),
		strconv.Itoa(len(inst.Connections)),
		errs,
	}
}

// blocksCommand creates the blocks command, which lists the built-in library.
func (c *CLI) blocksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "blocks [project.json]",
		Short: "List the block library (built-in, or a project's own)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := block.NewCatalogLibrary()
			if len(args) == 1 {
				p, err := c.openProject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				lib = p.Library()
			}
			blocks := lib.List()
			rows := make([][]string, len(blocks))
			for i, b := range blocks {
				size := b.LocalBounds().Size()
				rows[i] = []string{
					b.ID,
					strconv.Itoa(b.Version),
					b.Name,
					b.Metadata.Category,
					fmt.Sprintf("%g × %g × %g", size.X, size.Y, size.Z),
					strconv.Itoa(len(b.SnapPoints)),
				}
			}
			fmt.Println(renderTable([]string{"ID", "Ver", "Name", "Category", "Size", "Snaps"}, rows, nil))
			return nil
		},
	}
}
