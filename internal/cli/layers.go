package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// layersCommand creates the layers command, which prints the layer forest
// with stored and effective state.
func (c *CLI) layersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layers <project.json>",
		Short: "Show the layer tree of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.openProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			layers := p.Layers()
			hidden := make([]bool, len(layers))
			rows := make([][]string, len(layers))
			for i, l := range layers {
				visible, _ := p.LayerEffectiveVisible(l.ID)
				locked, _ := p.LayerEffectiveLocked(l.ID)
				hidden[i] = !visible
				rows[i] = []string{
					strings.Repeat("  ", p.LayerDepth(l.ID)) + l.Name,
					l.ID,
					stateCell(l.Visible, visible),
					stateCell(l.Locked, locked),
					fmt.Sprintf("%.2f", l.Opacity),
					strconv.Itoa(len(l.InstanceIDs)),
				}
			}
			fmt.Println(renderTable(
				[]string{"Layer", "ID", "Visible", "Locked", "Opacity", "Instances"},
				rows,
				func(row int) bool { return hidden[row] },
			))
			printSummary(fmt.Sprintf("%d layers", len(layers)), fmt.Sprintf("%d instances", p.InstanceCount()))
			return nil
		},
	}
}

// stateCell shows a stored flag and, when an ancestor overrides it, the
// effective value in parentheses.
func stateCell(stored, effective bool) string {
	if stored == effective {
		return check(stored)
	}
	return check(stored) + " (" + check(effective) + ")"
}
