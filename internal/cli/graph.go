package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blockforge/blockforge/pkg/render/dot"
)

// graphCommand creates the graph command, which draws the connection graph
// of a project.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output   string
		detailed bool
		invalid  bool
		scale    float64
	)

	cmd := &cobra.Command{
		Use:   "graph <project.json>",
		Short: "Render the connection graph (dot, svg, pdf or png)",
		Long: `Render the connection graph of a project with Graphviz.

Instances are grouped into one cluster per layer. Locked connections are bold;
with --invalid, connections that break a snap rule are drawn dashed red.
The output format follows the file extension of --output (.dot, .svg, .pdf,
.png); without --output the DOT source is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := c.openProject(ctx, args[0])
			if err != nil {
				return err
			}
			src := dot.ToDOT(p, dot.Options{Detailed: detailed, ShowInvalid: invalid})
			if output == "" {
				fmt.Print(src)
				return nil
			}

			var data []byte
			switch ext := strings.ToLower(filepath.Ext(output)); ext {
			case ".dot", ".gv":
				data = []byte(src)
			case ".svg":
				data, err = dot.RenderSVG(ctx, src)
			case ".pdf":
				data, err = dot.RenderPDF(ctx, src)
			case ".png":
				data, err = dot.RenderPNG(ctx, src, scale)
			default:
				return fmt.Errorf("unsupported output format %q (want .dot, .svg, .pdf or .png)", ext)
			}
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Rendered connection graph")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.dot, .svg, .pdf, .png)")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label nodes with name, id and position")
	cmd.Flags().BoolVar(&invalid, "invalid", false, "draw connections that violate snap rules")
	cmd.Flags().Float64Var(&scale, "scale", 2.0, "PNG scale factor")
	return cmd
}
