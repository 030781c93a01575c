package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BC-Softworks/record-generator/internal/blank"
	"github.com/BC-Softworks/record-generator/internal/geometry"
	"github.com/BC-Softworks/record-generator/internal/mesh"
	"github.com/BC-Softworks/record-generator/internal/stl"
)

func newBlankCmd() *cobra.Command {
	var (
		out    string
		binary bool
	)

	cmd := &cobra.Command{
		Use:   "blank",
		Short: "Export the record body without a groove",
		Long: `Export the record body (rim wall, bottom and centre hole) as STL.

The blank is open at the top; engrave --blank stitches the groove to it.
It is written as ASCII by default because binary STL stores float32
coordinates, which may no longer match the rings engrave computes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			geo, err := geometry.Derive(cfg.Geometry.Params())
			if err != nil {
				return err
			}

			store := mesh.NewStore(mesh.WithPrecision(cfg.Generator.StorePrecision))
			if err := blank.Build(geo, store); err != nil {
				return err
			}

			format := stl.ASCII
			if binary {
				format = stl.Binary
				zap.L().Warn("binary blanks lose precision and may be rejected by engrave --blank")
			}
			if err := stl.WriteFile(out, store, format); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d faces, %d vertices\n", out, store.FaceCount(), store.VertexCount())

			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "blank.stl", "Output STL path")
	cmd.Flags().BoolVar(&binary, "binary", false, "Write binary STL instead of ASCII")

	return cmd
}
