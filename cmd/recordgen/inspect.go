package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/BC-Softworks/record-generator/internal/mesh"
	"github.com/BC-Softworks/record-generator/internal/stl"
)

func newInspectCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Report the size and topology of an STL mesh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			store := mesh.NewStore(mesh.WithPrecision(cfg.Generator.StorePrecision))
			if _, err := stl.ReadFile(args[0], store); err != nil {
				return err
			}

			report := mesh.Analyze(store)
			writeInspection(cmd.OutOrStdout(), args[0], store, report)

			if strict && !(report.Watertight() && report.Oriented()) {
				return errors.New("mesh is not a closed, consistently oriented solid")
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero unless the mesh is watertight and oriented")

	return cmd
}

func writeInspection(w io.Writer, path string, store *mesh.Store, r mesh.Report) {
	b := store.Bounds()
	size := b.Size()

	_, _ = fmt.Fprintf(w, "file:        %s\n", path)
	_, _ = fmt.Fprintf(w, "vertices:    %d\n", r.Vertices)
	_, _ = fmt.Fprintf(w, "faces:       %d\n", r.Faces)
	_, _ = fmt.Fprintf(w, "edges:       %d\n", r.Edges)
	_, _ = fmt.Fprintf(w, "bounds:      (%.4f, %.4f, %.4f) - (%.4f, %.4f, %.4f)\n",
		b.Min.X(), b.Min.Y(), b.Min.Z(), b.Max.X(), b.Max.Y(), b.Max.Z())
	_, _ = fmt.Fprintf(w, "size:        %.4f x %.4f x %.4f\n", size.X(), size.Y(), size.Z())
	_, _ = fmt.Fprintf(w, "watertight:  %t (%d boundary, %d non-manifold edges)\n",
		r.Watertight(), r.BoundaryEdges, r.NonManifoldEdges)
	_, _ = fmt.Fprintf(w, "oriented:    %t (%d conflicts)\n", r.Oriented(), r.OrientationConflicts)
	_, _ = fmt.Fprintf(w, "degenerate:  %d faces\n", r.DegenerateFaces)
	_, _ = fmt.Fprintf(w, "euler:       %d\n", r.EulerCharacteristic())
	_, _ = fmt.Fprintf(w, "volume:      %.4f\n", mesh.SignedVolume(store))
	_, _ = fmt.Fprintf(w, "area:        %.4f\n", mesh.SurfaceArea(store))
}
