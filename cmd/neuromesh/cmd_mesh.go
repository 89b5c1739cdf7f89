package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/neuromesh/geometry"
	"github.com/signalsfoundry/neuromesh/scene"
)

type meshReport struct {
	Design    string `json:"design"`
	Sections  int    `json:"sections"`
	Vertices  int    `json:"vertices"`
	Triangles int    `json:"triangles"`
	Groups    int    `json:"groups"`
}

func newMeshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mesh DESIGN",
		Short: "Build a tube from a YAML design and report its size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := geometry.LoadDesign(args[0])
			if err != nil {
				return err
			}
			m, err := geometry.Build(d)
			if err != nil {
				return fmt.Errorf("build %s: %w", args[0], err)
			}

			if objPath, _ := cmd.Flags().GetString("obj"); objPath != "" {
				hs := scene.NewHeadlessScene()
				hs.Add(scene.Renderable{Mesh: m})
				f, err := os.Create(objPath)
				if err != nil {
					return err
				}
				werr := scene.WriteOBJ(f, hs.Surfaces(), "")
				if err := errors.Join(werr, f.Close()); err != nil {
					return fmt.Errorf("write %s: %w", objPath, err)
				}
			}

			r := meshReport{
				Design:    args[0],
				Sections:  len(d.Sections),
				Vertices:  m.VertexCount(),
				Triangles: m.TriangleCount(),
				Groups:    len(m.Groups),
			}
			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(out).Encode(r)
			}
			fmt.Fprintf(out, "%s: %d sections, %d vertices, %d triangles, %d groups\n",
				r.Design, r.Sections, r.Vertices, r.Triangles, r.Groups)
			return nil
		},
	}
	cmd.Flags().String("obj", "", "Write the built tube to this OBJ file")
	return cmd
}
