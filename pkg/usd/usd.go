// Package usd builds a USD scene graph from extracted surfaces: one
// mesh prim and one preview-surface material per entry under a root
// transform. The stage is serialized as a USDA scene-description file.
package usd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"brainmesh/internal/models"
)

// Vec3f is the scene's native 3-float vector type.
type Vec3f [3]float32

// Mesh is a polygonal mesh prim under the root transform.
type Mesh struct {
	// Name is the prim name under /World.
	Name string

	// Points is the vertex position list.
	Points []Vec3f

	// FaceVertexIndices is the flattened triangle index list.
	FaceVertexIndices []int32

	// FaceVertexCounts holds the vertex count per face. Extraction
	// produces triangles only, so every value is 3.
	FaceVertexCounts []int32

	// Normals holds one normal per vertex. The pipeline assigns a
	// uniform placeholder (0,0,1); normals are not computed from
	// geometry.
	Normals []Vec3f

	// MaterialPath is the prim path of the bound material.
	MaterialPath string
}

// Material is a material prim wrapping a UsdPreviewSurface shader with
// a single diffuse color input.
type Material struct {
	// Name is the prim name under /Materials.
	Name string

	// DiffuseColor is the shader's diffuseColor input.
	DiffuseColor models.RGB
}

// Stage is an in-memory USD stage with /World as the default prim.
type Stage struct {
	meshes    []*Mesh
	materials []*Material
}

// NewStage creates an empty stage.
func NewStage() *Stage {
	return &Stage{}
}

// Meshes returns the mesh prims in insertion order.
func (s *Stage) Meshes() []*Mesh {
	return s.meshes
}

// Materials returns the material prims in insertion order.
func (s *Stage) Materials() []*Material {
	return s.materials
}

// AddSurface defines a mesh prim for the entry under /World and a
// material prim under /Materials bound to it. The entry's color name
// must exist in the color table.
func (s *Stage) AddSurface(entry *models.SurfaceEntry, colors models.ColorTable) error {
	rgb, err := colors.Lookup(entry.Color)
	if err != nil {
		return errors.Wrapf(err, "material for %q", entry.Name)
	}

	name := sanitizeName(entry.Name)

	mesh := &Mesh{
		Name:              name,
		Points:            make([]Vec3f, len(entry.Surface.Vertices)),
		FaceVertexIndices: make([]int32, 0, 3*len(entry.Surface.Faces)),
		FaceVertexCounts:  make([]int32, len(entry.Surface.Faces)),
		Normals:           make([]Vec3f, len(entry.Surface.Vertices)),
		MaterialPath:      fmt.Sprintf("/Materials/%sMat", name),
	}
	for i, v := range entry.Surface.Vertices {
		mesh.Points[i] = Vec3f(v)
		mesh.Normals[i] = Vec3f{0, 0, 1}
	}
	for i, f := range entry.Surface.Faces {
		mesh.FaceVertexIndices = append(mesh.FaceVertexIndices, f[0], f[1], f[2])
		mesh.FaceVertexCounts[i] = 3
	}

	s.meshes = append(s.meshes, mesh)
	s.materials = append(s.materials, &Material{
		Name:         name + "Mat",
		DiffuseColor: rgb,
	})
	return nil
}

// Export builds a stage from the surface set, in set order, and saves
// it to the given path.
func Export(path string, set *models.SurfaceSet, colors models.ColorTable) error {
	stage := NewStage()
	for _, entry := range set.Entries() {
		if err := stage.AddSurface(entry, colors); err != nil {
			return err
		}
	}
	return stage.Save(path)
}

// Save persists the stage to a USDA file.
func (s *Stage) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create USD file")
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := s.Write(w); err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "flush USD file")
}

// Write serializes the stage as USDA text.
func (s *Stage) Write(w io.Writer) error {
	var err error
	p := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("#usda 1.0\n(\n    defaultPrim = \"World\"\n)\n\n")

	p("def Xform \"World\"\n{\n")
	for _, m := range s.meshes {
		p("    def Mesh \"%s\"\n    {\n", m.Name)
		p("        rel material:binding = <%s>\n", m.MaterialPath)

		p("        int[] faceVertexCounts = [")
		writeInts(p, m.FaceVertexCounts)
		p("]\n")

		p("        int[] faceVertexIndices = [")
		writeInts(p, m.FaceVertexIndices)
		p("]\n")

		p("        normal3f[] normals = [")
		writeVecs(p, m.Normals)
		p("] (\n            interpolation = \"vertex\"\n        )\n")

		p("        point3f[] points = [")
		writeVecs(p, m.Points)
		p("]\n")

		p("    }\n")
	}
	p("}\n\n")

	p("def Scope \"Materials\"\n{\n")
	for _, mat := range s.materials {
		p("    def Material \"%s\"\n    {\n", mat.Name)
		p("        token outputs:surface.connect = </Materials/%s/Shader.outputs:surface>\n\n", mat.Name)
		p("        def Shader \"Shader\"\n        {\n")
		p("            uniform token info:id = \"UsdPreviewSurface\"\n")
		p("            color3f inputs:diffuseColor = (%g, %g, %g)\n",
			mat.DiffuseColor[0], mat.DiffuseColor[1], mat.DiffuseColor[2])
		p("            token outputs:surface\n")
		p("        }\n")
		p("    }\n")
	}
	p("}\n")

	return errors.Wrap(err, "write USD stage")
}

func writeInts(p func(string, ...interface{}), values []int32) {
	for i, v := range values {
		if i > 0 {
			p(", ")
		}
		p("%d", v)
	}
}

func writeVecs(p func(string, ...interface{}), values []Vec3f) {
	for i, v := range values {
		if i > 0 {
			p(", ")
		}
		p("(%g, %g, %g)", v[0], v[1], v[2])
	}
}

// sanitizeName maps a region name onto a legal USD prim identifier.
func sanitizeName(name string) string {
	out := make([]rune, 0, len(name))
	for i, r := range name {
		valid := r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9' && i > 0)
		if !valid {
			r = '_'
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}
