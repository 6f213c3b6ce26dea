// Package mesh implements iso-surface extraction on volumetric data
// using the marching cubes algorithm, and converts the resulting
// triangle soup into indexed surfaces suitable for scene export.
package mesh

import (
	"math"

	"brainmesh/internal/models"
)

// Triangle is a single surface triangle with an outward facing normal.
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// MarchingCubes extracts the closed triangulated surface separating
// volume samples above and below an iso-level threshold.
type MarchingCubes struct {
	data     []float64
	width    int
	height   int
	depth    int
	isoLevel float64

	scaleX float32
	scaleY float32
	scaleZ float32
}

// NewMarchingCubes creates a marching cubes extractor for a volume
// stored as a flat array in x-fastest order (index z*width*height +
// y*width + x).
func NewMarchingCubes(data []float64, width, height, depth int, isoLevel float64) *MarchingCubes {
	return &MarchingCubes{
		data:     data,
		width:    width,
		height:   height,
		depth:    depth,
		isoLevel: isoLevel,
		scaleX:   1,
		scaleY:   1,
		scaleZ:   1,
	}
}

// SetScale sets per-axis scale factors applied to generated vertices,
// used to account for anisotropic voxel spacing.
func (mc *MarchingCubes) SetScale(x, y, z float32) {
	mc.scaleX = x
	mc.scaleY = y
	mc.scaleZ = z
}

// voxel offsets of the 8 cube corners in marching cubes order.
var cornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// corner index pairs connected by each of the 12 cube edges.
var edgeCorners = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0},
	{4, 5}, {5, 6}, {6, 7}, {7, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

type vec3 struct {
	x, y, z float64
}

func (a vec3) sub(b vec3) vec3  { return vec3{a.x - b.x, a.y - b.y, a.z - b.z} }
func (a vec3) add(b vec3) vec3  { return vec3{a.x + b.x, a.y + b.y, a.z + b.z} }
func (a vec3) scale(s float64) vec3 {
	return vec3{a.x * s, a.y * s, a.z * s}
}

func cross(a, b vec3) vec3 {
	return vec3{
		a.y*b.z - a.z*b.y,
		a.z*b.x - a.x*b.z,
		a.x*b.y - a.y*b.x,
	}
}

func (a vec3) norm() float64 {
	return math.Sqrt(a.x*a.x + a.y*a.y + a.z*a.z)
}

// GenerateTriangles walks every cube cell of the volume and emits the
// iso-surface triangles crossing it.
func (mc *MarchingCubes) GenerateTriangles() []Triangle {
	var triangles []Triangle

	var cornerPos [8]vec3
	var cornerVal [8]float64

	for z := 0; z < mc.depth-1; z++ {
		for y := 0; y < mc.height-1; y++ {
			for x := 0; x < mc.width-1; x++ {
				cubeIndex := 0
				for i, off := range cornerOffsets {
					cx, cy, cz := x+off[0], y+off[1], z+off[2]
					cornerPos[i] = vec3{float64(cx), float64(cy), float64(cz)}
					cornerVal[i] = mc.at(cx, cy, cz)
					if cornerVal[i] < mc.isoLevel {
						cubeIndex |= 1 << i
					}
				}

				edges := edgeTable[cubeIndex]
				if edges == 0 {
					continue
				}

				// Interpolated crossing point on each intersected edge.
				var edgeVert [12]vec3
				for e := 0; e < 12; e++ {
					if edges&(1<<e) == 0 {
						continue
					}
					c0, c1 := edgeCorners[e][0], edgeCorners[e][1]
					edgeVert[e] = interpVertex(mc.isoLevel,
						cornerPos[c0], cornerPos[c1],
						cornerVal[c0], cornerVal[c1])
				}

				row := triTable[cubeIndex]
				for t := 0; t < len(row); t += 3 {
					p1 := edgeVert[row[t]]
					p2 := edgeVert[row[t+1]]
					p3 := edgeVert[row[t+2]]
					if tri, ok := mc.makeTriangle(p1, p2, p3); ok {
						triangles = append(triangles, tri)
					}
				}
			}
		}
	}

	return triangles
}

func (mc *MarchingCubes) at(x, y, z int) float64 {
	return mc.data[(z*mc.height+y)*mc.width+x]
}

// interpVertex finds the iso-level crossing point on the edge between
// two cube corners by linear interpolation.
func interpVertex(iso float64, p1, p2 vec3, v1, v2 float64) vec3 {
	const eps = 1e-6
	if math.Abs(iso-v1) < eps {
		return p1
	}
	if math.Abs(iso-v2) < eps {
		return p2
	}
	if math.Abs(v1-v2) < eps {
		return p1
	}
	mu := (iso - v1) / (v2 - v1)
	return p1.add(p2.sub(p1).scale(mu))
}

// makeTriangle orients a triangle so its normal points from high field
// values toward low ones (outward for a filled mask), applies the axis
// scale and reports false for degenerate zero-area triangles.
func (mc *MarchingCubes) makeTriangle(p1, p2, p3 vec3) (Triangle, bool) {
	n := cross(p2.sub(p1), p3.sub(p1))
	mag := n.norm()
	if mag == 0 {
		return Triangle{}, false
	}
	n = n.scale(1 / mag)

	center := p1.add(p2).add(p3).scale(1.0 / 3.0)
	ahead := mc.sample(center.add(n.scale(0.5)))
	behind := mc.sample(center.sub(n.scale(0.5)))
	if ahead > behind {
		p2, p3 = p3, p2
		n = n.scale(-1)
	}

	sx, sy, sz := float64(mc.scaleX), float64(mc.scaleY), float64(mc.scaleZ)

	// Normals transform with the inverse scale under a nonuniform
	// axis scale.
	sn := vec3{n.x / sx, n.y / sy, n.z / sz}
	if mag := sn.norm(); mag > 0 {
		sn = sn.scale(1 / mag)
	}

	toF32 := func(p vec3) [3]float32 {
		return [3]float32{float32(p.x * sx), float32(p.y * sy), float32(p.z * sz)}
	}

	return Triangle{
		Normal:  [3]float32{float32(sn.x), float32(sn.y), float32(sn.z)},
		Vertex1: toF32(p1),
		Vertex2: toF32(p2),
		Vertex3: toF32(p3),
	}, true
}

// sample evaluates the volume at a fractional grid coordinate using
// trilinear interpolation with clamping at the borders.
func (mc *MarchingCubes) sample(p vec3) float64 {
	fx := clampF(p.x, 0, float64(mc.width-1))
	fy := clampF(p.y, 0, float64(mc.height-1))
	fz := clampF(p.z, 0, float64(mc.depth-1))

	x0, y0, z0 := int(fx), int(fy), int(fz)
	x1 := minI(x0+1, mc.width-1)
	y1 := minI(y0+1, mc.height-1)
	z1 := minI(z0+1, mc.depth-1)
	dx, dy, dz := fx-float64(x0), fy-float64(y0), fz-float64(z0)

	c00 := mc.at(x0, y0, z0)*(1-dx) + mc.at(x1, y0, z0)*dx
	c10 := mc.at(x0, y1, z0)*(1-dx) + mc.at(x1, y1, z0)*dx
	c01 := mc.at(x0, y0, z1)*(1-dx) + mc.at(x1, y0, z1)*dx
	c11 := mc.at(x0, y1, z1)*(1-dx) + mc.at(x1, y1, z1)*dx

	c0 := c00*(1-dy) + c10*dy
	c1 := c01*(1-dy) + c11*dy
	return c0*(1-dz) + c1*dz
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minI(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// BuildSurface converts a triangle soup into an indexed surface,
// merging vertices that coincide exactly. Marching cubes emits shared
// edge vertices with bit-identical coordinates, so exact matching is
// sufficient.
func BuildSurface(triangles []Triangle) models.Surface {
	vertIndex := make(map[[3]float32]int32)
	var surface models.Surface

	indexOf := func(v [3]float32) int32 {
		if idx, ok := vertIndex[v]; ok {
			return idx
		}
		idx := int32(len(surface.Vertices))
		surface.Vertices = append(surface.Vertices, v)
		vertIndex[v] = idx
		return idx
	}

	for _, tri := range triangles {
		surface.Faces = append(surface.Faces, [3]int32{
			indexOf(tri.Vertex1),
			indexOf(tri.Vertex2),
			indexOf(tri.Vertex3),
		})
	}

	return surface
}

// SurfaceTriangles expands an indexed surface back into a triangle
// soup with recomputed face normals, for formats that store
// per-triangle geometry such as STL.
func SurfaceTriangles(s models.Surface) []Triangle {
	triangles := make([]Triangle, 0, len(s.Faces))
	for _, f := range s.Faces {
		v1 := s.Vertices[f[0]]
		v2 := s.Vertices[f[1]]
		v3 := s.Vertices[f[2]]

		a := vec3{float64(v1[0]), float64(v1[1]), float64(v1[2])}
		b := vec3{float64(v2[0]), float64(v2[1]), float64(v2[2])}
		c := vec3{float64(v3[0]), float64(v3[1]), float64(v3[2])}

		n := cross(b.sub(a), c.sub(a))
		if mag := n.norm(); mag > 0 {
			n = n.scale(1 / mag)
		}

		triangles = append(triangles, Triangle{
			Normal:  [3]float32{float32(n.x), float32(n.y), float32(n.z)},
			Vertex1: v1,
			Vertex2: v2,
			Vertex3: v3,
		})
	}
	return triangles
}
