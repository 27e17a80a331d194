package meshconv

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/xmftool/pkg/math"
	"github.com/Faultbox/xmftool/pkg/wavefront"
	"github.com/Faultbox/xmftool/pkg/xmf"
)

// ImportOptions control FromOBJ.
type ImportOptions struct {
	Logger *zap.Logger
}

// ImportPosition maps an OBJ position into XMF space.
func ImportPosition(p math.Vec3) math.Vec3 {
	return math.Vec3{X: -p.X, Y: p.Y, Z: p.Z}
}

// ImportUV maps an OBJ texture coordinate into XMF space.
func ImportUV(uv math.Vec2) math.Vec2 {
	return math.Vec2{X: uv.X, Y: 1 - uv.Y}
}

func quantize(f float32) uint8 {
	v := math32.Round(127 + 128*f)
	return uint8(math32.Max(0, math32.Min(255, v)))
}

// EncodeDirection stores an OBJ-space unit vector as three bytes with the
// axis mapping (z, y, -x).
func EncodeDirection(n math.Vec3) [3]uint8 {
	return [3]uint8{quantize(n.Z), quantize(n.Y), quantize(-n.X)}
}

// MaterialName truncates a usemtl value to collection.material.
func MaterialName(s string) string {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ".")
}

type importer struct {
	obj     *wavefront.Object
	mesh    *xmf.Mesh
	index   map[wavefront.Corner]uint32
	normals []math.Vec3 // OBJ-space normal per output vertex
	uvs     []math.Vec2 // OBJ-space uv per output vertex
	log     *zap.Logger
}

// FromOBJ builds a mesh from a parsed OBJ. Corners sharing the same
// position, texture coordinate and normal references become one vertex.
// Consecutive faces with the same material form one material range.
func FromOBJ(obj *wavefront.Object, opts ImportOptions) (*xmf.Mesh, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	imp := &importer{
		obj:   obj,
		mesh:  &xmf.Mesh{Capabilities: xmf.CapVertex | xmf.CapFace},
		index: make(map[wavefront.Corner]uint32),
		log:   log,
	}

	for _, f := range obj.Faces {
		var t xmf.Triangle
		for i, c := range f.Corners {
			t[i] = imp.vertex(c)
		}
		imp.mesh.Triangles = append(imp.mesh.Triangles, t)
	}

	if err := imp.materials(); err != nil {
		return nil, err
	}
	if imp.mesh.HasUVs() {
		skipped := imp.tangents()
		if skipped > 0 {
			log.Debug("triangles without tangent", zap.Int("count", skipped))
		}
	}

	log.Debug("imported obj",
		zap.Int("corners", len(obj.Faces)*3),
		zap.Int("vertices", len(imp.mesh.Vertices)),
		zap.Int("triangles", len(imp.mesh.Triangles)),
		zap.Int("materials", len(imp.mesh.Materials)),
		zap.Stringer("capabilities", imp.mesh.Capabilities))
	return imp.mesh, nil
}

func (imp *importer) vertex(c wavefront.Corner) uint32 {
	if i, ok := imp.index[c]; ok {
		return i
	}

	i := uint32(len(imp.mesh.Vertices))
	imp.index[c] = i

	v := xmf.Vertex{
		Position: ImportPosition(imp.obj.Positions[c.V]),
		Normal:   [3]uint8{xmf.TangentDefault, xmf.TangentDefault, xmf.TangentDefault},
		Tangent:  [3]uint8{xmf.TangentDefault, xmf.TangentDefault, xmf.TangentDefault},
	}
	var n math.Vec3
	var uv math.Vec2
	if c.HasNormal() {
		n = imp.obj.Normals[c.N]
		v.Normal = EncodeDirection(n)
		imp.mesh.Capabilities |= xmf.CapNormal
	}
	if c.HasUV() {
		uv = imp.obj.TexCoords[c.T]
		v.UV = ImportUV(uv)
		imp.mesh.Capabilities |= xmf.CapUV
	}
	imp.mesh.Vertices = append(imp.mesh.Vertices, v)
	imp.normals = append(imp.normals, n)
	imp.uvs = append(imp.uvs, uv)
	return i
}

func (imp *importer) materials() error {
	faces := imp.obj.Faces
	named := false
	for _, f := range faces {
		if f.Material != "" {
			named = true
			break
		}
	}
	if !named {
		return nil
	}

	start := 0
	for i := 1; i <= len(faces); i++ {
		name := MaterialName(faces[start].Material)
		if i < len(faces) && MaterialName(faces[i].Material) == name {
			continue
		}
		for _, r := range name {
			if r >= 0x80 {
				return fmt.Errorf("%w: material name %q is not ASCII", xmf.ErrInvalidFormat, name)
			}
		}
		imp.mesh.Materials = append(imp.mesh.Materials, xmf.Material{
			Start: uint32(start * 3),
			Count: uint32((i - start) * 3),
			Name:  name,
		})
		start = i
	}
	return nil
}

// tangents computes one tangent per triangle from its position and texture
// deltas, orthogonalised against the first corner's normal, and stores it on
// all three corners. Triangles with a singular UV mapping are skipped.
// It returns the number of skipped triangles.
func (imp *importer) tangents() int {
	skipped := 0
	for _, t := range imp.mesh.Triangles {
		tangent, ok := imp.triangleTangent(t)
		if !ok {
			skipped++
			continue
		}
		enc := EncodeDirection(tangent)
		for _, i := range t {
			imp.mesh.Vertices[i].Tangent = enc
		}
	}
	return skipped
}

func (imp *importer) triangleTangent(t xmf.Triangle) (math.Vec3, bool) {
	p0 := ExportPosition(imp.mesh.Vertices[t[0]].Position)
	p1 := ExportPosition(imp.mesh.Vertices[t[1]].Position)
	p2 := ExportPosition(imp.mesh.Vertices[t[2]].Position)
	e1, e2 := p1.Sub(p0), p2.Sub(p0)

	d1 := imp.uvs[t[1]].Sub(imp.uvs[t[0]])
	d2 := imp.uvs[t[2]].Sub(imp.uvs[t[0]])
	det := d1.Cross(d2)
	if det == 0 {
		return math.Vec3{}, false
	}
	r := 1 / det
	if !finite(r) {
		return math.Vec3{}, false
	}

	sdir := e1.Scale(d2.Y).Sub(e2.Scale(d1.Y)).Scale(r)
	tdir := e2.Scale(d1.X).Sub(e1.Scale(d2.X)).Scale(r)

	n := imp.normals[t[0]]
	tangent := sdir.Sub(n.Scale(n.Dot(sdir)))
	if tangent.Length() == 0 {
		return math.Vec3{}, false
	}
	tangent = tangent.Normalize()
	if !finite(tangent.X) || !finite(tangent.Y) || !finite(tangent.Z) {
		return math.Vec3{}, false
	}
	if n.Cross(sdir).Dot(tdir) < 0 {
		tangent = tangent.Scale(-1)
	}
	return tangent, true
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}
