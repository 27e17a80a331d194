// Package meshconv converts between decoded XMF meshes and Wavefront OBJ.
//
// XMF space is left-handed relative to OBJ: the X axis is mirrored and V
// texture coordinates run the other way. Normals and tangents are stored as
// unsigned bytes centred on 127 with their axes rotated, see EncodeDirection.
package meshconv

import (
	"fmt"
	"io"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/Faultbox/xmftool/pkg/math"
	"github.com/Faultbox/xmftool/pkg/wavefront"
	"github.com/Faultbox/xmftool/pkg/xmf"
)

// MaxUV bounds plausible texture coordinates. Larger values mean the payload
// was decoded with the wrong record shape.
const MaxUV = 20000

// ExportOptions control ToOBJ.
type ExportOptions struct {
	// MaterialLib is written as the mtllib reference when not empty.
	MaterialLib string
	Logger      *zap.Logger
}

// ExportPosition maps an XMF position into OBJ space.
func ExportPosition(p math.Vec3) math.Vec3 {
	return math.Vec3{X: -p.X, Y: p.Y, Z: p.Z}
}

// ExportUV maps an XMF texture coordinate into OBJ space.
func ExportUV(uv math.Vec2) math.Vec2 {
	return math.Vec2{X: uv.X, Y: 1 - uv.Y}
}

// DecodeDirection turns a stored normal or tangent into an OBJ-space vector.
func DecodeDirection(n [3]uint8) math.Vec3 {
	return math.Vec3{
		X: (127.5 - float32(n[2])) / 127.5,
		Y: (float32(n[1]) - 127.5) / 127.5,
		Z: (float32(n[0]) - 127.5) / 127.5,
	}
}

// CheckUVs returns ErrDegenerateUV if any texture coordinate is implausible.
func CheckUVs(m *xmf.Mesh) error {
	if !m.HasUVs() {
		return nil
	}
	for i, v := range m.Vertices {
		if math32.Abs(v.UV.X) > MaxUV || math32.Abs(v.UV.Y) > MaxUV {
			return fmt.Errorf("%w: vertex %d has uv (%g, %g)", xmf.ErrDegenerateUV, i, v.UV.X, v.UV.Y)
		}
	}
	return nil
}

// ToOBJ writes the mesh as an OBJ document. Each material becomes a group
// named groupN; a mesh without materials is written as one ungrouped block.
func ToOBJ(w io.Writer, m *xmf.Mesh, opts ExportOptions) error {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := CheckUVs(m); err != nil {
		return err
	}
	groups, err := m.Groups()
	if err != nil {
		return err
	}

	ow := wavefront.NewWriter(w)
	if opts.MaterialLib != "" {
		ow.MaterialLib(opts.MaterialLib)
	}
	for _, v := range m.Vertices {
		ow.Position(ExportPosition(v.Position))
	}
	if m.HasNormals() {
		ow.Blank()
		for _, v := range m.Vertices {
			ow.Normal(DecodeDirection(v.Normal))
		}
	}
	if m.HasUVs() {
		ow.Blank()
		for _, v := range m.Vertices {
			ow.TexCoord(ExportUV(v.UV))
		}
	}
	ow.Blank()

	corner := func(i uint32) wavefront.Corner {
		c := wavefront.Corner{V: int(i), T: -1, N: -1}
		if m.HasUVs() {
			c.T = int(i)
		}
		if m.HasNormals() {
			c.N = int(i)
		}
		return c
	}

	for i, g := range groups {
		if len(m.Materials) > 0 {
			ow.Group(fmt.Sprintf("group%d", i))
			if g.Material != "" {
				ow.UseMaterial(g.Material)
			}
		}
		for _, t := range g.Triangles {
			ow.Face(corner(t[0]), corner(t[1]), corner(t[2]))
		}
		if len(m.Materials) > 0 {
			ow.Blank()
		}
		log.Debug("wrote group", zap.Int("group", i), zap.String("material", g.Material),
			zap.Int("triangles", len(g.Triangles)))
	}
	return ow.Flush()
}
