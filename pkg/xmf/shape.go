package xmf

import (
	"fmt"

	"github.com/Faultbox/xmftool/pkg/math"
	"github.com/Faultbox/xmftool/pkg/record"
)

// Chunk tags.
const (
	TagVertex     = 0
	TagFace       = 30
	TagLegacyVert = 2
	TagRichVert   = 32
	TagNarrowFace = 30
	TagWideFace   = 31
)

// Shape is one of the known payload record types.
type Shape uint8

const (
	ShapeLegacyVertex Shape = iota + 1 // position only
	ShapeRichVertex28                  // position, normal, tangent, uv
	ShapeRichVertex32                  // as 28 with four reserved bytes
	ShapeNarrowFace                    // 3 x uint16
	ShapeWideFace                      // 3 x uint32
)

var (
	legacyVertexLayout = record.Define("ChunkDataV2",
		record.F32("x"), record.F32("y"), record.F32("z"),
	)
	richVertexFields = []record.Field{
		record.F32("x"), record.F32("y"), record.F32("z"),
		record.U8("nx"), record.U8("ny"), record.U8("nz"), record.Pad(1),
		record.U8("tx").WithDefault(TangentDefault),
		record.U8("ty").WithDefault(TangentDefault),
		record.U8("tz").WithDefault(TangentDefault),
		record.Pad(1),
		record.F32("tu"), record.F32("tv"),
	}
	richVertex28Layout = record.Define("ChunkDataV28", richVertexFields...)
	richVertex32Layout = record.Define("ChunkDataV32", append(richVertexFields[:len(richVertexFields):len(richVertexFields)], record.Pad(4))...)
	narrowFaceLayout   = record.Define("ChunkDataF30",
		record.U16("i0"), record.U16("i1"), record.U16("i2"),
	)
	wideFaceLayout = record.Define("ChunkDataF31",
		record.U32("i0"), record.U32("i1"), record.U32("i2"),
	)
)

// TangentDefault is the encoded zero component for normals and tangents.
const TangentDefault = 127

// SelectShape maps a chunk's tag pair and stride to its record shape.
func SelectShape(major, minor, stride uint32) (Shape, error) {
	switch {
	case major == TagVertex && minor == TagLegacyVert:
		return ShapeLegacyVertex, nil
	case major == TagVertex && minor == TagRichVert && stride >= 32:
		return ShapeRichVertex32, nil
	case major == TagVertex && minor == TagRichVert && stride >= 28:
		return ShapeRichVertex28, nil
	case major == TagFace && minor == TagNarrowFace:
		return ShapeNarrowFace, nil
	case major == TagFace && minor == TagWideFace:
		return ShapeWideFace, nil
	}
	return 0, fmt.Errorf("%w: major=%d minor=%d stride=%d", ErrUnknownChunkShape, major, minor, stride)
}

// String returns the shape name.
func (s Shape) String() string {
	switch s {
	case ShapeLegacyVertex:
		return "V2"
	case ShapeRichVertex28:
		return "V28"
	case ShapeRichVertex32:
		return "V32"
	case ShapeNarrowFace:
		return "F30"
	case ShapeWideFace:
		return "F31"
	default:
		return fmt.Sprintf("Shape(%d)", s)
	}
}

// Layout returns the record layout of one element.
func (s Shape) Layout() *record.Layout {
	switch s {
	case ShapeLegacyVertex:
		return legacyVertexLayout
	case ShapeRichVertex28:
		return richVertex28Layout
	case ShapeRichVertex32:
		return richVertex32Layout
	case ShapeNarrowFace:
		return narrowFaceLayout
	case ShapeWideFace:
		return wideFaceLayout
	}
	panic(fmt.Sprintf("xmf: invalid shape %d", s))
}

// Capabilities returns what a chunk of this shape contributes to a mesh.
func (s Shape) Capabilities() Capability {
	switch s {
	case ShapeLegacyVertex:
		return CapVertex
	case ShapeRichVertex28, ShapeRichVertex32:
		return CapVertex | CapNormal | CapUV
	case ShapeNarrowFace, ShapeWideFace:
		return CapFace
	}
	return 0
}

// Tags returns the major tag, minor tag and stride written for this shape.
// Face strides count one index, not one triangle.
func (s Shape) Tags() (major, minor, stride uint32) {
	switch s {
	case ShapeLegacyVertex:
		return TagVertex, TagLegacyVert, 12
	case ShapeRichVertex28:
		return TagVertex, TagRichVert, 28
	case ShapeRichVertex32:
		return TagVertex, TagRichVert, 32
	case ShapeNarrowFace:
		return TagFace, TagNarrowFace, 2
	case ShapeWideFace:
		return TagFace, TagWideFace, 4
	}
	panic(fmt.Sprintf("xmf: invalid shape %d", s))
}

// IsVertex reports whether the shape carries vertices.
func (s Shape) IsVertex() bool {
	return s.Capabilities().Has(CapVertex)
}

func (s Shape) vertexFromRecord(rec *record.Record) Vertex {
	v := Vertex{
		Position: math.Vec3{X: rec.Float("x"), Y: rec.Float("y"), Z: rec.Float("z")},
		Normal:   [3]uint8{TangentDefault, TangentDefault, TangentDefault},
		Tangent:  [3]uint8{TangentDefault, TangentDefault, TangentDefault},
	}
	if s == ShapeLegacyVertex {
		return v
	}
	v.Normal = [3]uint8{uint8(rec.Uint("nx")), uint8(rec.Uint("ny")), uint8(rec.Uint("nz"))}
	v.Tangent = [3]uint8{uint8(rec.Uint("tx")), uint8(rec.Uint("ty")), uint8(rec.Uint("tz"))}
	v.UV = math.Vec2{X: rec.Float("tu"), Y: rec.Float("tv")}
	return v
}

func (s Shape) triangleFromRecord(rec *record.Record) Triangle {
	return Triangle{rec.Uint("i0"), rec.Uint("i1"), rec.Uint("i2")}
}

func (s Shape) vertexRecord(v Vertex) *record.Record {
	values := record.Values{
		"x": v.Position.X,
		"y": v.Position.Y,
		"z": v.Position.Z,
	}
	if s != ShapeLegacyVertex {
		values["nx"], values["ny"], values["nz"] = v.Normal[0], v.Normal[1], v.Normal[2]
		values["tx"], values["ty"], values["tz"] = v.Tangent[0], v.Tangent[1], v.Tangent[2]
		values["tu"], values["tv"] = v.UV.X, v.UV.Y
	}
	return s.Layout().MustNew(values)
}

func (s Shape) triangleRecord(t Triangle) *record.Record {
	return s.Layout().MustNew(record.Values{"i0": t[0], "i1": t[1], "i2": t[2]})
}
