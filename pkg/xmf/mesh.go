package xmf

import (
	"fmt"
	"strings"

	"github.com/Faultbox/xmftool/pkg/math"
)

// Capability flags describe what a mesh carries.
type Capability uint8

const (
	CapVertex Capability = 1 << iota
	CapNormal
	CapUV
	CapFace
)

// Has reports whether all flags in f are set.
func (c Capability) Has(f Capability) bool {
	return c&f == f
}

// String lists the set flags using OBJ keywords.
func (c Capability) String() string {
	var parts []string
	if c.Has(CapVertex) {
		parts = append(parts, "v")
	}
	if c.Has(CapNormal) {
		parts = append(parts, "vn")
	}
	if c.Has(CapUV) {
		parts = append(parts, "vt")
	}
	if c.Has(CapFace) {
		parts = append(parts, "f")
	}
	return strings.Join(parts, ",")
}

// Vertex is one vertex in XMF space. Normal and tangent components are
// unsigned bytes centred on 127.
type Vertex struct {
	Position math.Vec3
	Normal   [3]uint8
	Tangent  [3]uint8
	UV       math.Vec2
}

// Triangle holds three indices into Mesh.Vertices.
type Triangle [3]uint32

// Mesh is the decoded content of a container, or the content about to be
// encoded into one.
type Mesh struct {
	Vertices     []Vertex
	Triangles    []Triangle
	Materials    []Material
	Capabilities Capability
}

// HasNormals reports whether vertex normals are meaningful.
func (m *Mesh) HasNormals() bool { return m.Capabilities.Has(CapNormal) }

// HasUVs reports whether texture coordinates are meaningful.
func (m *Mesh) HasUVs() bool { return m.Capabilities.Has(CapUV) }

// Group is a run of triangles sharing one material.
type Group struct {
	Material  string // empty for the implicit group of a mesh without materials
	Triangles []Triangle
}

// Groups splits the triangle list by material. A mesh without materials is a
// single implicit group.
func (m *Mesh) Groups() ([]Group, error) {
	if len(m.Materials) == 0 {
		return []Group{{Triangles: m.Triangles}}, nil
	}
	groups := make([]Group, 0, len(m.Materials))
	for i, mat := range m.Materials {
		first, n := mat.FirstTriangle(), mat.TriangleCount()
		if mat.Start%3 != 0 || mat.Count%3 != 0 || first+n > len(m.Triangles) {
			return nil, fmt.Errorf("%w: material %d (%s) covers indices [%d,%d) of %d",
				ErrInvalidFormat, i, mat.Name, mat.Start, mat.Start+mat.Count, len(m.Triangles)*3)
		}
		groups = append(groups, Group{Material: mat.Name, Triangles: m.Triangles[first : first+n]})
	}
	return groups, nil
}

// ValidatePartition checks that the materials cover the face list exactly:
// contiguous, in order, non-overlapping, summing to three indices per triangle.
func (m *Mesh) ValidatePartition() error {
	if len(m.Materials) == 0 {
		return nil
	}
	var next, sum uint64
	for i, mat := range m.Materials {
		if uint64(mat.Start) != next {
			return fmt.Errorf("%w: material %d (%s) starts at %d, expected %d",
				ErrPartitionInvariant, i, mat.Name, mat.Start, next)
		}
		if mat.Count%3 != 0 {
			return fmt.Errorf("%w: material %d (%s) count %d is not a multiple of 3",
				ErrPartitionInvariant, i, mat.Name, mat.Count)
		}
		next = uint64(mat.Start) + uint64(mat.Count)
		sum += uint64(mat.Count)
	}
	if want := uint64(len(m.Triangles)) * 3; sum != want {
		return fmt.Errorf("%w: materials cover %d indices, mesh has %d", ErrPartitionInvariant, sum, want)
	}
	return nil
}

// ValidateIndices checks that every triangle references an existing vertex.
func (m *Mesh) ValidateIndices() error {
	n := uint32(len(m.Vertices))
	for i, t := range m.Triangles {
		if t[0] >= n || t[1] >= n || t[2] >= n {
			return fmt.Errorf("%w: triangle %d references vertex beyond %d: %v", ErrInvalidFormat, i, n, t)
		}
	}
	return nil
}

// Bounds returns the minimum and maximum vertex positions.
func (m *Mesh) Bounds() (lo, hi math.Vec3) {
	for i, v := range m.Vertices {
		if i == 0 {
			lo, hi = v.Position, v.Position
			continue
		}
		lo = lo.Min(v.Position)
		hi = hi.Max(v.Position)
	}
	return lo, hi
}
