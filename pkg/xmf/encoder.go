package xmf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Faultbox/xmftool/internal/atomicfile"
	"github.com/Faultbox/xmftool/pkg/record"
)

// EncodeOptions tune the encoder. The zero value writes what the game's own
// exporter writes.
type EncodeOptions struct {
	// NarrowIndices writes 16-bit face indices when every index fits.
	NarrowIndices bool
	// CompressionLevel is a compress/zlib level; zero selects
	// zlib.DefaultCompression.
	CompressionLevel int
	// VertexTrailer and FaceTrailer replace the built-in descriptor trailers.
	// Both must be TrailerSize bytes.
	VertexTrailer []byte
	FaceTrailer   []byte

	Logger *zap.Logger
}

func (o EncodeOptions) level() int {
	if o.CompressionLevel == 0 {
		return zlib.DefaultCompression
	}
	return o.CompressionLevel
}

func (o EncodeOptions) trailers() ([]byte, []byte, error) {
	vt, ft := o.VertexTrailer, o.FaceTrailer
	if vt == nil {
		vt = vertexChunkTrailer[:]
	}
	if ft == nil {
		ft = faceChunkTrailer[:]
	}
	if len(vt) != TrailerSize || len(ft) != TrailerSize {
		return nil, nil, fmt.Errorf("descriptor trailers must be %d bytes, got %d and %d", TrailerSize, len(vt), len(ft))
	}
	return vt, ft, nil
}

// Validate checks everything the encoder needs before writing a byte.
func (m *Mesh) Validate() error {
	if err := m.ValidatePartition(); err != nil {
		return err
	}
	if len(m.Materials) > MaxMaterialCount {
		return fmt.Errorf("%d materials exceed the format limit of %d", len(m.Materials), MaxMaterialCount)
	}
	for i, mat := range m.Materials {
		if len(mat.Name) > MaterialNameSize {
			return fmt.Errorf("material %d name %q longer than %d bytes", i, mat.Name, MaterialNameSize)
		}
	}
	if uint64(len(m.Triangles))*3 > uint64(^uint32(0)) {
		return fmt.Errorf("%d triangles exceed the format limit", len(m.Triangles))
	}
	return m.ValidateIndices()
}

// VertexShape returns the shape the encoder writes vertices with.
func (m *Mesh) VertexShape() Shape {
	if m.Capabilities&(CapNormal|CapUV) != 0 {
		return ShapeRichVertex32
	}
	return ShapeLegacyVertex
}

// FaceShape returns the shape the encoder writes faces with.
func (m *Mesh) FaceShape(narrow bool) Shape {
	if !narrow {
		return ShapeWideFace
	}
	for _, t := range m.Triangles {
		if t[0] > 0xffff || t[1] > 0xffff || t[2] > 0xffff {
			return ShapeWideFace
		}
	}
	return ShapeNarrowFace
}

type payload struct {
	shape Shape
	count int
	data  []byte
}

func (m *Mesh) vertexPayload() payload {
	shape := m.VertexShape()
	_, _, stride := shape.Tags()
	buf := make([]byte, 0, len(m.Vertices)*int(stride))
	for _, v := range m.Vertices {
		buf = shape.vertexRecord(v).AppendTo(buf, int(stride))
	}
	return payload{shape: shape, count: len(m.Vertices), data: buf}
}

func (m *Mesh) facePayload(narrow bool) payload {
	shape := m.FaceShape(narrow)
	size := shape.Layout().Size()
	buf := make([]byte, 0, len(m.Triangles)*size)
	for _, t := range m.Triangles {
		buf = shape.triangleRecord(t).AppendTo(buf, 0)
	}
	return payload{shape: shape, count: len(m.Triangles) * 3, data: buf}
}

func compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Marshal encodes the mesh into a complete container.
func Marshal(m *Mesh, opts EncodeOptions) ([]byte, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	vertexTrailer, faceTrailer, err := opts.trailers()
	if err != nil {
		return nil, err
	}

	payloads := []payload{m.vertexPayload(), m.facePayload(opts.NarrowIndices)}
	trailers := [][]byte{vertexTrailer, faceTrailer}

	chunks := make([]ChunkDescriptor, len(payloads))
	packed := make([][]byte, len(payloads))
	var offset uint32
	for i, p := range payloads {
		packed[i], err = compress(p.data, opts.level())
		if err != nil {
			return nil, fmt.Errorf("compressing %s payload: %w", p.shape, err)
		}
		major, minor, stride := p.shape.Tags()
		chunks[i] = ChunkDescriptor{
			Major:   major,
			Minor:   minor,
			Stride:  stride,
			Count:   uint32(p.count),
			Offset:  offset,
			Packed:  uint32(len(packed[i])),
			One1:    1,
			One2:    1,
			Trailer: trailers[i],
		}
		offset += uint32(len(packed[i]))
		log.Debug("chunk", zap.Int("index", i), zap.Stringer("descriptor", chunks[i]),
			zap.Int("unpacked", len(p.data)))
	}

	header := headerLayout.MustNew(record.Values{
		"chunk_count":    len(chunks),
		"chunk_size":     ChunkModelSize + TrailerSize,
		"material_count": len(m.Materials),
		"vertex_count":   len(m.Vertices),
		"index_count":    len(m.Triangles) * 3,
	})
	log.Debug("header", zap.Stringer("record", header))

	var buf bytes.Buffer
	buf.Write(header.Encode(0))
	for _, c := range chunks {
		buf.Write(c.encode())
	}
	for _, mat := range m.Materials {
		buf.Write(mat.encode())
	}
	for _, p := range packed {
		buf.Write(p)
	}
	return buf.Bytes(), nil
}

// Encode writes the mesh as a container to w. Nothing is written unless the
// whole container was built successfully.
func Encode(w io.Writer, m *Mesh, opts EncodeOptions) error {
	data, err := Marshal(m, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// EncodeFile writes the mesh to path, replacing it atomically.
func EncodeFile(path string, m *Mesh, opts EncodeOptions) error {
	data, err := Marshal(m, opts)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, data, 0644)
}
