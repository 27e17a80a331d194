// Package xmf reads and writes XMF (XUMF) mesh containers.
//
// A container is a 64-byte header, a table of chunk descriptors, a table of
// material descriptors, and one zlib-compressed payload per chunk. Each
// payload is a packed array of fixed-size vertex or face-index records whose
// shape is selected by the chunk's tag pair and stride.
package xmf

import (
	"bytes"
	"fmt"

	"github.com/Faultbox/xmftool/pkg/record"
)

// Container constants checked on read and written on encode.
const (
	Magic       = "XUMF"
	Version     = 3
	ChunkOffset = 64 // declared offset of the chunk table, doubles as a structural check

	HeaderSize       = 64
	MaterialSize     = 136
	MaterialNameSize = 128
	ChunkModelSize   = 56 // modelled descriptor prefix
	LegacyChunkSize  = 36 // older tool revisions
	DefaultChunkSize = ChunkModelSize + TrailerSize
	MaxMaterialCount = 255
)

var headerLayout = record.Define("XMFHeader",
	record.Bytes("magic", 4).WithDefault(Magic),
	record.U16("version").WithDefault(Version),
	record.U16("chunk_offset").WithDefault(ChunkOffset),
	record.U8("chunk_count"),
	record.U8("chunk_size").WithDefault(DefaultChunkSize),
	record.U8("material_count"),
	record.U8("u1").WithDefault(0),
	record.U8("u2").WithDefault(0),
	record.U8("u3").WithDefault(0),
	record.U32("vertex_count"),
	record.U32("index_count"),
	record.U32("u4").WithDefault(0),
	record.U32("u5").WithDefault(0),
	record.Pad(34),
)

var chunkLayout = record.Define("XMFChunk",
	record.U32("major"),
	record.U32("part").WithDefault(0),
	record.U32("offset"),
	record.U32("one1").WithDefault(1),
	record.Pad(4),
	record.U32("minor"),
	record.U32("packed"),
	record.U32("count"),
	record.U32("stride"),
	record.U32("one2").WithDefault(1),
	record.Pad(16),
)

var legacyChunkLayout = record.Define("XMFChunkLegacy",
	record.U32("major"),
	record.U32("part"),
	record.U32("offset"),
	record.Pad(8),
	record.U32("minor"),
	record.U32("packed"),
	record.U32("count"),
	record.U32("stride"),
)

var materialLayout = record.Define("XMFMaterial",
	record.U32("start"),
	record.U32("count"),
	record.Bytes("name", MaterialNameSize),
)

// Header is the fixed 64-byte file header.
type Header struct {
	Magic         [4]byte
	Version       uint16
	ChunkOffset   uint16
	ChunkCount    uint8
	ChunkSize     uint8 // on-disk stride of one chunk descriptor
	MaterialCount uint8
	Reserved      [3]uint8
	VertexCount   uint32
	IndexCount    uint32
	Reserved2     [2]uint32
}

func headerFromRecord(rec *record.Record) Header {
	var h Header
	copy(h.Magic[:], rec.Bytes("magic"))
	h.Version = uint16(rec.Uint("version"))
	h.ChunkOffset = uint16(rec.Uint("chunk_offset"))
	h.ChunkCount = uint8(rec.Uint("chunk_count"))
	h.ChunkSize = uint8(rec.Uint("chunk_size"))
	h.MaterialCount = uint8(rec.Uint("material_count"))
	h.Reserved = [3]uint8{uint8(rec.Uint("u1")), uint8(rec.Uint("u2")), uint8(rec.Uint("u3"))}
	h.VertexCount = rec.Uint("vertex_count")
	h.IndexCount = rec.Uint("index_count")
	h.Reserved2 = [2]uint32{rec.Uint("u4"), rec.Uint("u5")}
	return h
}

// Validate checks the identifying fields.
func (h Header) Validate() error {
	if string(h.Magic[:]) != Magic {
		return fmt.Errorf("%w: magic %q, expected %q", ErrInvalidFormat, h.Magic[:], Magic)
	}
	if h.Version != Version {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidFormat, h.Version)
	}
	if h.ChunkOffset != ChunkOffset {
		return fmt.Errorf("%w: chunk table offset %d, expected %d", ErrInvalidFormat, h.ChunkOffset, ChunkOffset)
	}
	if h.ChunkSize < LegacyChunkSize {
		return fmt.Errorf("%w: chunk descriptor size %d below %d", ErrInvalidFormat, h.ChunkSize, LegacyChunkSize)
	}
	return nil
}

// ChunkDescriptor locates and types one compressed payload.
type ChunkDescriptor struct {
	Major  uint32
	Part   uint32
	Offset uint32 // relative to the end of the descriptor and material tables
	Minor  uint32
	Packed uint32 // compressed byte length
	Count  uint32 // element count
	Stride uint32 // bytes per element as stored
	One1   uint32
	One2   uint32

	// Trailer holds the descriptor bytes beyond the modelled fields.
	Trailer []byte
}

// Shape selects the payload record shape for this chunk.
func (c ChunkDescriptor) Shape() (Shape, error) {
	return SelectShape(c.Major, c.Minor, c.Stride)
}

// UnpackedSize is the decompressed payload length the descriptor declares.
func (c ChunkDescriptor) UnpackedSize() int {
	return int(c.Count) * int(c.Stride)
}

func (c ChunkDescriptor) String() string {
	return fmt.Sprintf("Chunk(major=%d, minor=%d, part=%d, offset=%d, packed=%d, count=%d, stride=%d)",
		c.Major, c.Minor, c.Part, c.Offset, c.Packed, c.Count, c.Stride)
}

// unpackChunk decodes one descriptor of the given on-disk size.
func unpackChunk(buf []byte) (ChunkDescriptor, error) {
	layout := chunkLayout
	if len(buf) < chunkLayout.Size() {
		layout = legacyChunkLayout
	}
	rec, err := layout.Unpack(buf)
	if err != nil {
		return ChunkDescriptor{}, err
	}
	c := ChunkDescriptor{
		Major:  rec.Uint("major"),
		Part:   rec.Uint("part"),
		Offset: rec.Uint("offset"),
		Minor:  rec.Uint("minor"),
		Packed: rec.Uint("packed"),
		Count:  rec.Uint("count"),
		Stride: rec.Uint("stride"),
	}
	if layout == chunkLayout {
		c.One1 = rec.Uint("one1")
		c.One2 = rec.Uint("one2")
	}
	if len(buf) > layout.Size() {
		c.Trailer = append([]byte(nil), buf[layout.Size():]...)
	}
	return c, nil
}

func (c ChunkDescriptor) encode() []byte {
	rec := chunkLayout.MustNew(record.Values{
		"major":  c.Major,
		"part":   c.Part,
		"offset": c.Offset,
		"minor":  c.Minor,
		"packed": c.Packed,
		"count":  c.Count,
		"stride": c.Stride,
		"one1":   c.One1,
		"one2":   c.One2,
	})
	return append(rec.Encode(0), c.Trailer...)
}

// Material names a contiguous run of the face index array. Start and Count
// are in index units, three per triangle.
type Material struct {
	Start uint32
	Count uint32
	Name  string
}

// FirstTriangle returns the index of the first triangle in the run.
func (m Material) FirstTriangle() int { return int(m.Start / 3) }

// TriangleCount returns the number of triangles in the run.
func (m Material) TriangleCount() int { return int(m.Count / 3) }

func materialFromRecord(rec *record.Record) (Material, error) {
	raw := bytes.TrimRight(rec.Bytes("name"), "\x00")
	for _, b := range raw {
		if b >= 0x80 {
			return Material{}, fmt.Errorf("%w: material name %q is not ASCII", ErrInvalidFormat, raw)
		}
	}
	return Material{
		Start: rec.Uint("start"),
		Count: rec.Uint("count"),
		Name:  string(raw),
	}, nil
}

func (m Material) encode() []byte {
	return materialLayout.MustNew(record.Values{
		"start": m.Start,
		"count": m.Count,
		"name":  m.Name,
	}).Encode(0)
}
