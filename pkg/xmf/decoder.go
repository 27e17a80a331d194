package xmf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"os"
	"slices"

	"go.uber.org/zap"
)

// Container is the table section of a file: header, chunk descriptors and
// materials, plus the stream position where payloads begin.
type Container struct {
	Header      Header
	Chunks      []ChunkDescriptor
	Materials   []Material
	PayloadBase int64
}

// Decoder reads one container from a seekable stream.
type Decoder struct {
	r   io.ReadSeeker
	log *zap.Logger

	container *Container
	size      int64
}

// NewDecoder returns a decoder reading from r. A nil logger disables logging.
func NewDecoder(r io.ReadSeeker, log *zap.Logger) *Decoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Decoder{r: r, log: log}
}

// Container returns the tables read by the last successful ReadContainer or
// Decode call.
func (d *Decoder) Container() *Container {
	return d.container
}

// ReadContainer reads the header, chunk descriptors and materials, leaving the
// stream positioned at the payload area.
func (d *Decoder) ReadContainer() (*Container, error) {
	header, err := d.readHeader()
	if err != nil {
		return nil, err
	}
	c := &Container{Header: header}

	c.Chunks, err = d.readChunks(header)
	if err != nil {
		return nil, err
	}
	c.Materials, err = d.readMaterials(header)
	if err != nil {
		return nil, err
	}

	c.PayloadBase, err = d.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating payload area: %w", err)
	}
	d.container = c
	return c, nil
}

// Decode reads the whole container and reconstructs the mesh. Any error
// aborts the decode; no partial mesh is returned.
func (d *Decoder) Decode() (*Mesh, error) {
	c, err := d.ReadContainer()
	if err != nil {
		return nil, err
	}

	m := &Mesh{Materials: c.Materials}
	for i, chunk := range c.Chunks {
		if err := d.readChunkData(c.PayloadBase, chunk, m); err != nil {
			return nil, fmt.Errorf("reading chunk %d: %w", i, err)
		}
	}

	if err := m.ValidateIndices(); err != nil {
		return nil, err
	}
	if err := m.ValidatePartition(); err != nil {
		d.log.Warn("material ranges do not partition faces", zap.Error(err))
	}
	d.log.Debug("decoded mesh",
		zap.Int("vertices", len(m.Vertices)),
		zap.Int("triangles", len(m.Triangles)),
		zap.Int("materials", len(m.Materials)),
		zap.Stringer("capabilities", m.Capabilities))
	return m, nil
}

func (d *Decoder) readHeader() (Header, error) {
	rec, err := headerLayout.Decode(d.r, 0)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	d.log.Debug("header", zap.Stringer("record", rec))

	header := headerFromRecord(rec)
	if err := header.Validate(); err != nil {
		return Header{}, err
	}
	return header, nil
}

func (d *Decoder) readChunks(h Header) ([]ChunkDescriptor, error) {
	chunks := make([]ChunkDescriptor, 0, h.ChunkCount)
	buf := make([]byte, h.ChunkSize)
	for i := 0; i < int(h.ChunkCount); i++ {
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return nil, fmt.Errorf("%w: reading chunk descriptor %d: %v", ErrInvalidFormat, i, err)
		}
		chunk, err := unpackChunk(buf)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk descriptor %d: %v", ErrInvalidFormat, i, err)
		}
		d.log.Debug("chunk", zap.Int("index", i), zap.Stringer("descriptor", chunk))
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

func (d *Decoder) readMaterials(h Header) ([]Material, error) {
	materials := make([]Material, 0, h.MaterialCount)
	for i := 0; i < int(h.MaterialCount); i++ {
		rec, err := materialLayout.Decode(d.r, 0)
		if err != nil {
			return nil, fmt.Errorf("%w: material %d: %v", ErrInvalidFormat, i, err)
		}
		mat, err := materialFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("material %d: %w", i, err)
		}
		d.log.Debug("material", zap.Int("index", i), zap.String("name", mat.Name),
			zap.Uint32("start", mat.Start), zap.Uint32("count", mat.Count))
		materials = append(materials, mat)
	}
	return materials, nil
}

func (d *Decoder) streamSize() (int64, error) {
	if d.size > 0 {
		return d.size, nil
	}
	cur, err := d.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := d.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := d.r.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	d.size = end
	return end, nil
}

func (d *Decoder) readChunkData(base int64, chunk ChunkDescriptor, m *Mesh) error {
	shape, err := chunk.Shape()
	if err != nil {
		return err
	}

	size, err := d.streamSize()
	if err != nil {
		return err
	}
	start := base + int64(chunk.Offset)
	if end := start + int64(chunk.Packed); end > size {
		return fmt.Errorf("%w: payload [%d,%d) exceeds file size %d", ErrDecompression, start, end, size)
	}
	if _, err := d.r.Seek(start, io.SeekStart); err != nil {
		return err
	}
	packed := make([]byte, chunk.Packed)
	if _, err := io.ReadFull(d.r, packed); err != nil {
		return fmt.Errorf("%w: %v", ErrDecompression, err)
	}

	data, err := inflate(packed)
	if err != nil {
		return err
	}

	layout := shape.Layout()
	readLen := max(int(chunk.Stride), layout.Size())
	n := chunk.UnpackedSize() / readLen
	if n*readLen > len(data) {
		return fmt.Errorf("%w: %s payload holds %d bytes, descriptor needs %d",
			ErrDecompression, shape, len(data), n*readLen)
	}
	d.log.Debug("chunk data", zap.Stringer("shape", shape), zap.Int("read_len", readLen), zap.Int("records", n))

	m.Capabilities |= shape.Capabilities()
	r := bytes.NewReader(data)
	if shape.IsVertex() {
		m.Vertices = slices.Grow(m.Vertices, n)
		for i := 0; i < n; i++ {
			rec, err := layout.Decode(r, readLen)
			if err != nil {
				return err
			}
			m.Vertices = append(m.Vertices, shape.vertexFromRecord(rec))
		}
		return nil
	}

	m.Triangles = slices.Grow(m.Triangles, n)
	for i := 0; i < n; i++ {
		rec, err := layout.Decode(r, readLen)
		if err != nil {
			return err
		}
		m.Triangles = append(m.Triangles, shape.triangleFromRecord(rec))
	}
	return nil
}

func inflate(packed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	return data, nil
}

// Decode reads a container from r and reconstructs its mesh.
func Decode(r io.ReadSeeker) (*Mesh, error) {
	return NewDecoder(r, nil).Decode()
}

// DecodeFile decodes the container at path. The file is closed on every path.
func DecodeFile(path string, log *zap.Logger) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return NewDecoder(f, log).Decode()
}
