package xmf

// TrailerSize is the length of the opaque block that follows each modelled
// chunk descriptor in files written by the game's own tools.
const TrailerSize = 132

// Engine-internal descriptor trailers, copied verbatim from a file the game
// loads. Their structure is unknown; they are written unchanged.
var (
	vertexChunkTrailer = [TrailerSize]byte{
		0x05, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x04, 0x00, 0x00, 0x00, 0x03, 0x00, 0xe1, 0x0d, 0x04, 0x00, 0x00, 0x00,
		0x06, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 0x00, 0x15, 0x40,
		0x04, 0x00, 0x00, 0x00, 0x0a, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00,
		0x0a, 0x00, 0x00, 0x0d, 0x00, 0x00, 0x00, 0x00, 0x0a, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x17, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x0f, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xb0, 0xf1, 0xe0, 0x0d,
		0x00, 0x00, 0x00, 0x00, 0xd6, 0x05, 0xd8, 0x57, 0xff, 0x7f, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xb0, 0xf1, 0x00, 0x0d,
	}
	faceChunkTrailer = [TrailerSize]byte{
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0xe0, 0x94, 0x86, 0x40, 0x00, 0x00, 0x00, 0x00,
		0x0f, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x60, 0xf7, 0xe0, 0x0d,
		0x00, 0x00, 0x00, 0x00, 0xb9, 0xf7, 0xe0, 0x0d, 0x00, 0x00, 0x00, 0x00,
		0xd6, 0x05, 0xd8, 0x57, 0xff, 0x7f, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x0f, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0xfe, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0xe0, 0x0d,
		0x00, 0x00, 0x00, 0x00, 0xc8, 0xf7, 0xe0, 0x0d, 0x00, 0x00, 0x00, 0x00,
		0x31, 0x82, 0x11, 0x40, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0xe0, 0x94, 0x86, 0x40, 0x00, 0x00, 0x00, 0x00,
		0x40, 0xdb, 0x3f, 0x2b, 0x00, 0x00, 0x00, 0x00, 0xb9, 0xf7, 0xe0, 0x0d,
	}
)

// VertexChunkTrailer returns a copy of the built-in vertex descriptor trailer.
func VertexChunkTrailer() []byte {
	b := vertexChunkTrailer
	return b[:]
}

// FaceChunkTrailer returns a copy of the built-in face descriptor trailer.
func FaceChunkTrailer() []byte {
	b := faceChunkTrailer
	return b[:]
}
