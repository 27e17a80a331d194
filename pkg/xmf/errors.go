package xmf

import "errors"

// XMF format errors. All are fatal for the file being processed.
var (
	ErrInvalidFormat      = errors.New("invalid XMF format")
	ErrUnknownChunkShape  = errors.New("unknown XMF chunk shape")
	ErrDecompression      = errors.New("XMF chunk decompression failed")
	ErrDegenerateUV       = errors.New("degenerate XMF texture coordinates")
	ErrPartitionInvariant = errors.New("material ranges do not partition the face list")
)
