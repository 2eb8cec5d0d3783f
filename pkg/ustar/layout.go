package ustar

// BlockSize is the size of a header block and of each payload block.
const BlockSize = 512

// field is a byte range inside a header block.
type field struct {
	offset int
	length int
}

func (f field) bytes(h *Header) []byte {
	return h[f.offset : f.offset+f.length]
}

// fieldLayout is the ustar header layout. All accessors on [Header] read
// through this table.
var fieldLayout = struct {
	name     field
	size     field
	typeflag field
	magic    field
	prefix   field
}{
	name:     field{offset: 0, length: 100},
	size:     field{offset: 124, length: 11},
	typeflag: field{offset: 156, length: 1},
	magic:    field{offset: 257, length: 6},
	prefix:   field{offset: 345, length: 155},
}

// Magic is the value of the magic field for ustar headers.
const Magic = "ustar"

// Typeflag values accepted by [Header.Kind].
const (
	TypeRegA byte = 0   // legacy regular file
	TypeReg  byte = '0' // regular file
	TypeDir  byte = '5' // directory
)
