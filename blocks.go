package flatfs // import "github.com/keks/flatfs"

import (
	"io"
)

// Basic Types

// ReadWriterAt is both a ReaderAt and a WriterAt.
type ReadWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// Block Layer

// BlockSize is the size of every block on the device and in the file system.
const BlockSize = 1024

// BlockID identifies blocks. Block 0 always holds the superblock, so a zero
// BlockID stored in a block pointer means "unused".
type BlockID uint16

// MaxBlocks is the largest device the 16 bit block count can describe.
const MaxBlocks = 1<<16 - 1

// Device is a fixed-size array of fixed-size blocks. Blocks are only ever
// read and written whole.
type Device interface {
	ReadBlock(id BlockID, buf []byte) error
	WriteBlock(id BlockID, buf []byte) error
	BlockCount() int
}

// File Layer

// FileName is a file name as typed by the user. It is encoded to the fixed
// width on-disk form before use.
type FileName string

// File is a named file on a mounted volume.
type File interface {
	Name() FileName
	Size() (uint64, error)

	ReadWriterAt
}
