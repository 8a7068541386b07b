// Package layout is the on-disk format of flatfs.
//
// Block 0 holds the superblock, block 1 the first directory block. Every
// other block is either a directory block or file data. All integers are
// little endian.
//
//	superblock: magic(2) blocks(2) label(12) dir[504](2 each, zero terminated)
//	dirent:     tag(1) name(11) seq(2) size(2) blocks[8](2 each, zero = unused)
//
// Block 0 is always the superblock, so 0 never names a data or directory
// block. Pointer arrays and the directory list rely on that: a zero entry
// ends the in-use prefix.
package layout

import (
	"encoding/binary"
	"fmt"

	"github.com/keks/flatfs"
)

const (
	// Magic marks a formatted device.
	Magic = 0xf0f0

	NameSize  = 11
	LabelSize = 12

	// DirListCap is the number of directory block ids that fit in the superblock.
	DirListCap = (flatfs.BlockSize - 4 - LabelSize) / 2

	// PointersPerEntry is the number of block pointers in each dirent.
	PointersPerEntry = 8

	DirentSize      = 32
	DirentsPerBlock = flatfs.BlockSize / DirentSize

	// ExtentBytes is the number of file bytes addressed by one dirent.
	ExtentBytes = PointersPerEntry * flatfs.BlockSize

	SuperblockID  flatfs.BlockID = 0
	FirstDirBlock flatfs.BlockID = 1
)

const (
	tagEmpty  = 0x00
	tagHead   = 0x10
	tagExtent = 0xff
)

type rawSuperblock struct {
	Magic  uint16
	Blocks uint16
	Label  [LabelSize]byte
	Dir    [DirListCap]uint16
}

type rawDirent struct {
	Tag    uint8
	Name   [NameSize]byte
	Seq    uint16
	Size   uint16
	Blocks [PointersPerEntry]uint16
}

var order = binary.LittleEndian

func init() {
	if n := binary.Size(rawDirent{}); n != DirentSize {
		panic(fmt.Sprintf("layout: dirent record is %d bytes, want %d", n, DirentSize))
	}
	if n := binary.Size(rawSuperblock{}); n != flatfs.BlockSize {
		panic(fmt.Sprintf("layout: superblock record is %d bytes, want %d", n, flatfs.BlockSize))
	}
}
