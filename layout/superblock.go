package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/keks/flatfs"
)

// Superblock is the in-memory form of block 0.
type Superblock struct {
	Magic  uint16
	Blocks uint16
	Label  Label

	// Dir lists the directory blocks in lookup order. It never holds more
	// than DirListCap ids and never holds the reserved id 0.
	Dir []flatfs.BlockID
}

// NewSuperblock returns the superblock of a freshly formatted device with a
// single directory block.
func NewSuperblock(nblocks int, label string) (*Superblock, error) {
	if nblocks < 2 || nblocks > flatfs.MaxBlocks {
		return nil, fmt.Errorf("%w: %d blocks", flatfs.ErrDeviceSize, nblocks)
	}

	return &Superblock{
		Magic:  Magic,
		Blocks: uint16(nblocks),
		Label:  EncodeLabel(label),
		Dir:    []flatfs.BlockID{FirstDirBlock},
	}, nil
}

// DirFull reports whether the directory list has no room for another block.
func (sb *Superblock) DirFull() bool {
	return len(sb.Dir) >= DirListCap
}

// AddDirBlock appends id to the directory list.
func (sb *Superblock) AddDirBlock(id flatfs.BlockID) error {
	if sb.DirFull() {
		return fmt.Errorf("%w: directory list holds %d blocks", flatfs.ErrNoSpace, len(sb.Dir))
	}
	if id == SuperblockID {
		return fmt.Errorf("layout: block %d cannot be a directory block", id)
	}

	sb.Dir = append(sb.Dir, id)
	return nil
}

// MarshalBinary encodes the superblock to exactly one block.
func (sb *Superblock) MarshalBinary() ([]byte, error) {
	if len(sb.Dir) > DirListCap {
		return nil, fmt.Errorf("layout: %d directory blocks exceed capacity %d", len(sb.Dir), DirListCap)
	}

	raw := rawSuperblock{
		Magic:  sb.Magic,
		Blocks: sb.Blocks,
		Label:  sb.Label,
	}
	for i, id := range sb.Dir {
		if id == SuperblockID {
			return nil, fmt.Errorf("layout: directory list entry %d is the reserved block 0", i)
		}
		raw.Dir[i] = uint16(id)
	}

	var buf bytes.Buffer
	buf.Grow(flatfs.BlockSize)
	if err := binary.Write(&buf, order, &raw); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary decodes block 0. It does not check the magic; callers
// decide what an unformatted device means to them.
func (sb *Superblock) UnmarshalBinary(data []byte) error {
	if len(data) != flatfs.BlockSize {
		return fmt.Errorf("layout: superblock needs %d bytes, got %d", flatfs.BlockSize, len(data))
	}

	var raw rawSuperblock
	if err := binary.Read(bytes.NewReader(data), order, &raw); err != nil {
		return err
	}

	sb.Magic = raw.Magic
	sb.Blocks = raw.Blocks
	sb.Label = raw.Label
	sb.Dir = sb.Dir[:0]
	for _, id := range raw.Dir {
		if id == 0 {
			break
		}
		sb.Dir = append(sb.Dir, flatfs.BlockID(id))
	}

	return nil
}
