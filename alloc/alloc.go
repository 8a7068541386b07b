// Package alloc tracks which blocks of a mounted volume are in use.
//
// The map lives in memory only. It is rebuilt from the directory on every
// mount and is never written to the device.
package alloc

import (
	"fmt"

	"github.com/diskfs/go-diskfs/util/bitmap"
	"github.com/keks/flatfs"
	"github.com/keks/flatfs/layout"
)

// DirReader returns the decoded directory block id.
type DirReader func(id flatfs.BlockID) (*layout.DirBlock, error)

// Allocator hands out free blocks lowest id first.
type Allocator struct {
	bits  *bitmap.Bitmap
	total int
	used  int
}

// New returns an allocator for total blocks with only the superblock in use.
func New(total int) *Allocator {
	a := &Allocator{
		bits:  bitmap.NewBits(total),
		total: total,
	}
	a.mark(layout.SuperblockID)
	return a
}

// Reconstruct builds the map of a volume from its superblock: the
// superblock, every directory block and every block referenced by a
// non-empty entry (heads and extents alike) are in use.
func Reconstruct(sb *layout.Superblock, read DirReader) (*Allocator, error) {
	a := New(int(sb.Blocks))

	for _, dirID := range sb.Dir {
		if err := a.markChecked(dirID); err != nil {
			return nil, fmt.Errorf("directory block: %w", err)
		}

		db, err := read(dirID)
		if err != nil {
			return nil, err
		}

		for i := range db {
			d := &db[i]
			if d.Kind == layout.KindEmpty {
				continue
			}
			for _, id := range d.Blocks[:d.Blocks.Len()] {
				if err := a.markChecked(id); err != nil {
					return nil, fmt.Errorf("%s %q in directory block %d: %w", d.Kind, d.Name, dirID, err)
				}
			}
		}
	}

	return a, nil
}

func (a *Allocator) markChecked(id flatfs.BlockID) error {
	if id == layout.SuperblockID || int(id) >= a.total {
		return fmt.Errorf("%w: block %d out of range (%d blocks)", flatfs.ErrCorrupt, id, a.total)
	}
	a.mark(id)
	return nil
}

func (a *Allocator) mark(id flatfs.BlockID) {
	if a.InUse(id) {
		return
	}
	// cannot fail, callers checked the range
	_ = a.bits.Set(int(id))
	a.used++
}

// Allocate marks the lowest free block in use and returns it.
func (a *Allocator) Allocate() (flatfs.BlockID, error) {
	// FirstFree also scans the padding bits of the last byte
	loc := a.bits.FirstFree(0)
	if loc < 0 || loc >= a.total {
		return 0, flatfs.ErrNoSpace
	}

	id := flatfs.BlockID(loc)
	a.mark(id)
	return id, nil
}

// Free marks id free. Freeing a free block, the superblock or a block past
// the end of the volume does nothing.
func (a *Allocator) Free(id flatfs.BlockID) {
	if id == layout.SuperblockID || !a.InUse(id) {
		return
	}

	_ = a.bits.Clear(int(id))
	a.used--
}

// InUse reports whether id is allocated. Ids past the end are reported free.
func (a *Allocator) InUse(id flatfs.BlockID) bool {
	if int(id) >= a.total {
		return false
	}

	set, err := a.bits.IsSet(int(id))
	return err == nil && set
}

// Total returns the number of blocks tracked.
func (a *Allocator) Total() int { return a.total }

// Used returns the number of blocks in use.
func (a *Allocator) Used() int { return a.used }

// Available returns the number of free blocks.
func (a *Allocator) Available() int { return a.total - a.used }

// UsedBlocks lists the blocks in use in ascending order.
func (a *Allocator) UsedBlocks() []flatfs.BlockID {
	ids := make([]flatfs.BlockID, 0, a.used)
	for i := 0; i < a.total; i++ {
		if a.InUse(flatfs.BlockID(i)) {
			ids = append(ids, flatfs.BlockID(i))
		}
	}
	return ids
}

// Snapshot returns a copy of the raw map, one bit per block.
func (a *Allocator) Snapshot() []byte {
	b := a.bits.ToBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
