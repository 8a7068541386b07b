package fsys

import (
	"fmt"
	"math"

	"github.com/keks/flatfs"
	"github.com/keks/flatfs/layout"
)

// position is a file offset translated to the entry chain: entry seq,
// pointer slot within the entry and byte within the block.
type position struct {
	seq   uint16
	slot  int
	inner int
}

func positionOf(off uint64) (position, error) {
	lb := off / flatfs.BlockSize
	seq := lb / layout.PointersPerEntry
	if seq > math.MaxUint16 {
		return position{}, fmt.Errorf("%w: offset %d needs entry %d", flatfs.ErrNoSpace, off, seq)
	}

	return position{
		seq:   uint16(seq),
		slot:  int(lb % layout.PointersPerEntry),
		inner: int(off % flatfs.BlockSize),
	}, nil
}

// chain walks the entries of one file. It holds the head and at most one
// loaded extent.
type chain struct {
	v    *volume
	name layout.Name

	head     layout.Dirent
	headSlot slot

	ext      layout.Dirent
	extSlot  slot
	extDirty bool
	// extFresh is set for an extent this chain added to the directory
	extFresh bool

	// cur is &head or &ext, seq tells which entry it is
	cur *layout.Dirent
	seq uint16
}

func newChain(v *volume, s slot, head layout.Dirent) *chain {
	c := &chain{
		v:        v,
		name:     head.Name,
		head:     head,
		headSlot: s,
		extSlot:  noSlot,
	}
	c.cur = &c.head
	return c
}

// seek makes entry seq the current entry. A missing extent is reported as
// flatfs.ErrNotFound.
func (c *chain) seek(seq uint16) error {
	if c.cur != nil && c.seq == seq {
		return nil
	}

	if err := c.flushExtent(); err != nil {
		return err
	}

	if seq == 0 {
		c.cur, c.seq = &c.head, 0
		return nil
	}

	s, d, err := c.v.find(c.name, seq)
	if err != nil {
		c.cur = nil
		return err
	}

	c.ext, c.extSlot, c.extFresh = d, s, false
	c.cur, c.seq = &c.ext, seq
	return nil
}

// seekOrAdd is seek, but adds a missing extent to the directory. The extent
// is reserved before any block is allocated for it, so running out of
// directory space never strands data blocks.
func (c *chain) seekOrAdd(seq uint16) error {
	err := c.seek(seq)
	if err != flatfs.ErrNotFound {
		return err
	}

	ext := layout.NewExtent(c.name, seq)
	s, err := c.v.upsert(noSlot, ext)
	if err != nil {
		return err
	}

	c.ext, c.extSlot, c.extFresh = ext, s, true
	c.cur, c.seq = &c.ext, seq
	return nil
}

// setBlock records id in slot i of the current entry.
func (c *chain) setBlock(i int, id flatfs.BlockID) {
	c.cur.Blocks[i] = id
	if c.cur == &c.ext {
		c.extDirty = true
	}
}

func (c *chain) flushExtent() error {
	if c.cur != &c.ext {
		return nil
	}

	if c.extFresh && c.ext.Blocks.Len() == 0 {
		// reserved but never used
		c.extFresh = false
		c.cur = nil
		_, err := c.v.upsert(c.extSlot, layout.Dirent{})
		return err
	}

	if !c.extDirty {
		return nil
	}

	if _, err := c.v.upsert(c.extSlot, c.ext); err != nil {
		return err
	}
	c.extDirty = false
	return nil
}

// flush persists the loaded extent and the head.
func (c *chain) flush() error {
	if err := c.flushExtent(); err != nil {
		return err
	}

	_, err := c.v.upsert(c.headSlot, c.head)
	return err
}

// block returns the block at slot i of the current entry.
func (c *chain) block(i int) flatfs.BlockID {
	return c.cur.Blocks[i]
}
