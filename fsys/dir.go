package fsys

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/keks/flatfs"
	"github.com/keks/flatfs/layout"
)

// slot numbers directory entries across all directory blocks, in the order
// the superblock lists them.
type slot int

const noSlot slot = -1

func (s slot) split() (int, int) {
	return int(s) / layout.DirentsPerBlock, int(s) % layout.DirentsPerBlock
}

// find returns the entry with sequence seq of name. Sequence 0 is the head.
// A miss is reported as flatfs.ErrNotFound.
func (v *volume) find(name layout.Name, seq uint16) (slot, layout.Dirent, error) {
	for bi, id := range v.sb.Dir {
		db, err := v.readDir(id)
		if err != nil {
			return noSlot, layout.Dirent{}, err
		}

		for i := range db {
			if db[i].Matches(name, seq) {
				return slot(bi*layout.DirentsPerBlock + i), db[i], nil
			}
		}
	}

	return noSlot, layout.Dirent{}, flatfs.ErrNotFound
}

// upsert writes d to slot s, or to the first empty slot if s is noSlot.
// Without an empty slot the directory grows by one block. It returns
// flatfs.ErrNoSpace if it cannot grow.
func (v *volume) upsert(s slot, d layout.Dirent) (slot, error) {
	if s != noSlot {
		bi, i := s.split()
		if bi >= len(v.sb.Dir) {
			return noSlot, fmt.Errorf("directory slot %d out of range", s)
		}

		id := v.sb.Dir[bi]
		db, err := v.readDir(id)
		if err != nil {
			return noSlot, err
		}

		db[i] = d
		return s, v.writeDir(id, db)
	}

	for bi, id := range v.sb.Dir {
		db, err := v.readDir(id)
		if err != nil {
			return noSlot, err
		}

		if i := db.Free(); i >= 0 {
			db[i] = d
			if err := v.writeDir(id, db); err != nil {
				return noSlot, err
			}
			return slot(bi*layout.DirentsPerBlock + i), nil
		}
	}

	return v.grow(d)
}

// grow adds a directory block holding d as its first entry.
func (v *volume) grow(d layout.Dirent) (slot, error) {
	if v.sb.DirFull() {
		return noSlot, fmt.Errorf("%w: directory list is full", flatfs.ErrNoSpace)
	}

	id, err := v.alloc.Allocate()
	if err != nil {
		return noSlot, fmt.Errorf("growing directory: %w", err)
	}

	var db layout.DirBlock
	db[0] = d
	if err := v.writeDir(id, &db); err != nil {
		v.alloc.Free(id)
		return noSlot, err
	}

	if err := v.sb.AddDirBlock(id); err != nil {
		v.alloc.Free(id)
		return noSlot, err
	}
	if err := v.writeSuperblock(); err != nil {
		v.sb.Dir = v.sb.Dir[:len(v.sb.Dir)-1]
		v.alloc.Free(id)
		return noSlot, err
	}

	v.log.WithFields(logrus.Fields{
		"block":     id,
		"dirBlocks": len(v.sb.Dir),
	}).Debug("directory grown")

	return slot((len(v.sb.Dir) - 1) * layout.DirentsPerBlock), nil
}

// shrink drops the last directory block again if it holds no entries.
// The first directory block always stays.
func (v *volume) shrink() error {
	n := len(v.sb.Dir)
	if n <= 1 {
		return nil
	}

	id := v.sb.Dir[n-1]
	db, err := v.readDir(id)
	if err != nil {
		return err
	}
	for i := range db {
		if db[i].Kind != layout.KindEmpty {
			return nil
		}
	}

	v.sb.Dir = v.sb.Dir[:n-1]
	if err := v.writeSuperblock(); err != nil {
		v.sb.Dir = v.sb.Dir[:n]
		return err
	}
	v.alloc.Free(id)

	v.log.WithFields(logrus.Fields{
		"block":     id,
		"dirBlocks": len(v.sb.Dir),
	}).Debug("directory shrunk")

	return nil
}

// release frees the blocks of the entry at s and marks it empty. Blocks go
// first so a failed write never loses track of them.
func (v *volume) release(s slot, d *layout.Dirent) error {
	for _, id := range d.Blocks[:d.Blocks.Len()] {
		v.alloc.Free(id)
	}

	_, err := v.upsert(s, layout.Dirent{})
	return err
}

// remove deletes the head of name and all its extents.
func (v *volume) remove(name layout.Name) error {
	for seq := 0; seq <= math.MaxUint16; seq++ {
		s, d, err := v.find(name, uint16(seq))
		if err == flatfs.ErrNotFound {
			if seq == 0 {
				return fmt.Errorf("%w: %s", flatfs.ErrNotFound, name)
			}
			break
		}
		if err != nil {
			return err
		}

		if err := v.release(s, &d); err != nil {
			return err
		}
	}

	v.log.WithField("name", name.String()).Debug("removed")
	return nil
}

// FileInfo describes one file.
type FileInfo struct {
	// Slot is the directory slot of the head entry.
	Slot int
	Name string
	Size uint64
	// Entries is the length of the entry chain, head included.
	Entries int
}

func (v *volume) list() ([]FileInfo, error) {
	var infos []FileInfo

	for bi, id := range v.sb.Dir {
		db, err := v.readDir(id)
		if err != nil {
			return nil, err
		}

		for i := range db {
			d := &db[i]
			if d.Kind != layout.KindHead {
				continue
			}

			infos = append(infos, FileInfo{
				Slot:    bi*layout.DirentsPerBlock + i,
				Name:    d.Name.String(),
				Size:    d.FileSize(),
				Entries: d.Entries(),
			})
		}
	}

	return infos, nil
}
