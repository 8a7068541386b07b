// Package fsys implements the flat file system on top of a flatfs.Device.
//
// An FS is either unmounted or holds exactly one mounted volume: the
// superblock mirror and the allocation map built from the directory. Every
// file operation needs a mounted volume and fails with flatfs.ErrNotMounted
// otherwise. All operations on one FS are serialised.
package fsys

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/keks/flatfs"
	"github.com/keks/flatfs/alloc"
	"github.com/keks/flatfs/layout"
)

// FS is a flat file system on one device.
type FS struct {
	l sync.Mutex

	dev flatfs.Device
	log logrus.FieldLogger

	// nil while unmounted
	vol *volume
}

// volume is the state of a mounted device.
type volume struct {
	id  uuid.UUID
	dev flatfs.Device
	log logrus.FieldLogger

	sb    *layout.Superblock
	alloc *alloc.Allocator
}

// New returns an unmounted FS on dev.
func New(dev flatfs.Device, opts ...Option) (*FS, error) {
	fs := &FS{
		dev: dev,
		log: discardLogger(),
	}

	for _, opt := range opts {
		if err := opt(fs); err != nil {
			return nil, err
		}
	}

	return fs, nil
}

// Format writes an empty file system with the given label. The device must
// not be mounted and Format does not mount it.
func (fs *FS) Format(label string) error {
	fs.l.Lock()
	defer fs.l.Unlock()

	if fs.vol != nil {
		return fmt.Errorf("cannot format a mounted disk: %w", flatfs.ErrMounted)
	}

	sb, err := layout.NewSuperblock(fs.dev.BlockCount(), label)
	if err != nil {
		return err
	}

	// first directory block before the superblock that points to it
	if err := fs.dev.WriteBlock(layout.FirstDirBlock, make([]byte, flatfs.BlockSize)); err != nil {
		return err
	}

	b, err := sb.MarshalBinary()
	if err != nil {
		return err
	}
	if err := fs.dev.WriteBlock(layout.SuperblockID, b); err != nil {
		return err
	}

	fs.log.WithFields(logrus.Fields{
		"label":  sb.Label.String(),
		"blocks": sb.Blocks,
	}).Info("formatted")

	return nil
}

// Mount loads the superblock and rebuilds the allocation map.
func (fs *FS) Mount() error {
	fs.l.Lock()
	defer fs.l.Unlock()

	if fs.vol != nil {
		return flatfs.ErrMounted
	}

	sb, err := readSuperblock(fs.dev)
	if err != nil {
		return err
	}

	if sb.Magic != layout.Magic {
		return fmt.Errorf("%w: found 0x%04x", flatfs.ErrBadMagic, sb.Magic)
	}
	if int(sb.Blocks) != fs.dev.BlockCount() {
		return fmt.Errorf("%w: superblock records %d blocks, device has %d", flatfs.ErrSizeMismatch, sb.Blocks, fs.dev.BlockCount())
	}
	if len(sb.Dir) == 0 {
		return fmt.Errorf("%w: superblock lists no directory blocks", flatfs.ErrCorrupt)
	}

	id := uuid.New()
	v := &volume{
		id:  id,
		dev: fs.dev,
		log: fs.log.WithField("volume", id.String()),
		sb:  sb,
	}

	v.alloc, err = alloc.Reconstruct(sb, v.readDir)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	fs.vol = v
	v.log.WithFields(logrus.Fields{
		"label":     sb.Label.String(),
		"blocks":    sb.Blocks,
		"used":      v.alloc.Used(),
		"dirBlocks": len(sb.Dir),
	}).Info("mounted")

	return nil
}

// Unmount drops the in-memory state of the mounted volume. Everything has
// been written through already, so nothing is flushed.
func (fs *FS) Unmount() error {
	fs.l.Lock()
	defer fs.l.Unlock()

	if fs.vol == nil {
		return flatfs.ErrNotMounted
	}

	fs.vol.log.Info("unmounted")
	fs.vol = nil
	return nil
}

// Mounted reports whether a volume is mounted.
func (fs *FS) Mounted() bool {
	fs.l.Lock()
	defer fs.l.Unlock()

	return fs.vol != nil
}

// mounted runs fn with the lock held and a mounted volume.
func (fs *FS) mounted(fn func(v *volume) error) error {
	fs.l.Lock()
	defer fs.l.Unlock()

	if fs.vol == nil {
		return flatfs.ErrNotMounted
	}

	return fn(fs.vol)
}

func readSuperblock(dev flatfs.Device) (*layout.Superblock, error) {
	buf := make([]byte, flatfs.BlockSize)
	if err := dev.ReadBlock(layout.SuperblockID, buf); err != nil {
		return nil, err
	}

	var sb layout.Superblock
	if err := sb.UnmarshalBinary(buf); err != nil {
		return nil, err
	}

	return &sb, nil
}

func (v *volume) writeSuperblock() error {
	b, err := v.sb.MarshalBinary()
	if err != nil {
		return err
	}

	return v.dev.WriteBlock(layout.SuperblockID, b)
}

func (v *volume) readDir(id flatfs.BlockID) (*layout.DirBlock, error) {
	buf := make([]byte, flatfs.BlockSize)
	if err := v.dev.ReadBlock(id, buf); err != nil {
		return nil, err
	}

	var db layout.DirBlock
	if err := db.UnmarshalBinary(buf); err != nil {
		return nil, fmt.Errorf("directory block %d: %w", id, err)
	}

	return &db, nil
}

func (v *volume) writeDir(id flatfs.BlockID, db *layout.DirBlock) error {
	b, err := db.MarshalBinary()
	if err != nil {
		return err
	}

	return v.dev.WriteBlock(id, b)
}

// modifyBlock reads block id, lets fn change it and writes it back.
// Blocks can only be written whole, so this is how partial updates happen.
func (v *volume) modifyBlock(id flatfs.BlockID, fn func(buf []byte)) error {
	buf := make([]byte, flatfs.BlockSize)
	if err := v.dev.ReadBlock(id, buf); err != nil {
		return err
	}

	fn(buf)

	return v.dev.WriteBlock(id, buf)
}
