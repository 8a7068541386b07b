// Package blkdev provides whole-block devices on top of files and memory.
package blkdev

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/keks/flatfs"
)

// ErrOutOfRange is returned for block ids past the end of the device.
var ErrOutOfRange = errors.New("blkdev: block out of range")

// ErrBufferSize is returned when a block buffer is not exactly one block long.
var ErrBufferSize = errors.New("blkdev: buffer is not one block long")

// Disk is a flatfs.Device backed by a ReadWriterAt.
type Disk struct {
	l sync.Mutex

	lower   flatfs.ReadWriterAt
	closer  io.Closer
	nblocks int
}

var _ flatfs.Device = (*Disk)(nil)

// New returns a disk of nblocks blocks stored in rwa starting at offset 0.
func New(rwa flatfs.ReadWriterAt, nblocks int) *Disk {
	d := &Disk{
		lower:   rwa,
		nblocks: nblocks,
	}

	if c, ok := rwa.(io.Closer); ok {
		d.closer = c
	}

	return d
}

// NewMemory returns a zeroed in-memory disk.
func NewMemory(nblocks int) *Disk {
	return New(newMemory(nblocks*flatfs.BlockSize), nblocks)
}

// Create creates or truncates the image file at path and sizes it to nblocks.
func Create(path string, nblocks int) (*Disk, error) {
	if nblocks <= 0 {
		return nil, fmt.Errorf("blkdev: invalid block count %d", nblocks)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("blkdev: failed to create image %s: %w", path, err)
	}

	if err := f.Truncate(int64(nblocks) * flatfs.BlockSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("blkdev: failed to size image %s: %w", path, err)
	}

	return New(f, nblocks), nil
}

// Open opens an existing image file. Trailing bytes that do not fill a whole
// block are not part of the device.
func Open(path string) (*Disk, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("blkdev: failed to open image %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blkdev: failed to stat image %s: %w", path, err)
	}

	return New(f, int(fi.Size()/flatfs.BlockSize)), nil
}

// Close closes the lower ReadWriterAt if it can be closed.
func (d *Disk) Close() error {
	if d.closer == nil {
		return nil
	}

	return d.closer.Close()
}

// BlockCount returns the number of blocks on the disk.
func (d *Disk) BlockCount() int {
	return d.nblocks
}

func (d *Disk) get(id flatfs.BlockID, buf []byte) (*block, error) {
	if len(buf) != flatfs.BlockSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBufferSize, len(buf))
	}

	if int(id) >= d.nblocks {
		return nil, fmt.Errorf("%w: block %d of %d", ErrOutOfRange, id, d.nblocks)
	}

	return newBlock(d.lower, id), nil
}

// ReadBlock reads block id into buf.
func (d *Disk) ReadBlock(id flatfs.BlockID, buf []byte) error {
	d.l.Lock()
	defer d.l.Unlock()

	blk, err := d.get(id, buf)
	if err != nil {
		return err
	}

	if _, err := io.ReadFull(readerAt(blk, 0), buf); err != nil {
		return fmt.Errorf("blkdev: read of block %d failed: %w", id, err)
	}

	return nil
}

// WriteBlock writes buf to block id.
func (d *Disk) WriteBlock(id flatfs.BlockID, buf []byte) error {
	d.l.Lock()
	defer d.l.Unlock()

	blk, err := d.get(id, buf)
	if err != nil {
		return err
	}

	n, err := writerAt(blk, 0).Write(buf)
	if err != nil {
		return fmt.Errorf("blkdev: write of block %d failed: %w", id, err)
	}
	if n != len(buf) {
		return fmt.Errorf("blkdev: write of block %d failed: %w", id, io.ErrShortWrite)
	}

	return nil
}
