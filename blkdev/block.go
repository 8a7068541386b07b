package blkdev

import (
	"io"

	"github.com/keks/flatfs"
)

// block is a window onto one device block of the lower ReadWriterAt.
// Accesses are clipped to the window and overruns report io.EOF.
type block struct {
	off   int64
	lower flatfs.ReadWriterAt
}

func newBlock(rwa flatfs.ReadWriterAt, id flatfs.BlockID) *block {
	return &block{
		lower: rwa,
		off:   int64(id) * flatfs.BlockSize,
	}
}

// clip cuts p to the part that lies inside the block. over is set if
// anything was cut.
func clip(p []byte, off int64) (q []byte, over bool) {
	if off >= flatfs.BlockSize {
		return nil, true
	}
	if max := flatfs.BlockSize - int(off); max < len(p) {
		return p[:max], true
	}
	return p, false
}

func (blk *block) ReadAt(dst []byte, off int64) (int, error) {
	dst, over := clip(dst, off)
	if len(dst) == 0 && over {
		return 0, io.EOF
	}

	n, err := blk.lower.ReadAt(dst, off+blk.off)
	if err == nil && over {
		err = io.EOF
	}
	return n, err
}

func (blk *block) WriteAt(data []byte, off int64) (int, error) {
	data, over := clip(data, off)
	if len(data) == 0 && over {
		return 0, io.EOF
	}

	n, err := blk.lower.WriteAt(data, off+blk.off)
	if err == nil && over {
		err = io.EOF
	}
	return n, err
}
