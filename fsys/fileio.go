package fsys

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/keks/flatfs"
	"github.com/keks/flatfs/layout"
)

func (v *volume) readAt(name layout.Name, p []byte, off uint64) (int, error) {
	s, head, err := v.find(name, 0)
	if err == flatfs.ErrNotFound {
		return 0, fmt.Errorf("%w: %s", flatfs.ErrNotFound, name)
	}
	if err != nil {
		return 0, err
	}

	size := head.FileSize()
	if off >= size {
		return 0, io.EOF
	}

	end := off + uint64(len(p))
	if end > size {
		end = size
	}

	c := newChain(v, s, head)
	buf := make([]byte, flatfs.BlockSize)
	n := 0

	for cur := off; cur < end; cur = off + uint64(n) {
		pos, err := positionOf(cur)
		if err != nil {
			return n, err
		}

		err = c.seek(pos.seq)
		if err == flatfs.ErrNotFound {
			return n, fmt.Errorf("%w: %s of size %d has no entry %d", flatfs.ErrCorrupt, name, size, pos.seq)
		}
		if err != nil {
			return n, err
		}

		id := c.block(pos.slot)
		if id == 0 {
			return n, fmt.Errorf("%w: %s of size %d has no block %d in entry %d", flatfs.ErrCorrupt, name, size, pos.slot, pos.seq)
		}

		if err := v.dev.ReadBlock(id, buf); err != nil {
			return n, err
		}

		n += copy(p[n:int(end-off)], buf[pos.inner:])
	}

	if n < len(p) {
		return n, io.EOF
	}

	return n, nil
}

// writeAt writes p at off. Writes may not start past the end of the file.
// When the device or the directory fills up, the bytes written so far are
// kept and recorded, and the short count is returned with flatfs.ErrNoSpace.
func (v *volume) writeAt(name layout.Name, p []byte, off uint64) (int, error) {
	log := v.log.WithField("name", name.String())

	s, head, err := v.find(name, 0)
	created, grewDir := false, false
	switch {
	case err == flatfs.ErrNotFound:
		if off != 0 {
			return 0, fmt.Errorf("%w: %s does not exist, offset %d", flatfs.ErrSparse, name, off)
		}

		dirBlocks := len(v.sb.Dir)
		head = layout.NewHead(name)
		s, err = v.upsert(noSlot, head)
		if err != nil {
			return 0, fmt.Errorf("creating %s: %w", name, err)
		}
		created = true
		grewDir = len(v.sb.Dir) > dirBlocks
		log.WithField("slot", int(s)).Debug("created")
	case err != nil:
		return 0, err
	}

	size := head.FileSize()
	if off > size {
		return 0, fmt.Errorf("%w: %s has size %d, offset %d", flatfs.ErrSparse, name, size, off)
	}

	c := newChain(v, s, head)
	n, werr := v.writeChain(c, p, off)

	if created && n == 0 && len(p) > 0 {
		// nothing landed, undo the creation
		if err := c.flushExtent(); err != nil {
			return 0, err
		}
		if err := v.release(s, &c.head); err != nil {
			return 0, err
		}
		if grewDir {
			if err := v.shrink(); err != nil {
				return 0, err
			}
		}
		return 0, fmt.Errorf("creating %s: %w", name, werr)
	}

	if end := off + uint64(n); end > size {
		size = end
	}
	if err := c.head.SetFileSize(size); err != nil {
		return 0, err
	}
	if err := c.flush(); err != nil {
		return 0, err
	}

	if werr != nil {
		if errors.Is(werr, flatfs.ErrNoSpace) {
			log.WithFields(logrus.Fields{
				"written": n,
				"wanted":  len(p),
			}).Warn("disk full, short write")
		}
		return n, werr
	}

	return n, nil
}

// writeChain copies p into the blocks of the chain starting at off.
// Existing blocks that are only partly covered are read, modified and
// written back. Missing blocks are allocated and zero padded.
func (v *volume) writeChain(c *chain, p []byte, off uint64) (int, error) {
	n := 0

	for n < len(p) {
		pos, err := positionOf(off + uint64(n))
		if err != nil {
			return n, err
		}

		if err := c.seekOrAdd(pos.seq); err != nil {
			return n, err
		}

		k := flatfs.BlockSize - pos.inner
		if rest := len(p) - n; rest < k {
			k = rest
		}
		chunk := p[n : n+k]

		if id := c.block(pos.slot); id != 0 {
			if k == flatfs.BlockSize {
				err = v.dev.WriteBlock(id, chunk)
			} else {
				err = v.modifyBlock(id, func(buf []byte) {
					copy(buf[pos.inner:], chunk)
				})
			}
			if err != nil {
				return n, err
			}

			n += k
			continue
		}

		if pos.slot != c.cur.Blocks.Len() {
			return n, fmt.Errorf("%w: %s entry %d has a gap before slot %d", flatfs.ErrCorrupt, c.name, pos.seq, pos.slot)
		}

		id, err := v.alloc.Allocate()
		if err != nil {
			return n, err
		}

		buf := make([]byte, flatfs.BlockSize)
		copy(buf[pos.inner:], chunk)
		if err := v.dev.WriteBlock(id, buf); err != nil {
			v.alloc.Free(id)
			return n, err
		}

		c.setBlock(pos.slot, id)
		n += k
	}

	return n, nil
}
