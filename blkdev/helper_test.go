package blkdev

import (
	"io"
)

// growing is a memory ReadWriterAt that extends itself on writes past the
// end, like a sparse file.
type growing struct {
	memory
}

func newGrowing() *growing {
	return &growing{}
}

func (g *growing) WriteAt(data []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.EOF
	}
	if len(data) == 0 {
		return 0, nil
	}

	if end := int(off) + len(data); end > len(g.buf) {
		g.buf = append(g.buf, make([]byte, end-len(g.buf))...)
	}

	return g.memory.WriteAt(data, off)
}
