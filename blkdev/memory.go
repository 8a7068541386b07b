package blkdev

import (
	"io"
)

// memory is a fixed size in-memory ReadWriterAt.
type memory struct {
	buf []byte
}

func newMemory(size int) *memory {
	return &memory{buf: make([]byte, size)}
}

func (m *memory) ReadAt(buf []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.buf)) {
		return 0, io.EOF
	}

	n := copy(buf, m.buf[off:])
	if n < len(buf) {
		return n, io.EOF
	}

	return n, nil
}

func (m *memory) WriteAt(data []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.buf)) {
		return 0, io.EOF
	}

	n := copy(m.buf[off:], data)
	if n < len(data) {
		return n, io.EOF
	}

	return n, nil
}
