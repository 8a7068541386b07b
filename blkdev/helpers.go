package blkdev

import "io"

// cursor turns a ReaderAt or WriterAt into a stream starting at off.
// Only the side that was set may be used.
type cursor struct {
	ra  io.ReaderAt
	wa  io.WriterAt
	off int64
}

func readerAt(ra io.ReaderAt, off int64) *cursor {
	return &cursor{ra: ra, off: off}
}

func writerAt(wa io.WriterAt, off int64) *cursor {
	return &cursor{wa: wa, off: off}
}

func (c *cursor) Read(p []byte) (int, error) {
	n, err := c.ra.ReadAt(p, c.off)
	c.off += int64(n)
	return n, err
}

func (c *cursor) Write(p []byte) (int, error) {
	n, err := c.wa.WriteAt(p, c.off)
	c.off += int64(n)
	return n, err
}
