package blkdev

import (
	"bytes"
	"testing"

	"github.com/keks/flatfs"
	"github.com/stretchr/testify/require"
)

type op interface {
	Do(*testing.T, flatfs.ReadWriterAt)
}

type diskNewOp struct {
	disk    **Disk
	nblocks int
}

func (op diskNewOp) Do(t *testing.T, rwa flatfs.ReadWriterAt) {
	*op.disk = New(rwa, op.nblocks)
	require.Equal(t, op.nblocks, (*op.disk).BlockCount())
}

type diskWriteOp struct {
	disk **Disk
	id   flatfs.BlockID

	// data is zero padded to a full block unless raw is set
	data []byte
	raw  bool

	expErr string
}

func (op diskWriteOp) Do(t *testing.T, rwa flatfs.ReadWriterAt) {
	buf := op.data
	if !op.raw {
		buf = make([]byte, flatfs.BlockSize)
		copy(buf, op.data)
	}

	err := (*op.disk).WriteBlock(op.id, buf)
	t.Logf("diskWriteOp id=%d err=%v", op.id, err)
	if op.expErr == "" {
		require.NoError(t, err)
	} else {
		require.EqualError(t, err, op.expErr)
	}
}

type diskReadOp struct {
	disk **Disk
	id   flatfs.BlockID

	// bufLen defaults to one block
	bufLen int

	// exp is compared against the start of the block, the rest must be zero
	exp    []byte
	expErr string
}

func (op diskReadOp) Do(t *testing.T, rwa flatfs.ReadWriterAt) {
	r := require.New(t)
	if op.bufLen == 0 {
		op.bufLen = flatfs.BlockSize
	}

	buf := make([]byte, op.bufLen)
	err := (*op.disk).ReadBlock(op.id, buf)
	t.Logf("diskReadOp id=%d err=%v", op.id, err)
	if op.expErr != "" {
		r.EqualError(err, op.expErr)
		return
	}

	r.NoError(err)
	r.True(bytes.Equal(buf[:len(op.exp)], op.exp), "block prefix %q", buf[:len(op.exp)])
	r.True(bytes.Equal(buf[len(op.exp):], make([]byte, len(buf)-len(op.exp))), "block tail not zero")
}

type blkWriteOp struct {
	id   flatfs.BlockID
	data []byte
	off  int64

	expN   int
	expErr string
}

func (op blkWriteOp) Do(t *testing.T, rwa flatfs.ReadWriterAt) {
	r := require.New(t)

	blk := newBlock(rwa, op.id)
	n, err := blk.WriteAt(op.data, op.off)

	t.Logf("writeOp, n: %d, err: %v", n, err)

	r.Equal(op.expN, n)
	if op.expErr == "" {
		r.NoError(err)
	} else {
		r.EqualError(err, op.expErr)
	}
}

type blkReadOp struct {
	id      flatfs.BlockID
	off     int64
	readlen int

	exp    []byte
	expN   int
	expErr string
}

func (op blkReadOp) Do(t *testing.T, rwa flatfs.ReadWriterAt) {
	r := require.New(t)
	if op.readlen == 0 {
		op.readlen = len(op.exp)
	}

	blk := newBlock(rwa, op.id)
	buf := make([]byte, op.readlen)
	n, err := blk.ReadAt(buf, op.off)

	t.Logf("readOp, n: %d, err: %v", n, err)

	if op.expErr == "" {
		r.NoError(err)
	} else {
		r.EqualError(err, op.expErr)
	}
	r.Equal(op.expN, n)
	t.Logf("buffer contents %q | 0x%x", buf[:op.expN], buf[:op.expN])
	r.True(bytes.Equal(buf[:op.expN], op.exp))
}

type dumpOp struct {
	name string
	v    interface{}
}

func (op dumpOp) Do(t *testing.T, rwa flatfs.ReadWriterAt) {
	t.Logf("%s: %#v", op.name, op.v)
}
