package fsys

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keks/flatfs"
	"github.com/keks/flatfs/alloc"
	"github.com/keks/flatfs/blkdev"
)

type op interface {
	Do(*testing.T, *FS)
}

// checkErr accepts either an exact error string or a sentinel.
func checkErr(t *testing.T, err error, expErr string, expIs error) {
	switch {
	case expErr != "":
		require.EqualError(t, err, expErr)
	case expIs != nil:
		require.True(t, errors.Is(err, expIs), "expected %v, got %v", expIs, err)
	default:
		require.NoError(t, err)
	}
}

type formatOp struct {
	label string

	expErr string
	expIs  error
}

func (op formatOp) Do(t *testing.T, fs *FS) {
	checkErr(t, fs.Format(op.label), op.expErr, op.expIs)
}

type mountOp struct {
	expErr string
	expIs  error
}

func (op mountOp) Do(t *testing.T, fs *FS) {
	checkErr(t, fs.Mount(), op.expErr, op.expIs)
}

type unmountOp struct {
	expIs error
}

func (op unmountOp) Do(t *testing.T, fs *FS) {
	checkErr(t, fs.Unmount(), "", op.expIs)
}

// remountOp unmounts and mounts again, checking that the allocation map
// and the file list survive.
type remountOp struct{}

func (op remountOp) Do(t *testing.T, fs *FS) {
	r := require.New(t)

	before := fs.vol.alloc.Snapshot()
	list, err := fs.List()
	r.NoError(err)

	r.NoError(fs.Unmount())
	r.Nil(fs.vol)
	r.NoError(fs.Mount())

	r.Equal(before, fs.vol.alloc.Snapshot())
	list2, err := fs.List()
	r.NoError(err)
	r.Equal(list, list2)
}

type writeOp struct {
	name string
	data []byte
	off  int64

	// expN defaults to len(data) when no error is expected
	expN   int
	expErr string
	expIs  error
}

func (op writeOp) Do(t *testing.T, fs *FS) {
	n, err := fs.WriteAt(flatfs.FileName(op.name), op.data, op.off)
	t.Logf("writeOp %s, n: %d, err: %v", op.name, n, err)

	checkErr(t, err, op.expErr, op.expIs)
	if op.expErr == "" && op.expIs == nil && op.expN == 0 {
		op.expN = len(op.data)
	}
	require.Equal(t, op.expN, n)
}

type readOp struct {
	name    string
	off     int64
	readlen int

	exp    []byte
	expN   int
	expErr string
	expIs  error
}

func (op readOp) Do(t *testing.T, fs *FS) {
	r := require.New(t)
	if op.readlen == 0 {
		op.readlen = len(op.exp)
	}
	if op.expN == 0 {
		op.expN = len(op.exp)
	}

	buf := make([]byte, op.readlen)
	n, err := fs.ReadAt(flatfs.FileName(op.name), buf, op.off)
	t.Logf("readOp %s, n: %d, err: %v", op.name, n, err)

	checkErr(t, err, op.expErr, op.expIs)
	r.Equal(op.expN, n)
	r.True(bytes.Equal(op.exp, buf[:n]), "read %d bytes that differ from the expected data", n)
}

type deleteOp struct {
	name string

	expErr string
	expIs  error
}

func (op deleteOp) Do(t *testing.T, fs *FS) {
	checkErr(t, fs.Delete(flatfs.FileName(op.name)), op.expErr, op.expIs)
}

type statOp struct {
	name string

	expSize    uint64
	expEntries int
	expIs      error
}

func (op statOp) Do(t *testing.T, fs *FS) {
	fi, err := fs.Stat(flatfs.FileName(op.name))
	checkErr(t, err, "", op.expIs)
	if op.expIs != nil {
		return
	}

	require.Equal(t, op.expSize, fi.Size, "size of %s", op.name)
	require.Equal(t, op.expEntries, fi.Entries, "entries of %s", op.name)
}

type listOp struct {
	// exp maps names to sizes
	exp map[string]uint64

	expIs error
}

func (op listOp) Do(t *testing.T, fs *FS) {
	infos, err := fs.List()
	checkErr(t, err, "", op.expIs)
	if op.expIs != nil {
		return
	}

	got := make(map[string]uint64)
	for _, fi := range infos {
		got[fi.Name] = fi.Size
	}
	if op.exp == nil {
		op.exp = map[string]uint64{}
	}
	require.Equal(t, op.exp, got)
}

type usageOp struct {
	expUsed      int
	expDirBlocks []flatfs.BlockID
}

func (op usageOp) Do(t *testing.T, fs *FS) {
	u, err := fs.Usage()
	require.NoError(t, err)
	require.Equal(t, op.expUsed, u.Used, "used blocks")
	require.Equal(t, u.Blocks, u.Used+u.Free)
	if op.expDirBlocks != nil {
		require.Equal(t, op.expDirBlocks, u.DirBlocks)
	}
}

// checkMapOp rebuilds the allocation map from disk and compares it to the
// live one.
type checkMapOp struct{}

func (op checkMapOp) Do(t *testing.T, fs *FS) {
	requireMapConsistent(t, fs)
}

func requireMapConsistent(t *testing.T, fs *FS) {
	v := fs.vol
	require.NotNil(t, v, "not mounted")

	rebuilt, err := alloc.Reconstruct(v.sb, v.readDir)
	require.NoError(t, err)
	require.Equal(t, rebuilt.UsedBlocks(), v.alloc.UsedBlocks())
	require.Equal(t, rebuilt.Snapshot(), v.alloc.Snapshot())
}

type dumpOp struct {
	name string
	v    interface{}
}

func (op dumpOp) Do(t *testing.T, fs *FS) {
	t.Logf("%s: %#v", op.name, op.v)
}

// pattern returns n bytes that differ from block to block.
func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i%251) + byte(i/flatfs.BlockSize)
	}
	return b
}

type testcase struct {
	name    string
	nblocks int
	ops     []op
}

func mktest(tc testcase) func(*testing.T) {
	return func(t *testing.T) {
		t.Run("memory", func(t *testing.T) {
			fs, err := New(blkdev.NewMemory(tc.nblocks))
			require.NoError(t, err)

			for _, op := range tc.ops {
				op.Do(t, fs)
				t.Logf("ok: %T", op)
			}
		})

		t.Run("file", func(t *testing.T) {
			dir, err := os.MkdirTemp("", "fsys-*")
			require.NoError(t, err)
			defer os.RemoveAll(dir)

			dev, err := blkdev.Create(filepath.Join(dir, "disk.img"), tc.nblocks)
			require.NoError(t, err)
			defer dev.Close()

			fs, err := New(dev)
			require.NoError(t, err)

			for _, op := range tc.ops {
				op.Do(t, fs)
				t.Logf("ok: %T", op)
			}
		})
	}
}

func runCases(t *testing.T, tcs []testcase) {
	for _, tc := range tcs {
		t.Run(tc.name, mktest(tc))
	}
}
