package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keks/flatfs/blkdev"
	"github.com/keks/flatfs/fsys"
)

func TestShell(t *testing.T) {
	dir, err := os.MkdirTemp("", "flatfs-shell-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	host := filepath.Join(dir, "host.txt")
	require.NoError(t, os.WriteFile(host, []byte("from the host"), 0644))

	type step struct {
		line string
		exp  string
	}

	steps := []step{
		{"", ""},
		{"dir", "error: disk not mounted, use mount first\n"},
		{"mount", "error: flatfs: bad magic, device not formatted: found 0x0000\n"},
		{"debug", "disk unformatted\n"},
		{"format", "error: format: want 1 arguments, got 0\n"},
		{"format shell", "formatted\n"},
		{"mount", "mounted SHELL, 14 of 16 blocks free\n"},
		{"write notes 0 hello world", "wrote 11 bytes\n"},
		{"write notes 20 x", "wrote 0 bytes\nerror: flatfs: write offset beyond end of file: NOTES has size 11, offset 20\n"},
		{"read notes 5 6", "read 5 bytes: \"world\"\n"},
		{"read notes 100 0", "read 11 bytes: \"hello world\"\n"},
		{"read notes x 0", "error: read: bad length \"x\"\n"},
		{"cat notes", "hello world\n"},
		{"import " + host + " h", "imported 13 of 13 bytes\n"},
		{"cat H", "from the host\n"},
		{"dir", "0: NOTES, size: 11 bytes\n1: H, size: 13 bytes\n2 files, 12 of 16 blocks free\n"},
		{"delete notes", "deleted notes\n"},
		{"delete notes", "error: flatfs: no such file: NOTES\n"},
		{"cat notes", "error: flatfs: no such file: NOTES\n"},
		{"frobnicate", "error: unknown command \"frobnicate\", try help\n"},
		{"unmount", "unmounted\n"},
		{"read h 1 0", "error: disk not mounted, use mount first\n"},
	}

	var out bytes.Buffer
	sh := newShell(newTestFS(t, 16), &out)
	for _, s := range steps {
		out.Reset()
		require.NoError(t, sh.run(s.line), s.line)
		require.Equal(t, s.exp, out.String(), s.line)
	}

	require.Equal(t, errQuit, sh.run("exit"))
}

func TestShellPNG(t *testing.T) {
	r := require.New(t)

	dir, err := os.MkdirTemp("", "flatfs-png-*")
	r.NoError(err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "usage.png")

	var out bytes.Buffer
	sh := newShell(newTestFS(t, 128), &out)

	r.NoError(sh.run("png " + path))
	r.Equal("error: disk not mounted, use mount first\n", out.String())
	_, err = os.Stat(path)
	r.True(os.IsNotExist(err))

	r.NoError(sh.run("format png"))
	r.NoError(sh.run("mount"))
	out.Reset()
	r.NoError(sh.run("png " + path))
	r.Equal("wrote "+path+"\n", out.String())

	f, err := os.Open(path)
	r.NoError(err)
	defer f.Close()
	_, err = png.Decode(f)
	r.NoError(err)
}

func TestOpenDisk(t *testing.T) {
	r := require.New(t)

	dir, err := os.MkdirTemp("", "flatfs-open-*")
	r.NoError(err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "disk.img")

	_, err = openDisk(path, 0)
	r.Error(err)

	dev, err := openDisk(path, 8)
	r.NoError(err)
	r.Equal(8, dev.BlockCount())
	r.NoError(dev.Close())

	// exists now, -blocks is ignored
	dev, err = openDisk(path, 32)
	r.NoError(err)
	r.Equal(8, dev.BlockCount())
	r.NoError(dev.Close())
}

func newTestFS(t *testing.T, nblocks int) *fsys.FS {
	fs, err := fsys.New(blkdev.NewMemory(nblocks))
	require.NoError(t, err)
	return fs
}
