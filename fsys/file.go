package fsys

import (
	"fmt"

	"github.com/keks/flatfs"
	"github.com/keks/flatfs/layout"
)

func checkOffset(off int64) error {
	if off < 0 {
		return fmt.Errorf("fsys: negative offset %d", off)
	}
	return nil
}

// ReadAt reads len(p) bytes of the file name starting at off. Reads that
// reach the end of the file return the bytes up to the end and io.EOF.
func (fs *FS) ReadAt(name flatfs.FileName, p []byte, off int64) (n int, err error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}

	err = fs.mounted(func(v *volume) error {
		n, err = v.readAt(layout.EncodeName(string(name)), p, uint64(off))
		return err
	})
	return n, err
}

// WriteAt writes p to the file name at off, creating the file if needed.
// off may be at most the current size. If the device fills up the write
// stops early and returns the number of bytes written with flatfs.ErrNoSpace.
func (fs *FS) WriteAt(name flatfs.FileName, p []byte, off int64) (n int, err error) {
	if err := checkOffset(off); err != nil {
		return 0, err
	}

	err = fs.mounted(func(v *volume) error {
		n, err = v.writeAt(layout.EncodeName(string(name)), p, uint64(off))
		return err
	})
	return n, err
}

// Delete removes the file and frees its blocks.
func (fs *FS) Delete(name flatfs.FileName) error {
	return fs.mounted(func(v *volume) error {
		return v.remove(layout.EncodeName(string(name)))
	})
}

// List returns every file in directory order.
func (fs *FS) List() (infos []FileInfo, err error) {
	err = fs.mounted(func(v *volume) error {
		infos, err = v.list()
		return err
	})
	return infos, err
}

// Stat describes one file.
func (fs *FS) Stat(name flatfs.FileName) (fi FileInfo, err error) {
	err = fs.mounted(func(v *volume) error {
		enc := layout.EncodeName(string(name))
		s, head, err := v.find(enc, 0)
		if err == flatfs.ErrNotFound {
			return fmt.Errorf("%w: %s", flatfs.ErrNotFound, enc)
		}
		if err != nil {
			return err
		}

		fi = FileInfo{
			Slot:    int(s),
			Name:    enc.String(),
			Size:    head.FileSize(),
			Entries: head.Entries(),
		}
		return nil
	})
	return fi, err
}

// Open returns a handle for name. The file does not need to exist; the
// first write creates it.
func (fs *FS) Open(name flatfs.FileName) flatfs.File {
	return &file{fs: fs, name: name}
}

type file struct {
	fs   *FS
	name flatfs.FileName
}

var _ flatfs.File = (*file)(nil)

func (f *file) Name() flatfs.FileName { return f.name }

func (f *file) Size() (uint64, error) {
	fi, err := f.fs.Stat(f.name)
	return fi.Size, err
}

func (f *file) ReadAt(p []byte, off int64) (int, error) {
	return f.fs.ReadAt(f.name, p, off)
}

func (f *file) WriteAt(p []byte, off int64) (int, error) {
	return f.fs.WriteAt(f.name, p, off)
}

// Usage summarises the mounted volume.
type Usage struct {
	Label     string
	Blocks    int
	Used      int
	Free      int
	DirBlocks []flatfs.BlockID
}

// Usage returns block usage of the mounted volume.
func (fs *FS) Usage() (u Usage, err error) {
	err = fs.mounted(func(v *volume) error {
		u = Usage{
			Label:     v.sb.Label.String(),
			Blocks:    v.alloc.Total(),
			Used:      v.alloc.Used(),
			Free:      v.alloc.Available(),
			DirBlocks: append([]flatfs.BlockID(nil), v.sb.Dir...),
		}
		return nil
	})
	return u, err
}
