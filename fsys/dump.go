package fsys

import (
	"fmt"
	"io"
	"strings"

	"github.com/keks/flatfs"
	"github.com/keks/flatfs/layout"
)

const rule = "**************************************"

// Dump writes the on-disk superblock to w and, while mounted, the blocks
// in use and the file list. An unformatted device is reported as
// flatfs.ErrBadMagic after saying so on w.
func (fs *FS) Dump(w io.Writer) error {
	fs.l.Lock()
	defer fs.l.Unlock()

	sb, err := readSuperblock(fs.dev)
	if err != nil {
		return err
	}

	if sb.Magic != layout.Magic {
		fmt.Fprintln(w, "disk unformatted")
		return flatfs.ErrBadMagic
	}

	dumpSuperblock(w, sb)
	fmt.Fprintln(w, rule)

	if v := fs.vol; v != nil {
		ids := v.alloc.UsedBlocks()
		used := make([]string, len(ids))
		for i, id := range ids {
			used[i] = fmt.Sprint(id)
		}
		fmt.Fprintf(w, "used blocks: %s\n", strings.Join(used, " "))

		infos, err := v.list()
		if err != nil {
			return err
		}

		fmt.Fprintln(w, "files:")
		WriteList(w, infos)
	}

	fmt.Fprintln(w, rule)
	return nil
}

func dumpSuperblock(w io.Writer, sb *layout.Superblock) {
	fmt.Fprintln(w, "superblock:")
	fmt.Fprintf(w, "    magic = %x\n", sb.Magic)
	fmt.Fprintf(w, "    %d blocks\n", sb.Blocks)
	fmt.Fprintf(w, "    dir_size: %d\n", layout.DirListCap)
	if len(sb.Dir) > 0 {
		fmt.Fprintf(w, "    first dir block: %d\n", sb.Dir[0])
	}
	fmt.Fprintf(w, "    disk label: %s\n", sb.Label)

	dir := make([]string, len(sb.Dir))
	for i, id := range sb.Dir {
		dir[i] = fmt.Sprint(id)
	}
	fmt.Fprintf(w, "dir blocks: %s\n", strings.Join(dir, " "))
}

// WriteList prints one line per file: slot, name and size.
func WriteList(w io.Writer, infos []FileInfo) {
	for _, fi := range infos {
		fmt.Fprintf(w, "%d: %s, size: %d bytes\n", fi.Slot, fi.Name, fi.Size)
	}
}
