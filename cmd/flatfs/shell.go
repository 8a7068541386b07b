package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/keks/flatfs"
	"github.com/keks/flatfs/fsys"
)

var errQuit = errors.New("quit")

const usage = `commands:
  format LABEL            write an empty file system
  mount                   mount the disk
  unmount                 unmount the disk
  dir                     list files
  debug                   dump the superblock and directory
  delete NAME             delete a file
  read NAME LEN OFF       read LEN bytes at OFF
  write NAME OFF TEXT     write TEXT at OFF
  cat NAME                print a whole file
  import HOSTPATH NAME    copy a host file into the file system
  png PATH                draw the block map to a PNG file
  exit                    leave
`

type shell struct {
	fs  *fsys.FS
	out io.Writer
}

func newShell(fs *fsys.FS, out io.Writer) *shell {
	return &shell{fs: fs, out: out}
}

// run executes one line and prints errors. It returns errQuit on exit.
func (sh *shell) run(line string) error {
	err := sh.exec(line)
	switch {
	case err == nil:
	case err == errQuit:
		return err
	case errors.Is(err, flatfs.ErrNotMounted):
		fmt.Fprintln(sh.out, "error: disk not mounted, use mount first")
	default:
		fmt.Fprintf(sh.out, "error: %v\n", err)
	}
	return nil
}

func (sh *shell) exec(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	cmd, args := strings.ToLower(parts[0]), parts[1:]
	switch cmd {
	case "exit", "quit":
		return errQuit

	case "help":
		fmt.Fprint(sh.out, usage)
		return nil

	case "format":
		if err := want(cmd, args, 1); err != nil {
			return err
		}
		if err := sh.fs.Format(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "formatted")

	case "mount":
		if err := sh.fs.Mount(); err != nil {
			return err
		}
		u, err := sh.fs.Usage()
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "mounted %s, %d of %d blocks free\n", u.Label, u.Free, u.Blocks)

	case "unmount":
		if err := sh.fs.Unmount(); err != nil {
			return err
		}
		fmt.Fprintln(sh.out, "unmounted")

	case "dir":
		infos, err := sh.fs.List()
		if err != nil {
			return err
		}
		fsys.WriteList(sh.out, infos)

		u, err := sh.fs.Usage()
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "%d files, %d of %d blocks free\n", len(infos), u.Free, u.Blocks)

	case "debug":
		err := sh.fs.Dump(sh.out)
		if errors.Is(err, flatfs.ErrBadMagic) {
			// already reported by Dump
			return nil
		}
		return err

	case "delete":
		if err := want(cmd, args, 1); err != nil {
			return err
		}
		if err := sh.fs.Delete(flatfs.FileName(args[0])); err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "deleted %s\n", args[0])

	case "read":
		if err := want(cmd, args, 3); err != nil {
			return err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("read: bad length %q", args[1])
		}
		off, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("read: bad offset %q", args[2])
		}

		buf := make([]byte, n)
		n, err = sh.fs.ReadAt(flatfs.FileName(args[0]), buf, off)
		if err != nil && err != io.EOF {
			return err
		}
		fmt.Fprintf(sh.out, "read %d bytes: %q\n", n, buf[:n])

	case "write":
		if len(args) < 3 {
			return fmt.Errorf("write: want NAME OFF TEXT")
		}
		off, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("write: bad offset %q", args[1])
		}

		text := strings.Join(args[2:], " ")
		n, err := sh.fs.WriteAt(flatfs.FileName(args[0]), []byte(text), off)
		fmt.Fprintf(sh.out, "wrote %d bytes\n", n)
		return err

	case "cat":
		if err := want(cmd, args, 1); err != nil {
			return err
		}
		f := sh.fs.Open(flatfs.FileName(args[0]))
		size, err := f.Size()
		if err != nil {
			return err
		}
		if _, err := io.Copy(sh.out, io.NewSectionReader(f, 0, int64(size))); err != nil {
			return err
		}
		fmt.Fprintln(sh.out)

	case "import":
		if err := want(cmd, args, 2); err != nil {
			return err
		}
		return sh.importFile(args[0], flatfs.FileName(args[1]))

	case "png":
		if err := want(cmd, args, 1); err != nil {
			return err
		}
		return sh.renderPNG(args[0])

	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}

	return nil
}

func (sh *shell) importFile(hostPath string, name flatfs.FileName) error {
	data, err := os.ReadFile(hostPath)
	if err != nil {
		return err
	}

	// replace, don't overlay
	if err := sh.fs.Delete(name); err != nil && !errors.Is(err, flatfs.ErrNotFound) {
		return err
	}

	n, err := sh.fs.WriteAt(name, data, 0)
	fmt.Fprintf(sh.out, "imported %d of %d bytes\n", n, len(data))
	return err
}

func (sh *shell) renderPNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := sh.fs.RenderUsage(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "wrote %s\n", path)
	return nil
}

func want(cmd string, args []string, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s: want %d arguments, got %d", cmd, n, len(args))
	}
	return nil
}
