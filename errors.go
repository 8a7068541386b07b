package flatfs

import "errors"

var (
	// ErrNotMounted is returned by every volume operation while no volume is mounted.
	ErrNotMounted = errors.New("flatfs: not mounted")
	// ErrMounted is returned by Mount and Format while a volume is mounted.
	ErrMounted = errors.New("flatfs: already mounted")

	ErrBadMagic     = errors.New("flatfs: bad magic, device not formatted")
	ErrSizeMismatch = errors.New("flatfs: file system size and device size differ")
	// ErrDeviceSize means the device has fewer than 2 blocks or more than
	// the 16 bit block count can describe.
	ErrDeviceSize = errors.New("flatfs: unsupported device size")

	// ErrNoSpace means the allocator ran out of blocks or the directory
	// cannot grow any further.
	ErrNoSpace = errors.New("flatfs: no space left on device")
	// ErrNotFound means there is no head entry for the name.
	ErrNotFound = errors.New("flatfs: no such file")
	// ErrSparse is returned for writes starting beyond the end of a file.
	ErrSparse = errors.New("flatfs: write offset beyond end of file")
	// ErrCorrupt means persisted state contradicts itself, e.g. a recorded
	// size that implies blocks which are not there.
	ErrCorrupt = errors.New("flatfs: file system corrupted")
)
