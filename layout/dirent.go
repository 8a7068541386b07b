package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/keks/flatfs"
)

// Kind tells what a directory entry describes.
type Kind uint8

const (
	// KindEmpty is a free slot.
	KindEmpty Kind = iota
	// KindHead is the first entry of a file. It carries the file size.
	KindHead
	// KindExtent is a continuation entry with sequence number 1, 2, ...
	KindExtent
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindHead:
		return "head"
	case KindExtent:
		return "extent"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Pointers are the data blocks of one entry. They are filled left to right
// and the first zero ends the in-use prefix.
type Pointers [PointersPerEntry]flatfs.BlockID

// Len returns the length of the in-use prefix.
func (p *Pointers) Len() int {
	for i, id := range p {
		if id == 0 {
			return i
		}
	}
	return len(p)
}

// InUse reports whether slot i holds a block.
func (p *Pointers) InUse(i int) bool {
	return p[i] != 0
}

func (p *Pointers) hasHoles() bool {
	n := p.Len()
	for _, id := range p[n:] {
		if id != 0 {
			return true
		}
	}
	return false
}

// Dirent is one directory entry.
type Dirent struct {
	Kind Kind
	Name Name

	// Seq is the sequence number of an extent. On a head it holds the
	// number of extents that follow it.
	Seq uint16
	// Size is only meaningful on a head: the number of bytes used in the
	// last entry of the chain. Extents store zero.
	Size uint16

	Blocks Pointers
}

// NewHead returns an empty file head.
func NewHead(name Name) Dirent {
	return Dirent{Kind: KindHead, Name: name}
}

// NewExtent returns an extent entry without blocks.
func NewExtent(name Name, seq uint16) Dirent {
	return Dirent{Kind: KindExtent, Name: name, Seq: seq}
}

// FileSize returns the logical file size recorded on a head:
// extents * ExtentBytes + bytes used in the last entry.
func (d *Dirent) FileSize() uint64 {
	return uint64(d.Seq)*ExtentBytes + uint64(d.Size)
}

// SetFileSize records size on a head. The last entry of a non-empty chain
// always holds between 1 and ExtentBytes bytes.
func (d *Dirent) SetFileSize(size uint64) error {
	if size == 0 {
		d.Seq, d.Size = 0, 0
		return nil
	}

	nblocks := (size + flatfs.BlockSize - 1) / flatfs.BlockSize
	extents := (nblocks - 1) / PointersPerEntry
	if extents > 0xffff {
		return fmt.Errorf("layout: file size %d needs %d extents", size, extents)
	}

	d.Seq = uint16(extents)
	d.Size = uint16(size - extents*ExtentBytes)
	return nil
}

// Entries returns the number of entries in the chain of a head.
func (d *Dirent) Entries() int {
	return int(d.Seq) + 1
}

// Matches reports whether d is the entry with sequence seq of the file name.
// Sequence 0 is the head.
func (d *Dirent) Matches(name Name, seq uint16) bool {
	if d.Name != name {
		return false
	}
	if seq == 0 {
		return d.Kind == KindHead
	}
	return d.Kind == KindExtent && d.Seq == seq
}

func (d *Dirent) validate() error {
	if d.Kind == KindEmpty {
		return nil
	}
	if d.Blocks.hasHoles() {
		return fmt.Errorf("%w: %s entry %q has holes in its block list", flatfs.ErrCorrupt, d.Kind, d.Name)
	}

	switch d.Kind {
	case KindHead:
		if d.Size > ExtentBytes || (d.Seq > 0 && d.Size == 0) {
			return fmt.Errorf("%w: head %q records %d extents and %d tail bytes", flatfs.ErrCorrupt, d.Name, d.Seq, d.Size)
		}
	case KindExtent:
		if d.Seq == 0 {
			return fmt.Errorf("%w: extent %q has sequence 0", flatfs.ErrCorrupt, d.Name)
		}
	default:
		return fmt.Errorf("layout: invalid dirent kind %d", d.Kind)
	}

	return nil
}

// DirBlock is one decoded directory block.
type DirBlock [DirentsPerBlock]Dirent

// Free returns the index of the first empty entry, or -1.
func (db *DirBlock) Free() int {
	for i := range db {
		if db[i].Kind == KindEmpty {
			return i
		}
	}
	return -1
}

// MarshalBinary encodes the block.
func (db *DirBlock) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(flatfs.BlockSize)

	for i := range db {
		d := &db[i]
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("dirent %d: %w", i, err)
		}

		raw := rawDirent{
			Name: d.Name,
			Seq:  d.Seq,
			Size: d.Size,
		}
		switch d.Kind {
		case KindEmpty:
			// an empty entry carries nothing, whatever the Dirent holds
			raw = rawDirent{Tag: tagEmpty}
		case KindHead:
			raw.Tag = tagHead
		case KindExtent:
			raw.Tag = tagExtent
		}
		if d.Kind != KindEmpty {
			for j, id := range d.Blocks {
				raw.Blocks[j] = uint16(id)
			}
		}

		if err := binary.Write(&buf, order, &raw); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a directory block. Unknown tags and entries with
// holes in their block list are reported as corruption.
func (db *DirBlock) UnmarshalBinary(data []byte) error {
	if len(data) != flatfs.BlockSize {
		return fmt.Errorf("layout: directory block needs %d bytes, got %d", flatfs.BlockSize, len(data))
	}

	var raws [DirentsPerBlock]rawDirent
	if err := binary.Read(bytes.NewReader(data), order, &raws); err != nil {
		return err
	}

	for i, raw := range raws {
		d := Dirent{
			Name: raw.Name,
			Seq:  raw.Seq,
			Size: raw.Size,
		}
		switch raw.Tag {
		case tagEmpty:
			// deleted entries may keep their old name and pointers
			db[i] = Dirent{Kind: KindEmpty}
			continue
		case tagHead:
			d.Kind = KindHead
		case tagExtent:
			d.Kind = KindExtent
		default:
			return fmt.Errorf("%w: dirent %d has unknown tag 0x%02x", flatfs.ErrCorrupt, i, raw.Tag)
		}
		for j, id := range raw.Blocks {
			d.Blocks[j] = flatfs.BlockID(id)
		}

		if err := d.validate(); err != nil {
			return fmt.Errorf("dirent %d: %w", i, err)
		}
		db[i] = d
	}

	return nil
}
