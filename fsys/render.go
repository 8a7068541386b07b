package fsys

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"

	"github.com/keks/flatfs/layout"
)

const (
	cellSize    = 10
	cellsPerRow = 64
	headerH     = 40
	legendH     = 30
)

// blockClass tells what a block is used for.
type blockClass int

const (
	classFree blockClass = iota
	classSuper
	classDir
	classData
)

func (v *volume) classify() []blockClass {
	classes := make([]blockClass, v.alloc.Total())
	for _, id := range v.alloc.UsedBlocks() {
		classes[id] = classData
	}
	for _, id := range v.sb.Dir {
		classes[id] = classDir
	}
	classes[layout.SuperblockID] = classSuper
	return classes
}

func setClassColor(dc *gg.Context, c blockClass) {
	switch c {
	case classSuper:
		dc.SetRGB(0.2, 0.4, 0.6)
	case classDir:
		dc.SetRGB(0.9, 0.6, 0.2)
	case classData:
		dc.SetRGB(0.3, 0.7, 0.3)
	default:
		dc.SetRGB(0.9, 0.9, 0.9)
	}
}

// RenderUsage draws the block map of the mounted volume as a PNG to w:
// superblock, directory blocks, data blocks and free blocks in different
// colours, one cell per block.
func (fs *FS) RenderUsage(w io.Writer) error {
	return fs.mounted(func(v *volume) error {
		classes := v.classify()
		rows := (len(classes) + cellsPerRow - 1) / cellsPerRow

		W := cellsPerRow * cellSize
		H := headerH + rows*cellSize + legendH
		dc := gg.NewContext(W, H)
		dc.SetRGB(1, 1, 1)
		dc.Clear()

		dc.SetRGB(0.2, 0.4, 0.6)
		dc.DrawRectangle(0, 0, float64(W), headerH-10)
		dc.Fill()
		dc.SetRGB(1, 1, 1)
		title := fmt.Sprintf("%s: %d of %d blocks used", v.sb.Label, v.alloc.Used(), v.alloc.Total())
		dc.DrawStringAnchored(title, float64(W)/2, (headerH-10)/2, 0.5, 0.5)

		for i, c := range classes {
			x := float64((i % cellsPerRow) * cellSize)
			y := float64(headerH + (i/cellsPerRow)*cellSize)
			setClassColor(dc, c)
			dc.DrawRectangle(x, y, cellSize-1, cellSize-1)
			dc.Fill()
		}

		legend := []struct {
			class blockClass
			label string
		}{
			{classSuper, "super"},
			{classDir, "dir"},
			{classData, "data"},
			{classFree, "free"},
		}
		y := float64(headerH + rows*cellSize + legendH/2)
		for i, l := range legend {
			x := float64(10 + i*(W/len(legend)))
			setClassColor(dc, l.class)
			dc.DrawRectangle(x, y-cellSize/2, cellSize, cellSize)
			dc.Fill()
			dc.SetRGB(0, 0, 0)
			dc.DrawStringAnchored(l.label, x+cellSize+5, y, 0, 0.5)
		}

		return dc.EncodePNG(w)
	})
}
