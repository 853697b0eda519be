package qrcode

import (
	"sync"

	"github.com/MeKo-Tech/qrscan/internal/bitgrid"
)

var functionMaps [MaxVersion + 1]struct {
	once sync.Once
	grid *bitgrid.Grid
}

// functionMap returns the modules that carry no data in a symbol of the
// given version: finders with separators and format areas, timing lines,
// version blocks and alignment patterns.
func functionMap(version int) *bitgrid.Grid {
	fm := &functionMaps[version]
	fm.once.Do(func() { fm.grid = buildFunctionMap(version) })
	return fm.grid
}

func buildFunctionMap(version int) *bitgrid.Grid {
	size := SizeForVersion(version)
	g, _ := bitgrid.New(size)

	fill := func(x0, y0, w, h int) {
		for y := y0; y < y0+h; y++ {
			for x := x0; x < x0+w; x++ {
				g.Set(x, y, true)
			}
		}
	}

	fill(0, 0, 9, 9)
	fill(size-8, 0, 8, 9)
	fill(0, size-8, 9, 8)
	fill(6, 0, 1, size)
	fill(0, 6, size, 1)

	if version >= 7 {
		fill(size-11, 0, 3, 6)
		fill(0, size-11, 6, 3)
	}

	align := AlignmentCenters(version)
	last := len(align) - 1
	for i, cy := range align {
		for j, cx := range align {
			// Skip the three positions covered by finder patterns.
			if (i == 0 && j == 0) || (i == 0 && j == last) || (i == last && j == 0) {
				continue
			}
			fill(cx-2, cy-2, 5, 5)
		}
	}
	return g
}

// dataModules lists the data module coordinates in reading order: two-column
// strips from the right edge, alternating upwards and downwards, with the
// vertical timing column skipped.
func dataModules(version int) [][2]int {
	size := SizeForVersion(version)
	fm := functionMap(version)
	out := make([][2]int, 0, TotalCodewords(version)*8+7)

	upward := true
	for right := size - 1; right >= 1; right -= 2 {
		if right == 6 {
			right = 5
		}
		for step := range size {
			y := step
			if upward {
				y = size - 1 - step
			}
			for dx := range 2 {
				x := right - dx
				if !fm.Get(x, y) {
					out = append(out, [2]int{x, y})
				}
			}
		}
		upward = !upward
	}
	return out
}

// readCodewords unmasks the data modules and packs them MSB first.
func readCodewords(g *bitgrid.Grid, version, mask int) []byte {
	raw := make([]byte, TotalCodewords(version))
	for n, pos := range dataModules(version) {
		byteIdx := n >> 3
		if byteIdx >= len(raw) {
			break
		}
		x, y := pos[0], pos[1]
		dark := g.Get(x, y)
		if maskBit(mask, y, x) {
			dark = !dark
		}
		if dark {
			raw[byteIdx] |= 0x80 >> (n & 7)
		}
	}
	return raw
}
