package qrcode

import (
	"math/bits"

	"github.com/MeKo-Tech/qrscan/internal/bitgrid"
)

const (
	formatGenerator  = 0x537  // BCH(15,5)
	formatMask       = 0x5412 // XOR applied to every format word
	versionGenerator = 0x1F25 // BCH(18,6)

	// maxInfoErrors is the guaranteed correction radius of both codes.
	maxInfoErrors = 3
)

var (
	formatCodewords  [32]uint32
	versionCodewords [MaxVersion + 1]uint32
)

func init() {
	for d := range formatCodewords {
		formatCodewords[d] = bchEncode(uint32(d), 10, formatGenerator) ^ formatMask
	}
	for v := 7; v <= MaxVersion; v++ {
		versionCodewords[v] = bchEncode(uint32(v), 12, versionGenerator)
	}
}

// bchEncode appends the remainder of data*x^parityBits modulo gen.
func bchEncode(data uint32, parityBits int, gen uint32) uint32 {
	value := data << parityBits
	genLen := bits.Len32(gen)
	for bits.Len32(value) >= genLen {
		value ^= gen << (bits.Len32(value) - genLen)
	}
	return data<<parityBits | value
}

// formatCodeword returns the masked 15-bit format word for a level and mask.
func formatCodeword(level ECLevel, mask int) uint32 {
	var ecBits uint32
	for i, l := range formatLevels {
		if l == level {
			ecBits = uint32(i)
		}
	}
	return formatCodewords[ecBits<<3|uint32(mask&7)]
}

// correctFormat maps a raw (still masked) format word to its 5 data bits.
func correctFormat(raw uint32) (uint32, bool) {
	best, bestDist := -1, maxInfoErrors+1
	for d, cw := range formatCodewords {
		if dist := bits.OnesCount32(raw ^ cw); dist < bestDist {
			best, bestDist = d, dist
		}
	}
	if best < 0 {
		return 0, false
	}
	return uint32(best), true
}

// correctVersion maps a raw 18-bit version word to a version number.
func correctVersion(raw uint32) (int, bool) {
	best, bestDist := -1, maxInfoErrors+1
	for v := 7; v <= MaxVersion; v++ {
		if dist := bits.OnesCount32(raw ^ versionCodewords[v]); dist < bestDist {
			best, bestDist = v, dist
		}
	}
	return best, best > 0
}

// Format information positions, most significant bit first.
// Copy 0 wraps the top-left finder; copy 1 is split between the
// bottom-left and top-right finders.
func formatPositions(size, copyIndex int) [15][2]int {
	var p [15][2]int
	if copyIndex == 0 {
		xs := [15]int{0, 1, 2, 3, 4, 5, 7, 8, 8, 8, 8, 8, 8, 8, 8}
		ys := [15]int{8, 8, 8, 8, 8, 8, 8, 8, 7, 5, 4, 3, 2, 1, 0}
		for i := range p {
			p[i] = [2]int{xs[i], ys[i]}
		}
		return p
	}
	for i := range 7 {
		p[i] = [2]int{8, size - 1 - i}
	}
	for i := range 8 {
		p[7+i] = [2]int{size - 8 + i, 8}
	}
	return p
}

func readFormatWord(g *bitgrid.Grid, copyIndex int) uint32 {
	var word uint32
	for _, pos := range formatPositions(g.Size(), copyIndex) {
		word <<= 1
		if g.Get(pos[0], pos[1]) {
			word |= 1
		}
	}
	return word
}

// readFormat tries copy 0, then copy 1, and returns level and mask.
func readFormat(g *bitgrid.Grid) (ECLevel, int, error) {
	for c := range 2 {
		if d, ok := correctFormat(readFormatWord(g, c)); ok {
			return formatLevels[d>>3], int(d & 7), nil
		}
	}
	return 0, 0, ErrFormatECC
}

// versionPositions lists the 18 version modules, most significant bit first.
// Copy 0 sits left of the top-right finder, copy 1 above the bottom-left one.
func versionPositions(size, copyIndex int) [18][2]int {
	var p [18][2]int
	for n := range p {
		bit := 17 - n
		a, b := size-11+bit%3, bit/3
		if copyIndex == 0 {
			p[n] = [2]int{a, b}
		} else {
			p[n] = [2]int{b, a}
		}
	}
	return p
}

func readVersionWord(g *bitgrid.Grid, copyIndex int) uint32 {
	var word uint32
	for _, pos := range versionPositions(g.Size(), copyIndex) {
		word <<= 1
		if g.Get(pos[0], pos[1]) {
			word |= 1
		}
	}
	return word
}

// readVersion decodes the version blocks. ok is false when neither copy is
// within correction distance.
func readVersion(g *bitgrid.Grid) (int, bool) {
	for c := range 2 {
		if v, ok := correctVersion(readVersionWord(g, c)); ok {
			return v, true
		}
	}
	return 0, false
}
