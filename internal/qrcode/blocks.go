package qrcode

import (
	"fmt"

	"github.com/MeKo-Tech/qrscan/internal/reedsolomon"
)

type block struct {
	codewords []byte
	data      int
}

// deinterleave splits the raw codeword stream into RS blocks. The stream
// holds the data codewords of all blocks column by column (short blocks
// first; long blocks have one extra column), then the EC codewords the same
// way.
func deinterleave(raw []byte, version int, level ECLevel) ([]block, error) {
	layout := versionTable[version].levels[level]
	total := versionTable[version].totalCodewords
	if len(raw) != total {
		return nil, fmt.Errorf("%w: %d codewords, want %d", ErrInvalidVersion, len(raw), total)
	}

	n := layout.numBlocks()
	blocks := make([]block, n)
	for i := range blocks {
		data := layout.shortData
		if i >= layout.shortBlocks {
			data++
		}
		blocks[i] = block{codewords: make([]byte, data+layout.ecPerBlock), data: data}
	}

	off := 0
	for col := range layout.shortData {
		for i := range blocks {
			blocks[i].codewords[col] = raw[off]
			off++
		}
	}
	for i := layout.shortBlocks; i < n; i++ {
		blocks[i].codewords[layout.shortData] = raw[off]
		off++
	}
	for col := range layout.ecPerBlock {
		for i := range blocks {
			blocks[i].codewords[blocks[i].data+col] = raw[off]
			off++
		}
	}
	return blocks, nil
}

// correctBlocks runs RS correction over every block and concatenates the
// data codewords. The second result is the number of corrected bytes.
func correctBlocks(blocks []block, ecPerBlock, dataLen int) ([]byte, int, error) {
	dec := reedsolomon.NewDecoder(reedsolomon.QRField)
	out := make([]byte, 0, dataLen)
	fixed := 0
	for i := range blocks {
		n, err := dec.Correct(blocks[i].codewords, ecPerBlock)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: block %d: %w", ErrDataECC, i, err)
		}
		fixed += n
		out = append(out, blocks[i].codewords[:blocks[i].data]...)
	}
	return out, fixed, nil
}
