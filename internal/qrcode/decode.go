package qrcode

import "fmt"

// Decode reads format and version information from the code, corrects the
// codewords and parses the payload. A failing symbol yields no partial data.
func Decode(code *Code) (*Data, error) {
	if code == nil || code.Grid == nil {
		return nil, ErrInvalidGridSize
	}
	version, err := VersionForSize(code.Grid.Size())
	if err != nil {
		return nil, err
	}

	level, mask, err := readFormat(code.Grid)
	if err != nil {
		return nil, err
	}

	if version >= 7 {
		if v, ok := readVersion(code.Grid); ok && v != version {
			return nil, fmt.Errorf("%w: read %d, grid implies %d", ErrVersionMismatch, v, version)
		}
	}

	raw := readCodewords(code.Grid, version, mask)
	blocks, err := deinterleave(raw, version, level)
	if err != nil {
		return nil, err
	}
	codewords, fixed, err := correctBlocks(blocks, ECCodewordsPerBlock(version, level), DataCodewords(version, level))
	if err != nil {
		return nil, err
	}

	d := &Data{
		Version:         version,
		ECLevel:         level,
		Mask:            mask,
		CorrectedErrors: fixed,
		Generation:      code.Generation,
	}
	if err := parseSegments(codewords, d); err != nil {
		return nil, err
	}
	return d, nil
}
