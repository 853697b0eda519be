package reedsolomon

import (
	"errors"
	"fmt"
)

var (
	// ErrUncorrectable means the block holds more errors than its EC codewords can fix.
	ErrUncorrectable = errors.New("reedsolomon: uncorrectable block")
	// ErrBlockShape is returned for blocks that cannot carry the requested EC count.
	ErrBlockShape = errors.New("reedsolomon: invalid block shape")
)

// Decoder corrects codeword blocks. Blocks are big-endian: block[0] is the
// coefficient of the highest power, the last ecCount bytes are parity.
// The generator polynomial has roots alpha^0 .. alpha^(ecCount-1).
type Decoder struct {
	field *Field
}

// NewDecoder returns a decoder for the given field.
func NewDecoder(f *Field) *Decoder {
	return &Decoder{field: f}
}

// Syndromes evaluates the received block at alpha^0 .. alpha^(ecCount-1).
// The second result reports whether any syndrome is non-zero.
func (d *Decoder) Syndromes(block []byte, ecCount int) ([]byte, bool) {
	f := d.field
	s := make([]byte, ecCount)
	nonzero := false
	for j := range ecCount {
		x := f.Exp(j)
		var v byte
		for _, c := range block {
			v = f.Mul(v, x) ^ c
		}
		s[j] = v
		if v != 0 {
			nonzero = true
		}
	}
	return s, nonzero
}

// BerlekampMassey finds the shortest LFSR generating the syndrome sequence.
// It returns the error locator sigma (sigma[0] == 1) and its length L.
func (d *Decoder) BerlekampMassey(s []byte) ([]byte, int) {
	f := d.field
	n := len(s)
	c := make([]byte, n+1)
	b := make([]byte, n+1)
	c[0], b[0] = 1, 1
	l, m := 0, 1
	var bd byte = 1

	for i := range n {
		disc := s[i]
		for j := 1; j <= l; j++ {
			disc ^= f.Mul(c[j], s[i-j])
		}
		if disc == 0 {
			m++
			continue
		}

		scale := f.Div(disc, bd)
		if 2*l <= i {
			t := make([]byte, len(c))
			copy(t, c)
			for j := 0; j+m < len(c); j++ {
				c[j+m] ^= f.Mul(scale, b[j])
			}
			l = i + 1 - l
			copy(b, t)
			bd = disc
			m = 1
		} else {
			for j := 0; j+m < len(c); j++ {
				c[j+m] ^= f.Mul(scale, b[j])
			}
			m++
		}
	}
	return c[:polyDegree(c)+1], l
}

// ChienSearch returns the block indices whose locators are roots of sigma.
// Index k of an n-byte block corresponds to locator alpha^(n-1-k).
func (d *Decoder) ChienSearch(sigma []byte, n int) []int {
	f := d.field
	var pos []int
	for k := range n {
		if f.polyEval(sigma, f.Exp(-(n - 1 - k))) == 0 {
			pos = append(pos, k)
		}
	}
	return pos
}

// Forney computes the error magnitude at each position.
func (d *Decoder) Forney(s, sigma []byte, positions []int, n int) ([]byte, error) {
	f := d.field
	omega := f.polyMulTrunc(s, sigma, len(s))
	deriv := polyDerivative(sigma)

	mags := make([]byte, len(positions))
	for i, k := range positions {
		x := f.Exp(n - 1 - k)
		xinv := f.Inv(x)
		den := f.polyEval(deriv, xinv)
		if den == 0 {
			return nil, fmt.Errorf("%w: zero locator derivative at %d", ErrUncorrectable, k)
		}
		mags[i] = f.Mul(x, f.Div(f.polyEval(omega, xinv), den))
	}
	return mags, nil
}

// Correct fixes up to ecCount/2 byte errors in place and returns how many
// bytes changed. On failure the block is left untouched.
func (d *Decoder) Correct(block []byte, ecCount int) (int, error) {
	n := len(block)
	if ecCount <= 0 || ecCount >= n || n > 255 {
		return 0, fmt.Errorf("%w: %d bytes with %d EC codewords", ErrBlockShape, n, ecCount)
	}

	s, nonzero := d.Syndromes(block, ecCount)
	if !nonzero {
		return 0, nil
	}

	sigma, l := d.BerlekampMassey(s)
	if l > ecCount/2 || polyDegree(sigma) != l {
		return 0, fmt.Errorf("%w: locator degree %d exceeds capacity %d", ErrUncorrectable, l, ecCount/2)
	}

	positions := d.ChienSearch(sigma, n)
	if len(positions) != l {
		return 0, fmt.Errorf("%w: found %d roots for locator of degree %d", ErrUncorrectable, len(positions), l)
	}

	mags, err := d.Forney(s, sigma, positions, n)
	if err != nil {
		return 0, err
	}

	fixed := make([]byte, n)
	copy(fixed, block)
	for i, k := range positions {
		fixed[k] ^= mags[i]
	}
	if _, still := d.Syndromes(fixed, ecCount); still {
		return 0, fmt.Errorf("%w: residual syndrome after correction", ErrUncorrectable)
	}

	copy(block, fixed)
	return len(positions), nil
}
