package qrcode

// bitReader reads big-endian bit fields from corrected data codewords.
type bitReader struct {
	data []byte
	pos  int
}

func (r *bitReader) remaining() int {
	return len(r.data)*8 - r.pos
}

// read returns the next n bits (n <= 24).
func (r *bitReader) read(n int) (int, error) {
	if n > r.remaining() {
		return 0, ErrDataUnderflow
	}
	v := 0
	for range n {
		b := r.data[r.pos>>3] >> (7 - r.pos&7) & 1
		v = v<<1 | int(b)
		r.pos++
	}
	return v, nil
}
