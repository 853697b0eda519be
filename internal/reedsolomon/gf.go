// Package reedsolomon implements Reed-Solomon error correction over GF(2^8)
// as used by QR code symbols.
//
// The field representation never leaves this package: callers hand in
// codeword blocks and get corrected blocks back.
package reedsolomon

// QRPrimitive is x^8 + x^4 + x^3 + x^2 + 1.
const QRPrimitive = 0x11D

// Field is GF(2^8) built from a primitive polynomial with log/antilog tables.
type Field struct {
	primitive int
	exp       [512]byte
	log       [256]byte
}

// QRField is the field used by every QR code block.
var QRField = NewField(QRPrimitive)

// NewField builds the tables for the given primitive polynomial.
func NewField(primitive int) *Field {
	f := &Field{primitive: primitive}
	x := 1
	for i := range 255 {
		f.exp[i] = byte(x)
		f.log[x] = byte(i)
		x <<= 1
		if x&0x100 != 0 {
			x ^= primitive
		}
	}
	// Doubled table so products of two logs never need a modulo.
	for i := 255; i < len(f.exp); i++ {
		f.exp[i] = f.exp[i-255]
	}
	return f
}

// Exp returns alpha^n for any integer n.
func (f *Field) Exp(n int) byte {
	n %= 255
	if n < 0 {
		n += 255
	}
	return f.exp[n]
}

// Log returns the discrete logarithm of a non-zero element.
func (f *Field) Log(a byte) int {
	return int(f.log[a])
}

// Mul multiplies two field elements.
func (f *Field) Mul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return f.exp[int(f.log[a])+int(f.log[b])]
}

// Div divides a by b. Division by zero yields zero; callers check first.
func (f *Field) Div(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return f.exp[int(f.log[a])+255-int(f.log[b])]
}

// Inv returns the multiplicative inverse of a non-zero element.
func (f *Field) Inv(a byte) byte {
	if a == 0 {
		return 0
	}
	return f.exp[255-int(f.log[a])]
}
