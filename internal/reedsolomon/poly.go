package reedsolomon

// Polynomials are little-endian: p[i] is the coefficient of x^i.

func (f *Field) polyEval(p []byte, x byte) byte {
	var sum byte
	for i := len(p) - 1; i >= 0; i-- {
		sum = f.Mul(sum, x) ^ p[i]
	}
	return sum
}

// polyMulTrunc returns a*b with every term of degree >= limit dropped.
func (f *Field) polyMulTrunc(a, b []byte, limit int) []byte {
	out := make([]byte, limit)
	for i, ai := range a {
		if ai == 0 || i >= limit {
			continue
		}
		for j, bj := range b {
			if i+j >= limit {
				break
			}
			out[i+j] ^= f.Mul(ai, bj)
		}
	}
	return out
}

// polyDerivative is the formal derivative; in characteristic 2 only the odd
// terms survive.
func polyDerivative(p []byte) []byte {
	if len(p) <= 1 {
		return []byte{0}
	}
	out := make([]byte, len(p)-1)
	for i := 1; i < len(p); i += 2 {
		out[i-1] = p[i]
	}
	return out
}

func polyDegree(p []byte) int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] != 0 {
			return i
		}
	}
	return 0
}
