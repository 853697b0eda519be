// Package rectify maps between QR grid coordinates and image pixels.
package rectify

import (
	"errors"
	"image"
	"math"
)

// ErrDegenerate is returned when four correspondences do not define a
// projective map (collinear or coincident corners).
var ErrDegenerate = errors.New("rectify: degenerate homography")

// pivotEpsilon is the smallest pivot accepted by the elimination.
const pivotEpsilon = 1e-9

// Perspective is a projective map from grid space (u, v) to image space:
//
//	x = (c0 u + c1 v + c2) / (c6 u + c7 v + 1)
//	y = (c3 u + c4 v + c5) / (c6 u + c7 v + 1)
type Perspective struct {
	C [8]float64
}

// Setup solves the map that sends the rectangle (0,0) (w,0) (w,h) (0,h) of
// grid space onto rect[0..3].
func Setup(rect [4]image.Point, w, h float64) (Perspective, error) {
	src := [4][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}}
	var dst [4][2]float64
	for i, p := range rect {
		dst[i] = [2]float64{float64(p.X), float64(p.Y)}
	}
	c, ok := computeHomography(src, dst)
	if !ok {
		return Perspective{}, ErrDegenerate
	}
	return Perspective{C: c}, nil
}

// MapF maps grid coordinates to image coordinates.
func (p *Perspective) MapF(u, v float64) (float64, float64) {
	c := &p.C
	den := c[6]*u + c[7]*v + 1
	x := (c[0]*u + c[1]*v + c[2]) / den
	y := (c[3]*u + c[4]*v + c[5]) / den
	return x, y
}

// Map maps grid coordinates to the nearest image pixel.
func (p *Perspective) Map(u, v float64) image.Point {
	x, y := p.MapF(u, v)
	return image.Point{X: int(math.RoundToEven(x)), Y: int(math.RoundToEven(y))}
}

// Unmap is the inverse of Map for an image pixel.
func (p *Perspective) Unmap(pt image.Point) (float64, float64) {
	return p.UnmapF(float64(pt.X), float64(pt.Y))
}

// UnmapF is the inverse of MapF.
func (p *Perspective) UnmapF(x, y float64) (float64, float64) {
	c := &p.C
	den := -c[0]*c[7]*y + c[1]*c[6]*y + (c[3]*c[7]-c[4]*c[6])*x + c[0]*c[4] - c[1]*c[3]
	u := -(c[1]*(y-c[5]) - c[2]*c[7]*y + (c[5]*c[7]-c[4])*x + c[2]*c[4]) / den
	v := (c[0]*(y-c[5]) - c[2]*c[6]*y + (c[5]*c[6]-c[3])*x + c[2]*c[3]) / den
	return u, v
}

// computeHomography solves the 8 unknowns mapping p[i] to q[i], with the
// ninth coefficient fixed at 1.
func computeHomography(p, q [4][2]float64) ([8]float64, bool) {
	var a [8][8]float64
	var b [8]float64
	for i := range 4 {
		u, v := p[i][0], p[i][1]
		x, y := q[i][0], q[i][1]
		r := 2 * i

		a[r] = [8]float64{u, v, 1, 0, 0, 0, -u * x, -v * x}
		b[r] = x
		a[r+1] = [8]float64{0, 0, 0, u, v, 1, -u * y, -v * y}
		b[r+1] = y
	}
	return solve8x8(a, b)
}

// solve8x8 runs Gauss-Jordan elimination with partial pivoting.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	for i := range 8 {
		if !pivotAndNormalize(&a, &b, i) {
			return [8]float64{}, false
		}
		eliminateColumn(&a, &b, i)
	}
	return b, true
}

func pivotAndNormalize(matrix *[8][8]float64, vector *[8]float64, col int) bool {
	pivotRow := findPivotRow(matrix, col)
	if pivotRow == -1 {
		return false
	}
	if pivotRow != col {
		matrix[col], matrix[pivotRow] = matrix[pivotRow], matrix[col]
		vector[col], vector[pivotRow] = vector[pivotRow], vector[col]
	}

	div := matrix[col][col]
	for c := col; c < 8; c++ {
		matrix[col][c] /= div
	}
	vector[col] /= div
	return true
}

func findPivotRow(matrix *[8][8]float64, col int) int {
	maxAbs := math.Abs(matrix[col][col])
	pivotRow := col
	for r := col + 1; r < 8; r++ {
		if v := math.Abs(matrix[r][col]); v > maxAbs {
			maxAbs, pivotRow = v, r
		}
	}
	if maxAbs < pivotEpsilon {
		return -1
	}
	return pivotRow
}

func eliminateColumn(matrix *[8][8]float64, vector *[8]float64, col int) {
	for r := range 8 {
		if r == col {
			continue
		}
		factor := matrix[r][col]
		if factor == 0 {
			continue
		}
		for c := col; c < 8; c++ {
			matrix[r][c] -= factor * matrix[col][c]
		}
		vector[r] -= factor * vector[col]
	}
}
