package detector

import (
	"image"
	"math"

	"github.com/MeKo-Tech/qrscan/internal/qrcode"
	"github.com/MeKo-Tech/qrscan/internal/rectify"
)

// Grid is a candidate symbol built from three capstones.
type Grid struct {
	// Caps holds the bottom-left, top-left and top-right capstones.
	Caps [3]int
	// AlignRegion is the region of the alignment pattern, or -1.
	AlignRegion int
	// Align is the image point mapped to grid corner (size-7, size-7).
	Align image.Point
	// TimingPoints are the endpoints of the timing pattern scans.
	TimingPoints [3]image.Point
	HScan, VScan int
	Size         int
	Perspective  rectify.Perspective
}

type neighbour struct {
	index    int
	distance float64
}

// testGrouping looks for two unassigned capstones that sit on the axes of
// capstone i and records the best matching triple.
func (d *Detector) testGrouping(i int) {
	c1 := &d.capstones[i]
	if c1.Grid >= 0 {
		return
	}

	var hlist, vlist []neighbour
	for j := range d.capstones {
		c2 := &d.capstones[j]
		if i == j || c2.Grid >= 0 {
			continue
		}
		u, v := c1.Perspective.Unmap(c2.Center)
		u = math.Abs(u - 3.5)
		v = math.Abs(v - 3.5)

		if u < 0.2*v {
			hlist = append(hlist, neighbour{index: j, distance: v})
		}
		if v < 0.2*u {
			vlist = append(vlist, neighbour{index: j, distance: u})
		}
	}
	if len(hlist) == 0 || len(vlist) == 0 {
		return
	}

	bestH, bestV := -1, -1
	bestScore := 0.0
	for _, hn := range hlist {
		for _, vn := range vlist {
			score := math.Abs(1 - hn.distance/vn.distance)
			if score > d.cfg.GroupingScoreMax {
				continue
			}
			if bestH < 0 || score < bestScore {
				bestH, bestV, bestScore = hn.index, vn.index, score
			}
		}
	}
	if bestH < 0 {
		return
	}
	d.recordGrid(bestH, i, bestV)
}

// rotateCapstone makes corner 0 the corner nearest the grid's top-left,
// judged against the line through h0 with direction hd.
func rotateCapstone(c *Capstone, h0, hd image.Point) {
	best, bestScore := 0, 0
	for j, p := range c.Corners {
		score := (p.X-h0.X)*-hd.Y + (p.Y-h0.Y)*hd.X
		if j == 0 || score < bestScore {
			best, bestScore = j, score
		}
	}
	var rotated [4]image.Point
	for j := range rotated {
		rotated[j] = c.Corners[(j+best)%4]
	}
	c.Corners = rotated
	if p, err := rectify.Setup(c.Corners, 7, 7); err == nil {
		c.Perspective = p
	}
}

// recordGrid turns capstones a (bottom-left candidate), b (corner) and c
// into a grid, or rolls back if the geometry does not hold up.
func (d *Detector) recordGrid(a, b, c int) {
	if len(d.grids) >= d.cfg.MaxGrids {
		return
	}

	h0 := d.capstones[a].Center
	hd := d.capstones[c].Center.Sub(h0)
	// Make sure A-B-C is clockwise.
	bc := d.capstones[b].Center
	if (bc.X-h0.X)*-hd.Y+(bc.Y-h0.Y)*hd.X > 0 {
		a, c = c, a
		hd = image.Point{X: -hd.X, Y: -hd.Y}
	}

	index := len(d.grids)
	d.grids = append(d.grids, Grid{Caps: [3]int{a, b, c}, AlignRegion: -1})
	qr := &d.grids[index]
	for _, ci := range qr.Caps {
		rotateCapstone(&d.capstones[ci], h0, hd)
		d.capstones[ci].Grid = index
	}

	if !d.setupGrid(index, hd) {
		for _, ci := range qr.Caps {
			d.capstones[ci].Grid = -1
		}
		d.grids = d.grids[:index]
	}
}

func (d *Detector) setupGrid(index int, hd image.Point) bool {
	qr := &d.grids[index]
	capA := &d.capstones[qr.Caps[0]]
	capC := &d.capstones[qr.Caps[2]]

	if !d.measureTimingPattern(qr) {
		return false
	}

	align, ok := lineIntersect(capA.Corners[0], capA.Corners[1], capC.Corners[0], capC.Corners[3])
	if !ok {
		return false
	}
	qr.Align = align

	if qr.Size > qrcode.SizeForVersion(1) {
		d.findAlignmentPattern(qr)
		if qr.AlignRegion >= 0 {
			qr.Align = d.leftmostToLine(qr.AlignRegion, hd)
		}
	}

	rect := [4]image.Point{
		d.capstones[qr.Caps[1]].Corners[0],
		capC.Corners[0],
		qr.Align,
		capA.Corners[0],
	}
	side := float64(qr.Size - 7)
	p, err := rectify.Setup(rect, side, side)
	if err != nil {
		return false
	}
	qr.Perspective = p
	d.jiggle(qr)
	return true
}

// measureTimingPattern estimates the module count from the two timing
// lines and snaps it to a valid version.
func (d *Detector) measureTimingPattern(qr *Grid) bool {
	us := [3]float64{6.5, 6.5, 0.5}
	vs := [3]float64{0.5, 6.5, 6.5}
	for i, ci := range qr.Caps {
		qr.TimingPoints[i] = d.capstones[ci].Perspective.Map(us[i], vs[i])
	}

	qr.HScan = d.timingScan(qr.TimingPoints[1], qr.TimingPoints[2])
	qr.VScan = d.timingScan(qr.TimingPoints[1], qr.TimingPoints[0])
	scan := max(qr.HScan, qr.VScan)
	if scan < 0 {
		return false
	}

	size := scan*2 + 13
	version := (size - 15) / 4
	if version < qrcode.MinVersion || version > qrcode.MaxVersion {
		return false
	}
	qr.Size = qrcode.SizeForVersion(version)
	return true
}

// timingScan walks from p0 to p1 with Bresenham steps and counts dark
// pixels that follow a light run of at least two pixels. Endpoints outside
// the image give -1.
func (d *Detector) timingScan(p0, p1 image.Point) int {
	bounds := image.Rect(0, 0, d.width, d.height)
	if !p0.In(bounds) || !p1.In(bounds) {
		return -1
	}

	n := p1.X - p0.X
	dd := p1.Y - p0.Y
	x, y := p0.X, p0.Y
	dom, nondom := &y, &x
	if abs(n) > abs(dd) {
		n, dd = dd, n
		dom, nondom = &x, &y
	}
	nondomStep, domStep := 1, 1
	if n < 0 {
		n, nondomStep = -n, -1
	}
	if dd < 0 {
		dd, domStep = -dd, -1
	}

	a, runLength, count := 0, 0, 0
	for range dd + 1 {
		if y < 0 || y >= d.height || x < 0 || x >= d.width {
			break
		}
		if d.labels[y*d.width+x] != labelLight {
			if runLength >= 2 {
				count++
			}
			runLength = 0
		} else {
			runLength++
		}

		a += n
		*dom += domStep
		if a >= dd {
			*nondom += nondomStep
			a -= dd
		}
	}
	return count
}

// lineIntersect intersects line p0-p1 with line q0-q1. ok is false for
// parallel lines.
func lineIntersect(p0, p1, q0, q1 image.Point) (image.Point, bool) {
	a := -(p1.Y - p0.Y)
	b := p1.X - p0.X
	c := -(q1.Y - q0.Y)
	dd := q1.X - q0.X

	e := a*p1.X + b*p1.Y
	f := c*q1.X + dd*q1.Y

	det := a*dd - b*c
	if det == 0 {
		return image.Point{}, false
	}
	return image.Point{
		X: (dd*e - b*f) / det,
		Y: (-c*e + a*f) / det,
	}, true
}

// findAlignmentPattern spirals out from the estimated alignment corner
// looking for a region of roughly one module's area.
func (d *Detector) findAlignmentPattern(qr *Grid) {
	c0 := &d.capstones[qr.Caps[0]]
	c2 := &d.capstones[qr.Caps[2]]
	b := qr.Align

	u, v := c0.Perspective.Unmap(b)
	a := c0.Perspective.Map(u, v+1)
	u, v = c2.Perspective.Unmap(b)
	c := c2.Perspective.Map(u+1, v)

	sizeEstimate := abs((a.X-b.X)*-(c.Y-b.Y) + (a.Y-b.Y)*(c.X-b.X))

	dx := [4]int{1, 0, -1, 0}
	dy := [4]int{0, -1, 0, 1}
	step, dir := 1, 0
	for step*step < sizeEstimate*100 {
		for range step {
			if code := d.regionCode(b.X, b.Y); code >= 0 {
				count := d.regions[code].Count
				if count >= sizeEstimate/2 && count <= sizeEstimate*2 {
					qr.AlignRegion = code
					return
				}
			}
			b.X += dx[dir]
			b.Y += dy[dir]
		}
		dir = (dir + 1) % 4
		if dir&1 == 0 {
			step++
		}
	}
}

// leftmostToLine returns the region point with the smallest projection on
// the normal of hd.
func (d *Detector) leftmostToLine(index int, hd image.Point) image.Point {
	reg := &d.regions[index]
	label := regionLabel(index)
	best := reg.Seed
	bestScore := -hd.Y*best.X + hd.X*best.Y

	d.fill(reg.Seed.X, reg.Seed.Y, label, labelDark, nil)
	d.fill(reg.Seed.X, reg.Seed.Y, labelDark, label, func(y, left, right int) {
		for _, x := range [2]int{left, right} {
			if s := -hd.Y*x + hd.X*y; s < bestScore {
				bestScore = s
				best = image.Point{X: x, Y: y}
			}
		}
	})
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
