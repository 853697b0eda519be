package detector

import (
	"image"

	"github.com/MeKo-Tech/qrscan/internal/rectify"
)

// Capstone is a located finder pattern: a ring region around a stone region.
type Capstone struct {
	Ring, Stone int
	// Corners are the ring's outer corners, clockwise. Once the capstone
	// joins a grid, corner 0 is the one nearest the grid's top-left.
	Corners     [4]image.Point
	Center      image.Point
	Perspective rectify.Perspective
	// Grid is the index of the grid using this capstone, or -1.
	Grid int
}

// finderPattern is the dark:light:dark:light:dark run ratio of a finder.
var finderPattern = [5]int{1, 1, 3, 1, 1}

// finderScan looks for 1:1:3:1:1 run patterns along row y.
func (d *Detector) finderScan(y int) {
	row := d.labels[y*d.width : (y+1)*d.width]
	var pb [5]int
	lastDark := false
	runLength, runCount := 0, 0

	for x, label := range row {
		dark := label != labelLight
		if x > 0 && dark != lastDark {
			copy(pb[:4], pb[1:])
			pb[4] = runLength
			runLength = 0
			runCount++

			if !dark && runCount >= 5 {
				avg := (pb[0] + pb[1] + pb[3] + pb[4]) / 4
				tol := avg * 3 / 4
				ok := true
				for i, want := range finderPattern {
					if pb[i] < want*avg-tol || pb[i] > want*avg+tol {
						ok = false
						break
					}
				}
				if ok {
					d.testCapstone(x, y, pb)
				}
			}
		}
		runLength++
		lastDark = dark
	}
}

func (d *Detector) testCapstone(x, y int, pb [5]int) {
	ringRight := d.regionCode(x-pb[4], y)
	stone := d.regionCode(x-pb[4]-pb[3]-pb[2], y)
	ringLeft := d.regionCode(x-pb[4]-pb[3]-pb[2]-pb[1]-pb[0], y)

	if ringLeft < 0 || ringRight < 0 || stone < 0 {
		return
	}
	if ringLeft != ringRight || ringLeft == stone {
		return
	}
	stoneReg, ringReg := &d.regions[stone], &d.regions[ringLeft]
	if stoneReg.Capstone >= 0 || ringReg.Capstone >= 0 {
		return
	}
	if ratio := stoneReg.Count * 100 / ringReg.Count; ratio < 10 || ratio > 70 {
		return
	}
	d.recordCapstone(ringLeft, stone)
}

func (d *Detector) recordCapstone(ring, stone int) {
	if len(d.capstones) >= d.cfg.MaxCapstones {
		return
	}
	index := len(d.capstones)
	c := Capstone{Ring: ring, Stone: stone, Grid: -1}
	d.regions[stone].Capstone = index
	d.regions[ring].Capstone = index

	c.Corners = d.findRegionCorners(ring, d.regions[stone].Seed)
	p, err := rectify.Setup(c.Corners, 7, 7)
	if err != nil {
		// A collapsed ring cannot be a finder; release both regions.
		d.regions[stone].Capstone = -1
		d.regions[ring].Capstone = -1
		return
	}
	c.Perspective = p
	c.Center = p.Map(3.5, 3.5)
	d.capstones = append(d.capstones, c)
}

// findRegionCorners finds the four extreme points of a region: first the
// point farthest from ref, then the extremes along that direction and its
// perpendicular.
func (d *Detector) findRegionCorners(index int, ref image.Point) [4]image.Point {
	reg := &d.regions[index]
	label := regionLabel(index)

	var corners [4]image.Point
	best := -1
	d.fill(reg.Seed.X, reg.Seed.Y, label, labelDark, func(y, left, right int) {
		dy := y - ref.Y
		for _, x := range [2]int{left, right} {
			dx := x - ref.X
			if dist := dx*dx + dy*dy; dist > best {
				best = dist
				corners[0] = image.Point{X: x, Y: y}
			}
		}
	})

	axis := corners[0].Sub(ref)
	for i := range corners {
		corners[i] = reg.Seed
	}
	up0 := reg.Seed.X*axis.X + reg.Seed.Y*axis.Y
	rt0 := -reg.Seed.X*axis.Y + reg.Seed.Y*axis.X
	scores := [4]int{up0, rt0, -up0, -rt0}

	d.fill(reg.Seed.X, reg.Seed.Y, labelDark, label, func(y, left, right int) {
		for _, x := range [2]int{left, right} {
			up := x*axis.X + y*axis.Y
			rt := -x*axis.Y + y*axis.X
			for j, s := range [4]int{up, rt, -up, -rt} {
				if s > scores[j] {
					scores[j] = s
					corners[j] = image.Point{X: x, Y: y}
				}
			}
		}
	})
	return corners
}
