package detector

import "github.com/MeKo-Tech/qrscan/internal/qrcode"

var cellOffsets = [3]float64{0.3, 0.5, 0.7}

// fitnessCell samples a 3×3 lattice inside module (x, y): +1 per dark
// sample, -1 per light one, samples outside the image count nothing.
func (d *Detector) fitnessCell(qr *Grid, x, y int) int {
	score := 0
	for _, ov := range cellOffsets {
		for _, ou := range cellOffsets {
			p := qr.Perspective.Map(float64(x)+ou, float64(y)+ov)
			if p.Y < 0 || p.Y >= d.height || p.X < 0 || p.X >= d.width {
				continue
			}
			if d.labels[p.Y*d.width+p.X] != labelLight {
				score++
			} else {
				score--
			}
		}
	}
	return score
}

func (d *Detector) fitnessRing(qr *Grid, cx, cy, radius int) int {
	score := 0
	for i := range radius * 2 {
		score += d.fitnessCell(qr, cx-radius+i, cy-radius)
		score += d.fitnessCell(qr, cx-radius, cy+radius-i)
		score += d.fitnessCell(qr, cx+radius, cy-radius+i)
		score += d.fitnessCell(qr, cx+radius-i, cy+radius)
	}
	return score
}

func (d *Detector) fitnessAlignment(qr *Grid, cx, cy int) int {
	return d.fitnessCell(qr, cx, cy) -
		d.fitnessRing(qr, cx, cy, 1) +
		d.fitnessRing(qr, cx, cy, 2)
}

func (d *Detector) fitnessCapstone(qr *Grid, x, y int) int {
	x += 3
	y += 3
	return d.fitnessCell(qr, x, y) +
		d.fitnessRing(qr, x, y, 1) -
		d.fitnessRing(qr, x, y, 2) +
		d.fitnessRing(qr, x, y, 3)
}

// fitnessAll scores how well the grid's perspective lines up with the
// timing patterns, the three finders and every alignment pattern.
func (d *Detector) fitnessAll(qr *Grid) int {
	score := 0
	for i := range qr.Size - 14 {
		expect := -1
		if i&1 == 1 {
			expect = 1
		}
		score += d.fitnessCell(qr, i+7, 6) * expect
		score += d.fitnessCell(qr, 6, i+7) * expect
	}

	score += d.fitnessCapstone(qr, 0, 0)
	score += d.fitnessCapstone(qr, qr.Size-7, 0)
	score += d.fitnessCapstone(qr, 0, qr.Size-7)

	version, err := qrcode.VersionForSize(qr.Size)
	if err != nil {
		return score
	}
	ap := qrcode.AlignmentCenters(version)
	for i := 1; i+1 < len(ap); i++ {
		score += d.fitnessAlignment(qr, 6, ap[i])
		score += d.fitnessAlignment(qr, ap[i], 6)
	}
	for i := 1; i < len(ap); i++ {
		for j := 1; j < len(ap); j++ {
			score += d.fitnessAlignment(qr, ap[i], ap[j])
		}
	}
	return score
}

// jiggle nudges each perspective coefficient up and down, keeping changes
// that improve fitnessAll, with the step halved after every pass.
func (d *Detector) jiggle(qr *Grid) {
	best := d.fitnessAll(qr)
	var adjust [8]float64
	for i, c := range qr.Perspective.C {
		adjust[i] = c * 0.02
	}

	for range d.cfg.JigglePasses {
		for i := range 16 {
			j := i >> 1
			old := qr.Perspective.C[j]
			if i&1 == 1 {
				qr.Perspective.C[j] = old + adjust[j]
			} else {
				qr.Perspective.C[j] = old - adjust[j]
			}
			if test := d.fitnessAll(qr); test > best {
				best = test
			} else {
				qr.Perspective.C[j] = old
			}
		}
		for i := range adjust {
			adjust[i] *= 0.5
		}
	}
}
