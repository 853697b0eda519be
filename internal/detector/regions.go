package detector

import "image"

// Region is a 4-connected dark area of the thresholded image.
type Region struct {
	Seed  image.Point
	Count int
	// Capstone is the index of the capstone using this region, or -1.
	Capstone int
}

type spanFunc func(y, left, right int)

// fill replaces the 4-connected run of value from that contains (x, y)
// with to, reporting each horizontal span to fn. It keeps an explicit
// stack of seed pixels so large areas cannot exhaust the goroutine stack.
func (d *Detector) fill(x, y int, from, to uint16, fn spanFunc) {
	labels, w, h := d.labels, d.width, d.height
	stack := append(d.fillStack[:0], image.Point{X: x, Y: y})

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		row := labels[p.Y*w : (p.Y+1)*w]
		if row[p.X] != from {
			continue
		}
		left, right := p.X, p.X
		for left > 0 && row[left-1] == from {
			left--
		}
		for right < w-1 && row[right+1] == from {
			right++
		}
		for i := left; i <= right; i++ {
			row[i] = to
		}
		if fn != nil {
			fn(p.Y, left, right)
		}

		for _, ny := range [2]int{p.Y - 1, p.Y + 1} {
			if ny < 0 || ny >= h {
				continue
			}
			next := labels[ny*w : (ny+1)*w]
			inRun := false
			for i := left; i <= right; i++ {
				match := next[i] == from
				if match && !inRun {
					stack = append(stack, image.Point{X: i, Y: ny})
				}
				inRun = match
			}
		}
	}
	d.fillStack = stack
}

func regionLabel(index int) uint16 { return uint16(index + firstRegionLabel) }

// regionCode returns the region index at (x, y), labeling a new region on
// first touch. Light pixels, pixels outside the image and dark pixels
// beyond the region limit give -1.
func (d *Detector) regionCode(x, y int) int {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return -1
	}
	label := d.labels[y*d.width+x]
	if label >= firstRegionLabel {
		return int(label) - firstRegionLabel
	}
	if label == labelLight {
		return -1
	}
	if len(d.regions) >= d.cfg.MaxRegions {
		return -1
	}

	index := len(d.regions)
	d.regions = append(d.regions, Region{Seed: image.Point{X: x, Y: y}, Capstone: -1})
	d.fill(x, y, label, regionLabel(index), func(_, left, right int) {
		d.regions[index].Count += right - left + 1
	})
	return index
}
