package detector

const (
	labelLight uint16 = 0
	labelDark  uint16 = 1
)

// threshold binarizes pix into labels with a moving average that runs in
// both directions along each row. The averages carry over from one row to
// the next, and the direction pair flips on odd rows.
func (d *Detector) threshold(pix []byte, labels []uint16, w, h int) {
	s := max(w/d.cfg.ThresholdDivisor, 1)
	bias := 100 - d.cfg.ThresholdBias

	if cap(d.rowAverage) < w {
		d.rowAverage = make([]int, w)
	}
	avgRow := d.rowAverage[:w]

	avgW, avgU := 0, 0
	for y := range h {
		row := pix[y*w : (y+1)*w]
		clear(avgRow)

		for x := range w {
			var wi, ui int
			if y&1 == 1 {
				wi, ui = x, w-1-x
			} else {
				wi, ui = w-1-x, x
			}
			avgW = avgW*(s-1)/s + int(row[wi])
			avgU = avgU*(s-1)/s + int(row[ui])
			avgRow[wi] += avgW
			avgRow[ui] += avgU
		}

		out := labels[y*w : (y+1)*w]
		for x, p := range row {
			if int(p) < avgRow[x]*bias/(200*s) {
				out[x] = labelDark
			} else {
				out[x] = labelLight
			}
		}
	}
}
