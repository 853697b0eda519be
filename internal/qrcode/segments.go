package qrcode

import "fmt"

const alphanumericSet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ $%*+-./:"

// charCountBits returns the width of the character count field for a mode.
func charCountBits(t DataType, version int) int {
	var widths [3]int
	switch t {
	case DataTypeNumeric:
		widths = [3]int{10, 12, 14}
	case DataTypeAlpha:
		widths = [3]int{9, 11, 13}
	case DataTypeByte:
		widths = [3]int{8, 16, 16}
	case DataTypeKanji:
		widths = [3]int{8, 10, 12}
	}
	switch {
	case version < 10:
		return widths[0]
	case version < 27:
		return widths[1]
	}
	return widths[2]
}

type segmentParser struct {
	r       bitReader
	version int
	data    *Data
}

func (p *segmentParser) emit(b ...byte) error {
	if len(p.data.Payload)+len(b) > MaxPayload {
		return ErrDataOverflow
	}
	p.data.Payload = append(p.data.Payload, b...)
	return nil
}

// parseSegments decodes the corrected data codewords into d.
func parseSegments(codewords []byte, d *Data) error {
	p := &segmentParser{r: bitReader{data: codewords}, version: d.Version, data: d}

	for p.r.remaining() >= 4 {
		mode, _ := p.r.read(4)
		if mode == modeTerminator {
			break
		}

		var err error
		switch mode {
		case int(DataTypeNumeric), int(DataTypeAlpha), int(DataTypeByte), int(DataTypeKanji):
			err = p.segment(DataType(mode))
		case dataTypeECI:
			err = p.eci()
		case modeStructured:
			err = p.structuredAppend()
		case modeFNC1First:
			d.FNC1First = true
		case modeFNC1Second:
			var ai int
			ai, err = p.r.read(8)
			d.FNC1Second = true
			d.ApplicationIndicator = byte(ai)
		default:
			err = fmt.Errorf("%w: mode %d", ErrUnknownDataType, mode)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *segmentParser) segment(t DataType) error {
	count, err := p.r.read(charCountBits(t, p.version))
	if err != nil {
		return err
	}
	start := len(p.data.Payload)

	switch t {
	case DataTypeNumeric:
		err = p.numeric(count)
	case DataTypeAlpha:
		err = p.alpha(count)
	case DataTypeByte:
		err = p.bytes(count)
	case DataTypeKanji:
		err = p.kanji(count)
	}
	if err != nil {
		return err
	}

	p.data.Segments = append(p.data.Segments, Segment{
		Type:   t,
		Offset: start,
		Length: len(p.data.Payload) - start,
		ECI:    p.data.ECI,
	})
	if t > p.data.DataType {
		p.data.DataType = t
	}
	return nil
}

func (p *segmentParser) numeric(count int) error {
	for count > 0 {
		digits := min(count, 3)
		bits := [4]int{0, 4, 7, 10}[digits]
		limit := [4]int{0, 10, 100, 1000}[digits]

		v, err := p.r.read(bits)
		if err != nil {
			return err
		}
		if v >= limit {
			return fmt.Errorf("%w: numeric group %d", ErrDataFormat, v)
		}

		var buf [3]byte
		for i := digits - 1; i >= 0; i-- {
			buf[i] = byte('0' + v%10)
			v /= 10
		}
		if err := p.emit(buf[:digits]...); err != nil {
			return err
		}
		count -= digits
	}
	return nil
}

func (p *segmentParser) alpha(count int) error {
	for count >= 2 {
		v, err := p.r.read(11)
		if err != nil {
			return err
		}
		if v >= 45*45 {
			return fmt.Errorf("%w: alphanumeric pair %d", ErrDataFormat, v)
		}
		if err := p.emit(alphanumericSet[v/45], alphanumericSet[v%45]); err != nil {
			return err
		}
		count -= 2
	}
	if count == 1 {
		v, err := p.r.read(6)
		if err != nil {
			return err
		}
		if v >= 45 {
			return fmt.Errorf("%w: alphanumeric char %d", ErrDataFormat, v)
		}
		return p.emit(alphanumericSet[v])
	}
	return nil
}

func (p *segmentParser) bytes(count int) error {
	if count*8 > p.r.remaining() {
		return ErrDataUnderflow
	}
	for range count {
		v, _ := p.r.read(8)
		if err := p.emit(byte(v)); err != nil {
			return err
		}
	}
	return nil
}

// kanji expands 13-bit values back to Shift-JIS double bytes.
func (p *segmentParser) kanji(count int) error {
	if count*13 > p.r.remaining() {
		return ErrDataUnderflow
	}
	for range count {
		v, _ := p.r.read(13)
		sjis := (v/0xC0)<<8 | v%0xC0
		if sjis < 0x1F00 {
			sjis += 0x8140
		} else {
			sjis += 0xC140
		}
		if err := p.emit(byte(sjis>>8), byte(sjis)); err != nil {
			return err
		}
	}
	return nil
}

// eci reads a 1, 2 or 3 byte designator.
func (p *segmentParser) eci() error {
	first, err := p.r.read(8)
	if err != nil {
		return err
	}

	var v int
	switch {
	case first&0x80 == 0:
		v = first & 0x7F
	case first&0xC0 == 0x80:
		next, err := p.r.read(8)
		if err != nil {
			return err
		}
		v = (first&0x3F)<<8 | next
	case first&0xE0 == 0xC0:
		next, err := p.r.read(16)
		if err != nil {
			return err
		}
		v = (first&0x1F)<<16 | next
	default:
		return fmt.Errorf("%w: ECI designator 0x%02x", ErrDataFormat, first)
	}
	p.data.ECI = uint32(v)
	return nil
}

func (p *segmentParser) structuredAppend() error {
	v, err := p.r.read(16)
	if err != nil {
		return err
	}
	p.data.StructuredAppend = &StructuredAppend{
		Index:  v >> 12,
		Total:  (v>>8)&0xF + 1,
		Parity: byte(v),
	}
	return nil
}
