package scanner

import (
	"fmt"

	"github.com/MeKo-Tech/qrscan/internal/detector"
	"github.com/MeKo-Tech/qrscan/internal/luma"
	"github.com/MeKo-Tech/qrscan/internal/qrcode"
)

var (
	// ErrNoSymbol is returned when decoding an index outside 0..Count()-1.
	ErrNoSymbol = detector.ErrNoSymbol
	// ErrStale is returned for results computed before the last Prepare
	// that changed the buffer dimensions.
	ErrStale = detector.ErrStale
)

// Context is one recognizer instance: an image buffer, the detector state
// for the last Detect and the last decoded payload. Hosts drive it as
// Prepare, write into Buffer, Detect, then Decode each index.
//
// A Context is not safe for concurrent use.
type Context struct {
	plane    *luma.Plane
	det      *detector.Detector
	data     *qrcode.Data
	detected bool
}

// NewContext returns a context using cfg for detection. maxPixels bounds
// Prepare; zero means luma.DefaultMaxPixels.
func NewContext(cfg detector.Config, maxPixels int) (*Context, error) {
	det, err := detector.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Context{plane: luma.New(maxPixels), det: det}, nil
}

// Prepare sizes the image buffer for a w×h frame. Calling it again with the
// same dimensions keeps the buffer and any results; other dimensions
// invalidate every result derived from the previous buffer.
func (c *Context) Prepare(w, h int) error {
	if err := c.plane.Resize(w, h); err != nil {
		return fmt.Errorf("prepare %dx%d: %w", w, h, err)
	}
	if c.stale() {
		c.data = nil
	}
	return nil
}

// Buffer returns the writable luminance buffer, width*height bytes, one
// byte per pixel in row-major order.
func (c *Context) Buffer() []byte { return c.plane.Pix() }

// Plane exposes the underlying luminance plane.
func (c *Context) Plane() *luma.Plane { return c.plane }

// Width and Height report the prepared dimensions.
func (c *Context) Width() int  { return c.plane.Width() }
func (c *Context) Height() int { return c.plane.Height() }

// Generation identifies the current buffer allocation.
func (c *Context) Generation() uint64 { return c.plane.Generation() }

// Detect runs detection over the buffer and returns the symbol count.
func (c *Context) Detect() int {
	c.data = nil
	c.detected = true
	return c.det.Detect(c.plane)
}

// Detector exposes the detector state of the last Detect.
func (c *Context) Detector() *detector.Detector { return c.det }

func (c *Context) stale() bool {
	return c.detected && c.det.Generation() != c.plane.Generation()
}

// Count returns the symbol count of the last Detect, or 0 when no Detect
// ran against the current buffer.
func (c *Context) Count() int {
	if !c.detected || c.stale() {
		return 0
	}
	return c.det.Count()
}

// Extract samples symbol i into a module grid.
func (c *Context) Extract(i int) (*qrcode.Code, error) {
	if c.stale() {
		return nil, ErrStale
	}
	if i < 0 || i >= c.Count() {
		return nil, fmt.Errorf("%w: index %d of %d", ErrNoSymbol, i, c.Count())
	}
	return c.det.Extract(i, c.plane)
}

// Decode extracts and decodes symbol i and returns its payload. The
// payload stays readable through Data, PayloadLength and PayloadType until
// the next Decode, Detect or resizing Prepare.
func (c *Context) Decode(i int) ([]byte, error) {
	c.data = nil
	code, err := c.Extract(i)
	if err != nil {
		return nil, err
	}
	return c.DecodeCode(code)
}

// DecodeCode decodes a code previously returned by Extract.
func (c *Context) DecodeCode(code *qrcode.Code) ([]byte, error) {
	c.data = nil
	if code == nil {
		return nil, fmt.Errorf("%w: nil code", ErrNoSymbol)
	}
	if code.Generation != c.plane.Generation() {
		return nil, ErrStale
	}
	data, err := qrcode.Decode(code)
	if err != nil {
		return nil, err
	}
	c.data = data
	return data.Payload, nil
}

// Data returns the last successfully decoded symbol, or nil.
func (c *Context) Data() *qrcode.Data { return c.data }

// PayloadLength returns the byte length of the last decoded payload.
func (c *Context) PayloadLength() int {
	if c.data == nil {
		return 0
	}
	return len(c.data.Payload)
}

// PayloadType returns the highest segment type of the last decoded payload.
func (c *Context) PayloadType() qrcode.DataType {
	if c.data == nil {
		return 0
	}
	return c.data.DataType
}

// Release returns the buffers to the pool. The context can be prepared
// again afterwards.
func (c *Context) Release() {
	c.plane.Release()
	c.data = nil
	c.detected = false
}
