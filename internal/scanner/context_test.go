package scanner

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/detector"
	"github.com/MeKo-Tech/qrscan/internal/luma"
	"github.com/MeKo-Tech/qrscan/internal/qrcode"
	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

func newContext(t *testing.T) *Context {
	t.Helper()
	c, err := NewContext(detector.DefaultConfig(), 0)
	require.NoError(t, err)
	t.Cleanup(c.Release)
	return c
}

// loadSymbol renders content and writes it into c the way a host would:
// Prepare, then fill Buffer.
func loadSymbol(t *testing.T, c *Context, content string) image.Rectangle {
	t.Helper()
	cfg := testutil.DefaultSymbolConfig()
	cfg.Content = content
	img := testutil.MustSymbolImage(t, cfg)

	gray := luma.New(0)
	require.NoError(t, gray.FromImage(img))
	defer gray.Release()

	b := img.Bounds()
	require.NoError(t, c.Prepare(b.Dx(), b.Dy()))
	require.Len(t, c.Buffer(), b.Dx()*b.Dy())
	copy(c.Buffer(), gray.Pix())
	return b
}

func TestNewContextRejectsInvalidConfig(t *testing.T) {
	cfg := detector.DefaultConfig()
	cfg.MaxCapstones = 0
	_, err := NewContext(cfg, 0)
	require.ErrorIs(t, err, detector.ErrInvalidConfig)
}

func TestContextPrepareInvalid(t *testing.T) {
	c := newContext(t)
	require.ErrorIs(t, c.Prepare(0, 10), luma.ErrInvalidDimensions)
	require.ErrorIs(t, c.Prepare(10, -1), luma.ErrInvalidDimensions)

	small, err := NewContext(detector.DefaultConfig(), 100)
	require.NoError(t, err)
	require.ErrorIs(t, small.Prepare(20, 20), luma.ErrTooLarge)
	require.NoError(t, small.Prepare(10, 10))
}

func TestContextCountBeforeDetect(t *testing.T) {
	c := newContext(t)
	loadSymbol(t, c, "hello")
	assert.Equal(t, 0, c.Count())
	_, err := c.Decode(0)
	require.ErrorIs(t, err, ErrNoSymbol)
}

func TestContextDetectAndDecode(t *testing.T) {
	c := newContext(t)
	loadSymbol(t, c, "hello")

	require.Equal(t, 1, c.Detect())
	assert.Equal(t, 1, c.Count())

	payload, err := c.Decode(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), payload)
	assert.Equal(t, 5, c.PayloadLength())
	assert.Equal(t, qrcode.DataTypeByte, c.PayloadType())
	require.NotNil(t, c.Data())
	assert.Equal(t, c.Generation(), c.Data().Generation)

	again, err := c.Decode(0)
	require.NoError(t, err)
	assert.Equal(t, payload, again)
}

func TestContextDecodeOutOfRange(t *testing.T) {
	c := newContext(t)
	loadSymbol(t, c, "range")
	require.Equal(t, 1, c.Detect())

	_, err := c.Decode(1)
	require.ErrorIs(t, err, ErrNoSymbol)
	assert.Equal(t, 0, c.PayloadLength())
	assert.Equal(t, qrcode.DataType(0), c.PayloadType())

	_, err = c.Decode(-1)
	require.ErrorIs(t, err, ErrNoSymbol)

	_, err = c.DecodeCode(nil)
	require.ErrorIs(t, err, ErrNoSymbol)
}

func TestContextPrepareSameSizeKeepsResults(t *testing.T) {
	c := newContext(t)
	b := loadSymbol(t, c, "same size")
	require.Equal(t, 1, c.Detect())
	_, err := c.Decode(0)
	require.NoError(t, err)
	gen := c.Generation()

	require.NoError(t, c.Prepare(b.Dx(), b.Dy()))
	assert.Equal(t, gen, c.Generation())
	assert.Equal(t, 1, c.Count())
	assert.Equal(t, 9, c.PayloadLength())

	payload, err := c.Decode(0)
	require.NoError(t, err)
	assert.Equal(t, "same size", string(payload))
}

func TestContextResizeInvalidatesResults(t *testing.T) {
	c := newContext(t)
	b := loadSymbol(t, c, "stale")
	require.Equal(t, 1, c.Detect())
	code, err := c.Extract(0)
	require.NoError(t, err)
	_, err = c.Decode(0)
	require.NoError(t, err)

	require.NoError(t, c.Prepare(b.Dx()+2, b.Dy()))
	assert.Equal(t, 0, c.Count())
	assert.Nil(t, c.Data())
	assert.Equal(t, 0, c.PayloadLength())

	_, err = c.Decode(0)
	require.ErrorIs(t, err, ErrStale)
	_, err = c.Extract(0)
	require.ErrorIs(t, err, ErrStale)
	_, err = c.DecodeCode(code)
	require.ErrorIs(t, err, ErrStale)
}

func TestContextDetectClearsPayload(t *testing.T) {
	c := newContext(t)
	loadSymbol(t, c, "clear")
	require.Equal(t, 1, c.Detect())
	_, err := c.Decode(0)
	require.NoError(t, err)
	require.NotNil(t, c.Data())

	c.Detect()
	assert.Nil(t, c.Data())
}

func TestContextReleaseAndReuse(t *testing.T) {
	c := newContext(t)
	loadSymbol(t, c, "first")
	require.Equal(t, 1, c.Detect())

	c.Release()
	assert.Equal(t, 0, c.Count())
	assert.Empty(t, c.Buffer())

	loadSymbol(t, c, "second")
	require.Equal(t, 1, c.Detect())
	payload, err := c.Decode(0)
	require.NoError(t, err)
	assert.Equal(t, "second", string(payload))
}
