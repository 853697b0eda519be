package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/qrscan/internal/charset"
	"github.com/MeKo-Tech/qrscan/internal/common"
	"github.com/MeKo-Tech/qrscan/internal/qrcode"
	"github.com/MeKo-Tech/qrscan/internal/rectify"
)

// ErrNilImage is returned when Scan is called without an image.
var ErrNilImage = errors.New("scanner: nil image")

// debugModuleScale is the pixels per module of rectified debug dumps.
const debugModuleScale = 8

// frame describes how plane coordinates map back to the caller's image.
type frame struct {
	scale  float64
	origin image.Point
	src    image.Image
}

// Scan finds and decodes every QR symbol in img.
func (s *Scanner) Scan(ctx context.Context, img image.Image) (*ImageResult, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	f := frame{scale: 1, origin: b.Min, src: img}
	if m := s.cfg.MaxDimension; m > 0 && (b.Dx() > m || b.Dy() > m) {
		small := imaging.Fit(img, m, m, imaging.Box)
		f.scale = float64(b.Dx()) / float64(small.Bounds().Dx())
		f.src = small
		slog.Debug("Downscaled image for scanning",
			"from", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()),
			"to", fmt.Sprintf("%dx%d", small.Bounds().Dx(), small.Bounds().Dy()))
	}

	c, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer s.release(c)

	if err := c.plane.FromImage(f.src); err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	res, err := s.scanContext(ctx, c, f)
	if err != nil {
		return nil, err
	}
	res.Width, res.Height = b.Dx(), b.Dy()
	return res, nil
}

// ScanGray scans a tightly packed 8-bit grayscale frame.
func (s *Scanner) ScanGray(ctx context.Context, pix []byte, w, h int) (*ImageResult, error) {
	return s.scanRaw(ctx, w, h, func(c *Context) error { return c.plane.CopyGray(pix, w, h) })
}

// ScanRGBA scans a tightly packed RGBA frame, 4 bytes per pixel.
func (s *Scanner) ScanRGBA(ctx context.Context, pix []byte, w, h int) (*ImageResult, error) {
	return s.scanRaw(ctx, w, h, func(c *Context) error { return c.plane.CopyRGBA(pix, w, h) })
}

func (s *Scanner) scanRaw(ctx context.Context, w, h int, load func(*Context) error) (*ImageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer s.release(c)

	if err := load(c); err != nil {
		return nil, fmt.Errorf("load frame: %w", err)
	}
	f := frame{scale: 1}
	if s.cfg.DebugDir != "" {
		f.src = c.plane.Gray()
	}
	res, err := s.scanContext(ctx, c, f)
	if err != nil {
		return nil, err
	}
	res.Width, res.Height = w, h
	return res, nil
}

// scanContext runs detection on the loaded plane, retrying the negative
// when nothing was found, and decodes every grid.
func (s *Scanner) scanContext(ctx context.Context, c *Context, f frame) (*ImageResult, error) {
	total := common.NewNamedTimer("scan")
	res := &ImageResult{}
	if f.scale != 1 {
		res.Scale = f.scale
	}

	detection := common.NewNamedTimer("detection")
	n := c.Detect()
	if n == 0 && s.cfg.TryInverted {
		c.plane.Invert()
		n = c.Detect()
		res.Inverted = n > 0
	}
	res.Detected = n
	res.Processing.DetectionNs = detection.Stop().Nanoseconds()

	codes := make([]*qrcode.Code, 0, n)
	for i := range n {
		code, err := c.Extract(i)
		if err != nil {
			return nil, fmt.Errorf("extract symbol %d: %w", i, err)
		}
		codes = append(codes, code)
	}

	decoding := common.NewNamedTimer("decoding")
	res.Symbols = make([]Result, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, code := range codes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res.Symbols[i] = s.decodeSymbol(code, f)
			res.Symbols[i].Inverted = res.Inverted
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Processing.DecodingNs = decoding.Stop().Nanoseconds()
	res.Processing.TotalNs = total.Stop().Nanoseconds()

	if s.cfg.DebugDir != "" && f.src != nil {
		s.dumpDebug(f.src, codes)
	}

	slog.Debug("Scan finished",
		"detected", n,
		"decoded", len(res.Decoded()),
		"inverted", res.Inverted,
		"detection", detection.Duration(),
		"decoding", decoding.Duration(),
		"total", total.Duration())
	return res, nil
}

// retryMirrored reports whether a decode failure may come from a
// transposed symbol. Transposed format bits often still correct to a valid
// but wrong mask, so data ECC failures qualify too.
func retryMirrored(err error) bool {
	return errors.Is(err, qrcode.ErrFormatECC) ||
		errors.Is(err, qrcode.ErrDataECC) ||
		errors.Is(err, qrcode.ErrVersionMismatch)
}

// decodeSymbol decodes one grid, retrying it transposed when the first
// attempt fails in a way a mirrored symbol would.
func (s *Scanner) decodeSymbol(code *qrcode.Code, f frame) Result {
	data, err := qrcode.Decode(code)
	if err != nil && s.cfg.TryMirrored && retryMirrored(err) {
		flipped := code.Flip()
		if d, ferr := qrcode.Decode(flipped); ferr == nil {
			code, data, err = flipped, d, nil
		}
	}

	r := Result{
		CornerPoints: toPoints(code.Corners, f.scale),
		Mirrored:     code.Mirrored,
	}
	for i := range r.CornerPoints {
		r.CornerPoints[i].X += f.origin.X
		r.CornerPoints[i].Y += f.origin.Y
	}
	r.BoundingBox = boundingBox(r.CornerPoints)
	if err != nil {
		r.Error = err.Error()
		r.Reason = qrcode.Reason(err)
		slog.Debug("Symbol decode failed", "reason", r.Reason, "error", err)
		return r
	}

	r.Payload = data.Payload
	r.DataType = data.DataType.String()
	r.Version = data.Version
	r.ECLevel = data.ECLevel.String()
	r.Mask = data.Mask
	r.ECI = data.ECI
	r.Corrected = data.CorrectedErrors
	if sa := data.StructuredAppend; sa != nil {
		r.StructuredAppend = &StructuredAppend{Index: sa.Index, Total: sa.Total, Parity: sa.Parity}
	}

	text, cs, terr := charset.Text(data)
	if terr != nil {
		slog.Debug("Text decoding failed, using raw bytes", "error", terr)
		text, cs = string(data.Payload), ""
	}
	r.RawValue = text
	r.Charset = cs
	return r
}

func (s *Scanner) dumpDebug(src image.Image, codes []*qrcode.Code) {
	quads := make([][4]image.Point, len(codes))
	for i, code := range codes {
		quads[i] = code.Corners
	}
	if path, err := rectify.DumpOverlayPNG(s.cfg.DebugDir, src, quads); err != nil {
		slog.Warn("Failed to write debug overlay", "error", err)
	} else {
		slog.Debug("Wrote debug overlay", "path", path)
	}

	for _, code := range codes {
		p, err := rectify.Setup(code.Corners, float64(code.Size), float64(code.Size))
		if err != nil {
			continue
		}
		warped := rectify.Warp(src, p, code.Size, debugModuleScale)
		if _, err := rectify.DumpComparePNG(s.cfg.DebugDir, src, code.Corners, warped); err != nil {
			slog.Warn("Failed to write debug comparison", "error", err)
		}
	}
}
