package scanner

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"image"
	"sort"
	"strconv"
	"strings"
)

// Point is an image coordinate.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Rect is an axis-aligned box.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Result describes one detected symbol. Symbols that were found but could
// not be decoded carry Error and Reason instead of a payload.
type Result struct {
	RawValue     string   `json:"rawValue" yaml:"raw_value"`
	Payload      []byte   `json:"payload,omitempty" yaml:"-"`
	Charset      string   `json:"charset,omitempty" yaml:"charset,omitempty"`
	DataType     string   `json:"dataType,omitempty" yaml:"data_type,omitempty"`
	Version      int      `json:"version,omitempty" yaml:"version,omitempty"`
	ECLevel      string   `json:"ecLevel,omitempty" yaml:"ec_level,omitempty"`
	Mask         int      `json:"mask" yaml:"mask"`
	ECI          uint32   `json:"eci,omitempty" yaml:"eci,omitempty"`
	CornerPoints [4]Point `json:"cornerPoints" yaml:"corner_points"`
	BoundingBox  Rect     `json:"boundingBox" yaml:"bounding_box"`
	Inverted     bool     `json:"inverted,omitempty" yaml:"inverted,omitempty"`
	Mirrored     bool     `json:"mirrored,omitempty" yaml:"mirrored,omitempty"`
	Corrected    int      `json:"correctedErrors,omitempty" yaml:"corrected_errors,omitempty"`

	StructuredAppend *StructuredAppend `json:"structuredAppend,omitempty" yaml:"structured_append,omitempty"`

	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// StructuredAppend locates a symbol inside a multi-symbol sequence.
type StructuredAppend struct {
	Index  int  `json:"index" yaml:"index"`
	Total  int  `json:"total" yaml:"total"`
	Parity byte `json:"parity" yaml:"parity"`
}

// OK reports whether the symbol decoded.
func (r *Result) OK() bool { return r.Error == "" }

// ImageResult is the scan output for one image.
type ImageResult struct {
	Width      int      `json:"width" yaml:"width"`
	Height     int      `json:"height" yaml:"height"`
	Symbols    []Result `json:"symbols" yaml:"symbols"`
	Detected   int      `json:"detected" yaml:"detected"`
	Inverted   bool     `json:"inverted,omitempty" yaml:"inverted,omitempty"`
	Scale      float64  `json:"scale,omitempty" yaml:"scale,omitempty"`
	Processing struct {
		DetectionNs int64 `json:"detection_ns" yaml:"detection_ns"`
		DecodingNs  int64 `json:"decoding_ns" yaml:"decoding_ns"`
		TotalNs     int64 `json:"total_ns" yaml:"total_ns"`
	} `json:"processing" yaml:"processing"`
}

// Decoded returns the symbols that decoded successfully.
func (r *ImageResult) Decoded() []Result {
	out := make([]Result, 0, len(r.Symbols))
	for _, s := range r.Symbols {
		if s.OK() {
			out = append(out, s)
		}
	}
	return out
}

// Values returns the decoded texts in result order.
func (r *ImageResult) Values() []string {
	var out []string
	for _, s := range r.Decoded() {
		out = append(out, s.RawValue)
	}
	return out
}

func boundingBox(corners [4]Point) Rect {
	minX, minY := corners[0].X, corners[0].Y
	maxX, maxY := minX, minY
	for _, p := range corners[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

func toPoints(c [4]image.Point, scale float64) [4]Point {
	var out [4]Point
	for i, p := range c {
		out[i] = Point{X: int(float64(p.X)*scale + 0.5), Y: int(float64(p.Y)*scale + 0.5)}
	}
	return out
}

// SortSymbolsTopLeft orders symbols by bounding box, top to bottom then
// left to right.
func SortSymbolsTopLeft(res *ImageResult) {
	sort.SliceStable(res.Symbols, func(i, j int) bool {
		a, b := res.Symbols[i].BoundingBox, res.Symbols[j].BoundingBox
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

// ToJSONImage renders one image result as indented JSON.
func ToJSONImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", fmt.Errorf("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainTextImage renders one decoded value per line.
func ToPlainTextImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", fmt.Errorf("nil result")
	}
	return strings.Join(res.Values(), "\n"), nil
}

// ToCSVImage renders one row per symbol.
func ToCSVImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", fmt.Errorf("nil result")
	}
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(CSVHeader()); err != nil {
		return "", err
	}
	for i, s := range res.Symbols {
		if err := w.Write(CSVRow(i, s)); err != nil {
			return "", err
		}
	}
	w.Flush()
	return sb.String(), w.Error()
}

// CSVHeader is the column list written by ToCSVImage.
func CSVHeader() []string {
	return []string{"index", "value", "data_type", "version", "ec_level", "x", "y", "width", "height", "error"}
}

// CSVRow formats symbol i as a CSV record.
func CSVRow(i int, s Result) []string {
	return []string{
		strconv.Itoa(i),
		s.RawValue,
		s.DataType,
		strconv.Itoa(s.Version),
		s.ECLevel,
		strconv.Itoa(s.BoundingBox.X),
		strconv.Itoa(s.BoundingBox.Y),
		strconv.Itoa(s.BoundingBox.Width),
		strconv.Itoa(s.BoundingBox.Height),
		s.Error,
	}
}
