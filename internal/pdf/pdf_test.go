package pdf

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name        string
		pageRange   string
		want        []int
		expectError bool
	}{
		{name: "empty range returns nil", pageRange: "", want: nil},
		{name: "blank range returns nil", pageRange: "  ", want: nil},
		{name: "single page", pageRange: "1", want: []int{1}},
		{name: "multiple single pages", pageRange: "1,3,5", want: []int{1, 3, 5}},
		{name: "simple range", pageRange: "1-5", want: []int{1, 2, 3, 4, 5}},
		{name: "mixed pages and ranges", pageRange: "1,3-5,7", want: []int{1, 3, 4, 5, 7}},
		{name: "range with spaces", pageRange: " 1 - 3 , 5 ", want: []int{1, 2, 3, 5}},
		{name: "invalid page number", pageRange: "abc", expectError: true},
		{name: "zero page", pageRange: "0", expectError: true},
		{name: "zero start", pageRange: "0-2", expectError: true},
		{name: "negative page", pageRange: "-1", expectError: true},
		{name: "invalid range format", pageRange: "1-2-3", expectError: true},
		{name: "start greater than end", pageRange: "5-1", expectError: true},
		{name: "invalid start page", pageRange: "abc-5", expectError: true},
		{name: "invalid end page", pageRange: "1-xyz", expectError: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageRange(tt.pageRange)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"page_1_image_1.png", 1, false},
		{"page_12_image_3.jpg", 12, false},
		{"scan_3_Im0.png", 3, false},
		{"my_report_7_Im12.tif", 7, false},
		{"image.png", 0, true},
		{"a_b.png", 0, true},
		{"doc_x_Im0.png", 0, true},
		{"doc_0_Im0.png", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageFromFilename(tt.name)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectExtractedImages(t *testing.T) {
	dir := t.TempDir()
	img := testutil.CreateTestImage(8, 6, image.White)

	testutil.SaveImage(t, img, filepath.Join(dir, "doc_1_Im0.png"))
	testutil.SaveImage(t, img, filepath.Join(dir, "doc_1_Im1.png"))
	testutil.SaveImage(t, img, filepath.Join(dir, "page_2_image_1.png"))
	testutil.SaveImage(t, img, filepath.Join(dir, "nopage.png"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc_3_Im0.png"), []byte("not an image"), 0o600))

	result, err := collectExtractedImages(dir)
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Len(t, result[1], 2)
	require.Len(t, result[2], 1)
	assert.Equal(t, 8, result[2][0].Bounds().Dx())
}

func TestCollectExtractedImagesMissingDir(t *testing.T) {
	_, err := collectExtractedImages(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestExtractImagesErrors(t *testing.T) {
	_, err := ExtractImages("/non/existent/file.pdf", "")
	require.Error(t, err)

	_, err = ExtractImages("dummy.pdf", "invalid-range")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid page range")
}
