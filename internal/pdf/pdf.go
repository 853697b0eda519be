// Package pdf extracts embedded images from PDF documents with pdfcpu and
// scans them for QR codes.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// ExtractImages extracts all images from a PDF file, grouped by page number.
func ExtractImages(filename string, pageRange string) (map[int][]image.Image, error) {
	return extractImages(filename, pageRange, nil)
}

func extractImages(filename, pageRange string, conf *model.Configuration) (map[int][]image.Image, error) {
	pageNumbers, err := ParsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "qrscan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var pageStrings []string
	if len(pageNumbers) > 0 {
		pageStrings = make([]string, len(pageNumbers))
		for i, n := range pageNumbers {
			pageStrings[i] = strconv.Itoa(n)
		}
	}

	if err := api.ExtractImagesFile(filename, tempDir, pageStrings, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	result, err := collectExtractedImages(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return result, nil
}

// PageCount returns the number of pages in a PDF file.
func PageCount(filename string) (int, error) {
	return api.PageCountFile(filename)
}

// collectExtractedImages groups the images pdfcpu wrote to dir by page.
// Unreadable files and names without a page number are skipped.
func collectExtractedImages(dir string) (map[int][]image.Image, error) {
	result := make(map[int][]image.Image)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || !utils.IsSupportedImage(e.Name()) {
			continue
		}
		page, err := parsePageFromFilename(e.Name())
		if err != nil {
			continue
		}
		img, _, err := utils.LoadImage(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		result[page] = append(result[page], img)
	}
	return result, nil
}

// parsePageFromFilename reads the page number from an extracted image name.
// pdfcpu writes <base>_<page>_<id>.<ext>; page_<page>_image_<idx>.<ext> is
// accepted as well.
func parsePageFromFilename(filename string) (int, error) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(name, "_")

	var token string
	switch {
	case len(parts) >= 2 && parts[0] == "page":
		token = parts[1]
	case len(parts) >= 3:
		token = parts[len(parts)-2]
	default:
		return 0, errors.New("not a page image")
	}

	page, err := strconv.Atoi(token)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("invalid page number %q", token)
	}
	return page, nil
}

// ParsePageRange parses a page selection like "1-5" or "1,3,5". An empty
// string selects every page and yields nil.
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for part := range strings.SplitSeq(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses "3" or "1-5".
func parseRangeToken(part string) ([]int, error) {
	if !strings.Contains(part, "-") {
		page, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid page number: %s", part)
		}
		if page < 1 {
			return nil, fmt.Errorf("page numbers start at 1: %d", page)
		}
		return []int{page}, nil
	}

	rangeParts := strings.Split(part, "-")
	if len(rangeParts) != 2 {
		return nil, fmt.Errorf("invalid range format: %s", part)
	}
	start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
	if err != nil {
		return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
	}
	end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
	}
	if start < 1 {
		return nil, fmt.Errorf("page numbers start at 1: %d", start)
	}
	if start > end {
		return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
	}
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out, nil
}
