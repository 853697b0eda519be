package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// discoverImageFiles expands args into image files. Files named directly
// are kept when they pass the patterns; directories are walked.
func discoverImageFiles(fsys afero.Fs, args []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := fsys.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			if shouldIncludeFile(arg, includePatterns, excludePatterns) {
				files = append(files, arg)
			}
			continue
		}
		found, err := discoverInDirectory(fsys, arg, recursive, includePatterns, excludePatterns)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

func discoverInDirectory(fsys afero.Fs, dir string, recursive bool, includePatterns, excludePatterns []string) ([]string, error) {
	var files []string
	err := afero.Walk(fsys, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !utils.IsSupportedImage(path) {
			return nil
		}
		if shouldIncludeFile(path, includePatterns, excludePatterns) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// shouldIncludeFile applies exclude patterns first; with no include
// patterns everything else is included.
func shouldIncludeFile(path string, includePatterns, excludePatterns []string) bool {
	if matchesAnyPattern(path, excludePatterns) {
		return false
	}
	if len(includePatterns) == 0 {
		return true
	}
	return matchesAnyPattern(path, includePatterns)
}

// matchesAnyPattern matches the base name of path against glob patterns.
func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// MatchImage reports whether path is a supported image that passes the
// include and exclude patterns, as applied during directory discovery.
func MatchImage(path string, includePatterns, excludePatterns []string) bool {
	return utils.IsSupportedImage(path) && shouldIncludeFile(path, includePatterns, excludePatterns)
}
