package qrcode

import "fmt"

const (
	// MinVersion and MaxVersion bound the supported symbol versions.
	MinVersion = 1
	MaxVersion = 40
	// MaxPayload is the largest payload any symbol can produce.
	MaxPayload = 8896
)

// ECLevel is the error correction level of a symbol.
type ECLevel int

const (
	ECLevelL ECLevel = iota
	ECLevelM
	ECLevelQ
	ECLevelH
)

// formatLevels maps the two EC bits of the format word to a level.
var formatLevels = [4]ECLevel{ECLevelM, ECLevelL, ECLevelH, ECLevelQ}

func (l ECLevel) String() string {
	switch l {
	case ECLevelL:
		return "L"
	case ECLevelM:
		return "M"
	case ECLevelQ:
		return "Q"
	case ECLevelH:
		return "H"
	}
	return fmt.Sprintf("ECLevel(%d)", int(l))
}

// blockLayout describes the RS blocks of one version at one EC level.
// Long blocks carry one more data codeword than short blocks.
type blockLayout struct {
	ecPerBlock  int
	shortBlocks int
	shortData   int
	longBlocks  int
}

func (b blockLayout) numBlocks() int { return b.shortBlocks + b.longBlocks }

func (b blockLayout) dataCodewords() int {
	return b.shortBlocks*b.shortData + b.longBlocks*(b.shortData+1)
}

type versionInfo struct {
	totalCodewords int
	align          []int
	levels         [4]blockLayout // indexed by ECLevel
}

// versionTable is indexed by version number; entry 0 is unused.
var versionTable = [MaxVersion + 1]versionInfo{
	{},
	{26, nil, [4]blockLayout{{7, 1, 19, 0}, {10, 1, 16, 0}, {13, 1, 13, 0}, {17, 1, 9, 0}}},
	{44, []int{6, 18}, [4]blockLayout{{10, 1, 34, 0}, {16, 1, 28, 0}, {22, 1, 22, 0}, {28, 1, 16, 0}}},
	{70, []int{6, 22}, [4]blockLayout{{15, 1, 55, 0}, {26, 1, 44, 0}, {18, 2, 17, 0}, {22, 2, 13, 0}}},
	{100, []int{6, 26}, [4]blockLayout{{20, 1, 80, 0}, {18, 2, 32, 0}, {26, 2, 24, 0}, {16, 4, 9, 0}}},
	{134, []int{6, 30}, [4]blockLayout{{26, 1, 108, 0}, {24, 2, 43, 0}, {18, 2, 15, 2}, {22, 2, 11, 2}}},
	{172, []int{6, 34}, [4]blockLayout{{18, 2, 68, 0}, {16, 4, 27, 0}, {24, 4, 19, 0}, {28, 4, 15, 0}}},
	{196, []int{6, 22, 38}, [4]blockLayout{{20, 2, 78, 0}, {18, 4, 31, 0}, {18, 2, 14, 4}, {26, 4, 13, 1}}},
	{242, []int{6, 24, 42}, [4]blockLayout{{24, 2, 97, 0}, {22, 2, 38, 2}, {22, 4, 18, 2}, {26, 4, 14, 2}}},
	{292, []int{6, 26, 46}, [4]blockLayout{{30, 2, 116, 0}, {22, 3, 36, 2}, {20, 4, 16, 4}, {24, 4, 12, 4}}},
	{346, []int{6, 28, 50}, [4]blockLayout{{18, 2, 68, 2}, {26, 4, 43, 1}, {24, 6, 19, 2}, {28, 6, 15, 2}}},
	{404, []int{6, 30, 54}, [4]blockLayout{{20, 4, 81, 0}, {30, 1, 50, 4}, {28, 4, 22, 4}, {24, 3, 12, 8}}},
	{466, []int{6, 32, 58}, [4]blockLayout{{24, 2, 92, 2}, {22, 6, 36, 2}, {26, 4, 20, 6}, {28, 7, 14, 4}}},
	{532, []int{6, 34, 62}, [4]blockLayout{{26, 4, 107, 0}, {22, 8, 37, 1}, {24, 8, 20, 4}, {22, 12, 11, 4}}},
	{581, []int{6, 26, 46, 66}, [4]blockLayout{{30, 3, 115, 1}, {24, 4, 40, 5}, {20, 11, 16, 5}, {24, 11, 12, 5}}},
	{655, []int{6, 26, 48, 70}, [4]blockLayout{{22, 5, 87, 1}, {24, 5, 41, 5}, {30, 5, 24, 7}, {24, 11, 12, 7}}},
	{733, []int{6, 26, 50, 74}, [4]blockLayout{{24, 5, 98, 1}, {28, 7, 45, 3}, {24, 15, 19, 2}, {30, 3, 15, 13}}},
	{815, []int{6, 30, 54, 78}, [4]blockLayout{{28, 1, 107, 5}, {28, 10, 46, 1}, {28, 1, 22, 15}, {28, 2, 14, 17}}},
	{901, []int{6, 30, 56, 82}, [4]blockLayout{{30, 5, 120, 1}, {26, 9, 43, 4}, {28, 17, 22, 1}, {28, 2, 14, 19}}},
	{991, []int{6, 30, 58, 86}, [4]blockLayout{{28, 3, 113, 4}, {26, 3, 44, 11}, {26, 17, 21, 4}, {26, 9, 13, 16}}},
	{1085, []int{6, 34, 62, 90}, [4]blockLayout{{28, 3, 107, 5}, {26, 3, 41, 13}, {30, 15, 24, 5}, {28, 15, 15, 10}}},
	{1156, []int{6, 28, 50, 72, 94}, [4]blockLayout{{28, 4, 116, 4}, {26, 17, 42, 0}, {28, 17, 22, 6}, {30, 19, 16, 6}}},
	{1258, []int{6, 26, 50, 74, 98}, [4]blockLayout{{28, 2, 111, 7}, {28, 17, 46, 0}, {30, 7, 24, 16}, {24, 34, 13, 0}}},
	{1364, []int{6, 30, 54, 78, 102}, [4]blockLayout{{30, 4, 121, 5}, {28, 4, 47, 14}, {30, 11, 24, 14}, {30, 16, 15, 14}}},
	{1474, []int{6, 28, 54, 80, 106}, [4]blockLayout{{30, 6, 117, 4}, {28, 6, 45, 14}, {30, 11, 24, 16}, {30, 30, 16, 2}}},
	{1588, []int{6, 32, 58, 84, 110}, [4]blockLayout{{26, 8, 106, 4}, {28, 8, 47, 13}, {30, 7, 24, 22}, {30, 22, 15, 13}}},
	{1706, []int{6, 30, 58, 86, 114}, [4]blockLayout{{28, 10, 114, 2}, {28, 19, 46, 4}, {28, 28, 22, 6}, {30, 33, 16, 4}}},
	{1828, []int{6, 34, 62, 90, 118}, [4]blockLayout{{30, 8, 122, 4}, {28, 22, 45, 3}, {30, 8, 23, 26}, {30, 12, 15, 28}}},
	{1921, []int{6, 26, 50, 74, 98, 122}, [4]blockLayout{{30, 3, 117, 10}, {28, 3, 45, 23}, {30, 4, 24, 31}, {30, 11, 15, 31}}},
	{2051, []int{6, 30, 54, 78, 102, 126}, [4]blockLayout{{30, 7, 116, 7}, {28, 21, 45, 7}, {30, 1, 23, 37}, {30, 19, 15, 26}}},
	{2185, []int{6, 26, 52, 78, 104, 130}, [4]blockLayout{{30, 5, 115, 10}, {28, 19, 47, 10}, {30, 15, 24, 25}, {30, 23, 15, 25}}},
	{2323, []int{6, 30, 56, 82, 108, 134}, [4]blockLayout{{30, 13, 115, 3}, {28, 2, 46, 29}, {30, 42, 24, 1}, {30, 23, 15, 28}}},
	{2465, []int{6, 34, 60, 86, 112, 138}, [4]blockLayout{{30, 17, 115, 0}, {28, 10, 46, 23}, {30, 10, 24, 35}, {30, 19, 15, 35}}},
	{2611, []int{6, 30, 58, 86, 114, 142}, [4]blockLayout{{30, 17, 115, 1}, {28, 14, 46, 21}, {30, 29, 24, 19}, {30, 11, 15, 46}}},
	{2761, []int{6, 34, 62, 90, 118, 146}, [4]blockLayout{{30, 13, 115, 6}, {28, 14, 46, 23}, {30, 44, 24, 7}, {30, 59, 16, 1}}},
	{2876, []int{6, 30, 54, 78, 102, 126, 150}, [4]blockLayout{{30, 12, 121, 7}, {28, 12, 47, 26}, {30, 39, 24, 14}, {30, 22, 15, 41}}},
	{3034, []int{6, 24, 50, 76, 102, 128, 154}, [4]blockLayout{{30, 6, 121, 14}, {28, 6, 47, 34}, {30, 46, 24, 10}, {30, 2, 15, 64}}},
	{3196, []int{6, 28, 54, 80, 106, 132, 158}, [4]blockLayout{{30, 17, 122, 4}, {28, 29, 46, 14}, {30, 49, 24, 10}, {30, 24, 15, 46}}},
	{3362, []int{6, 32, 58, 84, 110, 136, 162}, [4]blockLayout{{30, 4, 122, 18}, {28, 13, 46, 32}, {30, 48, 24, 14}, {30, 42, 15, 32}}},
	{3532, []int{6, 26, 54, 82, 110, 138, 166}, [4]blockLayout{{30, 20, 117, 4}, {28, 40, 47, 7}, {30, 43, 24, 22}, {30, 10, 15, 67}}},
	{3706, []int{6, 30, 58, 86, 114, 142, 170}, [4]blockLayout{{30, 19, 118, 6}, {28, 18, 47, 31}, {30, 34, 24, 34}, {30, 20, 15, 61}}},
}

// SizeForVersion returns the module count of a version.
func SizeForVersion(v int) int { return 17 + 4*v }

// VersionForSize returns the version of a grid size, or an error if the size
// is not 17+4v for a supported v.
func VersionForSize(size int) (int, error) {
	if size < SizeForVersion(MinVersion) || (size-17)%4 != 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidGridSize, size)
	}
	v := (size - 17) / 4
	if v > MaxVersion {
		return 0, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}
	return v, nil
}

// AlignmentCenters returns the alignment pattern coordinates of a version.
// Version 1 has none.
func AlignmentCenters(v int) []int {
	if v < MinVersion || v > MaxVersion {
		return nil
	}
	return versionTable[v].align
}

// TotalCodewords returns the number of codewords in a symbol.
func TotalCodewords(v int) int {
	if v < MinVersion || v > MaxVersion {
		return 0
	}
	return versionTable[v].totalCodewords
}

// DataCodewords returns the number of data codewords for a version and level.
func DataCodewords(v int, level ECLevel) int {
	if v < MinVersion || v > MaxVersion || level < ECLevelL || level > ECLevelH {
		return 0
	}
	return versionTable[v].levels[level].dataCodewords()
}

// ECCodewordsPerBlock returns the parity length of every block.
func ECCodewordsPerBlock(v int, level ECLevel) int {
	if v < MinVersion || v > MaxVersion || level < ECLevelL || level > ECLevelH {
		return 0
	}
	return versionTable[v].levels[level].ecPerBlock
}
