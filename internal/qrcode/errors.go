package qrcode

import "errors"

var (
	ErrInvalidGridSize = errors.New("qrcode: invalid grid size")
	ErrInvalidVersion  = errors.New("qrcode: invalid version")
	ErrFormatECC       = errors.New("qrcode: format information not found")
	ErrVersionMismatch = errors.New("qrcode: version information disagrees with grid size")
	ErrDataECC         = errors.New("qrcode: uncorrectable data block")
	ErrUnknownDataType = errors.New("qrcode: unknown data type")
	ErrDataOverflow    = errors.New("qrcode: payload overflow")
	ErrDataUnderflow   = errors.New("qrcode: bitstream truncated")
	ErrDataFormat      = errors.New("qrcode: malformed segment data")
)

// Reason returns a short stable label for a decode error, suitable for
// metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidGridSize):
		return "invalid_grid_size"
	case errors.Is(err, ErrInvalidVersion):
		return "invalid_version"
	case errors.Is(err, ErrFormatECC):
		return "format_ecc"
	case errors.Is(err, ErrVersionMismatch):
		return "version_mismatch"
	case errors.Is(err, ErrDataECC):
		return "data_ecc"
	case errors.Is(err, ErrUnknownDataType):
		return "unknown_data_type"
	case errors.Is(err, ErrDataOverflow):
		return "data_overflow"
	case errors.Is(err, ErrDataUnderflow):
		return "data_underflow"
	case errors.Is(err, ErrDataFormat):
		return "data_format"
	}
	return "other"
}
