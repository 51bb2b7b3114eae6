package core

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FormatID enumerates every recognised format.
type FormatID string

const (
	FmtJPEG FormatID = "jpeg"
	FmtTIFF FormatID = "tiff"
	FmtDNG  FormatID = "dng"
	FmtRAW  FormatID = "raw"

	FmtUnknown FormatID = "unknown"
)

// extMap maps lowercase extensions to format IDs.
var extMap = map[string]FormatID{
	".jpg":  FmtJPEG,
	".jpeg": FmtJPEG,
	".jpe":  FmtJPEG,
	".tiff": FmtTIFF,
	".tif":  FmtTIFF,
	".dng":  FmtDNG,

	// Camera RAW. Most of these are TIFF underneath but belong to the
	// camera maker; they are never rewritten.
	".cr2": FmtRAW,
	".cr3": FmtRAW,
	".crw": FmtRAW,
	".nef": FmtRAW,
	".nrw": FmtRAW,
	".arw": FmtRAW,
	".srf": FmtRAW,
	".sr2": FmtRAW,
	".orf": FmtRAW,
	".rw2": FmtRAW,
	".raf": FmtRAW,
	".pef": FmtRAW,
	".srw": FmtRAW,
	".3fr": FmtRAW,
	".iiq": FmtRAW,
	".rwl": FmtRAW,
	".x3f": FmtRAW,
}

// DetectFormat returns the FormatID for the given file. The extension
// decides between TIFF, DNG and the TIFF-based RAW formats; magic bytes
// decide everything else and catch mislabelled JPEGs.
func DetectFormat(path string) (FormatID, error) {
	f, err := os.Open(path)
	if err != nil {
		return FmtUnknown, err
	}
	defer f.Close()

	buf := make([]byte, 16)
	n, err := io.ReadFull(f, buf)
	if err != nil && n == 0 {
		return FmtUnknown, err
	}
	return detect(buf[:n], path), nil
}

func detect(b []byte, path string) FormatID {
	byExt, known := extMap[strings.ToLower(filepath.Ext(path))]

	switch detectMagic(b) {
	case FmtJPEG:
		return FmtJPEG
	case FmtTIFF:
		if known && (byExt == FmtDNG || byExt == FmtRAW) {
			return byExt
		}
		return FmtTIFF
	}
	// Non-TIFF RAW containers (CR3, RAF, X3F) are identified by extension.
	if known && byExt == FmtRAW {
		return FmtRAW
	}
	return FmtUnknown
}

func detectMagic(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	// JPEG: FF D8 FF
	case b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FmtJPEG
	// TIFF: 49 49 2A 00 (little-endian) or 4D 4D 00 2A (big-endian)
	case bytes.HasPrefix(b, []byte{0x49, 0x49, 0x2A, 0x00}) ||
		bytes.HasPrefix(b, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return FmtTIFF
	// Olympus ORF and Panasonic RW2 use their own TIFF magic.
	case bytes.HasPrefix(b, []byte("IIRO")) || bytes.HasPrefix(b, []byte("IIRS")) ||
		bytes.HasPrefix(b, []byte{0x49, 0x49, 0x55, 0x00}):
		return FmtTIFF
	}
	return FmtUnknown
}

// IsSidecarOnly reports whether writes for id go to an XMP sidecar
// instead of the file itself.
func IsSidecarOnly(id FormatID) bool {
	return id != FmtJPEG
}

// SupportedExtension reports whether path has an extension of a handled
// format.
func SupportedExtension(path string) bool {
	_, ok := extMap[strings.ToLower(filepath.Ext(path))]
	return ok
}
