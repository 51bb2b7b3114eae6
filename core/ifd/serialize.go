package ifd

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/ifex-photo/ifex/core/tags"
)

// Serialize writes entries as a little-endian TIFF block. Entries are
// stably sorted by tag; when a tag repeats within a directory, the last
// occurrence wins.
//
// Entries marked for the GPS directory are written as a sub-directory that
// follows IFD0's overflow, and IFD0 gains a GPSInfo pointer to it. Pointer
// tags cannot be passed in: their offsets would not survive the new layout.
//
// Layout happens in two passes. The first fixes the size of everything
// before the overflow area (header, count, entry table, next-IFD word),
// which makes every overflow offset known before any entry is written.
// Overflow payloads are laid out in tag order, each padded to an even
// length.
func Serialize(entries []Entry) ([]byte, error) {
	var main, gps []Entry
	for _, e := range Normalize(entries) {
		if tags.IsPointer(e.Tag) {
			return nil, errors.Wrapf(ErrPointerTag, "%s", tags.DisplayName(e.Tag))
		}
		if err := e.validate(); err != nil {
			return nil, err
		}
		if e.InGPS() {
			gps = append(gps, e)
		} else {
			main = append(main, e)
		}
	}
	if len(gps) > 0 {
		// The real offset is filled in once IFD0's size is known.
		main = append(main, Long(tags.GPSIFDPointer, 0))
		sort.SliceStable(main, func(i, j int) bool { return main[i].Tag < main[j].Tag })
	}
	if len(main) > math.MaxUint16 || len(gps) > math.MaxUint16 {
		return nil, errors.Wrapf(ErrTooManyEntries, "%d + %d entries", len(main), len(gps))
	}

	fixed := uint64(headerSize) + directorySize(len(main))
	gpsAt := fixed + overflowSize(main)
	total := gpsAt
	if len(gps) > 0 {
		total += directorySize(len(gps)) + overflowSize(gps)
	}
	if total > math.MaxUint32 {
		return nil, errors.Wrapf(ErrValueOutOfRange, "directory of %d bytes", total)
	}
	for i := range main {
		if main[i].Tag == tags.GPSIFDPointer {
			main[i] = Long(tags.GPSIFDPointer, int64(gpsAt))
		}
	}

	out := make([]byte, headerSize, total)
	copy(out, "II")
	le.PutUint16(out[2:], magic)
	le.PutUint32(out[4:], headerSize)
	out = appendDirectory(out, main)
	if len(gps) > 0 {
		out = appendDirectory(out, gps)
	}

	codecLogger.Debugf(nil, "Serialized (%d) entries and (%d) GPS entries into (%d) bytes.", len(main), len(gps), len(out))
	return out, nil
}

// appendDirectory writes one directory at the end of out followed by its
// overflow. Offsets are absolute, taken from the current length of out.
func appendDirectory(out []byte, entries []Entry) []byte {
	at := len(out)
	overflowAt := uint32(uint64(at) + directorySize(len(entries)))
	out = append(out, make([]byte, directorySize(len(entries)))...)
	le.PutUint16(out[at:], uint16(len(entries)))

	var overflow []byte
	for i, e := range entries {
		rec := out[at+2+entrySize*i:]
		le.PutUint16(rec[0:], uint16(e.Tag))
		le.PutUint16(rec[2:], uint16(e.Type))
		le.PutUint32(rec[4:], e.Count)
		if e.Inline() {
			copy(rec[8:12], e.Value)
			continue
		}
		le.PutUint32(rec[8:], overflowAt+uint32(len(overflow)))
		overflow = append(overflow, e.Value...)
		if len(e.Value)%2 == 1 {
			overflow = append(overflow, 0)
		}
	}
	// Next-IFD offset is left zero.
	return append(out, overflow...)
}

func directorySize(n int) uint64 {
	return uint64(2 + entrySize*n + 4)
}

func overflowSize(entries []Entry) uint64 {
	var n uint64
	for _, e := range entries {
		if !e.Inline() {
			n += padded(e.PayloadSize())
		}
	}
	return n
}

// Normalize returns entries stably sorted by tag, IFD0 entries before GPS
// ones, with duplicates collapsed to their last occurrence within each
// directory. The input is not modified.
func Normalize(entries []Entry) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if a, b := sorted[i].InGPS(), sorted[j].InGPS(); a != b {
			return b
		}
		return sorted[i].Tag < sorted[j].Tag
	})

	out := sorted[:0]
	for i, e := range sorted {
		if i+1 < len(sorted) && sorted[i+1].Tag == e.Tag && sorted[i+1].InGPS() == e.InGPS() {
			continue
		}
		out = append(out, e)
	}
	return out
}

func padded(n uint64) uint64 {
	return n + n%2
}
