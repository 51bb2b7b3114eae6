// Package ifd reads and writes TIFF Image File Directories: the binary
// structure that carries EXIF metadata in JPEG APP1 segments and at the
// head of TIFF/DNG files.
//
// Layout produced by Serialize (all offsets relative to the TIFF header):
//
//	"II" 0x002A 0x00000008     TIFF header, little-endian, IFD0 at 8
//	<n>                        2-byte entry count
//	{ entry } * n              12 bytes each, ascending tag order
//	0x00000000                 next IFD offset (no chain is emitted)
//	<overflow>                 payloads larger than 4 bytes, word aligned
//	[GPS directory]            count, entries, zero next offset, then its
//	                           own overflow; present only with GPS entries
//
// Each entry is tag(2) type(2) count(4) value-or-offset(4). When GPS
// entries are present IFD0 carries a GPSInfo (0x8825) entry pointing at
// the GPS directory.
package ifd

import (
	"encoding/binary"

	log "github.com/dsoprea/go-logging"
	"github.com/pkg/errors"

	"github.com/ifex-photo/ifex/core/tags"
)

const (
	headerSize = 8
	entrySize  = 12
	slotSize   = 4
	magic      = 0x002A
)

var codecLogger = log.NewLogger("ifex.ifd")

var (
	// ErrInvalidHeader means the buffer does not start with a TIFF header.
	ErrInvalidHeader = errors.New("ifd: invalid TIFF header")
	// ErrTruncatedPayload means a directory or payload lies beyond the buffer.
	ErrTruncatedPayload = errors.New("ifd: truncated payload")
	// ErrDirectoryLoop means two directories point at each other.
	ErrDirectoryLoop = errors.New("ifd: directory loop")
	// ErrTooManyEntries means the entry count does not fit in 16 bits.
	ErrTooManyEntries = errors.New("ifd: too many entries")
	// ErrPayloadMismatch means an entry's payload length disagrees with
	// count times the element size of its type.
	ErrPayloadMismatch = errors.New("ifd: payload does not match count")
	// ErrValueOutOfRange means a number cannot be represented in the tag's type.
	ErrValueOutOfRange = errors.New("ifd: value out of range")
	// ErrPointerTag means a sub-IFD pointer was passed in as a plain entry.
	// Serialize writes the only pointer it emits itself.
	ErrPointerTag = errors.New("ifd: sub-IFD pointer given as an entry")
)

// Entry is one directory entry. For the twelve TIFF types Value holds the
// complete payload in little-endian order. For any other type the entry is
// opaque: Value is the raw 4-byte value slot exactly as it was read, in the
// source's byte order. An opaque entry parsed from a big-endian block is
// therefore written back with big-endian slot bytes under an "II" header.
//
// Dir is tags.GPSIFD for entries that live in the GPS sub-directory. Any
// other value places the entry in IFD0.
type Entry struct {
	Tag   tags.ID
	Type  tags.FieldType
	Count uint32
	Value []byte
	Dir   tags.Namespace
}

// InGPS reports whether the entry belongs to the GPS sub-directory.
func (e Entry) InGPS() bool {
	return e.Dir == tags.GPSIFD
}

// Opaque reports whether the entry's type is not understood by the codec.
func (e Entry) Opaque() bool {
	return !e.Type.Known()
}

// PayloadSize is the number of bytes the value occupies once encoded.
func (e Entry) PayloadSize() uint64 {
	if e.Opaque() {
		return slotSize
	}
	return uint64(e.Count) * uint64(e.Type.Size())
}

// Inline reports whether the value fits in the entry's 4-byte slot.
func (e Entry) Inline() bool {
	return e.PayloadSize() <= slotSize
}

func (e Entry) validate() error {
	if uint64(len(e.Value)) != e.PayloadSize() {
		return errors.Wrapf(ErrPayloadMismatch, "tag %#04x %s count %d has %d bytes",
			e.Tag, e.Type, e.Count, len(e.Value))
	}
	return nil
}

// Directory is the result of parsing a TIFF block.
type Directory struct {
	// ByteOrder is the order the source was written in. Entry values are
	// always little-endian regardless.
	ByteOrder binary.ByteOrder
	Entries   []Entry
}

// Len returns the number of entries; a nil Directory has none.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Entries)
}

// Get returns the last entry carrying tag, in either directory.
func (d *Directory) Get(tag tags.ID) (Entry, bool) {
	if d == nil {
		return Entry{}, false
	}
	for i := len(d.Entries) - 1; i >= 0; i-- {
		if d.Entries[i].Tag == tag {
			return d.Entries[i], true
		}
	}
	return Entry{}, false
}
