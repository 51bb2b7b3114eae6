// Package jpeg locates, replaces and removes metadata segments in a JPEG
// byte stream without touching the entropy-coded image data.
package jpeg

import (
	"bytes"
	"encoding/binary"

	log "github.com/dsoprea/go-logging"
	"github.com/pkg/errors"
)

const (
	markerSOI   = 0xD8
	markerEOI   = 0xD9
	markerTEM   = 0x01
	markerRST0  = 0xD0
	markerRST7  = 0xD7
	markerSOS   = 0xDA
	markerAPP0  = 0xE0
	markerAPP1  = 0xE1
	markerAPP13 = 0xED

	// MaxSegmentPayload is the largest payload a segment's 16-bit length
	// field can describe (the length counts itself).
	MaxSegmentPayload = 0xFFFF - 2
)

// ExifHeader prefixes the TIFF block inside an EXIF APP1 segment.
var ExifHeader = []byte("Exif\x00\x00")

// XMPHeader prefixes the XMP packet inside an XMP APP1 segment.
var XMPHeader = []byte("http://ns.adobe.com/xap/1.0/\x00")

var containerLogger = log.NewLogger("ifex.jpeg")

var (
	// ErrNotAContainer means the stream does not start with SOI.
	ErrNotAContainer = errors.New("jpeg: not a JPEG stream")
	// ErrTruncatedSegment means a segment's declared length runs past the
	// end of the stream or is shorter than its own length field.
	ErrTruncatedSegment = errors.New("jpeg: truncated segment")
	// ErrSegmentTooLarge means a payload does not fit a 16-bit segment length.
	ErrSegmentTooLarge = errors.New("jpeg: segment too large")
	// ErrBadMarker means a byte other than 0xFF was found where a marker
	// was expected.
	ErrBadMarker = errors.New("jpeg: expected marker")
)

// EraseMode selects which segments Erase removes.
type EraseMode int

const (
	// EraseExif removes EXIF APP1 segments only.
	EraseExif EraseMode = iota
	// EraseAll removes every APP1 (EXIF and XMP) and APP0 (JFIF) segment.
	EraseAll
)

type segment struct {
	marker byte
	data   []byte // payload after the length field; nil for standalone markers
}

func (s segment) standalone() bool {
	return isStandalone(s.marker)
}

func (s segment) isExif() bool {
	return s.marker == markerAPP1 && bytes.HasPrefix(s.data, ExifHeader)
}

func (s segment) isXMP() bool {
	return s.marker == markerAPP1 && bytes.HasPrefix(s.data, XMPHeader)
}

func isStandalone(m byte) bool {
	return m == markerSOI || m == markerEOI || m == markerTEM || (m >= markerRST0 && m <= markerRST7)
}

// stream is a JPEG split into its header segments and everything from SOS
// (or EOI) onward, which is carried verbatim.
type stream struct {
	segments []segment
	tail     []byte
}

func parse(data []byte) (*stream, error) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != markerSOI {
		return nil, ErrNotAContainer
	}
	s := &stream{}

	i := 2
	for i < len(data) {
		start := i
		if data[i] != 0xFF {
			return nil, errors.Wrapf(ErrBadMarker, "offset %d has %#02x", i, data[i])
		}
		// Any number of 0xFF fill bytes may precede a marker.
		for i < len(data) && data[i] == 0xFF {
			i++
		}
		if i >= len(data) {
			return nil, errors.Wrapf(ErrTruncatedSegment, "marker at %d", start)
		}
		marker := data[i]
		i++

		if marker == markerSOS || marker == markerEOI {
			s.tail = data[i-2:]
			return s, nil
		}
		if isStandalone(marker) {
			s.segments = append(s.segments, segment{marker: marker})
			continue
		}

		if i+2 > len(data) {
			return nil, errors.Wrapf(ErrTruncatedSegment, "length of %#02x at %d", marker, start)
		}
		length := int(binary.BigEndian.Uint16(data[i:]))
		if length < 2 || i+length > len(data) {
			return nil, errors.Wrapf(ErrTruncatedSegment, "segment %#02x at %d declares %d bytes", marker, start, length)
		}
		s.segments = append(s.segments, segment{marker: marker, data: data[i+2 : i+length]})
		i += length
	}

	containerLogger.Debugf(nil, "Stream ended without SOS or EOI after (%d) segments.", len(s.segments))
	return s, nil
}

func (s *stream) bytes() ([]byte, error) {
	size := 2 + len(s.tail)
	for _, seg := range s.segments {
		size += 2
		if !seg.standalone() {
			size += 2 + len(seg.data)
		}
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.Write([]byte{0xFF, markerSOI})
	for _, seg := range s.segments {
		buf.Write([]byte{0xFF, seg.marker})
		if seg.standalone() {
			continue
		}
		if len(seg.data) > MaxSegmentPayload {
			return nil, errors.Wrapf(ErrSegmentTooLarge, "segment %#02x has %d bytes", seg.marker, len(seg.data))
		}
		var length [2]byte
		binary.BigEndian.PutUint16(length[:], uint16(len(seg.data)+2))
		buf.Write(length[:])
		buf.Write(seg.data)
	}
	buf.Write(s.tail)
	return buf.Bytes(), nil
}

// LocateAndReplace finds the first EXIF APP1 segment in container, passes
// its TIFF block to fn (nil when there is none) and writes fn's result
// back as the segment's new TIFF block. When the container has no EXIF
// segment a new one is inserted after SOI and any leading APP0 segments.
// All other bytes, the scan data in particular, are copied unchanged.
func LocateAndReplace(container []byte, fn func(existing []byte) ([]byte, error)) ([]byte, error) {
	s, err := parse(container)
	if err != nil {
		return nil, err
	}

	at := -1
	var existing []byte
	for i, seg := range s.segments {
		if seg.isExif() {
			at = i
			existing = seg.data[len(ExifHeader):]
			break
		}
	}

	tiff, err := fn(existing)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 0, len(ExifHeader)+len(tiff))
	payload = append(payload, ExifHeader...)
	payload = append(payload, tiff...)
	if len(payload) > MaxSegmentPayload {
		return nil, errors.Wrapf(ErrSegmentTooLarge, "EXIF payload of %d bytes", len(payload))
	}

	seg := segment{marker: markerAPP1, data: payload}
	if at >= 0 {
		s.segments[at] = seg
	} else {
		at = 0
		for at < len(s.segments) && s.segments[at].marker == markerAPP0 {
			at++
		}
		s.segments = append(s.segments, segment{})
		copy(s.segments[at+1:], s.segments[at:])
		s.segments[at] = seg
		containerLogger.Debugf(nil, "Inserted EXIF segment at position (%d).", at)
	}
	return s.bytes()
}

// Erase returns container without the segments selected by mode.
func Erase(container []byte, mode EraseMode) ([]byte, error) {
	s, err := parse(container)
	if err != nil {
		return nil, err
	}
	kept := s.segments[:0:0]
	for _, seg := range s.segments {
		switch {
		case seg.isExif():
			continue
		case mode == EraseAll && (seg.marker == markerAPP1 || seg.marker == markerAPP0):
			continue
		}
		kept = append(kept, seg)
	}
	containerLogger.Debugf(nil, "Erase removed (%d) segments.", len(s.segments)-len(kept))
	s.segments = kept
	return s.bytes()
}

// ExifPayload returns the TIFF block of the first EXIF APP1 segment.
func ExifPayload(container []byte) ([]byte, bool, error) {
	s, err := parse(container)
	if err != nil {
		return nil, false, err
	}
	for _, seg := range s.segments {
		if seg.isExif() {
			return seg.data[len(ExifHeader):], true, nil
		}
	}
	return nil, false, nil
}

// XMPPacket returns the XMP packet of the first XMP APP1 segment.
func XMPPacket(container []byte) ([]byte, bool, error) {
	s, err := parse(container)
	if err != nil {
		return nil, false, err
	}
	for _, seg := range s.segments {
		if seg.isXMP() {
			return seg.data[len(XMPHeader):], true, nil
		}
	}
	return nil, false, nil
}
