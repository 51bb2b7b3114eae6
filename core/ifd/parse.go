package ifd

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/ifex-photo/ifex/core/tags"
)

// ifdType is the TIFF-EP "IFD" type some writers use for sub-IFD pointers.
const ifdType tags.FieldType = 13

// Parse decodes the TIFF block in buf, which must start at the byte order
// marker. An empty buf means there is no metadata and yields (nil, nil).
//
// The Exif sub-IFD referenced from IFD0 is flattened into the returned
// entry list. GPS entries are returned too, marked with Dir set to
// tags.GPSIFD so Serialize can put them back in their own directory.
// Pointer entries themselves are dropped. The Interoperability sub-IFD and
// any IFD1 thumbnail are not carried.
func Parse(buf []byte) (*Directory, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	order, first, err := readHeader(buf)
	if err != nil {
		return nil, err
	}

	p := parser{buf: buf, order: order, visited: make(map[uint32]bool)}
	entries, err := p.directory(first, tags.IFD0)
	if err != nil {
		return nil, err
	}
	return &Directory{ByteOrder: order, Entries: entries}, nil
}

func readHeader(buf []byte) (binary.ByteOrder, uint32, error) {
	if len(buf) < headerSize {
		return nil, 0, errors.Wrapf(ErrInvalidHeader, "%d bytes", len(buf))
	}
	var order binary.ByteOrder
	switch {
	case bytes.Equal(buf[:2], []byte("II")):
		order = binary.LittleEndian
	case bytes.Equal(buf[:2], []byte("MM")):
		order = binary.BigEndian
	default:
		return nil, 0, errors.Wrapf(ErrInvalidHeader, "byte order % x", buf[:2])
	}
	if m := order.Uint16(buf[2:4]); m != magic {
		return nil, 0, errors.Wrapf(ErrInvalidHeader, "magic %#04x", m)
	}
	return order, order.Uint32(buf[4:8]), nil
}

type parser struct {
	buf     []byte
	order   binary.ByteOrder
	visited map[uint32]bool
}

func (p *parser) directory(offset uint32, ns tags.Namespace) ([]Entry, error) {
	if p.visited[offset] {
		return nil, errors.Wrapf(ErrDirectoryLoop, "offset %d", offset)
	}
	p.visited[offset] = true

	size := uint64(len(p.buf))
	if uint64(offset)+2 > size {
		return nil, errors.Wrapf(ErrTruncatedPayload, "directory at %d", offset)
	}
	n := uint64(p.order.Uint16(p.buf[offset:]))
	start := uint64(offset) + 2
	if start+n*entrySize > size {
		return nil, errors.Wrapf(ErrTruncatedPayload, "%d entries at %d", n, offset)
	}

	dir := tags.IFD0
	if ns == tags.GPSIFD {
		dir = tags.GPSIFD
	}

	entries := make([]Entry, 0, n)
	for i := uint64(0); i < n; i++ {
		rec := p.buf[start+i*entrySize : start+(i+1)*entrySize]
		tag := tags.ID(p.order.Uint16(rec[0:2]))
		typ := tags.FieldType(p.order.Uint16(rec[2:4]))
		count := p.order.Uint32(rec[4:8])
		slot := rec[8:12]

		if tags.IsPointer(tag) && count == 1 && (typ == tags.Long || typ == ifdType) {
			sub, err := p.pointer(tag, p.order.Uint32(slot), ns)
			if err != nil {
				return nil, err
			}
			entries = append(entries, sub...)
			continue
		}

		if !typ.Known() {
			codecLogger.Debugf(nil, "Tag (%#04x) has unsupported type (%d); kept opaque.", tag, typ)
			if p.order == binary.BigEndian {
				codecLogger.Debugf(nil, "Tag (%#04x) slot kept in big-endian order; it will be written unswapped.", tag)
			}
			entries = append(entries, Entry{Tag: tag, Type: typ, Count: count, Value: clone(slot), Dir: dir})
			continue
		}

		length := uint64(count) * uint64(typ.Size())
		var raw []byte
		if length <= slotSize {
			raw = slot[:length]
		} else {
			at := uint64(p.order.Uint32(slot))
			if at+length > size {
				return nil, errors.Wrapf(ErrTruncatedPayload,
					"tag %#04x wants %d bytes at %d, buffer has %d", tag, length, at, size)
			}
			raw = p.buf[at : at+length]
		}
		entries = append(entries, Entry{Tag: tag, Type: typ, Count: count, Value: toLittleEndian(raw, typ, p.order), Dir: dir})
	}
	return entries, nil
}

func (p *parser) pointer(tag tags.ID, offset uint32, ns tags.Namespace) ([]Entry, error) {
	switch {
	case ns == tags.IFD0 && tag == tags.ExifIFDPointer:
		return p.directory(offset, tags.ExifIFD)
	case ns == tags.IFD0 && tag == tags.GPSIFDPointer:
		return p.directory(offset, tags.GPSIFD)
	}
	codecLogger.Debugf(nil, "Sub-IFD (%s) at (%d) not carried.", tags.DisplayName(tag), offset)
	return nil, nil
}

// toLittleEndian copies raw, swapping each element when the source is
// big-endian.
func toLittleEndian(raw []byte, typ tags.FieldType, order binary.ByteOrder) []byte {
	out := clone(raw)
	if order == binary.LittleEndian {
		return out
	}
	width := int(typ.Size())
	switch typ {
	case tags.Rational, tags.SRational:
		width = 4
	case tags.Byte, tags.SByte, tags.Ascii, tags.Undefined:
		return out
	}
	for i := 0; i+width <= len(out); i += width {
		for l, r := i, i+width-1; l < r; l, r = l+1, r-1 {
			out[l], out[r] = out[r], out[l]
		}
	}
	return out
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
