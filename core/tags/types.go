// Package tags is the static registry of TIFF/EXIF tag identifiers, their
// field types and the names used to display and address them.
package tags

import "strconv"

// ID is a TIFF/EXIF tag number.
type ID uint16

// FieldType is the TIFF data type stored in a directory entry.
type FieldType uint16

const (
	Byte      FieldType = 1
	Ascii     FieldType = 2
	Short     FieldType = 3
	Long      FieldType = 4
	Rational  FieldType = 5
	SByte     FieldType = 6
	Undefined FieldType = 7
	SShort    FieldType = 8
	SLong     FieldType = 9
	SRational FieldType = 10
	Float     FieldType = 11
	Double    FieldType = 12
)

var typeSizes = [...]uint32{
	Byte:      1,
	Ascii:     1,
	Short:     2,
	Long:      4,
	Rational:  8,
	SByte:     1,
	Undefined: 1,
	SShort:    2,
	SLong:     4,
	SRational: 8,
	Float:     4,
	Double:    8,
}

var typeNames = [...]string{
	Byte:      "BYTE",
	Ascii:     "ASCII",
	Short:     "SHORT",
	Long:      "LONG",
	Rational:  "RATIONAL",
	SByte:     "SBYTE",
	Undefined: "UNDEFINED",
	SShort:    "SSHORT",
	SLong:     "SLONG",
	SRational: "SRATIONAL",
	Float:     "FLOAT",
	Double:    "DOUBLE",
}

// Known reports whether t is one of the twelve TIFF 6.0 types.
func (t FieldType) Known() bool {
	return t >= Byte && t <= Double
}

// Size returns the width in bytes of one element of type t, or 0 when the
// type is unknown.
func (t FieldType) Size() uint32 {
	if !t.Known() {
		return 0
	}
	return typeSizes[t]
}

func (t FieldType) String() string {
	if !t.Known() {
		return "UNKNOWN(" + strconv.Itoa(int(t)) + ")"
	}
	return typeNames[t]
}

// TypeSize is the functional form of FieldType.Size.
func TypeSize(t FieldType) uint32 { return t.Size() }

// Namespace groups tags by the directory they belong to in a camera file.
type Namespace uint8

const (
	IFD0 Namespace = iota
	ExifIFD
	GPSIFD
)

// Info describes one registry entry.
type Info struct {
	ID        ID
	Name      string    // semantic key, e.g. "FocalLength"
	Display   string    // human readable, e.g. "Focal Length"
	Type      FieldType // type written for this tag
	Namespace Namespace
	XMP       string // XMP property (prefix:Local) used in sidecars, "" if none
	Writable  bool   // accepted as a FieldSet key
}
