package ifd

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/ifex-photo/ifex/core/tags"
)

// RationalDenominator is the fixed denominator used when encoding a
// decimal as an unsigned RATIONAL.
const RationalDenominator = 1000

var le = binary.LittleEndian

// ASCII builds a NUL-terminated ASCII entry. The text is NFC-normalised
// first so that equivalent strings produce identical bytes.
func ASCII(tag tags.ID, s string) Entry {
	s = norm.NFC.String(s)
	v := make([]byte, len(s)+1)
	copy(v, s)
	return Entry{Tag: tag, Type: tags.Ascii, Count: uint32(len(v)), Value: v}
}

// Short builds a single-valued SHORT entry. Values are clamped to
// [0, 65535].
func Short(tag tags.ID, v int64) Entry {
	b := make([]byte, 2)
	le.PutUint16(b, SaturateShort(v))
	return Entry{Tag: tag, Type: tags.Short, Count: 1, Value: b}
}

// Long builds a single-valued LONG entry. Values are clamped to
// [0, 2^32-1].
func Long(tag tags.ID, v int64) Entry {
	b := make([]byte, 4)
	le.PutUint32(b, SaturateLong(v))
	return Entry{Tag: tag, Type: tags.Long, Count: 1, Value: b}
}

// Rational builds a single-valued RATIONAL entry from a decimal.
func Rational(tag tags.ID, d float64) (Entry, error) {
	num, den, err := EncodeRational(d)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "tag %#04x", tag)
	}
	b := make([]byte, 8)
	le.PutUint32(b[0:], num)
	le.PutUint32(b[4:], den)
	return Entry{Tag: tag, Type: tags.Rational, Count: 1, Value: b}, nil
}

// SaturateShort clamps v into the SHORT range.
func SaturateShort(v int64) uint16 {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint16:
		return math.MaxUint16
	}
	return uint16(v)
}

// SaturateLong clamps v into the LONG range.
func SaturateLong(v int64) uint32 {
	switch {
	case v < 0:
		return 0
	case v > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(v)
}

// EncodeRational converts d to round(d*1000)/1000. Negative, non-finite and
// too large values are rejected.
func EncodeRational(d float64) (num, den uint32, err error) {
	if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		return 0, 0, errors.Wrapf(ErrValueOutOfRange, "rational %v", d)
	}
	scaled := math.Round(d * RationalDenominator)
	if scaled > math.MaxUint32 {
		return 0, 0, errors.Wrapf(ErrValueOutOfRange, "rational %v", d)
	}
	return uint32(scaled), RationalDenominator, nil
}

// Text returns the value of an ASCII entry up to the first NUL.
func (e Entry) Text() string {
	if e.Type != tags.Ascii {
		return ""
	}
	v := e.Value
	if i := bytes.IndexByte(v, 0); i >= 0 {
		v = v[:i]
	}
	return string(v)
}

// Shorts decodes a SHORT entry.
func (e Entry) Shorts() []uint16 {
	if e.Type != tags.Short {
		return nil
	}
	out := make([]uint16, len(e.Value)/2)
	for i := range out {
		out[i] = le.Uint16(e.Value[2*i:])
	}
	return out
}

// Longs decodes a LONG entry.
func (e Entry) Longs() []uint32 {
	if e.Type != tags.Long {
		return nil
	}
	out := make([]uint32, len(e.Value)/4)
	for i := range out {
		out[i] = le.Uint32(e.Value[4*i:])
	}
	return out
}

// Rationals decodes a RATIONAL entry into numerator/denominator pairs.
func (e Entry) Rationals() [][2]uint32 {
	if e.Type != tags.Rational {
		return nil
	}
	out := make([][2]uint32, len(e.Value)/8)
	for i := range out {
		out[i] = [2]uint32{le.Uint32(e.Value[8*i:]), le.Uint32(e.Value[8*i+4:])}
	}
	return out
}

// SRationals decodes an SRATIONAL entry.
func (e Entry) SRationals() [][2]int32 {
	if e.Type != tags.SRational {
		return nil
	}
	out := make([][2]int32, len(e.Value)/8)
	for i := range out {
		out[i] = [2]int32{int32(le.Uint32(e.Value[8*i:])), int32(le.Uint32(e.Value[8*i+4:]))}
	}
	return out
}

// SShorts decodes an SSHORT entry.
func (e Entry) SShorts() []int16 {
	if e.Type != tags.SShort {
		return nil
	}
	out := make([]int16, len(e.Value)/2)
	for i := range out {
		out[i] = int16(le.Uint16(e.Value[2*i:]))
	}
	return out
}

// SLongs decodes an SLONG entry.
func (e Entry) SLongs() []int32 {
	if e.Type != tags.SLong {
		return nil
	}
	out := make([]int32, len(e.Value)/4)
	for i := range out {
		out[i] = int32(le.Uint32(e.Value[4*i:]))
	}
	return out
}

// Floats decodes a FLOAT entry.
func (e Entry) Floats() []float32 {
	if e.Type != tags.Float {
		return nil
	}
	out := make([]float32, len(e.Value)/4)
	for i := range out {
		out[i] = math.Float32frombits(le.Uint32(e.Value[4*i:]))
	}
	return out
}

// Doubles decodes a DOUBLE entry.
func (e Entry) Doubles() []float64 {
	if e.Type != tags.Double {
		return nil
	}
	out := make([]float64, len(e.Value)/8)
	for i := range out {
		out[i] = math.Float64frombits(le.Uint64(e.Value[8*i:]))
	}
	return out
}

// Uint returns the first element of a SHORT, LONG or BYTE entry.
func (e Entry) Uint() (uint32, bool) {
	switch e.Type {
	case tags.Byte:
		if len(e.Value) > 0 {
			return uint32(e.Value[0]), true
		}
	case tags.Short:
		if s := e.Shorts(); len(s) > 0 {
			return uint32(s[0]), true
		}
	case tags.Long:
		if l := e.Longs(); len(l) > 0 {
			return l[0], true
		}
	}
	return 0, false
}
