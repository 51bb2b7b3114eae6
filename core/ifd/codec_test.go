package ifd

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/ifex-photo/ifex/core/tags"
)

const orientation tags.ID = 0x0112

type rec struct {
	tag   tags.ID
	typ   tags.FieldType
	count uint32
	slot  [4]byte
}

func tiffHeader(order binary.ByteOrder) []byte {
	b := make([]byte, 8)
	if order == binary.LittleEndian {
		copy(b, "II")
	} else {
		copy(b, "MM")
	}
	order.PutUint16(b[2:], 42)
	order.PutUint32(b[4:], 8)
	return b
}

func appendIFD(b []byte, order binary.ByteOrder, recs ...rec) []byte {
	n := make([]byte, 2)
	order.PutUint16(n, uint16(len(recs)))
	b = append(b, n...)
	for _, r := range recs {
		e := make([]byte, 12)
		order.PutUint16(e[0:], uint16(r.tag))
		order.PutUint16(e[2:], uint16(r.typ))
		order.PutUint32(e[4:], r.count)
		copy(e[8:], r.slot[:])
		b = append(b, e...)
	}
	return append(b, 0, 0, 0, 0)
}

func slot16(order binary.ByteOrder, v uint16) (s [4]byte) {
	order.PutUint16(s[:], v)
	return s
}

func slot32(order binary.ByteOrder, v uint32) (s [4]byte) {
	order.PutUint32(s[:], v)
	return s
}

func mustRational(t *testing.T, tag tags.ID, d float64) Entry {
	t.Helper()
	e, err := Rational(tag, d)
	if err != nil {
		t.Fatalf("Rational(%v): %v", d, err)
	}
	return e
}

func TestSerializeLayout(t *testing.T) {
	out, err := Serialize([]Entry{ASCII(tags.Model, "M7"), ASCII(tags.Make, "Leica")})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out[:8], []byte{'I', 'I', 0x2A, 0, 8, 0, 0, 0}) {
		t.Fatalf("header = % x", out[:8])
	}
	if n := le.Uint16(out[8:]); n != 2 {
		t.Fatalf("entry count = %d", n)
	}
	if tag := le.Uint16(out[10:]); tag != uint16(tags.Make) {
		t.Errorf("first tag = %#04x, want Make", tag)
	}
	if tag := le.Uint16(out[22:]); tag != uint16(tags.Model) {
		t.Errorf("second tag = %#04x, want Model", tag)
	}
	// Make's 6 bytes overflow right after the fixed part; Model's 3 are inline.
	const fixed = 8 + 2 + 12*2 + 4
	if off := le.Uint32(out[18:]); off != fixed {
		t.Errorf("Make offset = %d, want %d", off, fixed)
	}
	if !bytes.Equal(out[30:34], []byte{'M', '7', 0, 0}) {
		t.Errorf("Model slot = % x", out[30:34])
	}
	if next := le.Uint32(out[34:]); next != 0 {
		t.Errorf("next IFD = %d", next)
	}
	if string(out[fixed:]) != "Leica\x00" {
		t.Errorf("overflow = %q", out[fixed:])
	}
}

func TestOverflowIsWordAligned(t *testing.T) {
	out, err := Serialize([]Entry{ASCII(tags.Make, "Canon"), ASCII(tags.Artist, "Daniel")})
	if err != nil {
		t.Fatal(err)
	}
	makeOff := le.Uint32(out[18:])
	artistOff := le.Uint32(out[30:])
	if makeOff%2 != 0 || artistOff%2 != 0 {
		t.Errorf("offsets %d, %d not even", makeOff, artistOff)
	}
	// "Canon\0" is 6 bytes, "Daniel\0" is 7 and gets one pad byte.
	if artistOff != makeOff+6 || len(out) != int(artistOff)+8 {
		t.Errorf("unexpected overflow layout: make=%d artist=%d len=%d", makeOff, artistOff, len(out))
	}
}

func rationals(tag tags.ID, v ...uint32) Entry {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		le.PutUint32(b[4*i:], x)
	}
	return Entry{Tag: tag, Type: tags.Rational, Count: uint32(len(v) / 2), Value: b}
}

func gpsEntry(e Entry) Entry {
	e.Dir = tags.GPSIFD
	return e
}

func TestRoundTripIsIdempotent(t *testing.T) {
	in := []Entry{
		ASCII(tags.Make, "Leica"),
		ASCII(tags.Model, "M7"),
		ASCII(tags.Artist, "Daniel"),
		ASCII(tags.ImageDescription, "Kodak Portra 400"),
		mustRational(t, tags.FocalLength, 35),
		mustRational(t, tags.FNumber, 2.8),
		Short(tags.ISOSpeedRatings, 400),
		Long(tags.ISOSpeed, 400),
		gpsEntry(ASCII(tags.GPSLatitudeRef, "N")),
		gpsEntry(rationals(tags.GPSLatitude, 45, 1, 30, 1, 0, 1)),
	}
	first, err := Serialize(in)
	if err != nil {
		t.Fatal(err)
	}
	dir, err := Parse(first)
	if err != nil {
		t.Fatal(err)
	}
	if dir.Len() != len(in) {
		t.Fatalf("parsed %d entries, want %d", dir.Len(), len(in))
	}
	last := map[bool]tags.ID{}
	for _, e := range dir.Entries {
		if prev, ok := last[e.InGPS()]; ok && prev >= e.Tag {
			t.Fatalf("tags not strictly ascending at %#04x", e.Tag)
		}
		last[e.InGPS()] = e.Tag
	}
	second, err := Serialize(dir.Entries)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("serialize(parse(serialize(x))) differs from serialize(x)")
	}

	// A pointer passed in as a value would point at the wrong place once
	// written, so it is refused rather than round-tripped.
	_, err = Serialize([]Entry{ASCII(tags.Make, "Leica"), Long(tags.ExifIFDPointer, 8)})
	if !errors.Is(err, ErrPointerTag) {
		t.Fatalf("Exif pointer entry: error = %v", err)
	}
}

func TestSerializeRejectsPointerTags(t *testing.T) {
	for _, id := range []tags.ID{tags.ExifIFDPointer, tags.GPSIFDPointer, tags.InteropIFDPointer} {
		if _, err := Serialize([]Entry{Long(id, 26)}); !errors.Is(err, ErrPointerTag) {
			t.Errorf("%#04x: error = %v", id, err)
		}
		if _, err := Serialize([]Entry{gpsEntry(Long(id, 26))}); !errors.Is(err, ErrPointerTag) {
			t.Errorf("%#04x in GPS: error = %v", id, err)
		}
	}
}

func TestLastDuplicateWins(t *testing.T) {
	out, err := Serialize([]Entry{
		ASCII(tags.Make, "A"),
		ASCII(tags.Model, "B"),
		ASCII(tags.Make, "C"),
	})
	if err != nil {
		t.Fatal(err)
	}
	dir, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	if dir.Len() != 2 {
		t.Fatalf("got %d entries", dir.Len())
	}
	if e, _ := dir.Get(tags.Make); e.Text() != "C" {
		t.Errorf("Make = %q, want C", e.Text())
	}
}

func TestNormalizeLeavesInputAlone(t *testing.T) {
	in := []Entry{ASCII(tags.Model, "B"), ASCII(tags.Make, "A")}
	out := Normalize(in)
	if in[0].Tag != tags.Model || out[0].Tag != tags.Make {
		t.Fatalf("in[0]=%#04x out[0]=%#04x", in[0].Tag, out[0].Tag)
	}
}

func TestRationalIsExact(t *testing.T) {
	for _, tt := range []struct {
		in  float64
		num uint32
	}{
		{35, 35000},
		{2.8, 2800},
		{1.4, 1400},
		{50.0004, 50000},
	} {
		num, den, err := EncodeRational(tt.in)
		if err != nil {
			t.Fatalf("EncodeRational(%v): %v", tt.in, err)
		}
		if num != tt.num || den != RationalDenominator {
			t.Errorf("EncodeRational(%v) = %d/%d, want %d/1000", tt.in, num, den, tt.num)
		}
	}

	out, err := Serialize([]Entry{mustRational(t, tags.FocalLength, 35)})
	if err != nil {
		t.Fatal(err)
	}
	dir, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	e, _ := dir.Get(tags.FocalLength)
	r := e.Rationals()
	if len(r) != 1 || float64(r[0][0])/float64(r[0][1]) != 35.0 {
		t.Errorf("FocalLength decoded as %v", r)
	}
}

func TestRationalRejectsBadInput(t *testing.T) {
	for _, d := range []float64{-1, math.NaN(), math.Inf(1), 1e10} {
		if _, _, err := EncodeRational(d); !errors.Is(err, ErrValueOutOfRange) {
			t.Errorf("EncodeRational(%v) error = %v", d, err)
		}
	}
}

func TestSaturation(t *testing.T) {
	if got := Short(tags.ISOSpeedRatings, 100000).Shorts()[0]; got != 65535 {
		t.Errorf("ISO 100000 as SHORT = %d", got)
	}
	if got := Short(tags.ISOSpeedRatings, -5).Shorts()[0]; got != 0 {
		t.Errorf("ISO -5 as SHORT = %d", got)
	}
	if got := Long(tags.ISOSpeed, 1<<40).Longs()[0]; got != math.MaxUint32 {
		t.Errorf("LONG overflow = %d", got)
	}
	if got := Long(tags.ISOSpeed, 100000).Longs()[0]; got != 100000 {
		t.Errorf("ISO 100000 as LONG = %d", got)
	}
}

func TestParseEmptyIsNoMetadata(t *testing.T) {
	dir, err := Parse(nil)
	if err != nil || dir != nil {
		t.Fatalf("Parse(nil) = %v, %v", dir, err)
	}
	if dir.Len() != 0 {
		t.Fatal("nil directory should have no entries")
	}
}

func TestParseRejectsBadHeaders(t *testing.T) {
	for name, buf := range map[string][]byte{
		"short":      []byte("II*"),
		"order":      []byte("XX\x2a\x00\x08\x00\x00\x00"),
		"magic":      []byte("II\x2b\x00\x08\x00\x00\x00"),
		"magic (MM)": []byte("MM\x2a\x00\x00\x00\x00\x08"),
	} {
		if _, err := Parse(buf); !errors.Is(err, ErrInvalidHeader) {
			t.Errorf("%s: error = %v", name, err)
		}
	}
}

func TestParseTruncated(t *testing.T) {
	order := binary.LittleEndian

	// Payload offset beyond the buffer.
	buf := appendIFD(tiffHeader(order), order,
		rec{tags.Make, tags.Ascii, 20, slot32(order, 1000)})
	if _, err := Parse(buf); !errors.Is(err, ErrTruncatedPayload) {
		t.Errorf("bad payload offset: error = %v", err)
	}

	// Entry table cut short.
	buf = appendIFD(tiffHeader(order), order,
		rec{orientation, tags.Short, 1, slot16(order, 1)})
	buf = buf[:16]
	if _, err := Parse(buf); !errors.Is(err, ErrTruncatedPayload) {
		t.Errorf("short table: error = %v", err)
	}

	// First IFD offset past the end.
	buf = tiffHeader(order)
	order.PutUint32(buf[4:], 500)
	if _, err := Parse(buf); !errors.Is(err, ErrTruncatedPayload) {
		t.Errorf("bad IFD offset: error = %v", err)
	}
}

func TestUnknownTypeIsPreserved(t *testing.T) {
	order := binary.LittleEndian
	buf := appendIFD(tiffHeader(order), order,
		rec{tags.Make, tags.Ascii, 4, [4]byte{'S', 'o', 'n', 0}},
		rec{0xC0DE, 99, 7, [4]byte{1, 2, 3, 4}},
	)
	dir, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := dir.Get(0xC0DE)
	if !ok || !e.Opaque() {
		t.Fatalf("unknown entry missing or not opaque: %+v", e)
	}
	if e.Count != 7 || !bytes.Equal(e.Value, []byte{1, 2, 3, 4}) {
		t.Errorf("opaque entry = %+v", e)
	}
	if m, _ := dir.Get(tags.Make); m.Text() != "Son" {
		t.Errorf("Make = %q", m.Text())
	}

	out, err := Serialize(dir.Entries)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	e2, _ := again.Get(0xC0DE)
	if e2.Type != 99 || e2.Count != 7 || !bytes.Equal(e2.Value, e.Value) {
		t.Errorf("opaque entry after round trip = %+v", e2)
	}
}

func TestParseBigEndian(t *testing.T) {
	order := binary.BigEndian
	const tail = 8 + 2 + 12*2 + 4
	buf := appendIFD(tiffHeader(order), order,
		rec{orientation, tags.Short, 1, slot16(order, 6)},
		rec{0x011A, tags.Rational, 1, slot32(order, tail)},
	)
	r := make([]byte, 8)
	order.PutUint32(r[0:], 72)
	order.PutUint32(r[4:], 1)
	buf = append(buf, r...)

	dir, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	if dir.ByteOrder != binary.BigEndian {
		t.Error("byte order not recorded")
	}
	if e, _ := dir.Get(orientation); e.Shorts()[0] != 6 {
		t.Errorf("Orientation = %v", e.Shorts())
	}
	if e, _ := dir.Get(0x011A); e.Rationals()[0] != [2]uint32{72, 1} {
		t.Errorf("XResolution = %v", e.Rationals())
	}

	// Re-serialized output is little-endian and parses to the same values.
	out, err := Serialize(dir.Entries)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	if e, _ := again.Get(0x011A); e.Rationals()[0] != [2]uint32{72, 1} {
		t.Errorf("XResolution after rewrite = %v", e.Rationals())
	}
}

func TestSubIFDsAreFlattened(t *testing.T) {
	order := binary.LittleEndian
	const exifAt = 8 + 2 + 12*2 + 4
	buf := appendIFD(tiffHeader(order), order,
		rec{tags.Make, tags.Ascii, 4, [4]byte{'S', 'o', 'n', 0}},
		rec{tags.ExifIFDPointer, tags.Long, 1, slot32(order, exifAt)},
	)
	const interopAt = exifAt + 2 + 12*2 + 4
	buf = appendIFD(buf, order,
		rec{tags.ISOSpeedRatings, tags.Short, 1, slot16(order, 400)},
		rec{tags.InteropIFDPointer, tags.Long, 1, slot32(order, interopAt)},
	)
	buf = appendIFD(buf, order,
		rec{0x0001, tags.Ascii, 4, [4]byte{'R', '9', '8', 0}},
	)

	dir, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	if dir.Len() != 2 {
		t.Fatalf("got %d entries: %+v", dir.Len(), dir.Entries)
	}
	for _, e := range dir.Entries {
		if tags.IsPointer(e.Tag) {
			t.Errorf("pointer %#04x survived flattening", e.Tag)
		}
	}
	if e, ok := dir.Get(tags.ISOSpeedRatings); !ok || e.Shorts()[0] != 400 {
		t.Errorf("ISO = %+v", e)
	}
}

func geotagged(order binary.ByteOrder) []byte {
	const gpsAt = 8 + 2 + 12*2 + 4
	const latAt = gpsAt + 2 + 12*2 + 4
	buf := appendIFD(tiffHeader(order), order,
		rec{tags.Make, tags.Ascii, 4, [4]byte{'S', 'o', 'n', 0}},
		rec{tags.GPSIFDPointer, tags.Long, 1, slot32(order, gpsAt)},
	)
	buf = appendIFD(buf, order,
		rec{tags.GPSLatitudeRef, tags.Ascii, 2, [4]byte{'N', 0}},
		rec{tags.GPSLatitude, tags.Rational, 3, slot32(order, latAt)},
	)
	for _, v := range []uint32{45, 1, 30, 1, 0, 1} {
		w := make([]byte, 4)
		order.PutUint32(w, v)
		buf = append(buf, w...)
	}
	return buf
}

func TestGPSDirectoryIsKept(t *testing.T) {
	dir, err := Parse(geotagged(binary.BigEndian))
	if err != nil {
		t.Fatal(err)
	}
	if dir.Len() != 3 {
		t.Fatalf("got %d entries: %+v", dir.Len(), dir.Entries)
	}
	if e, _ := dir.Get(tags.Make); e.InGPS() {
		t.Error("Make marked as GPS")
	}
	ref, _ := dir.Get(tags.GPSLatitudeRef)
	lat, _ := dir.Get(tags.GPSLatitude)
	if !ref.InGPS() || !lat.InGPS() {
		t.Fatalf("GPS entries not marked: %+v %+v", ref, lat)
	}

	out, err := Serialize(dir.Entries)
	if err != nil {
		t.Fatal(err)
	}
	// IFD0 holds Make and the GPS pointer; "Son\0" stays inline.
	const gpsAt = 8 + 2 + 12*2 + 4
	if n := le.Uint16(out[8:]); n != 2 {
		t.Fatalf("IFD0 count = %d", n)
	}
	if tag := le.Uint16(out[22:]); tag != uint16(tags.GPSIFDPointer) {
		t.Fatalf("second IFD0 tag = %#04x", tag)
	}
	if typ, count := le.Uint16(out[24:]), le.Uint32(out[26:]); typ != uint16(tags.Long) || count != 1 {
		t.Errorf("pointer type %d count %d", typ, count)
	}
	if off := le.Uint32(out[30:]); off != gpsAt {
		t.Fatalf("GPS offset = %d, want %d", off, gpsAt)
	}
	if n := le.Uint16(out[gpsAt:]); n != 2 {
		t.Fatalf("GPS count = %d", n)
	}
	if len(out) != gpsAt+2+12*2+4+24 {
		t.Errorf("len = %d", len(out))
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := again.Get(tags.GPSLatitude)
	if !ok || !got.InGPS() {
		t.Fatalf("GPSLatitude after rewrite = %+v", got)
	}
	want := [][2]uint32{{45, 1}, {30, 1}, {0, 1}}
	for i, r := range got.Rationals() {
		if r != want[i] {
			t.Errorf("GPSLatitude[%d] = %v", i, r)
		}
	}
	if e, _ := again.Get(tags.GPSLatitudeRef); e.Text() != "N" {
		t.Errorf("GPSLatitudeRef = %q", e.Text())
	}
}

func TestNormalizeKeepsDirectoriesApart(t *testing.T) {
	// 0x0001 is GPSLatitudeRef in the GPS directory and a private tag in IFD0.
	out := Normalize([]Entry{
		gpsEntry(ASCII(tags.GPSLatitudeRef, "S")),
		ASCII(0x0001, "x"),
		gpsEntry(ASCII(tags.GPSLatitudeRef, "N")),
		ASCII(tags.Make, "Leica"),
	})
	if len(out) != 3 {
		t.Fatalf("got %+v", out)
	}
	if out[0].Tag != 0x0001 || out[0].InGPS() || out[1].Tag != tags.Make || !out[2].InGPS() {
		t.Fatalf("order = %+v", out)
	}
	if out[2].Text() != "N" {
		t.Errorf("GPSLatitudeRef = %q, want the last one", out[2].Text())
	}
}

func TestBigEndianOpaqueSlotIsKept(t *testing.T) {
	order := binary.BigEndian
	buf := appendIFD(tiffHeader(order), order,
		rec{0xC0DE, 99, 1, slot32(order, 7)},
	)
	dir, err := Parse(buf)
	if err != nil {
		t.Fatal(err)
	}
	e, _ := dir.Get(0xC0DE)
	if !bytes.Equal(e.Value, []byte{0, 0, 0, 7}) {
		t.Fatalf("slot = % x", e.Value)
	}

	// The slot is carried as read: big-endian bytes under an "II" header.
	out, err := Serialize(dir.Entries)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out[18:22], []byte{0, 0, 0, 7}) {
		t.Errorf("written slot = % x", out[18:22])
	}
}

func TestParseRejectsLoops(t *testing.T) {
	order := binary.LittleEndian
	buf := appendIFD(tiffHeader(order), order,
		rec{tags.ExifIFDPointer, tags.Long, 1, slot32(order, 8)},
	)
	if _, err := Parse(buf); !errors.Is(err, ErrDirectoryLoop) {
		t.Fatalf("error = %v", err)
	}
}

func TestSerializeRejectsMismatchedPayload(t *testing.T) {
	bad := Entry{Tag: tags.Make, Type: tags.Ascii, Count: 10, Value: []byte("abc")}
	if _, err := Serialize([]Entry{bad}); !errors.Is(err, ErrPayloadMismatch) {
		t.Fatalf("error = %v", err)
	}
	opaque := Entry{Tag: 0xC0DE, Type: 99, Count: 1, Value: []byte{1, 2}}
	if _, err := Serialize([]Entry{opaque}); !errors.Is(err, ErrPayloadMismatch) {
		t.Fatalf("opaque error = %v", err)
	}
}

func TestSerializeWholeTagSpace(t *testing.T) {
	// Every tag but the three pointers fits in one 16-bit entry count.
	entries := make([]Entry, 0, math.MaxUint16+1)
	for i := 0; i <= math.MaxUint16; i++ {
		if tags.IsPointer(tags.ID(i)) {
			continue
		}
		entries = append(entries, Short(tags.ID(i), 1))
	}
	out, err := Serialize(entries)
	if err != nil {
		t.Fatal(err)
	}
	if n := le.Uint16(out[8:]); int(n) != len(entries) {
		t.Fatalf("entry count = %d, want %d", n, len(entries))
	}
}

func TestEmptyDirectory(t *testing.T) {
	out, err := Serialize(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 14 {
		t.Fatalf("len = %d", len(out))
	}
	dir, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	if dir == nil || dir.Len() != 0 {
		t.Fatalf("dir = %+v", dir)
	}
}
