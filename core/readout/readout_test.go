package readout

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ifex-photo/ifex/core/ifd"
	"github.com/ifex-photo/ifex/core/tags"
)

func TestTruncate(t *testing.T) {
	in := strings.Repeat("a", 52)
	got := Truncate(in, 50)
	if got != strings.Repeat("a", 50)+"…" {
		t.Fatalf("Truncate = %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 51 {
		t.Errorf("rune count = %d", n)
	}
	if got := Truncate(strings.Repeat("b", 50), 50); got != strings.Repeat("b", 50) {
		t.Errorf("value at the limit was truncated: %q", got)
	}
}

func TestTruncateMultibyte(t *testing.T) {
	in := strings.Repeat("\u00e9", 60)
	got := Truncate(in, 50)
	if !utf8.ValidString(got) {
		t.Fatal("truncation split a character")
	}
	if got != strings.Repeat("\u00e9", 50)+"…" {
		t.Fatalf("Truncate = %q", got)
	}

	// "e" + combining acute composes to one character under NFC.
	decomposed := strings.Repeat("e\u0301", 50)
	if got := Truncate(decomposed, 50); got != strings.Repeat("\u00e9", 50) {
		t.Errorf("decomposed input: %q", got)
	}
}

func TestFormatValue(t *testing.T) {
	r, _ := ifd.Rational(tags.FocalLength, 35)
	tests := []struct {
		name string
		e    ifd.Entry
		want string
	}{
		{"ascii", ifd.ASCII(tags.Make, "Leica"), "Leica"},
		{"ascii padded", ifd.Entry{Tag: tags.Make, Type: tags.Ascii, Count: 8, Value: []byte(" Sony \x00\x00")}, "Sony"},
		{"ascii multi", ifd.Entry{Tag: tags.Artist, Type: tags.Ascii, Count: 4, Value: []byte("a\x00b\x00")}, "a, b"},
		{"ascii empty", ifd.ASCII(tags.Software, ""), Binary},
		{"ascii control", ifd.Entry{Tag: tags.Model, Type: tags.Ascii, Count: 3, Value: []byte{0x01, 0x02, 0x00}}, Binary},
		{"short", ifd.Short(tags.ISOSpeedRatings, 400), "400"},
		{"long", ifd.Long(tags.ISOSpeed, 3200), "3200"},
		{"rational", r, "35000/1000"},
		{"byte", ifd.Entry{Tag: 0xC612, Type: tags.Byte, Count: 4, Value: []byte{1, 4, 0, 0}}, "[1, 4, 0, 0]"},
		{"undefined", ifd.Entry{Tag: 0x9000, Type: tags.Undefined, Count: 4, Value: []byte("0232")}, "Undefined(4 bytes)"},
		{"srational", ifd.Entry{Tag: 0x9204, Type: tags.SRational, Count: 1, Value: []byte{0xFF, 0xFF, 0xFF, 0xFF, 3, 0, 0, 0}}, "-1/3"},
		{"unknown", ifd.Entry{Tag: 0xC0DE, Type: 99, Count: 7, Value: []byte{1, 2, 3, 4}}, "Unknown(tag=49374, type=99, count=7)"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.e); got != tt.want {
			t.Errorf("%s: FormatValue = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFromDirectory(t *testing.T) {
	dir := &ifd.Directory{Entries: []ifd.Entry{
		ifd.ASCII(tags.Model, "M7"),
		ifd.ASCII(tags.Make, "Leica"),
		ifd.ASCII(tags.ImageDescription, strings.Repeat("x", 60)),
		ifd.Short(0xBEEF, 1),
		ifd.ASCII(tags.Artist, "Daniel"),
	}}
	fields := FromDirectory(dir, 0)
	var keys []string
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	want := []string{"Artist", "Image Description (Film)", "Make", "Model", "Tag 48879"}
	if strings.Join(keys, "|") != strings.Join(want, "|") {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	if f := fields[1]; f.Value != strings.Repeat("x", 50)+Ellipsis || !f.Editable {
		t.Errorf("film field = %+v", f)
	}
	if fields[4].Editable {
		t.Error("unknown tag should not be editable")
	}
	if len(FromDirectory(nil, 0)) != 0 {
		t.Error("nil directory should yield no fields")
	}
}

func TestClean(t *testing.T) {
	if got := Clean("  Ko\x07dak\xff "); got != "Kodak" {
		t.Errorf("Clean = %q", got)
	}
	if got := Clean("Ilford D\u00e9lta"); got != "Ilford D\u00e9lta" {
		t.Errorf("Clean dropped printable text: %q", got)
	}
}
