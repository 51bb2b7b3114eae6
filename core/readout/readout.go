// Package readout turns parsed directory entries into the display lines
// shown by the view command.
package readout

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ifex-photo/ifex/core"
	"github.com/ifex-photo/ifex/core/ifd"
	"github.com/ifex-photo/ifex/core/tags"
)

const (
	// DefaultWidth is the number of characters a value is cut to.
	DefaultWidth = 50
	// Binary replaces values that have nothing printable in them.
	Binary = "<binary data>"
	// Ellipsis marks a truncated value.
	Ellipsis = "…"
)

// FromDirectory formats every entry of dir, sorted by display name. Values
// longer than width characters are truncated; width <= 0 means
// DefaultWidth.
func FromDirectory(dir *ifd.Directory, width int) []core.MetaField {
	if width <= 0 {
		width = DefaultWidth
	}
	fields := make([]core.MetaField, 0, dir.Len())
	if dir == nil {
		return fields
	}
	for _, e := range dir.Entries {
		info, _ := tags.ByID(e.Tag)
		fields = append(fields, core.MetaField{
			Tag:      uint16(e.Tag),
			Key:      tags.DisplayName(e.Tag),
			Value:    Truncate(FormatValue(e), width),
			Category: "EXIF",
			Editable: info.Writable,
		})
	}
	Sort(fields)
	return fields
}

// Sort orders fields by display name, then by tag.
func Sort(fields []core.MetaField) {
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Key != fields[j].Key {
			return fields[i].Key < fields[j].Key
		}
		return fields[i].Tag < fields[j].Tag
	})
}

// FormatValue renders one entry's value as text.
func FormatValue(e ifd.Entry) string {
	switch e.Type {
	case tags.Ascii:
		return formatASCII(e.Value)
	case tags.Byte:
		return formatBytes(e.Value)
	case tags.SByte:
		s := make([]string, len(e.Value))
		for i, b := range e.Value {
			s[i] = strconv.Itoa(int(int8(b)))
		}
		return "[" + strings.Join(s, ", ") + "]"
	case tags.Undefined:
		return fmt.Sprintf("Undefined(%d bytes)", len(e.Value))
	case tags.Short:
		return join(e.Shorts())
	case tags.Long:
		return join(e.Longs())
	case tags.SShort:
		return join(e.SShorts())
	case tags.SLong:
		return join(e.SLongs())
	case tags.Float:
		return join(e.Floats())
	case tags.Double:
		return join(e.Doubles())
	case tags.Rational:
		r := e.Rationals()
		s := make([]string, len(r))
		for i, v := range r {
			s[i] = fmt.Sprintf("%d/%d", v[0], v[1])
		}
		return strings.Join(s, ", ")
	case tags.SRational:
		r := e.SRationals()
		s := make([]string, len(r))
		for i, v := range r {
			s[i] = fmt.Sprintf("%d/%d", v[0], v[1])
		}
		return strings.Join(s, ", ")
	}
	return fmt.Sprintf("Unknown(tag=%d, type=%d, count=%d)", e.Tag, e.Type, e.Count)
}

func join[T any](vals []T) string {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = fmt.Sprint(v)
	}
	return strings.Join(s, ", ")
}

func formatBytes(b []byte) string {
	s := make([]string, len(b))
	for i, v := range b {
		s[i] = strconv.Itoa(int(v))
	}
	return "[" + strings.Join(s, ", ") + "]"
}

// formatASCII splits on NUL (some writers pack several strings into one
// entry), drops unprintable characters and joins what is left.
func formatASCII(b []byte) string {
	var parts []string
	for _, chunk := range bytes.Split(b, []byte{0}) {
		if s := Clean(string(chunk)); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return Binary
	}
	return strings.Join(parts, ", ")
}

// Clean removes unprintable characters and surrounding space. Invalid
// UTF-8 sequences count as unprintable.
func Clean(s string) string {
	var sb strings.Builder
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r == utf8.RuneError && size <= 1 {
			continue
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}

// Truncate cuts s to n characters, counted after NFC normalisation, and
// appends an ellipsis when anything was removed.
func Truncate(s string, n int) string {
	s = norm.NFC.String(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + Ellipsis
}
