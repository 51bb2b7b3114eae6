// Package core defines the shared types, interfaces, and format registry
// for ifex.
package core

import (
	"sort"
	"strconv"
	"strings"
)

// FieldValue is one semantic metadata value: either text or a number.
type FieldValue struct {
	text    string
	number  float64
	numeric bool
}

// Text returns a textual FieldValue.
func Text(s string) FieldValue { return FieldValue{text: s} }

// Number returns a numeric FieldValue.
func Number(f float64) FieldValue { return FieldValue{number: f, numeric: true} }

// IsNumber reports whether the value was built with Number.
func (v FieldValue) IsNumber() bool { return v.numeric }

// String renders the value as text; numbers use the shortest exact form.
func (v FieldValue) String() string {
	if v.numeric {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}

// Float returns the numeric value. Text is parsed leniently so that the
// forms people actually type ("f/2.8", "35mm", "ISO 400") are accepted.
func (v FieldValue) Float() (float64, error) {
	if v.numeric {
		return v.number, nil
	}
	s := strings.TrimSpace(strings.ToLower(v.text))
	s = strings.TrimPrefix(s, "f/")
	s = strings.TrimPrefix(s, "iso")
	s = strings.TrimSuffix(s, "mm")
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// FieldSet maps semantic field names (e.g. "Make", "FocalLength", "Film")
// to the values a caller wants written.
type FieldSet map[string]FieldValue

// ParseFieldSet builds a FieldSet of text values from KEY=VALUE pairs.
func ParseFieldSet(kv map[string]string) FieldSet {
	fs := make(FieldSet, len(kv))
	for k, v := range kv {
		fs[k] = Text(v)
	}
	return fs
}

// Keys returns the field names in sorted order.
func (fs FieldSet) Keys() []string {
	keys := make([]string, 0, len(fs))
	for k := range fs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MetaField represents a single line of a metadata readout.
type MetaField struct {
	Tag      uint16 // TIFF tag number, 0 for non-EXIF sources
	Key      string // Display name (e.g. "Make", "F-Number", "Tag 48879")
	Value    string // Formatted, truncated value
	Category string // "EXIF", "IPTC" or "XMP"
	Editable bool   // Whether the field can be written through a FieldSet
}

// Metadata holds all metadata extracted from a single file.
type Metadata struct {
	FilePath string
	Format   string // Human-readable format name (e.g. "JPEG", "DNG")
	Fields   []MetaField
}

// Summary returns a short string of key fields for quick display.
func (m *Metadata) Summary() string {
	for _, f := range m.Fields {
		if f.Key == "Make" || f.Key == "Model" || f.Key == "Artist" {
			return f.Key + ": " + f.Value
		}
	}
	return m.Format
}

// Get returns the value of the first field whose display name is key.
func (m *Metadata) Get(key string) (string, bool) {
	for _, f := range m.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// EraseOptions controls which parts of metadata to remove.
type EraseOptions struct {
	// All removes every APP1 and APP0 segment instead of only the EXIF one.
	All bool
	// DryRun reports what would happen without writing.
	DryRun bool
}

// EditOptions holds field changes for an apply operation.
type EditOptions struct {
	// Set holds the fields to set or update.
	Set FieldSet
	// Delete lists field names to remove.
	Delete []string
	// DryRun previews changes without writing.
	DryRun bool
}

// FormatInfo describes what a format handler supports.
type FormatInfo struct {
	Name           string   // "JPEG"
	Extensions     []string // [".jpg", ".jpeg"]
	MIMETypes      []string
	CanView        bool
	CanEdit        bool
	CanStrip       bool
	Embedded       bool     // false when writes go to an XMP sidecar
	EditableFields []string // Names of fields the handler can write
	Notes          string   // Any caveats or notes
}

// Handler is the interface every format must implement.
type Handler interface {
	// View reads and returns all discoverable metadata from path.
	View(path string) (*Metadata, error)
	// Apply writes new/updated fields for path, saving to outPath.
	// outPath == "" means in-place edit.
	Apply(path string, outPath string, opts EditOptions) error
	// Erase removes metadata from path, saving to outPath.
	Erase(path string, outPath string, opts EraseOptions) error
	// Info returns format capabilities.
	Info() FormatInfo
}
