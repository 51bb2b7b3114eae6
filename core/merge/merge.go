// Package merge combines the entries of an existing directory with the
// fields a caller wants written.
package merge

import (
	"math"
	"strconv"
	"strings"

	log "github.com/dsoprea/go-logging"
	"github.com/pkg/errors"

	"github.com/ifex-photo/ifex/core"
	"github.com/ifex-photo/ifex/core/ifd"
	"github.com/ifex-photo/ifex/core/tags"
)

var mergeLogger = log.NewLogger("ifex.merge")

var (
	// ErrUnknownField means a FieldSet key does not name a writable tag.
	ErrUnknownField = errors.New("merge: unknown field")
	// ErrBadValue means a value cannot be converted to its tag's type.
	ErrBadValue = errors.New("merge: bad value")
)

// Merge returns the entries of existing with every override applied and
// every tag in remove dropped. Overrides replace existing IFD0 entries with
// the same tag; everything else, opaque and GPS entries included, is
// carried over unchanged. A tag in remove that the registry places in the
// GPS directory removes the GPS entry. Entries whose value is an offset
// into data that is not carried (sub-IFD pointers, strip and thumbnail
// offsets) are dropped.
//
// The result is sorted by tag and free of duplicates. A nil existing
// directory yields just the overrides.
func Merge(existing *ifd.Directory, overrides []ifd.Entry, remove []tags.ID) []ifd.Entry {
	replaced := make(map[slot]bool, len(overrides)+len(remove))
	for _, e := range overrides {
		replaced[slotOf(e)] = true
	}
	for _, id := range remove {
		info, ok := tags.ByID(id)
		replaced[slot{tag: id, gps: ok && info.Namespace == tags.GPSIFD}] = true
	}

	out := make([]ifd.Entry, 0, existing.Len()+len(overrides))
	if existing != nil {
		for _, e := range existing.Entries {
			if replaced[slotOf(e)] {
				continue
			}
			if tags.IsPointer(e.Tag) || (!e.InGPS() && tags.IsOffset(e.Tag)) {
				mergeLogger.Debugf(nil, "Dropping offset tag (%s).", tags.DisplayName(e.Tag))
				continue
			}
			out = append(out, e)
		}
	}
	out = append(out, overrides...)
	return ifd.Normalize(out)
}

// slot identifies an entry by its tag within its directory.
type slot struct {
	tag tags.ID
	gps bool
}

func slotOf(e ifd.Entry) slot {
	return slot{tag: e.Tag, gps: e.InGPS()}
}

// Apply resolves opts against the registry and merges the result into
// existing.
func Apply(existing *ifd.Directory, opts core.EditOptions) ([]ifd.Entry, error) {
	overrides, err := Entries(opts.Set)
	if err != nil {
		return nil, err
	}
	remove := make([]tags.ID, 0, len(opts.Delete))
	for _, name := range opts.Delete {
		id, err := ResolveTag(name)
		if err != nil {
			return nil, err
		}
		remove = append(remove, id)
	}
	return Merge(existing, overrides, remove), nil
}

// Entries converts fields into directory entries, in tag order. Keys are
// resolved case-insensitively through the tag registry.
func Entries(fields core.FieldSet) ([]ifd.Entry, error) {
	out := make([]ifd.Entry, 0, len(fields))
	for _, key := range fields.Keys() {
		e, err := Entry(key, fields[key])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return ifd.Normalize(out), nil
}

// Entry converts a single named field.
func Entry(name string, v core.FieldValue) (ifd.Entry, error) {
	info, ok := tags.Lookup(name)
	if !ok || !info.Writable {
		return ifd.Entry{}, errors.Wrapf(ErrUnknownField, "%q", name)
	}

	if info.Type == tags.Ascii {
		return ifd.ASCII(info.ID, v.String()), nil
	}

	f, err := v.Float()
	if err != nil || math.IsNaN(f) {
		return ifd.Entry{}, errors.Wrapf(ErrBadValue, "%s=%q", info.Name, v.String())
	}

	switch info.Type {
	case tags.Short:
		return ifd.Short(info.ID, toInt(f)), nil
	case tags.Long:
		return ifd.Long(info.ID, toInt(f)), nil
	case tags.Rational:
		e, err := ifd.Rational(info.ID, f)
		if err != nil {
			return ifd.Entry{}, errors.Wrapf(ErrBadValue, "%s=%q: %v", info.Name, v.String(), err)
		}
		return e, nil
	}
	return ifd.Entry{}, errors.Wrapf(ErrUnknownField, "%s has unsupported type %s", info.Name, info.Type)
}

// ResolveTag maps a field name, a display-style "Tag <n>" or a numeric
// tag ("0x010f", "271") onto a tag ID.
func ResolveTag(name string) (tags.ID, error) {
	if info, ok := tags.Lookup(name); ok {
		return info.ID, nil
	}
	s := strings.TrimSpace(name)
	s = strings.TrimPrefix(s, "Tag ")
	if n, err := strconv.ParseUint(s, 0, 16); err == nil {
		return tags.ID(n), nil
	}
	return 0, errors.Wrapf(ErrUnknownField, "%q", name)
}

func toInt(f float64) int64 {
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(math.Round(f))
}
