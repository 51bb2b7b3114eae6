package image

import (
	"bytes"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/ifex-photo/ifex/core"
	"github.com/ifex-photo/ifex/core/jpeg"
	"github.com/ifex-photo/ifex/core/merge"
	"github.com/ifex-photo/ifex/core/tags"
)

// ErrVerifyMismatch means a written text field did not read back unchanged.
var ErrVerifyMismatch = errors.New("image: written EXIF does not read back")

// asciiWalker collects the text tags an independent decoder sees.
type asciiWalker map[uint16]string

func (w asciiWalker) Walk(_ exif.FieldName, tag *tiff.Tag) error {
	w.collect(tag)
	return nil
}

func (w asciiWalker) collect(tag *tiff.Tag) {
	if tag == nil || tag.Type != tiff.DTAscii {
		return
	}
	s, err := tag.StringVal()
	if err != nil {
		return
	}
	w[tag.Id] = strings.TrimRight(s, "\x00")
}

// verifyJPEG re-reads the EXIF block of container with goexif and checks
// that every text field in want comes back as written. A block goexif
// cannot decode at all is only logged, since it is stricter than the
// codec about some legal layouts.
func verifyJPEG(container []byte, want core.FieldSet) error {
	expected, err := merge.Entries(want)
	if err != nil {
		return err
	}

	payload, ok, err := jpeg.ExifPayload(container)
	if err != nil {
		return err
	} else if !ok {
		return errors.Wrap(ErrVerifyMismatch, "no EXIF segment")
	}

	x, err := exif.Decode(bytes.NewReader(payload))
	if x == nil || x.Tiff == nil || len(x.Tiff.Dirs) == 0 {
		imageLogger.Warningf(nil, "Read-back decoder rejected the written EXIF: %v", err)
		return nil
	}

	got := asciiWalker{}
	// Tags goexif has no name for are skipped by Walk, so read IFD0 too.
	for _, tag := range x.Tiff.Dirs[0].Tags {
		got.collect(tag)
	}
	if err := x.Walk(got); err != nil {
		imageLogger.Debugf(nil, "Read-back walk stopped early: %v", err)
	}

	var result *multierror.Error
	for _, e := range expected {
		if e.Type != tags.Ascii {
			continue
		}
		text := e.Text()
		if back, ok := got[uint16(e.Tag)]; !ok || back != text {
			result = multierror.Append(result, errors.Wrapf(ErrVerifyMismatch,
				"%s: wrote %q, read back %q", tags.DisplayName(e.Tag), text, back))
		}
	}
	return result.ErrorOrNil()
}
