// Package image applies, erases and reads camera metadata for the image
// formats film scans come in: JPEG (rewritten in place), TIFF and DNG
// (read in place, written to an XMP sidecar) and camera RAW (sidecar only).
package image

import (
	"os"
	"path/filepath"

	log "github.com/dsoprea/go-logging"
	"github.com/pkg/errors"

	"github.com/ifex-photo/ifex/core"
	"github.com/ifex-photo/ifex/core/tags"
)

var imageLogger = log.NewLogger("ifex.image")

// ErrUnsupportedFormat means the file is not one of the handled formats.
var ErrUnsupportedFormat = errors.New("image: unsupported format")

// ──────────────────────────────────────────────────────────────────────────────
// Handler
// ──────────────────────────────────────────────────────────────────────────────

// Handler implements core.Handler for one image format.
type Handler struct {
	format core.FormatID
	cfg    core.Config
}

// New returns a Handler for the given format.
func New(id core.FormatID, cfg core.Config) *Handler {
	return &Handler{format: id, cfg: cfg}
}

// ForPath detects the format of path and returns its handler.
func ForPath(path string, cfg core.Config) (*Handler, error) {
	id, err := core.DetectFormat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "detect format of %s", path)
	}
	if _, ok := formatInfo[id]; !ok {
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", path)
	}
	return New(id, cfg), nil
}

// Resolver adapts ForPath to the shape batch processing expects.
func Resolver(cfg core.Config) func(path string) (core.Handler, error) {
	return func(path string) (core.Handler, error) {
		h, err := ForPath(path, cfg)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}

func (h *Handler) Info() core.FormatInfo {
	return formatInfo[h.format]
}

var formatInfo = map[core.FormatID]core.FormatInfo{
	core.FmtJPEG: {
		Name:           "JPEG",
		Extensions:     []string{".jpg", ".jpeg", ".jpe"},
		MIMETypes:      []string{"image/jpeg"},
		CanView:        true,
		CanEdit:        true,
		CanStrip:       true,
		Embedded:       true,
		EditableFields: editableFields(),
		Notes:          "EXIF rewritten in the APP1 segment; scan data is copied byte for byte.",
	},
	core.FmtTIFF: {
		Name:           "TIFF",
		Extensions:     []string{".tiff", ".tif"},
		MIMETypes:      []string{"image/tiff"},
		CanView:        true,
		CanEdit:        true,
		CanStrip:       true,
		EditableFields: editableFields(),
		Notes:          "IFD0, Exif and GPS directories are read in place. Writes go to an XMP sidecar.",
	},
	core.FmtDNG: {
		Name:           "DNG",
		Extensions:     []string{".dng"},
		MIMETypes:      []string{"image/x-adobe-dng"},
		CanView:        true,
		CanEdit:        true,
		CanStrip:       true,
		EditableFields: editableFields(),
		Notes:          "Read in place. Writes go to an XMP sidecar.",
	},
	core.FmtRAW: {
		Name:           "RAW",
		Extensions:     []string{".cr2", ".cr3", ".nef", ".arw", ".orf", ".rw2", ".raf", ".pef", ".srw"},
		CanView:        true,
		CanEdit:        true,
		CanStrip:       true,
		EditableFields: editableFields(),
		Notes:          "Camera RAW files are never modified. Metadata lives in an XMP sidecar.",
	},
}

func editableFields() []string {
	var names []string
	for _, info := range tags.Writable() {
		names = append(names, info.Name)
	}
	return names
}

// ──────────────────────────────────────────────────────────────────────────────
// Operations
// ──────────────────────────────────────────────────────────────────────────────

func (h *Handler) View(path string) (*core.Metadata, error) {
	m := &core.Metadata{FilePath: path, Format: formatInfo[h.format].Name}
	switch h.format {
	case core.FmtJPEG:
		return h.viewJPEG(path, m)
	case core.FmtTIFF, core.FmtDNG, core.FmtRAW:
		return h.viewTIFF(path, m)
	}
	return m, errors.Wrapf(ErrUnsupportedFormat, "%s", h.format)
}

func (h *Handler) Apply(path string, outPath string, opts core.EditOptions) error {
	if _, ok := formatInfo[h.format]; !ok {
		return errors.Wrapf(ErrUnsupportedFormat, "%s", h.format)
	}
	out := core.ResolveOutPath(path, outPath)
	if core.IsSidecarOnly(h.format) {
		return applySidecar(out, opts)
	}
	return h.applyJPEG(path, out, opts)
}

func (h *Handler) Erase(path string, outPath string, opts core.EraseOptions) error {
	if _, ok := formatInfo[h.format]; !ok {
		return errors.Wrapf(ErrUnsupportedFormat, "%s", h.format)
	}
	out := core.ResolveOutPath(path, outPath)
	if core.IsSidecarOnly(h.format) {
		return eraseSidecar(out, opts)
	}
	return eraseJPEG(path, out, opts)
}

// writeFile replaces path with data through a temporary file in the same
// directory, keeping the original file mode.
func writeFile(path string, data []byte) error {
	mode := os.FileMode(0644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "create temporary file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "write %s", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return errors.Wrapf(err, "chmod %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "replace %s", path)
}
