package image

import (
	"os"

	"github.com/pkg/errors"

	"github.com/ifex-photo/ifex/core"
	"github.com/ifex-photo/ifex/core/ifd"
	"github.com/ifex-photo/ifex/core/merge"
	"github.com/ifex-photo/ifex/core/readout"
	"github.com/ifex-photo/ifex/core/sidecar"
	"github.com/ifex-photo/ifex/core/tags"
)

// ─── TIFF / DNG / RAW View ───────────────────────────────────────────────────

func (h *Handler) viewTIFF(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}

	dir, err := ifd.Parse(data)
	switch {
	case err == nil:
		m.Fields = append(m.Fields, readout.FromDirectory(dir, h.cfg.TruncateAt)...)
	case h.format == core.FmtRAW:
		// Many RAW containers are not TIFF at all.
		imageLogger.Debugf(nil, "No TIFF directory in [%s]: %v", path, err)
	default:
		return m, errors.Wrapf(err, "could not parse TIFF IFDs in %s", path)
	}

	side, err := sidecar.Read(path)
	if err != nil {
		return m, err
	}
	m.Fields = append(m.Fields, side...)
	return m, nil
}

// ─── Sidecar Apply / Erase ───────────────────────────────────────────────────
// Fields already in the sidecar are carried forward, so successive applies
// accumulate like they do for embedded EXIF.

func applySidecar(imagePath string, opts core.EditOptions) error {
	fields, err := sidecar.Fields(imagePath)
	if err != nil {
		return err
	}
	for _, name := range opts.Delete {
		id, err := merge.ResolveTag(name)
		if err != nil {
			return err
		}
		if info, ok := tags.ByID(id); ok {
			delete(fields, info.Name)
		}
	}
	for _, key := range opts.Set.Keys() {
		info, ok := tags.Lookup(key)
		if !ok || !info.Writable {
			return errors.Wrapf(merge.ErrUnknownField, "%q", key)
		}
		fields[info.Name] = opts.Set[key]
	}

	if opts.DryRun {
		doc, err := sidecar.Render(fields)
		if err != nil {
			return err
		}
		imageLogger.Infof(nil, "Dry run: [%s] would be written (%d bytes).", sidecar.PathFor(imagePath), len(doc))
		return nil
	}
	if len(fields) == 0 {
		return sidecar.Remove(imagePath)
	}
	_, err = sidecar.Write(imagePath, fields)
	return err
}

func eraseSidecar(imagePath string, opts core.EraseOptions) error {
	if opts.DryRun {
		imageLogger.Infof(nil, "Dry run: [%s] would be removed.", sidecar.PathFor(imagePath))
		return nil
	}
	return sidecar.Remove(imagePath)
}
