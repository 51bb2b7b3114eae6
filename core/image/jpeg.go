package image

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/ifex-photo/ifex/core"
	"github.com/ifex-photo/ifex/core/ifd"
	"github.com/ifex-photo/ifex/core/jpeg"
	"github.com/ifex-photo/ifex/core/merge"
	"github.com/ifex-photo/ifex/core/readout"
	"github.com/ifex-photo/ifex/core/sidecar"
)

// ─── JPEG View ───────────────────────────────────────────────────────────────

func (h *Handler) viewJPEG(path string, m *core.Metadata) (*core.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}

	tiff, ok, err := jpeg.ExifPayload(data)
	if err != nil {
		return m, errors.Wrapf(err, "read %s", path)
	}
	if ok {
		dir, err := ifd.Parse(tiff)
		if err != nil {
			imageLogger.Warningf(nil, "Unreadable EXIF in [%s]: %v", path, err)
		} else {
			m.Fields = append(m.Fields, readout.FromDirectory(dir, h.cfg.TruncateAt)...)
		}
	}

	// IPTC from APP13
	datasets, err := jpeg.IPTC(data)
	if err == nil {
		m.Fields = append(m.Fields, iptcFields(datasets, h.cfg.TruncateAt)...)
	}

	// Embedded XMP packet
	if packet, ok, _ := jpeg.XMPPacket(data); ok {
		m.Fields = append(m.Fields, sidecar.Parse(packet)...)
	}
	return m, nil
}

func iptcFields(datasets []jpeg.Dataset, width int) []core.MetaField {
	if width <= 0 {
		width = readout.DefaultWidth
	}
	fields := make([]core.MetaField, 0, len(datasets))
	for _, d := range datasets {
		key := d.Name
		if key == "" {
			key = fmt.Sprintf("Dataset %d:%d", d.Record, d.ID)
		}
		value := readout.Clean(d.Value)
		if value == "" {
			value = readout.Binary
		}
		fields = append(fields, core.MetaField{
			Key:      key,
			Value:    readout.Truncate(value, width),
			Category: "IPTC",
		})
	}
	readout.Sort(fields)
	return fields
}

// ─── JPEG Apply ──────────────────────────────────────────────────────────────
// The existing EXIF block is parsed, merged with the requested fields and
// written back as a fresh TIFF block. An existing block that cannot be
// parsed is treated as absent.

func (h *Handler) applyJPEG(path, outPath string, opts core.EditOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	out, err := jpeg.LocateAndReplace(data, func(existing []byte) ([]byte, error) {
		dir, err := ifd.Parse(existing)
		if err != nil {
			imageLogger.Warningf(nil, "Discarding unreadable EXIF in [%s]: %v", path, err)
			dir = nil
		}
		entries, err := merge.Apply(dir, opts)
		if err != nil {
			return nil, err
		}
		return ifd.Serialize(entries)
	})
	if err != nil {
		return errors.Wrapf(err, "apply %s", path)
	}

	if h.cfg.Verify {
		if err := verifyJPEG(out, opts.Set); err != nil {
			return errors.Wrapf(err, "verify %s", path)
		}
	}

	if opts.DryRun {
		imageLogger.Infof(nil, "Dry run: [%s] would be written with (%d) fields.", outPath, len(opts.Set))
		return nil
	}
	return writeFile(outPath, out)
}

// ─── JPEG Erase ──────────────────────────────────────────────────────────────

func eraseJPEG(path, outPath string, opts core.EraseOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	mode := jpeg.EraseExif
	if opts.All {
		mode = jpeg.EraseAll
	}
	out, err := jpeg.Erase(data, mode)
	if err != nil {
		return errors.Wrapf(err, "erase %s", path)
	}
	if opts.DryRun {
		imageLogger.Infof(nil, "Dry run: [%s] would shrink from (%d) to (%d) bytes.", outPath, len(data), len(out))
		return nil
	}
	return writeFile(outPath, out)
}
