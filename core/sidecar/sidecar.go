// Package sidecar writes and reads XMP sidecar files: the "<name>.xmp"
// companion that carries metadata for files whose container is not
// rewritten in place (RAW, TIFF, DNG).
package sidecar

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/dsoprea/go-logging"
	"github.com/pkg/errors"

	"github.com/ifex-photo/ifex/core"
	"github.com/ifex-photo/ifex/core/ifd"
	"github.com/ifex-photo/ifex/core/merge"
	"github.com/ifex-photo/ifex/core/readout"
	"github.com/ifex-photo/ifex/core/tags"
)

const (
	nsRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsTIFF = "http://ns.adobe.com/tiff/1.0/"
	nsEXIF = "http://ns.adobe.com/exif/1.0/"
	nsDC   = "http://purl.org/dc/elements/1.1/"
	nsAUX  = "http://ns.adobe.com/exif/1.0/aux/"
	nsXMP  = "http://ns.adobe.com/xap/1.0/"
)

var prefixes = map[string]string{
	nsTIFF: "tiff",
	nsEXIF: "exif",
	nsDC:   "dc",
	nsAUX:  "aux",
	nsXMP:  "xmp",
}

// Properties written as an unordered array, and as a language alternative.
var (
	bagProperties = map[string]bool{"dc:creator": true, "exif:ISOSpeedRatings": true}
	altProperties = map[string]bool{"dc:description": true, "dc:rights": true}
)

var sidecarLogger = log.NewLogger("ifex.sidecar")

// PathFor returns the sidecar path for imagePath: the same name with the
// extension replaced by ".xmp".
func PathFor(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".xmp"
}

// Write renders fields as XMP and writes them next to imagePath. It
// returns the sidecar path.
func Write(imagePath string, fields core.FieldSet) (string, error) {
	doc, err := Render(fields)
	if err != nil {
		return "", err
	}
	path := PathFor(imagePath)
	if err := os.WriteFile(path, doc, 0644); err != nil {
		return "", errors.Wrapf(err, "write sidecar %s", path)
	}
	sidecarLogger.Debugf(nil, "Wrote (%d) properties to [%s].", len(fields), path)
	return path, nil
}

// Remove deletes the sidecar of imagePath. A missing sidecar is not an
// error.
func Remove(imagePath string) error {
	err := os.Remove(PathFor(imagePath))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove sidecar")
	}
	return nil
}

type property struct {
	name  string // prefix:Local
	value string
}

// Render produces the XMP document for fields. Values are validated and
// normalised the same way as embedded EXIF, so a number that would be
// rejected for a JPEG is rejected here too.
func Render(fields core.FieldSet) ([]byte, error) {
	props := make([]property, 0, len(fields))
	for _, key := range fields.Keys() {
		e, err := merge.Entry(key, fields[key])
		if err != nil {
			return nil, err
		}
		info, _ := tags.ByID(e.Tag)
		props = append(props, property{name: info.XMP, value: xmpValue(e)})
	}
	sort.Slice(props, func(i, j int) bool { return props[i].name < props[j].name })

	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="ifex">` + "\n")
	fmt.Fprintf(&b, "  <rdf:RDF xmlns:rdf=%q>\n", nsRDF)
	b.WriteString(`    <rdf:Description rdf:about=""` + "\n")
	fmt.Fprintf(&b, "        xmlns:tiff=%q\n", nsTIFF)
	fmt.Fprintf(&b, "        xmlns:exif=%q\n", nsEXIF)
	fmt.Fprintf(&b, "        xmlns:dc=%q\n", nsDC)
	fmt.Fprintf(&b, "        xmlns:aux=%q>\n", nsAUX)
	for _, p := range props {
		var v bytes.Buffer
		if err := xml.EscapeText(&v, []byte(p.value)); err != nil {
			return nil, errors.Wrap(err, "escape XMP value")
		}
		switch {
		case bagProperties[p.name]:
			fmt.Fprintf(&b, "      <%s>\n        <rdf:Bag>\n          <rdf:li>%s</rdf:li>\n        </rdf:Bag>\n      </%s>\n", p.name, v.String(), p.name)
		case altProperties[p.name]:
			fmt.Fprintf(&b, "      <%s>\n        <rdf:Alt>\n          <rdf:li xml:lang=\"x-default\">%s</rdf:li>\n        </rdf:Alt>\n      </%s>\n", p.name, v.String(), p.name)
		default:
			fmt.Fprintf(&b, "      <%s>%s</%s>\n", p.name, v.String(), p.name)
		}
	}
	b.WriteString("    </rdf:Description>\n  </rdf:RDF>\n</x:xmpmeta>\n")
	return b.Bytes(), nil
}

func xmpValue(e ifd.Entry) string {
	switch e.Type {
	case tags.Ascii:
		return e.Text()
	case tags.Rational:
		r := e.Rationals()[0]
		return fmt.Sprintf("%d/%d", r[0], r[1])
	}
	if v, ok := e.Uint(); ok {
		return fmt.Sprint(v)
	}
	return readout.FormatValue(e)
}

// Read parses the sidecar of imagePath. A missing sidecar yields no
// fields and no error.
func Read(imagePath string) ([]core.MetaField, error) {
	data, err := os.ReadFile(PathFor(imagePath))
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "read sidecar")
	}
	return Parse(data), nil
}

// Fields returns the registry fields stored in the sidecar of imagePath,
// so a later Write can carry them forward.
func Fields(imagePath string) (core.FieldSet, error) {
	data, err := os.ReadFile(PathFor(imagePath))
	if os.IsNotExist(err) {
		return core.FieldSet{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "read sidecar")
	}
	fs := core.FieldSet{}
	for _, p := range properties(data) {
		info, ok := tags.ByXMP(p.name)
		if !ok {
			continue
		}
		v := p.value
		if info.Type == tags.Rational {
			v = rationalText(v)
		}
		fs[info.Name] = core.Text(v)
	}
	return fs, nil
}

// rationalText turns an XMP rational "35000/1000" back into "35".
func rationalText(s string) string {
	var num, den uint64
	if n, _ := fmt.Sscanf(s, "%d/%d", &num, &den); n == 2 && den != 0 {
		return fmt.Sprint(float64(num) / float64(den))
	}
	return s
}

// Parse extracts the properties of an XMP packet (sidecar or embedded) as
// readout fields.
func Parse(data []byte) []core.MetaField {
	var fields []core.MetaField
	for _, p := range properties(data) {
		info, known := tags.ByXMP(p.name)
		fields = append(fields, core.MetaField{
			Key:      p.name,
			Value:    readout.Truncate(p.value, readout.DefaultWidth),
			Category: "XMP",
			Editable: known && info.Writable,
		})
	}
	readout.Sort(fields)
	return fields
}

// properties walks the RDF tree and returns one property per element (or
// attribute) hanging directly off an rdf:Description. Array items are
// joined with ", ".
func properties(data []byte) []property {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out     []property
		stack   []xml.Name
		current = -1 // index into out of the property being read
		depth   = -1 // stack depth of rdf:Description
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
			switch {
			case t.Name.Space == nsRDF && t.Name.Local == "Description":
				depth = len(stack)
				for _, attr := range t.Attr {
					if name, ok := qualify(attr.Name); ok && attr.Value != "" {
						out = append(out, property{name: name, value: attr.Value})
					}
				}
			case depth >= 0 && len(stack) == depth+1:
				current = -1
				if name, ok := qualify(t.Name); ok {
					out = append(out, property{name: name})
					current = len(out) - 1
				}
			}
		case xml.EndElement:
			if len(stack) == depth {
				depth = -1
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			val := strings.TrimSpace(string(t))
			if val == "" || current < 0 || depth < 0 || len(stack) <= depth {
				continue
			}
			if out[current].value != "" {
				out[current].value += ", "
			}
			out[current].value += val
		}
	}

	kept := out[:0]
	for _, p := range out {
		if p.value != "" {
			kept = append(kept, p)
		}
	}
	return kept
}

func qualify(n xml.Name) (string, bool) {
	if n.Space == "" || n.Space == nsRDF || n.Space == "xmlns" || n.Space == "http://www.w3.org/XML/1998/namespace" {
		return "", false
	}
	if prefix, ok := prefixes[n.Space]; ok {
		return prefix + ":" + n.Local, true
	}
	return n.Local, true
}
