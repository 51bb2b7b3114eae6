package jpeg

import (
	"bytes"
	"encoding/binary"
)

var photoshopHeader = []byte("Photoshop 3.0\x00")

// Dataset is one IPTC IIM record from an APP13 Photoshop resource.
type Dataset struct {
	Record byte
	ID     byte
	Name   string // "" when the dataset is not one of the common ones
	Value  string
}

var iptcFieldNames = map[byte]string{
	0x05: "ObjectName",
	0x0F: "Category",
	0x14: "SupplementalCategory",
	0x19: "Keywords",
	0x1E: "DateCreated",
	0x1F: "TimeCreated",
	0x28: "SpecialInstructions",
	0x37: "DigitalCreationDate",
	0x3C: "Byline",
	0x3E: "BylineTitle",
	0x46: "City",
	0x4E: "Province",
	0x55: "Country",
	0x67: "OriginalTransmissionReference",
	0x69: "Headline",
	0x6E: "Credit",
	0x73: "Source",
	0x74: "CopyrightNotice",
	0x76: "Contact",
	0x78: "Caption",
	0x7A: "CaptionWriter",
}

// IPTC returns the IPTC datasets carried in the container's APP13
// segments. Malformed resource blocks are skipped, not reported.
func IPTC(container []byte) ([]Dataset, error) {
	s, err := parse(container)
	if err != nil {
		return nil, err
	}
	var out []Dataset
	for _, seg := range s.segments {
		if seg.marker != markerAPP13 || !bytes.HasPrefix(seg.data, photoshopHeader) {
			continue
		}
		out = append(out, parseResources(seg.data[len(photoshopHeader):])...)
	}
	return out, nil
}

// parseResources walks "8BIM" Photoshop resource blocks looking for the
// IPTC-NAA resource (0x0404).
func parseResources(data []byte) []Dataset {
	var out []Dataset
	i := 0
	for i+8 < len(data) {
		if !bytes.Equal(data[i:i+4], []byte("8BIM")) {
			i++
			continue
		}
		resType := binary.BigEndian.Uint16(data[i+4 : i+6])
		// Pascal name, padded to an even total length.
		nameLen := int(data[i+6])
		if nameLen%2 == 0 {
			nameLen++
		}
		i += 7 + nameLen
		if i+4 > len(data) {
			break
		}
		blockLen := int(binary.BigEndian.Uint32(data[i : i+4]))
		i += 4
		if blockLen < 0 || i+blockLen > len(data) {
			break
		}
		if resType == 0x0404 {
			out = append(out, parseIIM(data[i:i+blockLen])...)
		}
		i += blockLen
		if blockLen%2 != 0 {
			i++
		}
	}
	return out
}

func parseIIM(data []byte) []Dataset {
	var out []Dataset
	i := 0
	for i+5 <= len(data) {
		if data[i] != 0x1C {
			i++
			continue
		}
		record := data[i+1]
		id := data[i+2]
		length := int(binary.BigEndian.Uint16(data[i+3 : i+5]))
		i += 5
		if i+length > len(data) {
			break
		}
		d := Dataset{Record: record, ID: id, Value: string(data[i : i+length])}
		if record == 2 {
			d.Name = iptcFieldNames[id]
		}
		out = append(out, d)
		i += length
	}
	return out
}
