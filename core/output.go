package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Printer writes command output as aligned text or JSON.
type Printer struct {
	JSON    bool
	Verbose bool
	Writer  io.Writer
}

// NewPrinter returns a Printer writing to stdout.
func NewPrinter(jsonMode, verbose bool) *Printer {
	return &Printer{JSON: jsonMode, Verbose: verbose, Writer: os.Stdout}
}

// PrintMetadata writes the readout of one file.
func (p *Printer) PrintMetadata(m *Metadata) {
	if p.JSON {
		p.printJSON(m)
		return
	}
	p.printText(m)
}

// printText lists fields per category, in the order the categories first
// appear. Tagged fields carry their tag number; writable ones are starred.
func (p *Printer) printText(m *Metadata) {
	fmt.Fprintf(p.Writer, "%s (%s)\n", m.FilePath, m.Format)
	if len(m.Fields) == 0 {
		fmt.Fprintln(p.Writer, "  no metadata")
		return
	}

	var categories []string
	byCategory := map[string][]MetaField{}
	width := 0
	for _, f := range m.Fields {
		if _, ok := byCategory[f.Category]; !ok {
			categories = append(categories, f.Category)
		}
		byCategory[f.Category] = append(byCategory[f.Category], f)
		if n := utf8.RuneCountInString(f.Key); n > width {
			width = n
		}
	}

	for _, c := range categories {
		fmt.Fprintf(p.Writer, "── %s ──\n", c)
		for _, f := range byCategory[c] {
			tag := "      "
			if f.Tag != 0 {
				tag = fmt.Sprintf("0x%04X", f.Tag)
			}
			mark := " "
			if f.Editable {
				mark = "*"
			}
			pad := strings.Repeat(" ", width-utf8.RuneCountInString(f.Key))
			fmt.Fprintf(p.Writer, "  %s %s %s%s  %s\n", tag, mark, f.Key, pad, f.Value)
		}
	}
	if p.Verbose {
		fmt.Fprintln(p.Writer, "  (* writable with apply)")
	}
}

type jsonField struct {
	Tag      uint16 `json:"tag,omitempty"`
	Key      string `json:"key"`
	Value    string `json:"value"`
	Category string `json:"category"`
	Editable bool   `json:"editable"`
}

type jsonMetadata struct {
	File   string      `json:"file"`
	Format string      `json:"format"`
	Fields []jsonField `json:"fields"`
}

func (p *Printer) printJSON(m *Metadata) {
	out := jsonMetadata{File: m.FilePath, Format: m.Format, Fields: []jsonField{}}
	for _, f := range m.Fields {
		out.Fields = append(out.Fields, jsonField(f))
	}
	p.emit(out)
}

func (p *Printer) emit(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		PrintError(err.Error())
		return
	}
	fmt.Fprintln(p.Writer, string(b))
}

// PrintSuccess reports a file that was written.
func (p *Printer) PrintSuccess(msg string) {
	fmt.Fprintln(p.Writer, "✓ "+msg)
}

// PrintInfo writes a note; JSON output stays machine readable so notes are
// dropped there.
func (p *Printer) PrintInfo(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, msg)
	}
}

// PrintCounts prints the outcome of a batch run.
func (p *Printer) PrintCounts(processed, failed int) {
	if p.JSON {
		p.emit(map[string]int{"processed": processed, "failed": failed})
		return
	}
	fmt.Fprintf(p.Writer, "Processed: %d  Failed: %d\n", processed, failed)
}

// PrintError writes msg to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, "✗ "+msg)
}

// ParseKV splits "Key=Value" at the first '='. The key must be non-empty.
func ParseKV(s string) (key, value string, ok bool) {
	k, v, found := strings.Cut(s, "=")
	k = strings.TrimSpace(k)
	if !found || k == "" {
		return "", "", false
	}
	return k, strings.TrimSpace(v), true
}

// ParseAssignments turns "Key=Value" arguments into a FieldSet. The
// first malformed argument is returned as bad.
func ParseAssignments(args []string) (fs FieldSet, bad string) {
	kv := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := ParseKV(a)
		if !ok {
			return nil, a
		}
		kv[k] = v
	}
	return ParseFieldSet(kv), ""
}

// ResolveOutPath returns dst, or src when dst is empty.
func ResolveOutPath(src, dst string) string {
	if dst == "" {
		return src
	}
	return dst
}
