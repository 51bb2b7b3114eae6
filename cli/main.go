package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ifex-photo/ifex/core"
	"github.com/ifex-photo/ifex/core/batch"
	"github.com/ifex-photo/ifex/core/image"
	"github.com/ifex-photo/ifex/core/tags"
)

const usage = `Usage:
  ifex view   [--json] <file|dir>...
  ifex apply  [--set Key=Value]... [--delete Key]... [--out file] [--dry-run]
              [--no-verify] [--workers n] [--one-sec] [--json] <file|dir>...
  ifex erase  [--all] [--out file] [--dry-run] [--json] <file|dir>...
  ifex fields
  ifex config [--init]

Directories are processed recursively. TIFF, DNG and RAW files are never
modified; apply and erase act on an XMP sidecar next to them.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		core.PrintError(err.Error())
		os.Exit(1)
	}

	var code int
	switch os.Args[1] {
	case "view":
		code = runView(cfg, os.Args[2:])
	case "apply":
		code = runApply(cfg, os.Args[2:])
	case "erase":
		code = runErase(cfg, os.Args[2:])
	case "fields":
		code = runFields()
	case "config":
		code = runConfig(cfg, os.Args[2:])
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		core.PrintError(fmt.Sprintf("unknown command %q", os.Args[1]))
		fmt.Fprintln(os.Stderr, usage)
		code = 2
	}
	os.Exit(code)
}

// listFlag collects a repeated string flag.
type listFlag []string

func (l *listFlag) String() string     { return strings.Join(*l, ",") }
func (l *listFlag) Set(v string) error { *l = append(*l, v); return nil }

// ─── view ────────────────────────────────────────────────────────────────────

func runView(cfg core.Config, args []string) int {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	jsonOut := fs.Bool("json", false, "print JSON")
	width := fs.Int("width", cfg.TruncateAt, "truncate values to this many characters")
	fs.Parse(args)
	cfg.TruncateAt = *width

	paths, ok := collect(fs.Args())
	if !ok {
		return 1
	}
	p := newPrinter(*jsonOut)
	r := batch.Process(batch.Resolver(image.Resolver(cfg)), paths, 1, func(h core.Handler, path string) error {
		m, err := h.View(path)
		if err != nil {
			return err
		}
		p.PrintMetadata(m)
		return nil
	})
	return report(p, r, len(paths) > 1)
}

// ─── apply ───────────────────────────────────────────────────────────────────

func runApply(cfg core.Config, args []string) int {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	var set, del listFlag
	fs.Var(&set, "set", "field to write, as Key=Value (repeatable)")
	fs.Var(&del, "delete", "field to remove (repeatable)")
	out := fs.String("out", "", "write to this file instead of in place (single input only)")
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")
	noVerify := fs.Bool("no-verify", !cfg.Verify, "skip the read-back check after writing a JPEG")
	workers := fs.Int("workers", cfg.Workers, "files processed concurrently")
	oneSec := fs.Bool("one-sec", cfg.SpreadCaptureTimes, "space capture times one second apart, in file name order")
	jsonOut := fs.Bool("json", false, "print JSON")
	fs.Parse(args)

	fields, bad := core.ParseAssignments(set)
	if bad != "" {
		core.PrintError(fmt.Sprintf("expected Key=Value, got %q", bad))
		return 2
	}
	if len(fields) == 0 && len(del) == 0 && !*oneSec {
		core.PrintError("nothing to apply: use --set, --delete or --one-sec")
		return 2
	}
	cfg.Verify = !*noVerify

	paths, ok := collect(fs.Args())
	if !ok {
		return 1
	}
	if *out != "" && len(paths) != 1 {
		core.PrintError("--out needs exactly one input file")
		return 2
	}

	p := newPrinter(*jsonOut)
	resolve := batch.Resolver(image.Resolver(cfg))
	opts := core.EditOptions{Set: fields, Delete: del, DryRun: *dryRun}

	// Each pass reports its own counts; the spread pass leaves the first
	// file alone, so its total is one short of the field pass.
	ran, code := false, 0
	if len(fields) > 0 || len(del) > 0 {
		r := batch.Process(resolve, paths, *workers, func(h core.Handler, path string) error {
			if err := h.Apply(path, *out, opts); err != nil {
				return err
			}
			if !*dryRun && !*jsonOut {
				p.PrintSuccess(path)
			}
			return nil
		})
		ran, code = true, report(p, r, true)
	}

	if *oneSec && len(paths) > 1 && !*dryRun {
		if batch.SameCaptureTime(resolve, paths) {
			p.PrintInfo("All files share a capture time. Spacing them one second apart.")
		} else {
			p.PrintInfo("Capture times differ. Spacing them one second apart from the first file.")
		}
		spread, err := batch.SpreadCaptureTimes(resolve, paths, *workers)
		if err != nil {
			core.PrintError(err.Error())
			return 1
		}
		p.PrintInfo("Capture times:")
		if report(p, spread, true) != 0 {
			code = 1
		}
		ran = true
	}
	if !ran {
		p.PrintCounts(0, 0)
	}
	return code
}

// ─── erase ───────────────────────────────────────────────────────────────────

func runErase(cfg core.Config, args []string) int {
	fs := flag.NewFlagSet("erase", flag.ExitOnError)
	all := fs.Bool("all", false, "also remove XMP and JFIF segments")
	out := fs.String("out", "", "write to this file instead of in place (single input only)")
	dryRun := fs.Bool("dry-run", false, "report what would change without writing")
	workers := fs.Int("workers", cfg.Workers, "files processed concurrently")
	jsonOut := fs.Bool("json", false, "print JSON")
	fs.Parse(args)

	paths, ok := collect(fs.Args())
	if !ok {
		return 1
	}
	if *out != "" && len(paths) != 1 {
		core.PrintError("--out needs exactly one input file")
		return 2
	}

	p := newPrinter(*jsonOut)
	opts := core.EraseOptions{All: *all, DryRun: *dryRun}
	r := batch.Process(batch.Resolver(image.Resolver(cfg)), paths, *workers, func(h core.Handler, path string) error {
		if err := h.Erase(path, *out, opts); err != nil {
			return err
		}
		if !*dryRun && !*jsonOut {
			p.PrintSuccess(path)
		}
		return nil
	})
	return report(p, r, true)
}

// ─── fields ──────────────────────────────────────────────────────────────────

func runFields() int {
	for _, info := range tags.Writable() {
		fmt.Printf("%-20s %-28s %-9s %s\n", info.Name, info.Display, info.Type, info.XMP)
	}
	return 0
}

// ─── config ──────────────────────────────────────────────────────────────────

func runConfig(cfg core.Config, args []string) int {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	write := fs.Bool("init", false, "write the current settings to the config file")
	fs.Parse(args)

	path, err := core.ConfigPath()
	if err != nil {
		core.PrintError(err.Error())
		return 1
	}
	if *write {
		if err := cfg.Save(path); err != nil {
			core.PrintError(err.Error())
			return 1
		}
	}
	fmt.Printf("config: %s\n", path)
	fmt.Printf("  verify               %v\n", cfg.Verify)
	fmt.Printf("  truncate_at          %d\n", cfg.TruncateAt)
	fmt.Printf("  workers              %d\n", cfg.Workers)
	fmt.Printf("  spread_capture_times %v\n", cfg.SpreadCaptureTimes)
	return 0
}

// ─── helpers ─────────────────────────────────────────────────────────────────

var stdout io.Writer = os.Stdout

func newPrinter(jsonOut bool) *core.Printer {
	p := core.NewPrinter(jsonOut, false)
	p.Writer = stdout
	return p
}

func collect(args []string) ([]string, bool) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return nil, false
	}
	paths, err := batch.Collect(args)
	if err != nil {
		core.PrintError(err.Error())
		return nil, false
	}
	if len(paths) == 0 {
		core.PrintError("no supported files found")
		return nil, false
	}
	return paths, true
}

func report(p *core.Printer, r batch.Result, counts bool) int {
	for _, f := range r.Files {
		if f.Err != nil {
			core.PrintError(fmt.Sprintf("%s: %v", f.Path, f.Err))
		}
	}
	if counts {
		p.PrintCounts(r.Processed, r.Failed)
	}
	if r.Failed > 0 {
		return 1
	}
	return 0
}
