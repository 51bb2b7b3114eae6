// Package batch runs a metadata operation over many files, isolating
// failures per file.
package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	log "github.com/dsoprea/go-logging"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ifex-photo/ifex/core"
)

var batchLogger = log.NewLogger("ifex.batch")

// Resolver returns the handler for a file.
type Resolver func(path string) (core.Handler, error)

// Op is the work done for a single file.
type Op func(h core.Handler, path string) error

// FileResult is the outcome for one file.
type FileResult struct {
	Path string
	Err  error
}

// Result summarises a batch run. Files is in input order.
type Result struct {
	Processed int
	Failed    int
	Files     []FileResult
}

// Err combines the per-file errors, or returns nil when every file
// succeeded.
func (r Result) Err() error {
	var result *multierror.Error
	for _, f := range r.Files {
		if f.Err != nil {
			result = multierror.Append(result, errors.Wrap(f.Err, f.Path))
		}
	}
	return result.ErrorOrNil()
}

// Process runs op on every path using up to workers goroutines. A file
// whose handler cannot be resolved, or whose op fails, is counted as failed
// and does not stop the others.
func Process(resolve Resolver, paths []string, workers int, op Op) Result {
	if workers < 1 {
		workers = 1
	}
	files := make([]FileResult, len(paths))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				files[i] = FileResult{Path: paths[i], Err: run(resolve, paths[i], op)}
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	r := Result{Files: files}
	for _, f := range files {
		if f.Err != nil {
			r.Failed++
			batchLogger.Warningf(nil, "Failed [%s]: %v", f.Path, f.Err)
		} else {
			r.Processed++
		}
	}
	return r
}

func run(resolve Resolver, path string, op Op) error {
	h, err := resolve(path)
	if err != nil {
		return err
	}
	return op(h, path)
}

// Collect expands args into the list of files to process. Directories are
// walked recursively and contribute only files with a supported extension;
// plain file arguments are kept as given.
func Collect(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			out = append(out, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if core.SupportedExtension(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walk %s", arg)
		}
	}
	return out, nil
}

// ─── Capture time spreading ──────────────────────────────────────────────────

// CaptureLayout is the EXIF date/time format.
const CaptureLayout = "2006:01:02 15:04:05"

// ErrNoCaptureTime means the first file of a batch carries no readable
// capture time to count from.
var ErrNoCaptureTime = errors.New("batch: no capture time")

// captureKeys are the readout keys searched for a capture time, in order.
var captureKeys = []string{
	"Date/Time Original", "Date/Time", "Date/Time Digitized",
	"exif:DateTimeOriginal", "tiff:DateTime", "exif:DateTimeDigitized",
}

// CaptureTime returns the capture time shown by View, preferring the
// original capture over the modification and digitisation times.
func CaptureTime(h core.Handler, path string) (time.Time, error) {
	m, err := h.View(path)
	if err != nil {
		return time.Time{}, err
	}
	for _, key := range captureKeys {
		if v, ok := m.Get(key); ok {
			if t, err := time.Parse(CaptureLayout, strings.TrimSpace(v)); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, errors.Wrapf(ErrNoCaptureTime, "%s", path)
}

// SameCaptureTime reports whether every path has a capture time within one
// second of the first. An unreadable time counts as different.
func SameCaptureTime(resolve Resolver, paths []string) bool {
	if len(paths) < 2 {
		return false
	}
	var first time.Time
	for i, path := range paths {
		h, err := resolve(path)
		if err != nil {
			return false
		}
		t, err := CaptureTime(h, path)
		if err != nil {
			return false
		}
		if i == 0 {
			first = t
			continue
		}
		if d := t.Sub(first); d > time.Second || d < -time.Second {
			return false
		}
	}
	return true
}

// SpreadCaptureTimes orders paths by file name and gives each file after
// the first the first file's capture time plus its index in seconds. The
// first file keeps its own time. Fewer than two files is a no-op.
func SpreadCaptureTimes(resolve Resolver, paths []string, workers int) (Result, error) {
	if len(paths) < 2 {
		return Result{}, nil
	}
	sorted := append([]string(nil), paths...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i]) < filepath.Base(sorted[j])
	})

	h, err := resolve(sorted[0])
	if err != nil {
		return Result{}, err
	}
	base, err := CaptureTime(h, sorted[0])
	if err != nil {
		return Result{}, err
	}
	batchLogger.Debugf(nil, "Spreading capture times over (%d) files from [%s].", len(sorted), base.Format(CaptureLayout))

	index := make(map[string]int, len(sorted))
	for i, p := range sorted {
		index[p] = i
	}
	return Process(resolve, sorted[1:], workers, func(h core.Handler, path string) error {
		stamp := core.Text(base.Add(time.Duration(index[path]) * time.Second).Format(CaptureLayout))
		return h.Apply(path, "", core.EditOptions{Set: core.FieldSet{
			"DateTime":          stamp,
			"DateTimeOriginal":  stamp,
			"DateTimeDigitized": stamp,
		}})
	}), nil
}
