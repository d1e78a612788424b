package fmtx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const bom = "\uFEFF"

// Summary is the outcome of a file-harness run.
type Summary struct {
	Checked int // files inspected
	Changed int // files rewritten (format) or found unformatted (check)
	Failed  int // files whose formatter reported an error
}

// Runner drives formatting over many files in parallel, one bounded worker
// per file. The zero value is usable.
type Runner struct {
	// Logger receives per-file events. Defaults to a nop logger.
	Logger *zap.Logger
	// Out receives check-mode diffs and per-file names. Defaults to stdout.
	Out io.Writer
	// Concurrency bounds the parallel file workers. Defaults to NumCPU.
	Concurrency int
	// Options are resolved once per run.
	Options Options
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

// CollectFiles walks the include roots and returns every supported file not
// under an exclude root, sorted for deterministic processing.
func CollectFiles(include, exclude []string) ([]string, error) {
	excluded := func(path string) bool {
		for _, ex := range exclude {
			if ex == "" {
				continue
			}
			if path == ex || strings.HasPrefix(path, ex+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}

	seen := make(map[string]struct{})
	var files []string
	for _, root := range include {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if excluded(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if excluded(path) || KindFor(path) == KindUnsupported {
				return nil
			}
			if _, ok := seen[path]; !ok {
				seen[path] = struct{}{}
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(files)
	return files, nil
}

// FormatFiles formats every path in place, rewriting only files whose
// formatted text differs. I/O failures abort with an error; formatter errors
// are counted and logged per file.
func (r *Runner) FormatFiles(ctx context.Context, paths []string) (Summary, error) {
	opts := r.Options.Resolve()
	log := r.logger()

	var mu sync.Mutex
	var sum Summary

	err := r.runParallel(ctx, paths, func(path string) error {
		text, hadBOM, err := readFileText(path)
		if err != nil {
			return err
		}

		mu.Lock()
		sum.Checked++
		mu.Unlock()

		formatted, ferr := Format(KindFor(path), text, opts)
		if ferr != nil {
			mu.Lock()
			sum.Failed++
			mu.Unlock()
			log.Warn("error formatting", zap.String("path", path), zap.Error(ferr))
			return nil
		}
		if formatted == text {
			return nil
		}
		if err := writeFileText(path, formatted, hadBOM); err != nil {
			return err
		}
		mu.Lock()
		sum.Changed++
		mu.Unlock()
		log.Info("formatted", zap.String("path", path))
		return nil
	})
	return sum, err
}

// CheckFiles verifies formatting without rewriting anything. Unformatted
// files produce a diff on Out; a non-zero count is reported as an error, the
// same way a failed check exits non-zero.
func (r *Runner) CheckFiles(ctx context.Context, paths []string) (Summary, error) {
	opts := r.Options.Resolve()
	log := r.logger()

	var mu sync.Mutex // also serializes Out
	var sum Summary

	err := r.runParallel(ctx, paths, func(path string) error {
		text, _, err := readFileText(path)
		if err != nil {
			return err
		}

		mu.Lock()
		sum.Checked++
		mu.Unlock()

		formatted, ferr := Format(KindFor(path), text, opts)
		if ferr != nil {
			mu.Lock()
			sum.Failed++
			mu.Unlock()
			log.Warn("error checking", zap.String("path", path), zap.Error(ferr))
			return nil
		}
		if formatted == text {
			return nil
		}
		mu.Lock()
		sum.Changed++
		fmt.Fprintf(r.out(), "\nfrom %s:\n", path)
		writeDiff(r.out(), text, formatted)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return sum, err
	}
	if sum.Changed > 0 {
		return sum, fmt.Errorf("fmtx: found %d not formatted %s in %d checked",
			sum.Changed, filesWord(sum.Changed), sum.Checked)
	}
	return sum, nil
}

// runParallel applies fn to every path with bounded concurrency. A panicking
// file worker never takes the process down: panics are recovered and
// aggregated into an error naming every offending file. Non-panic errors are
// joined.
func (r *Runner) runParallel(ctx context.Context, paths []string, fn func(path string) error) error {
	limit := r.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var panicked []string
	var errs []error

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if p := recover(); p != nil {
					mu.Lock()
					panicked = append(panicked, fmt.Sprintf("%s: %v", path, p))
					mu.Unlock()
				}
			}()
			if err := fn(path); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
				mu.Unlock()
			}
		}(path)
	}
	wg.Wait()

	if len(panicked) > 0 {
		sort.Strings(panicked)
		errs = append(errs, fmt.Errorf("fmtx: panic formatting: %s", strings.Join(panicked, ", ")))
	}
	return errors.Join(errs...)
}

func readFileText(path string) (text string, hadBOM bool, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	text = string(raw)
	if strings.HasPrefix(text, bom) {
		return strings.TrimPrefix(text, bom), true, nil
	}
	return text, false, nil
}

func writeFileText(path, text string, hadBOM bool) error {
	if hadBOM {
		text = bom + text
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func filesWord(n int) string {
	if n == 1 {
		return "file"
	}
	return "files"
}
