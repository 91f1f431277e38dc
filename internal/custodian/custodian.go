package custodian

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Custodian walks a job sequence, consulting handlers after every run and
// re-invoking the job after each correction, up to MaxErrors corrections in
// total. It owns no retry strategy beyond that bound.
type Custodian struct {
	Runner     CommandRunner
	Handlers   []ErrorHandler
	MaxErrors  int
	GzipOutput bool
}

// New assembles a Custodian with the exec-backed runner.
func New(handlers []ErrorHandler, maxErrors int, gzipOutput bool) *Custodian {
	return &Custodian{
		Runner:     ExecRunner{},
		Handlers:   handlers,
		MaxErrors:  maxErrors,
		GzipOutput: gzipOutput,
	}
}

// Run executes the sequence in dir until it is exhausted or the error budget
// is spent.
func (c *Custodian) Run(ctx context.Context, dir string, seq Sequence) error {
	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	corrections := 0
	for {
		job, err := seq.Next(dir)
		if err != nil {
			return err
		}
		if job == nil {
			break
		}
		if err := job.Setup(dir); err != nil {
			return err
		}
		for {
			code, err := job.Run(ctx, runner, dir)
			if err != nil {
				return err
			}
			handler := c.detect(dir)
			if handler == nil {
				if code != 0 {
					return fmt.Errorf("custodian: job %s exited with code %d and no handler claimed it",
						job.Command, code)
				}
				break
			}
			corrections++
			if corrections > c.MaxErrors {
				return fmt.Errorf("custodian: reached max errors (%d), last error from %s",
					c.MaxErrors, handler.Name())
			}
			if err := handler.Correct(dir); err != nil {
				return err
			}
		}
		if err := job.Postprocess(dir); err != nil {
			return err
		}
	}
	if c.GzipOutput {
		return gzipDir(dir)
	}
	return nil
}

// detect returns the first handler recognizing an error, or nil.
func (c *Custodian) detect(dir string) ErrorHandler {
	for _, handler := range c.Handlers {
		if handler == nil {
			continue
		}
		if handler.Check(dir) {
			return handler
		}
	}
	return nil
}

// gzipDir compresses every regular file in dir in place, skipping files that
// are already compressed. Subdirectories are left alone.
func gzipDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("custodian: gzip %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".gz") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := gzipFile(path); err != nil {
			return err
		}
	}
	return nil
}

func gzipFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		out.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(path)
}
