package custodian

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCustodianRunsSingleJob(t *testing.T) {
	dir := t.TempDir()
	runner := &RecordingRunner{}
	c := &Custodian{Runner: runner, MaxErrors: 5}
	job := QCJob{Command: "qchem", MaxCores: 4}
	if err := c.Run(context.Background(), dir, Single(job)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runner.Calls) != 1 {
		t.Fatalf("expected 1 invocation, got %d", len(runner.Calls))
	}
	call := runner.Calls[0]
	if call.Dir != dir {
		t.Fatalf("expected run dir %s, got %s", dir, call.Dir)
	}
	if call.Args[0] != "qchem" {
		t.Fatalf("unexpected command: %v", call.Args)
	}
	if call.LogPath != filepath.Join(dir, DefaultLogFile) {
		t.Fatalf("unexpected log path: %s", call.LogPath)
	}
}

// correctingHandler flags an error until its correction has been applied.
type correctingHandler struct {
	checks    int
	corrected bool
}

func (h *correctingHandler) Name() string { return "correcting" }

func (h *correctingHandler) Check(string) bool {
	h.checks++
	return !h.corrected
}

func (h *correctingHandler) Correct(string) error {
	h.corrected = true
	return nil
}

func TestCustodianReRunsAfterCorrection(t *testing.T) {
	dir := t.TempDir()
	runner := &RecordingRunner{}
	handler := &correctingHandler{}
	c := &Custodian{Runner: runner, Handlers: []ErrorHandler{handler}, MaxErrors: 5}
	if err := c.Run(context.Background(), dir, Single(QCJob{Command: "qchem"})); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runner.Calls) != 2 {
		t.Fatalf("expected re-run after correction, got %d invocations", len(runner.Calls))
	}
	if !handler.corrected {
		t.Fatal("expected correction to be applied")
	}
}

// stuckHandler always reports the same error.
type stuckHandler struct{}

func (stuckHandler) Name() string        { return "stuck" }
func (stuckHandler) Check(string) bool   { return true }
func (stuckHandler) Correct(string) error { return nil }

func TestCustodianEnforcesMaxErrors(t *testing.T) {
	dir := t.TempDir()
	runner := &RecordingRunner{}
	c := &Custodian{Runner: runner, Handlers: []ErrorHandler{stuckHandler{}}, MaxErrors: 3}
	err := c.Run(context.Background(), dir, Single(QCJob{Command: "qchem"}))
	if err == nil {
		t.Fatal("expected max errors to abort the run")
	}
	if !strings.Contains(err.Error(), "max errors") {
		t.Fatalf("unexpected error: %v", err)
	}
	// One initial run plus one re-run per allowed correction.
	if len(runner.Calls) != 4 {
		t.Fatalf("expected 4 invocations, got %d", len(runner.Calls))
	}
}

func TestCustodianUnclaimedNonZeroExitFails(t *testing.T) {
	dir := t.TempDir()
	runner := &RecordingRunner{Code: 2}
	c := &Custodian{Runner: runner, MaxErrors: 5}
	err := c.Run(context.Background(), dir, Single(QCJob{Command: "qchem"}))
	if err == nil {
		t.Fatal("expected failure for unclaimed non-zero exit")
	}
	if !strings.Contains(err.Error(), "code 2") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCustodianGzipsOutputs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mol.qout"), []byte("output body"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "done.gz"), []byte("already compressed"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0755); err != nil {
		t.Fatal(err)
	}
	runner := &RecordingRunner{}
	c := &Custodian{Runner: runner, MaxErrors: 5, GzipOutput: true}
	job := QCJob{Command: "qchem", SaveScratch: true}
	if err := c.Run(context.Background(), dir, Single(job)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mol.qout")); !os.IsNotExist(err) {
		t.Fatal("expected original output to be replaced")
	}
	f, err := os.Open(filepath.Join(dir, "mol.qout.gz"))
	if err != nil {
		t.Fatalf("expected gzipped output: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read gzip: %v", err)
	}
	if string(body) != "output body" {
		t.Fatalf("gzip content mismatch: %q", body)
	}
	if _, err := os.Stat(filepath.Join(dir, "done.gz.gz")); !os.IsNotExist(err) {
		t.Fatal("expected already-compressed file to be skipped")
	}
}
