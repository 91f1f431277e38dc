package custodian

import (
	"os"
	"path/filepath"
	"testing"
)

func TestQCJobArgsOpenMP(t *testing.T) {
	job := QCJob{Command: "qchem", MaxCores: 32, Multimode: MultimodeOpenMP,
		InputFile: "mol.qin", OutputFile: "mol.qout"}
	args, err := job.Args()
	if err != nil {
		t.Fatalf("Args: %v", err)
	}
	want := []string{"qchem", "-nt", "32", "mol.qin", "mol.qout"}
	assertArgs(t, args, want)
}

func TestQCJobArgsMPI(t *testing.T) {
	job := QCJob{Command: "qchem", MaxCores: 8, Multimode: MultimodeMPI,
		InputFile: "mol.qin", OutputFile: "mol.qout"}
	args, err := job.Args()
	if err != nil {
		t.Fatalf("Args: %v", err)
	}
	want := []string{"qchem", "-np", "8", "mol.qin", "mol.qout"}
	assertArgs(t, args, want)
}

func TestQCJobArgsRejectsUnknownMultimode(t *testing.T) {
	job := QCJob{Command: "qchem", Multimode: "cluster"}
	if _, err := job.Args(); err == nil {
		t.Fatal("expected error for unknown multimode")
	}
}

func TestQCJobSetupBacksUpInput(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mol.qin"), []byte("deck"), 0644); err != nil {
		t.Fatal(err)
	}
	job := QCJob{Command: "qchem", InputFile: "mol.qin", Backup: true}
	if err := job.Setup(dir); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "mol.qin.orig"))
	if err != nil {
		t.Fatalf("expected backup copy: %v", err)
	}
	if string(data) != "deck" {
		t.Fatalf("backup content mismatch: %q", data)
	}
}

func TestQCJobPostprocessSuffixAndScratch(t *testing.T) {
	dir := t.TempDir()
	job := QCJob{Command: "qchem", InputFile: "mol.qin", OutputFile: "mol.qout",
		LogFile: "mol.qclog", Suffix: ".opt_0"}
	if err := job.Setup(dir); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"mol.qin", "mol.qout", "mol.qclog"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := job.Postprocess(dir); err != nil {
		t.Fatalf("Postprocess: %v", err)
	}
	for _, name := range []string{"mol.qin.opt_0", "mol.qout.opt_0", "mol.qclog.opt_0"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected suffixed copy %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "scratch")); !os.IsNotExist(err) {
		t.Fatal("expected scratch to be removed")
	}
}

func TestQCJobPostprocessKeepsScratch(t *testing.T) {
	dir := t.TempDir()
	job := QCJob{Command: "qchem", SaveScratch: true}
	job.applyDefaults()
	if err := job.Setup(dir); err != nil {
		t.Fatal(err)
	}
	if err := job.Postprocess(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "scratch")); err != nil {
		t.Fatalf("expected scratch to survive: %v", err)
	}
}

func TestQCJobEnv(t *testing.T) {
	job := QCJob{Command: "qchem", NBOExe: "/opt/nbo7"}
	env := job.Env("/runs/a")
	assertArgs(t, env, []string{"QCSCRATCH=" + filepath.Join("/runs/a", "scratch"), "NBOEXE=/opt/nbo7"})

	job.CalcLoc = "/scratch/global"
	env = job.Env("/runs/a")
	if env[0] != "QCSCRATCH=/scratch/global" {
		t.Fatalf("expected calc_loc to win, got %q", env[0])
	}
}

func assertArgs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
