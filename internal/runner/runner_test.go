package runner_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"novavm/internal/runner"
	"novavm/pkg/bytecode"
	"novavm/pkg/interpreter"
	"novavm/pkg/program"
)

func newRunner(t *testing.T, configContent string) (*runner.Runner, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "nova.toml")
	if err := os.WriteFile(cfg, []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	return &runner.Runner{ConfigFile: cfg, NoColor: true, Output: &out}, &out
}

func TestRunSample(t *testing.T) {
	r, out := newRunner(t, "[gc]\nthreshold = 1\n")
	r.Sample = "math"

	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "25\n10\nI am Timothy\n150\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestDisassembleOnly(t *testing.T) {
	r, out := newRunner(t, "")
	r.Sample = "loop"
	r.Disassemble = true

	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	listing := out.String()
	for _, want := range []string{"=== Disassembly ===", "LOADFLOAT", "LESSJUMP R0, R1"} {
		if !strings.Contains(listing, want) {
			t.Errorf("expected %q in listing:\n%s", want, listing)
		}
	}
	if strings.Contains(listing, "\n1\n") {
		t.Errorf("disassembly must not execute the program")
	}
}

func TestWriteThenRunImage(t *testing.T) {
	image := filepath.Join(t.TempDir(), "loop.nvbc")

	r, _ := newRunner(t, "")
	r.Sample = "loop"
	r.OutputFile = image
	if err := r.Run(); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, out := newRunner(t, "")
	r.ProgramFile = image
	if err := r.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "1\n2\n3\n4\n5\n6\n7\n8\n9\n" {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestFaultWritesDump(t *testing.T) {
	dir := t.TempDir()
	image := filepath.Join(dir, "div.nvbc")
	dump := filepath.Join(dir, "crash.cbor")

	p := program.New()
	p.AddConstant(program.Int(1))
	p.AddConstant(program.Int(0))
	p.Emit(
		bytecode.NewLoadK(0, 0),
		bytecode.NewLoadK(1, 1),
		bytecode.NewBinary(bytecode.OpDiv, 2, 0, 1),
		bytecode.NewHalt(),
	)
	if err := program.WriteFile(image, p); err != nil {
		t.Fatal(err)
	}

	r, out := newRunner(t, "[diagnostics]\ndump-file = \""+filepath.ToSlash(dump)+"\"\n")
	r.ProgramFile = image

	err := r.Run()
	if !errors.Is(err, interpreter.ErrDivisionByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
	if !strings.Contains(out.String(), "Fault at 0002") || !strings.Contains(out.String(), "DIV R2, R0, R1") {
		t.Errorf("expected fault report, got %q", out.String())
	}

	data, err := os.ReadFile(dump)
	if err != nil {
		t.Fatalf("expected crash dump: %v", err)
	}
	snap, err := interpreter.DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("decode dump: %v", err)
	}
	if snap.PC != 2 || !strings.Contains(snap.Fault, "division by zero") {
		t.Errorf("unexpected dump %+v", snap)
	}
}

func TestRunErrors(t *testing.T) {
	r, _ := newRunner(t, "")
	if err := r.Run(); !errors.Is(err, runner.ErrNoProgram) {
		t.Errorf("expected ErrNoProgram, got %v", err)
	}

	r, _ = newRunner(t, "")
	r.Sample = "missing"
	if err := r.Run(); err == nil {
		t.Error("expected error for unknown sample")
	}

	r, _ = newRunner(t, "")
	r.Sample = "loop"
	r.MaxSteps = 5
	if err := r.Run(); !errors.Is(err, interpreter.ErrMaxStepsExceeded) {
		t.Errorf("expected ErrMaxStepsExceeded, got %v", err)
	}

	r, _ = newRunner(t, "[vm]\nmax-steps = -1\n")
	r.Sample = "loop"
	if err := r.Run(); err == nil {
		t.Error("expected invalid config to be rejected")
	}
}
