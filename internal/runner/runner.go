package runner

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"novavm/internal/config"
	"novavm/internal/samples"
	"novavm/pkg/color"
	"novavm/pkg/gc"
	"novavm/pkg/interpreter"
	"novavm/pkg/program"
)

var ErrNoProgram = errors.New("no program file or sample given")

type Runner struct {
	Help        bool   // Show help message
	Verbose     bool   // Enable verbose output
	Disassemble bool   // Print the listing instead of running
	Trace       bool   // Log every dispatched instruction
	NoColor     bool   // Disable colored output
	ConfigFile  string // Path to nova.toml; searched for upward from WorkDir when empty
	WorkDir     string // Directory the config search starts from
	ProgramFile string // Path to the program image
	Sample      string // Name of a built-in sample to use instead of ProgramFile
	OutputFile  string // Write the selected program as an image and stop
	DumpFile    string // Write a CBOR crash dump here on fault
	MaxSteps    int    // Step limit (0 = config value)

	Output io.Writer // Program output, stdout when nil
}

// Run loads the configuration and the program, then disassembles, writes or executes it.
func (r *Runner) Run() error {
	out := r.Output
	if out == nil {
		out = os.Stdout
	}

	cfg, err := r.loadConfig()
	if err != nil {
		return err
	}
	if r.NoColor || cfg.Output.NoColor {
		color.EnableColor(false)
	}

	p, err := r.loadProgram()
	if err != nil {
		return err
	}

	if r.OutputFile != "" {
		if err := program.WriteFile(r.OutputFile, p); err != nil {
			return fmt.Errorf("writing image failed: %w", err)
		}
		log.Info("Image written", "file", r.OutputFile, "words", len(p.Code), "constants", len(p.Constants))
		return nil
	}

	if r.Disassemble || r.Verbose {
		fmt.Fprintln(out, color.Heading("Disassembly"))
		fmt.Fprint(out, p.Disassemble())
		if r.Disassemble {
			return nil
		}
	}

	opts := []interpreter.Option{
		interpreter.WithWriter(out),
		interpreter.WithMaxFrameDepth(cfg.VM.MaxFrameDepth),
		interpreter.WithMaxSteps(cfg.VM.MaxSteps),
		interpreter.WithTrace(r.Trace || cfg.VM.Trace),
	}
	if r.MaxSteps > 0 {
		opts = append(opts, interpreter.WithMaxSteps(r.MaxSteps))
	}

	var tracer *gc.Tracer
	if cfg.GC.Enabled {
		tracer = gc.NewTracer(cfg.GC.Threshold)
		opts = append(opts, interpreter.WithCollector(tracer))
	}

	it, err := interpreter.NewInterpreter(p, opts...)
	if err != nil {
		return fmt.Errorf("loading program failed: %w", err)
	}

	if r.Verbose {
		fmt.Fprintln(out, color.Heading("Program Output"))
	}
	if err := it.Run(); err != nil {
		r.reportFault(out, it, err, cfg)
		return fmt.Errorf("execution failed: %w", err)
	}

	log.Info("Program finished", "steps", it.Steps(), "result", it.Result())
	if tracer != nil {
		s := tracer.Stats()
		log.Debug("Collector", "cycles", s.Cycles, "allocated", s.Allocated, "freed", s.Freed, "live", s.Live)
	}
	return nil
}

func (r *Runner) loadConfig() (*config.Config, error) {
	if r.ConfigFile != "" {
		return config.Load(r.ConfigFile)
	}

	dir := r.WorkDir
	if dir == "" {
		dir = "."
	}
	cfg, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		log.Debug("Using configuration", "file", cfg.Path)
	}
	return cfg, nil
}

func (r *Runner) loadProgram() (*program.Program, error) {
	if r.Sample != "" {
		p, ok := samples.Get(r.Sample)
		if !ok {
			return nil, fmt.Errorf("unknown sample %q (available: %v)", r.Sample, samples.Names())
		}
		return p, nil
	}

	if r.ProgramFile == "" {
		return nil, ErrNoProgram
	}

	log.Info("Loading image", "file", r.ProgramFile)
	p, err := program.ReadFile(r.ProgramFile)
	if err != nil {
		return nil, fmt.Errorf("reading image failed: %w", err)
	}
	return p, nil
}

// reportFault prints the diagnostic and writes the crash dump when one is configured.
func (r *Runner) reportFault(out io.Writer, it *interpreter.Interpreter, err error, cfg *config.Config) {
	if f, ok := interpreter.AsFault(err); ok {
		fmt.Fprintln(out, color.Heading("Fault"))
		fmt.Fprintln(out, color.FaultAt(f.PC, f.Error()))
		if f.Fetched {
			line, _ := it.Program().DisassembleAt(f.PC)
			fmt.Fprintf(out, "%s  %s\n", color.Address(f.PC), color.GrayText(line))
		}
	}

	path := r.DumpFile
	if path == "" {
		path = cfg.Diagnostics.DumpFile
	}
	if path == "" {
		return
	}

	data, encErr := interpreter.EncodeSnapshot(it.Snapshot())
	if encErr != nil {
		log.Error("Failed to encode crash dump", "error", encErr)
		return
	}
	if werr := os.WriteFile(path, data, 0644); werr != nil {
		log.Error("Failed to write crash dump", "file", path, "error", werr)
		return
	}
	log.Warn("Crash dump written", "file", path, "bytes", len(data))
}
