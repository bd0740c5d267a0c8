package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"bci/internal/asm"
	"bci/internal/config"
	"bci/internal/report"
	"bci/internal/runtimeio"
	"bci/internal/vm"
)

func runRun(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stdout)
	debug := fs.Bool("d", false, "print the instruction trace and the allocation delta")
	configPath := fs.String("config", "", "settings file (default: nearest "+config.FileName+")")
	reportPath := fs.String("report", "", "write a CBOR run report to this file")
	gc := fs.String("gc", "", "collection policy: every or watermark")
	maxSteps := fs.Int64("max-steps", 0, "stop after this many instructions (0 = unlimited)")
	maxValues := fs.Int("max-values", 0, "ceiling on live heap values (0 = unlimited)")
	verbosity := fs.Int("v", 0, "log verbosity")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(stdout, usage)
		return 1
	}
	path := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(stdout, "config error:", err)
		return 1
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "gc":
			cfg.GC.Policy = *gc
		case "max-steps":
			cfg.VM.MaxSteps = *maxSteps
		case "max-values":
			cfg.GC.MaxValues = *maxValues
		case "v":
			cfg.Log.Verbosity = *verbosity
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stdout, "config error:", err)
		return 1
	}
	configureLogging(cfg.Log)

	ins, err := loadProgram(path)
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	m := vm.New(ins)
	cfg.Apply(m)
	m.SetOutput(stdout)
	if *debug || cfg.VM.Trace {
		m.SetTrace(stdout)
	}
	res, runErr := m.Run()

	if *reportPath != "" {
		if err := report.WriteFile(*reportPath, report.New(ins, m, res, runErr)); err != nil {
			fmt.Fprintln(stdout, "report error:", err)
			return 1
		}
	}
	if runErr != nil {
		fmt.Fprintln(stdout, runErr)
		return 1
	}

	if *debug {
		fmt.Fprintf(stdout, ". Memory allocated delta: %d\n", res.Leaked)
		if res.Leaked > 0 {
			fmt.Fprintf(stdout, ". Memory leak detected: %d allocations leaked\n", res.Leaked)
		}
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.FindAndLoad(".")
}

// loadProgram reads bytecode, assembling it first when path names a .bca
// file.
func loadProgram(path string) ([]byte, error) {
	b, err := runtimeio.ReadProgram(path)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(filepath.Ext(path), ".bca") {
		return b, nil
	}
	ins, err := asm.Assemble(string(b))
	if err != nil {
		var asmErr *asm.Error
		if errors.As(err, &asmErr) {
			return nil, errors.New(asmErr.Format(path))
		}
		return nil, err
	}
	return ins, nil
}
