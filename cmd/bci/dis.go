package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bci/internal/asm"
	"bci/internal/code"
	"bci/internal/runtimeio"
)

func runDis(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("dis", flag.ContinueOnError)
	fs.SetOutput(stdout)
	asText := fs.Bool("asm", false, "print assembly text that bci asm reads back")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(stdout, usage)
		return 1
	}

	ins, err := runtimeio.ReadProgram(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	if *asText {
		text, err := asm.Format(ins)
		if err != nil {
			fmt.Fprintln(stdout, "dis error:", err)
			return 1
		}
		fmt.Fprint(stdout, text)
		return 0
	}

	lines, err := code.Disassemble(ins)
	for _, l := range lines {
		fmt.Fprintln(stdout, l)
	}
	if err != nil {
		fmt.Fprintln(stdout, "dis error:", err)
		return 1
	}
	return 0
}

func runAsm(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("asm", flag.ContinueOnError)
	fs.SetOutput(stdout)
	out := fs.String("o", "", "output file (default: input with a .bc extension)")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(stdout, "usage: bci asm [-o out.bc] <file.bca>")
		return 1
	}
	path := fs.Arg(0)

	src, err := runtimeio.ReadProgram(path)
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}
	ins, err := asm.Assemble(string(src))
	if err != nil {
		var asmErr *asm.Error
		if errors.As(err, &asmErr) {
			fmt.Fprintln(stdout, asmErr.Format(path))
		} else {
			fmt.Fprintln(stdout, "asm error:", err)
		}
		return 1
	}

	dest := *out
	if dest == "" {
		if path == runtimeio.StdinPath {
			fmt.Fprintln(stdout, "asm error: -o is required when reading standard input")
			return 1
		}
		dest = strings.TrimSuffix(path, filepath.Ext(path)) + ".bc"
	}
	if err := os.WriteFile(dest, ins, 0o644); err != nil {
		fmt.Fprintln(stdout, "asm error:", err)
		return 1
	}
	return 0
}
