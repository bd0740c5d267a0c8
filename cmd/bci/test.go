package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"bci/internal/conformance"
)

func runTest(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(stdout)
	quiet := fs.Bool("q", false, "only print failures and the summary")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(stdout, "usage: bci test [-q] [dir | file.yaml]...")
		return 1
	}

	targets := fs.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}

	var suites []*conformance.Suite
	for _, target := range targets {
		loaded, err := loadSuites(target)
		if err != nil {
			fmt.Fprintln(stdout, "test error:", err)
			return 1
		}
		suites = append(suites, loaded...)
	}

	passed := 0
	failed := 0
	for _, s := range suites {
		for _, o := range s.Run() {
			if o.Passed {
				passed++
				if *quiet {
					continue
				}
			} else {
				failed++
			}
			fmt.Fprintln(stdout, o)
		}
	}

	fmt.Fprintf(stdout, "%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

func loadSuites(target string) ([]*conformance.Suite, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return conformance.LoadDir(target)
	}
	s, err := conformance.LoadSuite(target)
	if err != nil {
		return nil, err
	}
	return []*conformance.Suite{s}, nil
}
