package main

import (
	"flag"
	"fmt"
	"io"

	"bci/internal/report"
)

func runReport(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stdout)
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		fmt.Fprintln(stdout, "usage: bci report <run.cbor>")
		return 1
	}

	r, err := report.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(stdout, "report error:", err)
		return 1
	}
	fmt.Fprint(stdout, r.String())
	return 0
}
