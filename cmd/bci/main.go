package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/kutil/util"
)

const usage = "Usage: bci [dis | run] [-d] <file>"

func main() {
	util.Exit(cli(os.Args[1:], os.Stdout))
}

// cli runs one subcommand and returns the process exit code. A bare file
// argument, or leading flags, means run.
func cli(args []string, stdout io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stdout, usage)
		return 1
	}

	switch args[0] {
	case "run":
		return runRun(args[1:], stdout)
	case "dis":
		return runDis(args[1:], stdout)
	case "asm":
		return runAsm(args[1:], stdout)
	case "test":
		return runTest(args[1:], stdout)
	case "report":
		return runReport(args[1:], stdout)
	case "help", "-h", "-help", "--help":
		fmt.Fprintln(stdout, usage)
		fmt.Fprintln(stdout, "       bci asm [-o out.bc] <file.bca>")
		fmt.Fprintln(stdout, "       bci test [dir | file.yaml]...")
		fmt.Fprintln(stdout, "       bci report <run.cbor>")
		return 0
	}
	if strings.HasPrefix(args[0], "-") || (len(args) == 1 && fileExists(args[0])) {
		return runRun(args, stdout)
	}
	fmt.Fprintf(stdout, "Unknown command: %s\n", args[0])
	return 1
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
