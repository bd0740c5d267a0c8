package main

import (
	"flag"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/kutil/util"
)

func main() {
	verbosity := flag.Int("v", 0, "log verbosity")
	logFile := flag.String("log", "", "log to this file instead of stderr")
	flag.Parse()

	var path *string
	if *logFile != "" {
		path = logFile
	}
	commonlog.Configure(*verbosity, path)

	if err := newServer().run(); err != nil {
		commonlog.GetLogger("bci.lsp").Errorf("server stopped: %s", err)
		util.Exit(1)
	}
	util.Exit(0)
}
