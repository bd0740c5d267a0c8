package main

import (
	"bci/internal/config"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// configureLogging routes the interpreter loggers to stderr, or to the
// configured file. Verbosity 0 keeps debug and info output quiet.
func configureLogging(c config.LogConfig) {
	var path *string
	if c.File != "" {
		path = &c.File
	}
	commonlog.Configure(c.Verbosity, path)
}
