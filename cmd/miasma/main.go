// cmd/miasma/main.go
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mwiater/miasma/internal/appconfig"
	cmd "github.com/mwiater/miasma/internal/cli"
	"github.com/mwiater/miasma/internal/logging"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Seams for the wiring test.
var (
	loadDotenv     = func() { _ = godotenv.Load() }
	loadConfig     = appconfig.Load
	initLogging    = logging.Init
	closeLogging   = logging.Close
	setVersionInfo = cmd.SetVersionInfo
	executeCmd     = cmd.Execute
)

// main starts the miasma CLI application by delegating to the cobra
// root command. A .env file in the working directory is loaded first so
// MIASMA_ variables can be kept next to the experiment data, and the
// logger is bootstrapped from the config file before cobra takes over;
// the root command reinitializes it once flags and env are resolved.
func main() {
	loadDotenv()

	cfg, err := loadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := initLogging(cfg.LogFilePath()); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = closeLogging() }()

	setVersionInfo(version, commit, date)
	executeCmd()
}
