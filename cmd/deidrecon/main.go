// Command deidrecon reconciles windowed PHI predictions into document-level
// annotations and scores them against ground truth.
package main

import (
	"os"

	"github.com/turtacn/deid-reconcile/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

func main() {
	os.Exit(cli.Execute())
}

//Personal.AI order the ending
