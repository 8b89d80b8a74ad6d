// Command mdrctl queries and patches syntax entities in the metadata
// repository graph.
package main

import (
	"os"

	"github.com/mariusconjeaud/openstudybuilder-solution-lite-sub000/internal/interfaces/cli"
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
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
