// Command ragsync keeps a local vector index in step with a folder of
// documents and a list of web pages.
package main

import (
	"context"
	"os"

	"github.com/custodia-labs/ragsync/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = ""

func main() {
	cli.Configure(version, openSettings, buildServices)
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
