// Command pidl is a demonstration CLI over the pidl pipeline library: load
// a declarative YAML pipeline, explain its wave plan, or run it with an
// optional live dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/havenworks/pidl/internal/pidllog"
)

func main() {
	appLogger, err := pidllog.New(pidllog.Options{Level: "info"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create application logger: %v\n", err)
		os.Exit(1)
	}

	rootCmd := newRootCmd(appLogger)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
