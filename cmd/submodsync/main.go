package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/submodsync/submodsync/internal/cli"
	"github.com/submodsync/submodsync/internal/engine"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes the failure classes: 3 when rollback failed and
// the repository needs manual inspection, 2 when an operation failed but
// was rolled back, 1 for everything caught before execution.
func exitCode(err error) int {
	switch {
	case errors.Is(err, engine.ErrRollbackFailed):
		return 3
	case errors.Is(err, engine.ErrOperationFailed):
		return 2
	default:
		return 1
	}
}
