package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// version is stamped via ldflags on release builds.
var version = "dev"

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
