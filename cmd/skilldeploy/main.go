package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/skilldeploy/internal/cli"
	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(skilldeploy.ExitPanic)
		}
	}()

	if os.Getenv("SKILLDEPLOY_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(skilldeploy.ExitCodeForError(err))
	}
}
