package main

import (
	"context"
	"fmt"
	"os"

	"github.com/asciimoth/yubikey-setup/cmd/yubikey-setup/commands"
	"github.com/asciimoth/yubikey-setup/pkg/engine"
	"github.com/asciimoth/yubikey-setup/pkg/ui"
)

// Version is set via ldflags during build.
var Version = "dev"

func main() {
	os.Exit(run())
}

// run executes the command tree and maps the outcome to an exit code.
// The farewell line prints unconditionally, including after interruption.
func run() int {
	defer fmt.Println("\nBye")

	err := commands.Execute(context.Background(), Version)
	switch {
	case err == nil:
		return 0
	case engine.IsInterrupted(err):
		fmt.Println(ui.Red("\nInterrupted by user"))
		return 130
	default:
		fmt.Fprintln(os.Stderr, ui.Red("Error: ")+err.Error())
		return 1
	}
}
