// Ottoflow - cook recipes as dependency graphs.
//
// Usage:
//
//	ottoflow <command> [arguments]
//
// See 'ottoflow help <command>' for more information on a specific command.
package main

import (
	"os"

	"github.com/hammamikhairi/ottoflow/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
