// The main package for the metacrawl executable.
package main

import (
	"github.com/metacrawl/metacrawl/cmd"
)

// main defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
