// Command pathwise is a conversational learning-path planner.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fatal(err)
		os.Exit(1)
	}
}
