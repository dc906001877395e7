// Command taskctl is the operator CLI for the task transition engine:
// inspect tasks, apply transitions, raise fix tasks, record QC
// decisions, and run database migrations.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
