// Command gitcuttle manages Git worktree-backed workspaces, including
// N-way "octopus" merge workspaces, against a versioned JSON metadata
// index.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		renderError(err)
		os.Exit(exitCodeFor(err))
	}
}
