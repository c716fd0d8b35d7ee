package main

import (
	"flag"
	"fmt"
)

// runBuild runs the full scan+reload cycle once and reports a summary,
// without starting a server or watcher — useful in CI to assert a project
// loads cleanly.
func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	root := fs.String("root", ".", "project root to scan")
	fs.Parse(args)

	_, result, err := bootstrap(*root)
	if err != nil {
		return err
	}
	printReloadResult("build", result)
	if len(result.BlockedDomains) > 0 {
		return &exitCodeError{code: 1, err: fmt.Errorf("blocked domains: %v", result.BlockedDomains)}
	}
	return nil
}
