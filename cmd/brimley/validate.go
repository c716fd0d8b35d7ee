package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/farkelheizen/brimley/internal/diag"
	"github.com/farkelheizen/brimley/internal/discovery"
)

// runValidate scans a project and prints every diagnostic, exiting 1 if
// any diagnostic at or above --fail-on was produced (matching SPEC_FULL.md
// §6's validate exit-code contract).
func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	root := fs.String("root", ".", "project root to scan")
	failOn := fs.String("fail-on", "error", "minimum severity (warning|error|critical) that causes a non-zero exit")
	fs.Parse(args)

	scan, err := discovery.Scan(*root)
	if err != nil {
		return err
	}

	for _, d := range scan.Diagnostics {
		fmt.Fprintln(os.Stdout, d.String())
	}
	fmt.Printf("functions=%d entities=%d diagnostics=%d\n", len(scan.Functions), len(scan.Entities), len(scan.Diagnostics))

	threshold := diag.Severity(*failOn)
	for _, d := range scan.Diagnostics {
		if severityAtLeast(d.Severity, threshold) {
			return &exitCodeError{code: 1, err: fmt.Errorf("validation found diagnostics at or above %q", threshold)}
		}
	}
	return nil
}

var severityRank = map[diag.Severity]int{
	diag.SeverityWarning:  0,
	diag.SeverityError:    1,
	diag.SeverityCritical: 2,
}

func severityAtLeast(s, threshold diag.Severity) bool {
	return severityRank[s] >= severityRank[threshold]
}
