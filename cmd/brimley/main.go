// Brimley - local function-hosting runtime
// Discovers, validates, and dispatches SQL/template/native functions out
// of a project directory, with fail-closed hot reload and an MCP tool
// export surface.
package main

import (
	"flag"
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	flag.Usage = printUsage

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "invoke":
		err = runInvoke(args)
	case "repl":
		err = runRepl(args)
	case "mcp-serve":
		err = runMCPServe(args)
	case "validate":
		err = runValidate(args)
	case "schema-convert":
		err = runSchemaConvert(args)
	case "build":
		err = runBuild(args)
	case "-version", "--version", "version":
		fmt.Printf("brimley v%s\n", version)
		return
	case "-help", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "brimley: unknown subcommand %q\n\n", cmd)
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if exitErr, ok := err.(*exitCodeError); ok {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}

// exitCodeError lets a subcommand request a specific process exit code
// (per SPEC_FULL.md §6: 0 success, 1 runtime/validation failure, 2 usage
// error) while still flowing through the ordinary error-return path.
type exitCodeError struct {
	code int
	err  error
}

func (e *exitCodeError) Error() string { return e.err.Error() }

func printUsage() {
	fmt.Fprintf(os.Stderr, `Brimley v%s - local function-hosting runtime

Usage: brimley <command> [options]

Commands:
  invoke <name>          Invoke a single function and print its result
  repl                   Start an interactive REPL against a project
  mcp-serve              Serve tool-exported functions (interface-only; see SPEC_FULL.md)
  validate               Scan a project and report diagnostics
  schema-convert         Convert a JSON Schema file into argument field specs
  build                  Scan and report a summary without starting a server
  version                Print the version
  help                   Show this help

Run "brimley <command> -h" for command-specific options.
`, version)
}
