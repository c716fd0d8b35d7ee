package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/farkelheizen/brimley/internal/schemaconvert"
)

func runSchemaConvert(args []string) error {
	fs := flag.NewFlagSet("schema-convert", flag.ExitOnError)
	inputPath := fs.String("in", "", "path to a JSON Schema file ('-' for stdin)")
	strict := fs.Bool("strict", false, "fail on any keyword this tool cannot faithfully represent")
	fs.Parse(args)

	if *inputPath == "" {
		return &exitCodeError{code: 2, err: fmt.Errorf("schema-convert requires --in")}
	}

	raw, err := readSchemaInput(*inputPath)
	if err != nil {
		return err
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		return &exitCodeError{code: 2, err: fmt.Errorf("parse schema: %w", err)}
	}

	mode := schemaconvert.ModeLossy
	if *strict {
		mode = schemaconvert.ModeStrict
	}

	result, err := schemaconvert.Convert(schema, mode, *inputPath)
	for _, d := range result.Diagnostics {
		fmt.Fprintln(os.Stderr, d.String())
	}
	if err != nil {
		return &exitCodeError{code: 2, err: err}
	}

	encoded, err := json.MarshalIndent(result.Fields, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}

func readSchemaInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}
