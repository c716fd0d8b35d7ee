package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/farkelheizen/brimley/internal/dispatch"
)

func runInvoke(args []string) error {
	fs := flag.NewFlagSet("invoke", flag.ExitOnError)
	root := fs.String("root", ".", "project root to scan")
	input := fs.String("input", "{}", "JSON object of call arguments")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return &exitCodeError{code: 2, err: fmt.Errorf("invoke requires exactly one function name argument")}
	}
	name := fs.Arg(0)

	var userInput map[string]any
	if err := json.Unmarshal([]byte(*input), &userInput); err != nil {
		return &exitCodeError{code: 2, err: fmt.Errorf("parse --input: %w", err)}
	}

	rtCtx, loadResult, err := bootstrap(*root)
	if err != nil {
		return err
	}
	printReloadResult("loaded", loadResult)

	fn, err := rtCtx.Functions().Get(name)
	if err != nil {
		return &exitCodeError{code: 1, err: err}
	}

	d := dispatch.New()
	result, err := d.Run(context.Background(), rtCtx, fn, userInput, nil, rtCtx.Execution)
	if err != nil {
		return &exitCodeError{code: 1, err: err}
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(encoded))
	return nil
}
