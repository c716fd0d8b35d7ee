package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/farkelheizen/brimley/internal/daemon"
	"github.com/farkelheizen/brimley/internal/dispatch"
	"github.com/farkelheizen/brimley/internal/runtime"
)

// runRepl starts an interactive session against a project, mirroring the
// teacher's readline-driven chat loop: a history file under the state
// directory, Ctrl-C continues the loop, EOF exits cleanly. A repl_client
// slot is acquired for the process lifetime so only one REPL attaches to
// a project at a time.
func runRepl(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	root := fs.String("root", ".", "project root to scan")
	watchFlag := fs.Bool("watch", true, "enable auto-reload while the REPL runs")
	fs.Parse(args)

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		return err
	}

	pid := os.Getpid()
	if err := daemon.AcquireReplClientSlot(absRoot, pid); err != nil {
		return &exitCodeError{code: 1, err: err}
	}
	defer daemon.ReleaseReplClientSlot(absRoot, pid)

	rtCtx, loadResult, err := bootstrap(*root)
	if err != nil {
		return err
	}
	printReloadResult("loaded", loadResult)

	if *watchFlag {
		ctrl := newController(*root, rtCtx, controllerLifecycle())
		if err := ctrl.StartAutoReload(); err != nil {
			return fmt.Errorf("start auto-reload: %w", err)
		}
		defer ctrl.StopAutoReload()
	}

	historyDir := filepath.Join(absRoot, ".brimley")
	if err := os.MkdirAll(historyDir, 0o755); err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mbrimley>\033[0m ",
		HistoryFile:     filepath.Join(historyDir, "history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	d := dispatch.New()
	fmt.Println("Brimley REPL. Type a function name and a JSON argument object, or \"help\".")

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				break
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if err := handleReplLine(rtCtx, d, line); err != nil {
			fmt.Printf("\033[31mError: %v\033[0m\n", err)
		}
	}

	return nil
}

// handleReplLine parses one line as "<name> [json-args]" and invokes the
// named function, printing its result or surfacing a reserved-word
// built-in per SPEC_FULL.md §3.
func handleReplLine(rtCtx *runtime.Context, d *dispatch.Dispatcher, line string) error {
	name, rawArgs, _ := strings.Cut(line, " ")

	switch name {
	case "help":
		fmt.Println("Enter a function name followed by a JSON argument object, e.g.:")
		fmt.Println(`  greet {"name": "Ada"}`)
		fmt.Println("Built-ins: help, functions, entities, exit, quit")
		return nil
	case "functions":
		for _, fn := range rtCtx.Functions().Iterate() {
			fmt.Println(" ", fn.CommonFields().Name)
		}
		return nil
	case "entities":
		for _, e := range rtCtx.Entities().Iterate() {
			fmt.Println(" ", e.Name)
		}
		return nil
	case "exit", "quit":
		os.Exit(0)
	}

	rawArgs = strings.TrimSpace(rawArgs)
	if rawArgs == "" {
		rawArgs = "{}"
	}
	var userInput map[string]any
	if err := json.Unmarshal([]byte(rawArgs), &userInput); err != nil {
		return fmt.Errorf("parse arguments: %w", err)
	}

	fn, err := rtCtx.Functions().Get(name)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	result, err := d.Run(callCtx, rtCtx, fn, userInput, nil, rtCtx.Execution)
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(encoded))
	return nil
}
