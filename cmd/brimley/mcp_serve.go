package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/farkelheizen/brimley/internal/dispatch"
	"github.com/farkelheizen/brimley/internal/mcpexport"
	"github.com/farkelheizen/brimley/internal/runtime"
)

// runMCPServe loads a project, prints the tool-export list, optionally
// starts auto-reload, and then waits for SIGINT/SIGTERM. It starts no
// listener of its own: nothing in this process forwards tool calls into
// localDispatcher.Invoke. The wire protocol itself (stdio/HTTP JSON-RPC)
// is left to a host embedding mcpexport.Dispatcher — see SPEC_FULL.md's
// DOMAIN STACK section for why that protocol layer is out of scope here.
func runMCPServe(args []string) error {
	fs := flag.NewFlagSet("mcp-serve", flag.ExitOnError)
	root := fs.String("root", ".", "project root to scan")
	watchFlag := fs.Bool("watch", true, "enable auto-reload while serving")
	fs.Parse(args)

	rtCtx, loadResult, err := bootstrap(*root)
	if err != nil {
		return err
	}
	printReloadResult("loaded", loadResult)

	d := &localDispatcher{ctx: rtCtx, dispatcher: dispatch.New()}
	tools, err := d.Tools()
	if err != nil {
		return err
	}
	fmt.Printf("mcp-serve: %d tool(s) exported\n", len(tools))
	for _, t := range tools {
		fmt.Printf("  %s (%s)\n", t.Name, t.Signature[:12])
	}

	if *watchFlag {
		ctrl := newController(*root, rtCtx, controllerLifecycle())
		if err := ctrl.StartAutoReload(); err != nil {
			return fmt.Errorf("start auto-reload: %w", err)
		}
		defer ctrl.StopAutoReload()
	}

	fmt.Println("mcp-serve: waiting (ctrl-c to stop)")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	return nil
}

// localDispatcher adapts a runtime.Context + dispatch.Dispatcher pair to
// mcpexport.Dispatcher.
type localDispatcher struct {
	ctx        *runtime.Context
	dispatcher *dispatch.Dispatcher
}

func (d *localDispatcher) Tools() ([]mcpexport.Tool, error) {
	var tools []mcpexport.Tool
	for _, fn := range d.ctx.Functions().Iterate() {
		common := fn.CommonFields()
		if common.MCP == nil || common.MCP.Type != "tool" {
			continue
		}
		tool, err := mcpexport.BuildTool(fn)
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

func (d *localDispatcher) Invoke(toolName string, args map[string]any) (any, error) {
	fn, err := d.ctx.Functions().Get(toolName)
	if err != nil {
		return nil, err
	}
	common := fn.CommonFields()
	if common.MCP == nil || common.MCP.Type != "tool" {
		return nil, fmt.Errorf("function %q is not tool-exported", toolName)
	}
	ext := &runtime.ExternalContext{Raw: "mcp"}
	return d.dispatcher.Run(context.Background(), d.ctx, fn, args, ext, d.ctx.Execution)
}
