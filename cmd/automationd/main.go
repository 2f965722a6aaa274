//go:build windows

// Command automationd runs the desktop automation engine as a
// long-lived process: it reads one JSON request per line on stdin and
// writes one JSON response per line on stdout, dispatching each
// request to the window, input, UI automation, and capture services.
// Diagnostics go to stderr only, so a caller can pipe stdin/stdout
// without structured log lines interleaving with protocol frames.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/windowspilot/engine"
)

var version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "automationd",
		Short:   "Windows desktop automation engine, driven over stdin/stdout",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.AddCommand(newListMonitorsCmd())
	return cmd
}

// newListMonitorsCmd surfaces screenshot_control.list_monitors as a
// one-shot CLI diagnostic, for operators wiring up a new machine
// without speaking the line protocol by hand.
func newListMonitorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-monitors",
		Short: "Print the detected virtual-screen layout and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			vs := engine.EnumerateMonitors()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(vs)
		},
	}
}

func serve(in io.Reader, out io.Writer) error {
	eng, err := engine.New()
	if err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer eng.Close()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req engine.Request
		if err := json.Unmarshal(line, &req); err != nil {
			if encErr := enc.Encode(engine.Response{Result: engine.Err(engine.NewFault(engine.ErrInvalidAction, "malformed request: %v", err))}); encErr != nil {
				return encErr
			}
			continue
		}

		result := eng.Dispatch(context.Background(), req)
		if err := enc.Encode(engine.Response{ID: req.ID, Result: result}); err != nil {
			return err
		}
	}
	return scanner.Err()
}
