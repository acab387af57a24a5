// Package cli implements the plugind command tree.
package cli

import (
	"fmt"
	"io"
	"os"
)

// Options carries the persistent flags shared by every command. Empty values
// leave the config file / environment value in place.
type Options struct {
	ConfigPath  string
	Addr        string
	Roots       []string
	Concurrency int
	LogLevel    string
	LogFormat   string
	// Server points list and dispatch at a running plugind instead of a
	// local registry.
	Server string

	getenv func(string) string
}

// MainWithArgs runs the command line and returns the process exit code.
func MainWithArgs(args []string, out io.Writer) int {
	opts := &Options{getenv: os.Getenv}
	root := buildRootCmdWith(opts)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	if len(args) == 0 {
		_ = root.Usage()
		return 2
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(out, "error:", err)
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/plugind.
func Main() int { return MainWithArgs(os.Args[1:], os.Stdout) }
