// Command mgiindexer rebuilds search indexes from the source database.
//
//	mgiindexer run allele marker --config indexer.properties
//	mgiindexer run --all --parallel 2
//	mgiindexer list
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var exitFunc = os.Exit

// main runs the command-line interface and exits with its status code.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

// usageError marks a command-line mistake; it exits with status 2.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// reportedError has already been logged.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func cli(args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	var (
		usage    *usageError
		reported *reportedError
	)
	switch {
	case errors.As(err, &usage), strings.HasPrefix(err.Error(), "unknown command"):
		_, _ = fmt.Fprintf(stderr, "Error: %v\nRun 'mgiindexer --help' for usage.\n", err)
		return 2
	case errors.As(err, &reported):
		return 1
	default:
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:           "mgiindexer",
		Short:         "Rebuild search indexes from the source database",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rc.PersistentFlags().StringP("config", "c", "", "configuration file (.properties, .yaml or .toml)")
	rc.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	rc.AddCommand(newRunCommand(stdout, stderr))
	rc.AddCommand(newListCommand(stdout))
	return rc
}
