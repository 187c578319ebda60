// Package main provides the genpub CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mesh-intelligence/genpub/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the CLI with args and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// usageError marks bad flags or arguments.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// userErrors are failures caused by the request rather than the system.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrInvalidID,
	types.ErrInvalidData,
	types.ErrInvalidFilter,
	types.ErrDuplicate,
	types.ErrConstraint,
	types.ErrForeignKey,
	types.ErrCheck,
	types.ErrInvalidName,
	types.ErrInvalidTimestamp,
	types.ErrSchemaMismatch,
	types.ErrInvalidURI,
	types.ErrMinorWithoutMajor,
	types.ErrCharsetNotText,
	types.ErrInvalidMediaType,
	types.ErrTableNotFound,
}

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return exitUserError
	}
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	// cobra reports these as plain errors.
	msg := err.Error()
	for _, prefix := range cobraUsagePrefixes {
		if strings.HasPrefix(msg, prefix) {
			return exitUserError
		}
	}
	return exitSysError
}

var cobraUsagePrefixes = []string{
	"unknown command",
	"required flag(s)",
	"if any flags in the group",
}
