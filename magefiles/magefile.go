//go:build mage

// Package main provides build targets for the genpub project using Mage.
//
// Usage:
//
//	mage build          Compile genpub binary to bin/
//	mage test:all       Run all tests
//	mage test:short     Run tests in -short mode
//	mage test:race      Run all tests with the race detector
//	mage test:cover     Write a coverage profile to bin/coverage.out
//	mage lint           Run golangci-lint
//	mage verify         Build, then check the media schema with the binary
//	mage clean          Remove build artifacts
//	mage install        Install genpub to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "genpub"
	binaryDir  = "bin"
	cmdDir     = "./cmd/genpub"
)

var binaryPath = filepath.Join(binaryDir, binaryName)

// Build compiles the genpub binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", binaryPath, cmdDir)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Verify builds the binary and runs its media schema check.
func Verify() error {
	mg.Deps(Build)
	return sh.RunV(binaryPath, "verify")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", binaryName), binaryPath)
}
