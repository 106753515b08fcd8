//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the settings SDK using Mage.
//
// Usage:
//
//	mage build       Compile every extension binary under cmd/ to bin/
//	mage test:all    Run all tests
//	mage test:unit   Run tests without the race detector or verbose output
//	mage test:cover  Run tests and write coverage.out
//	mage lint        Run golangci-lint
//	mage clean       Remove build artifacts
//	mage install     Install the extension binaries to GOPATH/bin
//	mage stats       Print per-package Go line counts and doc word counts as JSON
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo     = "go"
	binaryDir = "bin"
	cmdRoot   = "cmd"
)

// binaries lists the command directories under cmd/.
func binaries() ([]string, error) {
	entries, err := os.ReadDir(cmdRoot)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Build compiles every binary under cmd/ to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	names, err := binaries()
	if err != nil {
		return err
	}
	for _, name := range names {
		out := filepath.Join(binaryDir, name)
		if err := sh.RunV(binGo, "build", "-v", "-o", out, "./"+filepath.Join(cmdRoot, name)); err != nil {
			return err
		}
	}
	return nil
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	_ = os.Remove(coverProfile)
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binaries to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	names, err := binaries()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := sh.Copy(filepath.Join(gopath, "bin", name), filepath.Join(binaryDir, name)); err != nil {
			return err
		}
	}
	return nil
}
