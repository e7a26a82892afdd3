//go:build mage

// Package main provides build targets for the shopkeeper project using Mage.
//
// Usage:
//
//	mage build      Compile the shopkeeper binary to bin/
//	mage test       Run all tests
//	mage testRace   Run all tests with the race detector
//	mage cover      Write coverage.out and print per-function coverage
//	mage lint       Run golangci-lint
//	mage clean      Remove build artifacts
//	mage install    Install shopkeeper to GOPATH/bin
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo        = "go"
	binaryName   = "shopkeeper"
	binaryDir    = "bin"
	cmdDir       = "./cmd/shopkeeper"
	coverProfile = "coverage.out"
	versionVar   = "github.com/mesh-intelligence/shopkeeper/internal/cli.Version"
)

// Build compiles the shopkeeper binary to bin/. SHOPKEEPER_VERSION, when
// set, is stamped into the binary.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if v := strings.TrimPrefix(os.Getenv("SHOPKEEPER_VERSION"), "v"); v != "" {
		args = append(args, "-ldflags", fmt.Sprintf("-X %s=%s", versionVar, v))
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// TestRace runs all tests with the race detector.
func TestRace() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Cover runs all tests with coverage and prints the per-function summary.
func Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverProfile)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	for _, path := range []string{binaryDir, coverProfile} {
		if err := os.RemoveAll(path); err != nil {
			return err
		}
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
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
