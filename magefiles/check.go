//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
)

type Check mg.Namespace

// Runs the unit tests with the race detector.
func (Check) Test() error {
	_, err := executeCmd("go", withArgs("test", "-race", "./..."), withEnv("CGO_ENABLED", "1"), withStream())
	return err
}

// Runs go vet.
func (Check) Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}

// Runs vet, the shader check and the tests.
func (Check) All() {
	mg.SerialDeps(Check.Vet, Build.Shaders, Check.Test)
}

// Removes build output.
func Clean() error {
	return os.RemoveAll("bin")
}
