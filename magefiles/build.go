//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Runs go vet over every package.
func (Build) Vet() error {
	if _, err := executeCmd("go", withArgs("vet", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds the testbed binary into bin/.
func (Build) Testbed() error {
	mg.Deps(Build.Vet)
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/testbed", "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the headless testbed against the host memory allocator.
func (Build) Run() error {
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "testbed/resources.toml"), withStream()); err != nil {
		return err
	}
	return nil
}
