//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs the unit tests of every package except the Vulkan backend, which needs a driver.
func (Test) Unit() error {
	pkgs, err := executeCmd("go", withArgs("list", "./..."))
	if err != nil {
		return err
	}
	args := append([]string{"test", "-count=1"}, withoutVulkan(pkgs)...)
	if _, err := executeCmd("go", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the unit tests with the race detector.
func (Test) Race() error {
	pkgs, err := executeCmd("go", withArgs("list", "./..."))
	if err != nil {
		return err
	}
	args := append([]string{"test", "-race", "-count=1"}, withoutVulkan(pkgs)...)
	if _, err := executeCmd("go", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs every test, the Vulkan backend included.
func (Test) All() error {
	if _, err := executeCmd("go", withArgs("test", "-count=1", "./..."), withStream()); err != nil {
		return err
	}
	return nil
}
