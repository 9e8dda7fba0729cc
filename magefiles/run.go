//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Builds the shaders and runs one of the examples, e.g. mage run:example bloom.
func (Run) Example(name string) error {
	mg.Deps(Build.Shaders)
	fmt.Printf("Running %s...\n", name)
	_, err := executeCmd("go", withArgs("run", "./"+name), withStream())
	return err
}
