//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Opens the testbed scene in a window.
func (Run) Viewer() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run viewer...")
	_, err := executeCmd("go", withArgs("run", "."), withStream())
	return err
}

// Renders the testbed offscreen and writes screenshot.png.
func (Run) Headless() error {
	fmt.Println("Run headless...")
	_, err := executeCmd("go", withArgs("run", ".", "-headless", "-screenshot", "screenshot.png"), withStream())
	return err
}
