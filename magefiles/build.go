//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the viewer binary into bin/.
func (Build) Viewer() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", "bin/prism", "."), withStream())
	return err
}

// Runs the embedded WGSL modules through naga and checks their uniform layouts.
func (Build) Shaders() error {
	_, err := executeCmd("go", withArgs("test", "-count=1", "./engine/renderer/shaders/..."), withStream())
	return err
}
