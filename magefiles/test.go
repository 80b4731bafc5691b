//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the engine tests against the null backend only.
func (Test) Engine() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withDir("engine"), withStream())
	return err
}

// Tidies go.mod and regenerates sources.
func (Test) Tidy() error {
	return goTidy()
}
