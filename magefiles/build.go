//go:build mage

package main

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles every GLSL shader under data/shaders to SPIR-V next to its
// source. Requires glslc on PATH.
func (Build) Shaders() error {
	return filepath.WalkDir("data/shaders", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := filepath.Ext(path)
		if ext != ".vert" && ext != ".frag" {
			return nil
		}
		_, err = executeCmd("glslc", withArgs(path, "-o", path+".spv"), withStream())
		return err
	})
}

// Removes compiled shaders.
func (Build) Clean() error {
	return filepath.WalkDir("data/shaders", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if !strings.HasSuffix(path, ".spv") {
			return nil
		}
		_, err = executeCmd("rm", withArgs(path))
		return err
	})
}
