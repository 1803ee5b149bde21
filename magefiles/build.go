//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-skin/engine/config"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"

	"github.com/gogpu/naga"
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds the skinview binary into bin/.
func (Build) Viewer() error {
	mg.Deps(Build.Shaders)
	_, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "skinview"), "./cmd/skinview"), withStream())
	return err
}

// Validates the skinning program at the default and largest bone counts, plus every
// .wgsl fragment under shaders/, with naga.
func (Build) Shaders() error {
	for _, bones := range []int{config.DefaultMaxBones, config.MaxSupportedBones} {
		if _, err := naga.Compile(shader.ComposeSkinningSource(bones, "")); err != nil {
			return fmt.Errorf("skinning shader with %d bones: %w", bones, err)
		}
	}

	fragments, err := filepath.Glob(filepath.Join("shaders", "*.wgsl"))
	if err != nil {
		return err
	}
	for _, path := range fragments {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if _, err := naga.Compile(shader.ComposeSkinningSource(config.DefaultMaxBones, string(src))); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Printf("ok %s\n", path)
	}
	return nil
}
