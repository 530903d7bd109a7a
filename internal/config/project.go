package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// ProjectDirName is the per-project state directory.
const ProjectDirName = ".tiergate"

// Per-project file base names. Each may be .yaml, .yml or .json.
const (
	DepthFile    = "validation-depth"
	MappingsFile = "feature-mappings"
	FallbackFile = "mcp-fallback"
)

// ErrProjectFileNotFound is returned when no variant of a project file exists.
var ErrProjectFileNotFound = errors.New("project file not found")

var projectFileExts = []string{".yaml", ".yml", ".json"}

// ProjectDir returns <root>/.tiergate.
func ProjectDir(root string) string {
	return filepath.Join(root, ProjectDirName)
}

// FindProjectFile returns the first existing <root>/.tiergate/<name>.{yaml,yml,json}.
func FindProjectFile(root, name string) (string, error) {
	dir := ProjectDir(root)
	for _, ext := range projectFileExts {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s in %s: %w", name, dir, ErrProjectFileNotFound)
}

// LoadProjectFile decodes a per-project file into out using its
// mapstructure tags. Keys absent from the file leave out untouched, so
// callers pre-fill out with defaults. It returns the path that was read.
func LoadProjectFile(root, name string, out any) (string, error) {
	path, err := FindProjectFile(root, name)
	if err != nil {
		return "", err
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return path, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := v.Unmarshal(out); err != nil {
		return path, fmt.Errorf("unmarshaling %s: %w", path, err)
	}
	return path, nil
}
