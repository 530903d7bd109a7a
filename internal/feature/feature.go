// Package feature maps changed files to product features and narrows a
// test suite to the cases those features need.
package feature

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ShayCichocki/tiergate/internal/config"
	"github.com/ShayCichocki/tiergate/internal/git"
	"github.com/ShayCichocki/tiergate/internal/logging"
	"github.com/ShayCichocki/tiergate/pkg/models"
)

// sourceRoots are the conventional directories default mappings are built from.
var sourceRoots = []string{"src", "app", "lib"}

// Mapping ties a feature to the code that implements it and the test
// cases that verify it. Several mappings may name the same test id.
type Mapping struct {
	Feature   string   `mapstructure:"feature" json:"feature" yaml:"feature"`
	CodePaths []string `mapstructure:"code_paths" json:"code_paths" yaml:"code_paths"`
	TestIDs   []string `mapstructure:"test_ids" json:"test_ids" yaml:"test_ids"`
}

// Matches reports whether filePath matches any of the mapping's patterns.
func (m Mapping) Matches(filePath string) bool {
	for _, pattern := range m.CodePaths {
		if MatchPattern(filePath, pattern) {
			return true
		}
	}
	return false
}

// AffectedFeatures returns the sorted, de-duplicated names of features
// whose patterns match at least one changed path.
func AffectedFeatures(changed []string, mappings []Mapping) []string {
	seen := make(map[string]bool)
	for _, file := range changed {
		for _, m := range mappings {
			if seen[m.Feature] {
				continue
			}
			if m.Matches(file) {
				seen[m.Feature] = true
			}
		}
	}

	features := make([]string, 0, len(seen))
	for f := range seen {
		features = append(features, f)
	}
	sort.Strings(features)
	return features
}

// FilterByFeatures narrows suite to the cases referenced by mappings of the
// given features, followed by every critical case not already selected.
// With no features the suite is returned unchanged.
func FilterByFeatures(suite models.TestSuite, features []string, mappings []Mapping) models.TestSuite {
	if len(features) == 0 {
		return suite
	}

	active := make(map[string]bool, len(features))
	for _, f := range features {
		active[f] = true
	}
	wanted := make(map[string]bool)
	for _, m := range mappings {
		if !active[m.Feature] {
			continue
		}
		for _, id := range m.TestIDs {
			wanted[id] = true
		}
	}

	cases := make([]models.TestCase, 0, len(suite.TestCases))
	for _, tc := range suite.TestCases {
		if wanted[tc.ID] {
			cases = append(cases, tc)
		}
	}
	for _, tc := range suite.TestCases {
		if tc.Critical && !wanted[tc.ID] {
			cases = append(cases, tc)
		}
	}

	return models.TestSuite{
		Name:        suite.Name + "-filtered",
		Description: "Filtered suite for features: " + strings.Join(features, ", "),
		AppURL:      suite.AppURL,
		TestCases:   cases,
	}
}

type mappingsFile struct {
	Mappings []Mapping `mapstructure:"mappings"`
}

// LoadMappings reads .tiergate/feature-mappings from the project. Without a
// usable file it generates one mapping per top-level directory under the
// conventional source roots.
func LoadMappings(projectRoot string, log *logging.Logger) []Mapping {
	var file mappingsFile
	path, err := config.LoadProjectFile(projectRoot, config.MappingsFile, &file)
	switch {
	case errors.Is(err, config.ErrProjectFileNotFound):
		log.Debug("no feature mappings file, generating defaults")
		return DefaultMappings(projectRoot)
	case err != nil:
		log.Warn("invalid feature mappings: %v, generating defaults", err)
		return DefaultMappings(projectRoot)
	}

	mappings := make([]Mapping, 0, len(file.Mappings))
	for i, m := range file.Mappings {
		if strings.TrimSpace(m.Feature) == "" || len(m.CodePaths) == 0 {
			log.Warn("%s: mapping %d has no feature name or code paths, ignoring", path, i)
			continue
		}
		mappings = append(mappings, m)
	}
	log.Info("loaded %d feature mappings from %s", len(mappings), path)
	return mappings
}

// DefaultMappings derives mappings from the directory layout: each
// directory src/<name>, app/<name> and lib/<name> becomes feature <name>
// with pattern <root>/<name>/** and no test ids. Names starting with "_"
// or "." are skipped.
func DefaultMappings(projectRoot string) []Mapping {
	var mappings []Mapping
	for _, root := range sourceRoots {
		entries, err := os.ReadDir(filepath.Join(projectRoot, root))
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if !e.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
				continue
			}
			mappings = append(mappings, Mapping{
				Feature:   name,
				CodePaths: []string{root + "/" + name + "/**"},
				TestIDs:   []string{},
			})
		}
	}
	return mappings
}

// ChangedFiles lists files changed in projectRoot relative to baseRef,
// including untracked files. Any git failure is logged and yields nil.
func ChangedFiles(ctx context.Context, projectRoot, baseRef string, log *logging.Logger) []string {
	return ChangedFilesFrom(ctx, git.NewRunner(projectRoot), baseRef, log)
}

// ChangedFilesFrom is ChangedFiles over an explicit git implementation.
func ChangedFilesFrom(ctx context.Context, g git.DiffOperations, baseRef string, log *logging.Logger) []string {
	if baseRef == "" {
		baseRef = "HEAD"
	}
	diff, err := g.ChangedFiles(ctx, baseRef)
	if err != nil {
		log.Warn("git diff against %s failed: %v", baseRef, err)
		return nil
	}
	untracked, err := g.UntrackedFiles(ctx)
	if err != nil {
		log.Warn("listing untracked files failed: %v", err)
	}

	seen := make(map[string]bool, len(diff)+len(untracked))
	var files []string
	for _, f := range append(diff, untracked...) {
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}
	log.Info("found %d changed files against %s", len(files), baseRef)
	return files
}
