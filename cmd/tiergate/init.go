package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/tiergate/internal/config"
	"github.com/ShayCichocki/tiergate/internal/suite"
)

var (
	initForce  bool
	initAppURL string
	initSuite  string
	initNoGit  bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a project for tiergate",
	Long: `Initialize a directory for use with tiergate.

This command creates:
  - the .tiergate directory with its logs directory
  - template depth, feature mapping and fallback configs
  - an example test suite
  - .gitignore entries for logs, screenshots and run history

Existing files are kept unless --force is given.

Examples:
  tiergate init
  tiergate init ./myapp --app-url http://localhost:5173
  tiergate init --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing templates")
	initCmd.Flags().StringVar(&initAppURL, "app-url", "http://localhost:3000", "Application URL for the example suite")
	initCmd.Flags().StringVar(&initSuite, "suite", "e2e/suite.yaml", "Where to write the example suite")
	initCmd.Flags().BoolVar(&initNoGit, "no-git", false, "Leave .gitignore untouched")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	} else if rootProject != "" {
		targetDir = rootProject
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	fmt.Printf("Initializing tiergate in %s...\n\n", absPath)

	dir := config.ProjectDir(absPath)
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	printStatus("✓", "Created .tiergate directory structure", color.FgGreen)

	for _, t := range projectTemplates {
		path := filepath.Join(dir, t.name+".yaml")
		wrote, err := writeTemplate(path, t.body, initForce)
		if err != nil {
			return err
		}
		rel := filepath.Join(config.ProjectDirName, t.name+".yaml")
		if wrote {
			printStatus("✓", "Created "+rel, color.FgGreen)
		} else {
			printStatus("•", rel+" exists, kept", color.FgYellow)
		}
	}

	suitePath := initSuite
	if !filepath.IsAbs(suitePath) {
		suitePath = filepath.Join(absPath, suitePath)
	}
	if _, err := os.Stat(suitePath); err == nil && !initForce {
		printStatus("•", initSuite+" exists, kept", color.FgYellow)
	} else {
		if err := suite.Write(suitePath, suite.Example(initAppURL)); err != nil {
			return fmt.Errorf("writing example suite: %w", err)
		}
		printStatus("✓", "Created example suite "+initSuite, color.FgGreen)
	}

	if !initNoGit {
		if err := updateGitignore(absPath); err != nil {
			return fmt.Errorf("updating .gitignore: %w", err)
		}
		printStatus("✓", "Updated .gitignore with tiergate entries", color.FgGreen)
	}

	fmt.Printf("\n%s tiergate initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next steps:")
	fmt.Println("  1. Start the automation backend, then check it:")
	fmt.Println("     tiergate check")
	fmt.Println()
	fmt.Println("  2. Map code paths to tests in .tiergate/feature-mappings.yaml")
	fmt.Println()
	fmt.Println("  3. Validate a change:")
	fmt.Printf("     tiergate run --tier standard --suite %s\n", initSuite)
	return nil
}

type projectTemplate struct {
	name string
	body string
}

var projectTemplates = []projectTemplate{
	{config.DepthFile, depthTemplate},
	{config.MappingsFile, mappingsTemplate},
	{config.FallbackFile, fallbackTemplate},
}

// writeTemplate writes body to path unless it exists and force is off.
// It reports whether it wrote.
func writeTemplate(path, body string, force bool) (bool, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

var gitignoreEntries = []string{
	".tiergate/logs/",
	".tiergate/state.db*",
	".tiergate/screenshots/",
}

// updateGitignore adds tiergate entries to .gitignore if not present
func updateGitignore(repoPath string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	var existing string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}

	var missing []string
	for _, entry := range gitignoreEntries {
		if !strings.Contains(existing, entry) {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(existing)
	if len(existing) > 0 && !strings.HasSuffix(existing, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\n# tiergate\n")
	for _, entry := range missing {
		b.WriteString(entry + "\n")
	}
	return os.WriteFile(gitignorePath, []byte(b.String()), 0644)
}

const depthTemplate = `# Which validation depth each complexity tier gets.
# Depths: smoke, feature, full.
simple_depth: smoke
standard_depth: feature
complex_depth: full

# Uncomment to run one depth for every tier.
# force_depth: full

# Per-depth timeouts in seconds.
smoke_timeout: 60
feature_timeout: 300
full_timeout: 1800

# What feature depth runs when no changed files are known: all or critical.
feature_without_changes: all
`

const mappingsTemplate = `# Maps code paths to the test cases that cover them.
# Patterns: * matches within one path segment, ** matches any depth.
mappings:
  - feature: auth
    code_paths:
      - "src/auth/**"
      - "src/components/Login*"
    test_ids:
      - login-form
  - feature: home
    code_paths:
      - "src/pages/index.*"
    test_ids:
      - home-loads
`

const fallbackTemplate = `# What to do when the automation backend is unavailable.
# Modes: fail, warn, skip, reduced.
mode: warn

# reduced mode runs these local checks instead.
run_unit_tests: true
run_lint: true
# unit_test_command: make test
# lint_command: make lint
command_timeout: 10m

mark_as_partial: true
`
