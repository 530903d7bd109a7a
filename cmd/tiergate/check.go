package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/internal/availability"
	"github.com/ShayCichocki/tiergate/internal/errcatalog"
)

var (
	checkKind     string
	checkEndpoint string
	checkForce    bool
	checkJSON     bool
)

var errBackendUnavailable = errors.New("automation backend unavailable")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe the automation backend",
	Long: `Check whether the automation backend answers.

Results are cached for availability.cache_ttl, both in process and in the
project run history. Use --force to probe regardless.

Examples:
  tiergate check
  tiergate check --kind all --force
  tiergate check --kind desktop --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}

		kinds, err := checkKinds(e, checkKind)
		if err != nil {
			return err
		}

		store := e.openStore()
		if store != nil {
			defer store.Close()
		}
		checker := e.checker(e.endpoint(checkEndpoint))

		results := make([]availability.Availability, 0, len(kinds))
		for _, k := range kinds {
			results = append(results, e.checkBackend(cmd.Context(), checker, store, k, checkForce))
		}

		out := cmd.OutOrStdout()
		if checkJSON {
			if err := encodeJSON(out, results); err != nil {
				return err
			}
		} else {
			for _, a := range results {
				printAvailability(out, a)
			}
		}

		for _, a := range results {
			if !a.IsAvailable() {
				return errBackendUnavailable
			}
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkKind, "kind", "", "Backend kind: web, desktop or all (default: backend.kind)")
	checkCmd.Flags().StringVar(&checkEndpoint, "endpoint", "", "Automation backend URL (default: backend.endpoint)")
	checkCmd.Flags().BoolVar(&checkForce, "force", false, "Bypass the availability cache")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print results as JSON")
}

func checkKinds(e *env, flag string) ([]automation.Kind, error) {
	if flag == "all" {
		return []automation.Kind{automation.KindWeb, automation.KindDesktop}, nil
	}
	k, err := e.resolveKind(flag)
	if err != nil {
		return nil, err
	}
	return []automation.Kind{k}, nil
}

func printAvailability(w io.Writer, a availability.Availability) {
	symbol, attr := describeAvailability(a)
	fmt.Fprintf(w, "%s %s backend: %s\n", color.New(attr).Sprint(symbol), a.Kind, a.Status)
	dimColor.Fprintf(w, "  %s (checked %s)\n", a.Message, a.CheckedAt.Local().Format("15:04:05"))
	if a.RetryAfter != nil {
		dimColor.Fprintf(w, "  retry after %s\n", a.RetryAfter.Local().Format("15:04:05"))
	}
	if !a.IsAvailable() && a.Status == availability.StatusUnavailable {
		fmt.Fprintf(w, "\n%s\n\n", errcatalog.Format(a.Reason, true))
	}
}

func describeAvailability(a availability.Availability) (string, color.Attribute) {
	switch a.Status {
	case availability.StatusAvailable:
		return "✓", color.FgGreen
	case availability.StatusUnavailable:
		return "✗", color.FgRed
	default:
		return "?", color.FgYellow
	}
}
