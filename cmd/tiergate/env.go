package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/ShayCichocki/tiergate/internal/automation"
	"github.com/ShayCichocki/tiergate/internal/automation/remote"
	"github.com/ShayCichocki/tiergate/internal/availability"
	"github.com/ShayCichocki/tiergate/internal/config"
	"github.com/ShayCichocki/tiergate/internal/logging"
	"github.com/ShayCichocki/tiergate/internal/state"
)

// env is what every command needs: resolved config, project root and logger.
type env struct {
	cfg  *config.Config
	root string
	log  *logging.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if rootVerbose {
		cfg.Logging.Verbose = true
	}

	root := rootProject
	if root == "" {
		if root, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
	}
	if root, err = filepath.Abs(root); err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	mirror := logging.LevelWarn
	if cfg.Logging.Verbose {
		mirror = logging.LevelInfo
	}
	log := logging.ForProject(root).WithMirror(os.Stderr, mirror)
	return &env{cfg: cfg, root: root, log: log}, nil
}

// resolveKind picks the flag value over the configured kind.
func (e *env) resolveKind(flag string) (automation.Kind, error) {
	raw := flag
	if raw == "" {
		raw = e.cfg.Backend.Kind
	}
	kind := automation.Kind(raw)
	if !kind.Valid() {
		return "", fmt.Errorf("backend kind must be web or desktop, got %q", raw)
	}
	return kind, nil
}

func (e *env) endpoint(flag string) string {
	if flag != "" {
		return flag
	}
	return e.cfg.Backend.Endpoint
}

func (e *env) clientOptions() []remote.Option {
	opts := []remote.Option{remote.WithTimeout(e.cfg.Backend.ConnectTimeout)}
	if e.cfg.Backend.Token != "" {
		opts = append(opts, remote.WithToken(e.cfg.Backend.Token))
	}
	return opts
}

func (e *env) factory(endpoint string, kind automation.Kind) automation.Factory {
	return remote.Factory(endpoint, kind, e.clientOptions()...)
}

func (e *env) checker(endpoint string) *availability.Checker {
	return availability.NewChecker(map[automation.Kind]automation.Factory{
		automation.KindWeb:     e.factory(endpoint, automation.KindWeb),
		automation.KindDesktop: e.factory(endpoint, automation.KindDesktop),
	},
		availability.WithTTL(e.cfg.Availability.CacheTTL),
		availability.WithProbeTimeout(e.cfg.Backend.ConnectTimeout),
		availability.WithLogger(e.log),
	)
}

// openStore opens the project run history. Failure is logged and yields
// nil; history is never required for validation.
func (e *env) openStore() *state.DB {
	db, err := state.OpenProject(e.root)
	if err != nil {
		e.log.Warn("run history unavailable: %v", err)
		return nil
	}
	return db
}

// checkBackend consults the persisted probe log first, so the TTL also
// holds across separate invocations, then the in-process checker.
func (e *env) checkBackend(ctx context.Context, c *availability.Checker, store *state.DB, kind automation.Kind, force bool) availability.Availability {
	if !force && store != nil {
		last, err := store.LastAvailability(ctx, kind)
		if err != nil {
			e.log.Debug("reading last availability: %v", err)
		}
		if last != nil && time.Since(last.CheckedAt) < e.cfg.Availability.CacheTTL {
			e.log.Debug("reusing %s availability from %s", kind, last.CheckedAt.Format(time.RFC3339))
			return *last
		}
	}

	a := c.Check(ctx, kind, force)
	if store != nil {
		if err := store.RecordAvailability(ctx, a); err != nil {
			e.log.Debug("recording availability: %v", err)
		}
	}
	return a
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
