package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrUnknownKey is returned when a key is not a settable configuration key.
var ErrUnknownKey = errors.New("unknown configuration key")

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindBool
	kindDuration
	kindList
)

// settableKeys lists every key the config command may change.
var settableKeys = map[string]keyKind{
	"backend.endpoint":             kindString,
	"backend.kind":                 kindString,
	"backend.token":                kindString,
	"backend.connect_timeout":      kindDuration,
	"full_suite.workers":           kindInt,
	"full_suite.environments":      kindList,
	"full_suite.cross_environment": kindBool,
	"full_suite.task_timeout":      kindDuration,
	"availability.cache_ttl":       kindDuration,
	"git.base_ref":                 kindString,
	"logging.verbose":              kindBool,
}

// Keys returns the settable configuration keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseValue converts a command-line string into the value type of key.
func ParseValue(key, raw string) (any, error) {
	kind, ok := settableKeys[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects an integer: %w", key, err)
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects true or false: %w", key, err)
		}
		return b, nil
	case kindDuration:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%s expects a duration like 30s: %w", key, err)
		}
		return d.String(), nil
	case kindList:
		return splitList(raw), nil
	default:
		if key == "backend.kind" && raw != "web" && raw != "desktop" {
			return nil, fmt.Errorf("backend.kind must be web or desktop, got %q", raw)
		}
		return raw, nil
	}
}

// SetUserValue validates and writes a single key to the user config file.
func SetUserValue(key, raw string) error {
	value, err := ParseValue(key, raw)
	if err != nil {
		return err
	}

	dir := getUserConfigDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
	v.Set(key, value)
	return v.WriteConfig()
}

// MaskToken returns a token safe for display.
func MaskToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
