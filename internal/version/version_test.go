package version

import (
	"regexp"
	"testing"
)

func TestGet(t *testing.T) {
	semver := regexp.MustCompile(`^\d+\.\d+\.\d+`)
	if got := Get(); got != "dev" && !semver.MatchString(got) {
		t.Errorf("Get() = %q, want a semantic version", got)
	}
}
