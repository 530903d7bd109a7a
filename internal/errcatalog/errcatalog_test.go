package errcatalog

import (
	"strings"
	"testing"

	"github.com/ShayCichocki/tiergate/internal/availability"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		reason availability.Reason
		code   string
	}{
		{availability.ReasonServerNotRunning, "MCP_001"},
		{availability.ReasonConnectionTimeout, "MCP_002"},
		{availability.ReasonAuthFailed, "MCP_003"},
		{availability.ReasonVersionMismatch, "MCP_004"},
		{availability.ReasonPermissionDenied, "MCP_005"},
		{availability.ReasonUnknown, "MCP_999"},
		{"", "MCP_999"},
		{"cosmic_rays", "MCP_999"},
	}

	for _, tt := range tests {
		if got := Lookup(tt.reason).Code; got != tt.code {
			t.Errorf("Lookup(%q).Code = %q, want %q", tt.reason, got, tt.code)
		}
	}
}

func TestCatalogComplete(t *testing.T) {
	seen := make(map[string]bool)
	for reason, e := range catalog {
		if e.Message == "" || e.Remediation == "" {
			t.Errorf("entry for %q is missing text", reason)
		}
		if seen[e.Code] {
			t.Errorf("code %s used twice", e.Code)
		}
		seen[e.Code] = true
	}
}

func TestFormat(t *testing.T) {
	full := Format(availability.ReasonConnectionTimeout, true)
	for _, want := range []string{"[MCP_002]", "Remediation:", "Documentation:"} {
		if !strings.Contains(full, want) {
			t.Errorf("Format(..., true) missing %q:\n%s", want, full)
		}
	}

	short := Format(availability.ReasonConnectionTimeout, false)
	if strings.Contains(short, "Remediation:") {
		t.Errorf("Format(..., false) includes remediation:\n%s", short)
	}
	if !strings.HasPrefix(short, "Connection to automation backend timed out [MCP_002]") {
		t.Errorf("Format(..., false) = %q", short)
	}
}
