// Package errcatalog maps backend unavailability reasons to user-facing
// error codes and remediation steps.
package errcatalog

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/tiergate/internal/availability"
)

// Entry describes one catalogued failure.
type Entry struct {
	Code        string
	Message     string
	Remediation string
	// DocsPath points into the repository's docs/ tree. Empty when there is none.
	DocsPath string
}

var catalog = map[availability.Reason]Entry{
	availability.ReasonServerNotRunning: {
		Code:    "MCP_001",
		Message: "Automation backend is not running",
		Remediation: `Start the automation backend:

1. Start the web backend so it listens on the configured endpoint
   (default http://localhost:9222)
2. For desktop apps, start the desktop backend instead and run with --kind desktop
3. Verify it answers: tiergate check --force
4. Point tiergate elsewhere with: tiergate config set backend.endpoint <url>`,
		DocsPath: "docs/backend.md#starting",
	},
	availability.ReasonConnectionTimeout: {
		Code:    "MCP_002",
		Message: "Connection to automation backend timed out",
		Remediation: `Check the backend and the network path to it:

1. Verify the backend process is running
2. Check the port is reachable: nc -zv localhost 9222
3. Review firewall or proxy settings
4. Raise the timeout: tiergate config set backend.connect_timeout 60s`,
		DocsPath: "docs/backend.md#timeouts",
	},
	availability.ReasonAuthFailed: {
		Code:    "MCP_003",
		Message: "Authentication to automation backend failed",
		Remediation: `Check the backend credentials:

1. Verify TIERGATE_BACKEND_TOKEN (or backend.token) is set
2. Check the token has not expired
3. Issue a new token from the backend and update the config`,
		DocsPath: "docs/backend.md#auth",
	},
	availability.ReasonVersionMismatch: {
		Code:    "MCP_004",
		Message: "Automation backend version is incompatible",
		Remediation: `Update the automation backend:

1. Check the backend version
2. Upgrade it to a release that speaks the /call protocol
3. Restart the backend`,
		DocsPath: "docs/backend.md#versions",
	},
	availability.ReasonPermissionDenied: {
		Code:    "MCP_005",
		Message: "Permission denied accessing automation backend",
		Remediation: `Check permissions:

1. Verify your user can reach the backend socket or port
2. On macOS, grant accessibility permissions to the desktop backend
3. On Linux, add your user to the group that owns the backend socket`,
		DocsPath: "docs/backend.md#permissions",
	},
	availability.ReasonUnknown: {
		Code:    "MCP_999",
		Message: "Unknown automation backend error",
		Remediation: `General troubleshooting:

1. Restart the automation backend
2. Re-run with --verbose and read .tiergate/logs/tiergate.log
3. Force a fresh probe: tiergate check --force`,
		DocsPath: "docs/backend.md#troubleshooting",
	},
}

// Lookup returns the entry for reason. Unknown or empty reasons get the
// MCP_999 entry.
func Lookup(reason availability.Reason) Entry {
	if e, ok := catalog[reason]; ok {
		return e
	}
	return catalog[availability.ReasonUnknown]
}

// Format renders the entry for reason for terminal display.
func Format(reason availability.Reason, includeRemediation bool) string {
	e := Lookup(reason)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s]\n", e.Message, e.Code)
	if includeRemediation {
		sb.WriteString("\nRemediation:\n")
		sb.WriteString(e.Remediation)
		sb.WriteString("\n")
	}
	if e.DocsPath != "" {
		fmt.Fprintf(&sb, "\nDocumentation: %s\n", e.DocsPath)
	}
	return strings.TrimRight(sb.String(), "\n")
}
