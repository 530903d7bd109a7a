package exec

import (
	"context"
	"os/exec"
	"strings"
	"testing"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Run(t *testing.T) {
	requireShell(t)
	r := NewRunner()
	dir := t.TempDir()

	out, err := r.RunShell(context.Background(), dir, "pwd")
	if err != nil {
		t.Fatalf("RunShell(pwd) error = %v", err)
	}
	if !strings.Contains(string(out), dir[strings.LastIndex(dir, "/")+1:]) {
		t.Errorf("RunShell(pwd) = %q, want it to run in %s", out, dir)
	}
}

func TestExecRunner_NonZeroExit(t *testing.T) {
	requireShell(t)

	out, err := NewRunner().RunShell(context.Background(), "", "echo broken; exit 3")
	if err == nil {
		t.Fatal("RunShell() error = nil, want exit status error")
	}
	if !strings.Contains(err.Error(), "status 3") {
		t.Errorf("error = %v, want exit status 3", err)
	}
	if !strings.Contains(string(out), "broken") {
		t.Errorf("output = %q, want captured output", out)
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewRunner()
	if r.LookPath("tiergate-no-such-binary") {
		t.Error("LookPath() = true for a missing binary")
	}
	if _, err := r.Run(context.Background(), "", "tiergate-no-such-binary"); err == nil {
		t.Error("Run() error = nil for a missing binary")
	}
}
