package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplate(t *testing.T) {
	old := Version
	Version = "v9.9.9"
	t.Cleanup(func() { Version = old })

	if got := Template(); !strings.HasPrefix(got, "{{.Name}} version v9.9.9\n") {
		t.Errorf("Template() = %q", got)
	}
	if got := UserAgent(); got != "friendlypipe/v9.9.9" {
		t.Errorf("UserAgent() = %q", got)
	}
	if !strings.Contains(String(), "commit: "+Commit) {
		t.Errorf("String() = %q", String())
	}
}
