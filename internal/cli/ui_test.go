package cli

import (
	"testing"

	"github.com/dyike/marktbot/internal/pipeline"
)

func TestTruncateString(t *testing.T) {
	if got := truncateString("Senseo", 10); got != "Senseo" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := truncateString("Philips espressomachine defect", 12); got != "Philips e..." {
		t.Fatalf("truncateString = %q", got)
	}
	if got := truncateString("éééééééééé", 5); got != "éé..." {
		t.Fatalf("truncateString must cut on runes, got %q", got)
	}
}

func TestNewRootCmdHasCommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"search", "check", "login", "serve", "config", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("command %q not registered: %v", name, err)
		}
	}
}

func TestOutcomeLabelCoversFailures(t *testing.T) {
	r := pipeline.Result{Outcome: pipeline.OutcomeFailed, Error: "timeout"}
	if outcomeLabel(r) == "" {
		t.Fatalf("empty label")
	}
}
