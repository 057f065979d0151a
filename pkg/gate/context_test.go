package gate

import (
	"testing"
	"time"
)

func TestBasicFact(t *testing.T) {
	// Setup
	id := "changed_files"
	value := []string{"src/app.py", "tests/test_app.py"}
	now := time.Now()

	// Create a new fact
	fact := NewFact(id, value, now)

	// Verify the fact's properties
	if fact.ID() != id {
		t.Errorf("Expected ID %s, got %s", id, fact.ID())
	}

	files, ok := fact.Value().([]string)
	if !ok {
		t.Fatalf("Expected []string value, got %T", fact.Value())
	}
	if len(files) != 2 {
		t.Errorf("Expected 2 files, got %d", len(files))
	}

	if !fact.Timestamp().Equal(now) {
		t.Errorf("Expected timestamp %v, got %v", now, fact.Timestamp())
	}
}

func TestDefinitionTimeout(t *testing.T) {
	d := &Definition{Name: "tests", Tool: "pytest"}
	if d.Timeout() != 5*time.Minute {
		t.Errorf("Expected default timeout of 5m, got %v", d.Timeout())
	}

	d.TimeoutSeconds = 30
	if d.Timeout() != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", d.Timeout())
	}
}

func TestValidStage(t *testing.T) {
	for _, s := range []string{"", StagePrePush, StagePR, StagePushToMain} {
		if !ValidStage(s) {
			t.Errorf("Expected stage %q to be valid", s)
		}
	}
	if ValidStage("pre_push") {
		t.Errorf("Expected stage 'pre_push' (underscore typo) to be invalid")
	}
}
