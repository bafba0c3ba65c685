package jobtypes

import "testing"

func TestStatusOrdering(t *testing.T) {
	if !(StatusPending < StatusQueued && StatusQueued < StatusRunning && StatusRunning < StatusCompleted) {
		t.Fatal("PENDING < QUEUED < RUNNING < COMPLETED must hold")
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusError, StatusCancelled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	nonTerminal := []Status{StatusPending, StatusQueued, StatusRunning}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestStatusString(t *testing.T) {
	if StatusRunning.String() != "RUNNING" {
		t.Errorf("got %q, want RUNNING", StatusRunning.String())
	}
	if Status(99).String() != "UNKNOWN" {
		t.Errorf("got %q, want UNKNOWN", Status(99).String())
	}
}
