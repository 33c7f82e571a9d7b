package uninstall

import "testing"

func TestIsAllowedTransition(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseStart, PhaseRemovingArtifacts, true},
		{PhaseRemovingArtifacts, PhaseAwaitingDecision, true},
		{PhaseAwaitingDecision, PhasePurgingData, true},
		{PhaseAwaitingDecision, PhasePreserving, true},
		{PhasePurgingData, PhaseDone, true},
		{PhasePreserving, PhaseDone, true},

		{PhaseStart, PhaseAwaitingDecision, false},
		{PhaseStart, PhaseDone, false},
		{PhaseRemovingArtifacts, PhasePurgingData, false},
		{PhaseAwaitingDecision, PhaseDone, false},
		{PhasePurgingData, PhasePreserving, false},
		{PhaseDone, PhaseStart, false},
		{PhaseDone, PhaseRemovingArtifacts, false},
	}

	for _, tt := range tests {
		if got := isAllowedTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("isAllowedTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransition_InvalidIsError(t *testing.T) {
	d, _, _ := newTestDriver(false)

	if err := d.transition(PhaseDone); err == nil {
		t.Fatal("expected error for start -> done")
	}
	// Failed transition leaves the phase untouched
	if d.Phase() != PhaseStart {
		t.Errorf("phase changed on rejected transition: %s", d.Phase())
	}

	if err := d.transition(PhaseRemovingArtifacts); err != nil {
		t.Fatalf("valid transition rejected: %v", err)
	}
	if d.Phase() != PhaseRemovingArtifacts {
		t.Errorf("unexpected phase: %s", d.Phase())
	}
}

func TestIsTerminal(t *testing.T) {
	for _, p := range []Phase{PhaseStart, PhaseRemovingArtifacts, PhaseAwaitingDecision, PhasePurgingData, PhasePreserving} {
		if IsTerminal(p) {
			t.Errorf("%s should not be terminal", p)
		}
	}
	if !IsTerminal(PhaseDone) {
		t.Error("done should be terminal")
	}
}
