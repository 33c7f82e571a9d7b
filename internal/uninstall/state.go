package uninstall

import "fmt"

// Phase is the uninstall driver's position in its lifecycle.
//
// Start -> RemovingArtifacts -> AwaitingDataDecision -> (PurgingData | Preserving) -> Done
type Phase string

const (
	PhaseStart             Phase = "start"
	PhaseRemovingArtifacts Phase = "removing-artifacts"
	PhaseAwaitingDecision  Phase = "awaiting-data-decision"
	PhasePurgingData       Phase = "purging-data"
	PhasePreserving        Phase = "preserving"
	PhaseDone              Phase = "done"
)

// IsTerminal reports whether the phase is terminal
func IsTerminal(p Phase) bool {
	return p == PhaseDone
}

func isAllowedTransition(from, to Phase) bool {
	switch from {
	case PhaseStart:
		return to == PhaseRemovingArtifacts
	case PhaseRemovingArtifacts:
		return to == PhaseAwaitingDecision
	case PhaseAwaitingDecision:
		return to == PhasePurgingData || to == PhasePreserving
	case PhasePurgingData, PhasePreserving:
		return to == PhaseDone
	default:
		return false
	}
}

// transition performs a validated phase transition. An invalid transition
// indicates a driver bug and is surfaced as an error.
func (d *Driver) transition(to Phase) error {
	if !isAllowedTransition(d.phase, to) {
		return fmt.Errorf("disallowed phase transition: %s -> %s", d.phase, to)
	}
	d.logger.Debug("phase transition", "from", string(d.phase), "to", string(to))
	d.phase = to
	return nil
}
