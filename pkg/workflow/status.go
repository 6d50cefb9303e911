package workflow

import "finscope-be/internal/entity"

// Status is the UI-facing state of the orchestrator, derived on every
// read and never stored.
type Status string

const (
	// StatusEmpty: no active session exists.
	StatusEmpty Status = "empty"

	// StatusActiveClean: an active session exists and the pending
	// selection (if any) matches its origin. Resumable as-is.
	StatusActiveClean Status = "active_clean"

	// StatusActiveDirty: the pending selection's identity diverged from
	// the active session's origin. Soft mismatch resolved by the
	// "Start New vs Resume Current" choice.
	StatusActiveDirty Status = "active_dirty"

	// StatusConflict: a dirty state hit at the moment of an explicit
	// start action. Same comparison as dirty, gated behind the action.
	StatusConflict Status = "conflict"
)

// Derive computes the status from the active session and the user's
// pending selection. A nil or never-compared pending selection leaves
// an active session resumable.
func Derive(active *entity.Session, pending entity.Selection) Status {
	if active == nil {
		return StatusEmpty
	}
	if pending == nil {
		return StatusActiveClean
	}
	if entity.SameSelection(pending, active.Origin) {
		return StatusActiveClean
	}
	return StatusActiveDirty
}

// CallToAction maps a status to the primary affordance the UI renders.
func (s Status) CallToAction() string {
	switch s {
	case StatusEmpty:
		return "Start Analysis"
	case StatusActiveClean:
		return "Resume Analysis"
	case StatusActiveDirty, StatusConflict:
		return "Start New Analysis"
	default:
		return ""
	}
}
