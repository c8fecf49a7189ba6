package models

// DecisionKind is the terminal answer of a prompt
type DecisionKind string

const (
	DecisionSave      DecisionKind = "save"
	DecisionCancel    DecisionKind = "cancel"
	DecisionDestroyed DecisionKind = "destroyed"
)

// Decision is the single outcome delivered to a listener.
// Target is only meaningful for DecisionCancel.
type Decision struct {
	Kind   DecisionKind
	Target CancelTarget
}

// SaveDecision returns the save outcome
func SaveDecision() Decision {
	return Decision{Kind: DecisionSave}
}

// CancelDecision returns the cancel outcome carrying target
func CancelDecision(target CancelTarget) Decision {
	return Decision{Kind: DecisionCancel, Target: target}
}

// DestroyedDecision returns the closed-without-answer outcome
func DestroyedDecision() Decision {
	return Decision{Kind: DecisionDestroyed}
}
