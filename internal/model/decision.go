package model

// Action is the direction a Decision proposes.
type Action string

const (
	ActionLong  Action = "long"
	ActionShort Action = "short"
	ActionFlat  Action = "flat"
)

// ValidAction reports whether a is one of the three known actions.
func ValidAction(a Action) bool {
	return a == ActionLong || a == ActionShort || a == ActionFlat
}

// Decision is a proposed action with confidence and a target position size
// expressed as a percentage of equity.
type Decision struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"` // [0,1]
	SizePct    float64 `json:"size_pct"`   // [0,100] of equity
	Source     string  `json:"source"`     // generator/synthesizer/advisor name
	Reason     string  `json:"reason"`
}

// Flat returns an explicit no-position decision from the given source.
func Flat(source, reason string) *Decision {
	return &Decision{Action: ActionFlat, Source: source, Reason: reason}
}
