package model

// allowedTransitions lists every legal edge of the violation lifecycle.
// approved may be re-opened by a dispute; rejected is terminal.
var allowedTransitions = map[ViolationStatus][]ViolationStatus{
	ViolationStatusNew: {
		ViolationStatusPendingApproval,
		ViolationStatusApproved,
		ViolationStatusRejected,
	},
	ViolationStatusPendingApproval: {
		ViolationStatusApproved,
		ViolationStatusRejected,
		ViolationStatusDisputed,
	},
	ViolationStatusDisputed: {
		ViolationStatusPendingApproval,
		ViolationStatusApproved,
		ViolationStatusRejected,
	},
	ViolationStatusApproved: {
		ViolationStatusDisputed,
	},
	ViolationStatusRejected: {},
}

// CanTransition reports whether a violation in status from may move to status to.
func CanTransition(from, to ViolationStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s in one step.
func NextStatuses(s ViolationStatus) []ViolationStatus {
	next := allowedTransitions[s]
	out := make([]ViolationStatus, len(next))
	copy(out, next)
	return out
}

func (s ViolationStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}
