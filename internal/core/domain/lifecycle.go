package domain

// transitions lists, for every requested target, the statuses it may move from.
// Targets reached from any other status are no-ops: the scheduler may deliver a
// trigger twice or late, and a late "start" must never reopen a finished election.
var transitions = map[ElectionStatus][]ElectionStatus{
	StatusActive:    {StatusPending},
	StatusCompleted: {StatusPending, StatusActive},
}

// NextStatus applies target to current and reports whether the status changes.
func NextStatus(current, target ElectionStatus) (ElectionStatus, bool, error) {
	from, ok := transitions[target]
	if !ok || !current.Valid() {
		return current, false, ErrInvalidTransition
	}
	for _, s := range from {
		if s == current {
			return target, true, nil
		}
	}
	return current, false, nil
}

// TransitionSources returns the statuses from which target is reachable.
func TransitionSources(target ElectionStatus) []ElectionStatus {
	return append([]ElectionStatus(nil), transitions[target]...)
}
