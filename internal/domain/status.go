package domain

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var allStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}

// Statuses returns every status in declaration order.
func Statuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

func ParseStatus(s string) (Status, bool) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Active statuses occupy their interval and block other bookings.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// TransitionRule describes what must hold before a status change is committed.
type TransitionRule int

const (
	RuleNone TransitionRule = iota
	// RuleConflictFree requires a conflict re-check under the schedule lock.
	RuleConflictFree
	// RuleNotFuture requires the appointment start to be at or before now.
	RuleNotFuture
)

var transitions = map[Status]map[Status]TransitionRule{
	StatusPending: {
		StatusConfirmed: RuleConflictFree,
		StatusCancelled: RuleNone,
		StatusCompleted: RuleNotFuture,
		StatusNoShow:    RuleNotFuture,
	},
	StatusConfirmed: {
		StatusCancelled: RuleNone,
		StatusCompleted: RuleNotFuture,
		StatusNoShow:    RuleNotFuture,
	},
}

// Transition looks up the rule for from -> to. ok is false when the change is never legal.
func Transition(from, to Status) (rule TransitionRule, ok bool) {
	next, found := transitions[from]
	if !found {
		return RuleNone, false
	}
	rule, ok = next[to]
	return rule, ok
}

// InitialStatus reports whether an appointment may be created directly in s.
func InitialStatus(s Status) bool {
	return s == StatusPending || s == StatusConfirmed
}
